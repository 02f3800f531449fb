package indicators

import "math"

// SMA calculates Simple Moving Average over the trailing period.
func SMA(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	return average(values[len(values)-period:])
}

// TrueRanges returns the true-range series for OHLC data. The first bar has
// no previous close, so the result has len(closes)-1 entries.
func TrueRanges(highs, lows, closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	trs := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		tr := math.Max(
			highs[i]-lows[i],
			math.Max(
				math.Abs(highs[i]-closes[i-1]),
				math.Abs(lows[i]-closes[i-1]),
			),
		)
		trs = append(trs, tr)
	}
	return trs
}

// ATR calculates Average True Range as a simple moving average of the
// true-range series.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) < period+1 || len(lows) < period+1 || len(closes) < period+1 {
		return 0
	}
	return SMA(TrueRanges(highs, lows, closes), period)
}

func average(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}
