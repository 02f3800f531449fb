package exchange

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DELTA EXCHANGE CLIENT
// ═══════════════════════════════════════════════════════════════════════════════
//
// Handles authenticated REST calls against a Delta-style derivatives API.
// Signature: HMAC-SHA256 over method + timestamp + path + query + body.
//
// ═══════════════════════════════════════════════════════════════════════════════

type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	dryRun     bool
	httpClient *http.Client
}

// NewClient creates a new exchange client.
func NewClient(baseURL, apiKey, apiSecret string, dryRun bool) *Client {
	mode := "LIVE"
	if dryRun {
		mode = "DRY RUN"
	}
	log.Info().
		Str("base_url", baseURL).
		Str("mode", mode).
		Msg("🔌 Exchange client initialized")

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		dryRun:     dryRun,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// IsDryRun returns true if order placement is simulated.
func (c *Client) IsDryRun() bool { return c.dryRun }

// GetTicker returns the ticker for one symbol.
func (c *Client) GetTicker(symbol string) (Ticker, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	raw, err := c.request(http.MethodGet, "/v2/tickers", q, nil)
	if err != nil {
		return Ticker{}, err
	}

	var tickers []Ticker
	if err := json.Unmarshal(raw, &tickers); err != nil {
		return Ticker{}, fmt.Errorf("get ticker: parse response: %w", err)
	}
	for _, t := range tickers {
		if t.Symbol == symbol {
			return t, nil
		}
	}
	return Ticker{}, fmt.Errorf("get ticker: symbol %q not in response", symbol)
}

// GetProduct returns instrument metadata for a product.
func (c *Client) GetProduct(productID int) (Product, error) {
	raw, err := c.request(http.MethodGet, "/v2/products/"+strconv.Itoa(productID), nil, nil)
	if err != nil {
		return Product{}, err
	}

	var product Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return Product{}, fmt.Errorf("get product: parse response: %w", err)
	}
	return product, nil
}

// GetBalances returns all wallet entries.
func (c *Client) GetBalances() ([]Balance, error) {
	raw, err := c.request(http.MethodGet, "/v2/wallet/balances", nil, nil)
	if err != nil {
		return nil, err
	}

	var balances []Balance
	if err := json.Unmarshal(raw, &balances); err != nil {
		return nil, fmt.Errorf("get balances: parse response: %w", err)
	}
	return balances, nil
}

// GetPosition returns the open margined position for a product, or nil when
// flat. It tries the filtered endpoint first and falls back to fetching all
// positions and filtering locally when the filtered call fails (some testnets
// reject the product_id filter). Pure network errors are not recovered.
func (c *Client) GetPosition(productID int) (*Position, error) {
	q := url.Values{}
	q.Set("product_id", strconv.Itoa(productID))

	raw, err := c.request(http.MethodGet, "/v2/positions/margined", q, nil)
	if err == nil {
		var positions []Position
		if perr := json.Unmarshal(raw, &positions); perr != nil {
			return nil, fmt.Errorf("get position: parse response: %w", perr)
		}
		if len(positions) == 0 {
			return nil, nil
		}
		if positions[0].ProductID == productID {
			return &positions[0], nil
		}
		log.Warn().
			Int("want", productID).
			Int("got", positions[0].ProductID).
			Msg("Filtered position call returned unexpected product, falling back")
	} else {
		var te *TransportError
		if errors.As(err, &te) && te.Status == 0 {
			return nil, err
		}
		log.Warn().Err(err).Msg("Filtered position call failed, fetching all positions")
	}

	raw, err = c.request(http.MethodGet, "/v2/positions/margined", nil, nil)
	if err != nil {
		return nil, err
	}

	var all []Position
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("get position: parse fallback response: %w", err)
	}
	for i := range all {
		if all[i].ProductID == productID {
			return &all[i], nil
		}
	}
	return nil, nil
}

// PlaceOrder places a limit or market order.
func (c *Client) PlaceOrder(req OrderRequest) (Order, error) {
	if c.dryRun {
		order := Order{ID: time.Now().UnixNano(), State: "open"}
		log.Info().
			Int64("order_id", order.ID).
			Str("side", req.Side).
			Str("type", req.OrderType).
			Int64("size", req.Size).
			Str("limit_price", req.LimitPrice).
			Msg("📝 DRY RUN: Order would be placed")
		return order, nil
	}
	return c.postOrder("place order", req)
}

// PlaceStopOrder places a stop-triggered order (stop-loss or take-profit leg).
func (c *Client) PlaceStopOrder(req OrderRequest) (Order, error) {
	req.StopOrderType = "stop_loss_order"
	if c.dryRun {
		order := Order{ID: time.Now().UnixNano(), State: "open"}
		log.Info().
			Int64("order_id", order.ID).
			Str("side", req.Side).
			Int64("size", req.Size).
			Str("stop_price", req.StopPrice).
			Msg("📝 DRY RUN: Stop order would be placed")
		return order, nil
	}
	return c.postOrder("place stop order", req)
}

func (c *Client) postOrder(op string, req OrderRequest) (Order, error) {
	raw, err := c.request(http.MethodPost, "/v2/orders", nil, req)
	if err != nil {
		return Order{}, err
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return Order{}, fmt.Errorf("%s: parse response: %w", op, err)
	}
	log.Info().
		Int64("order_id", order.ID).
		Str("state", order.State).
		Str("side", req.Side).
		Msg("✅ Order placed")
	return order, nil
}

// CancelOrder cancels a single order.
func (c *Client) CancelOrder(orderID int64) error {
	if c.dryRun {
		log.Info().Int64("order_id", orderID).Msg("📝 DRY RUN: Order would be cancelled")
		return nil
	}
	_, err := c.request(http.MethodDelete, "/v2/orders/"+strconv.FormatInt(orderID, 10), nil, nil)
	return err
}

// CancelAllOrders cancels all open orders for a product.
func (c *Client) CancelAllOrders(productID int) error {
	if c.dryRun {
		log.Info().Int("product_id", productID).Msg("📝 DRY RUN: All orders would be cancelled")
		return nil
	}
	q := url.Values{}
	q.Set("product_id", strconv.Itoa(productID))
	_, err := c.request(http.MethodDelete, "/v2/orders", q, nil)
	return err
}

// GetCandles returns OHLCV history for a symbol. Timestamps are unix seconds.
func (c *Client) GetCandles(symbol, resolution string, start, end int64) ([]Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", resolution)
	q.Set("start", strconv.FormatInt(start, 10))
	q.Set("end", strconv.FormatInt(end, 10))

	raw, err := c.request(http.MethodGet, "/v2/history/candles", q, nil)
	if err != nil {
		return nil, err
	}

	var candles []Candle
	if err := json.Unmarshal(raw, &candles); err != nil {
		return nil, fmt.Errorf("get candles: parse response: %w", err)
	}
	return candles, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// SIGNED REQUESTS
// ═══════════════════════════════════════════════════════════════════════════════

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *apiError       `json:"error"`
}

// request performs one signed call and unwraps the response envelope.
func (c *Client) request(method, path string, query url.Values, body any) (json.RawMessage, error) {
	op := method + " " + path

	queryStr := ""
	if len(query) > 0 {
		queryStr = "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := c.sign(method, timestamp, path, queryStr, string(payload))

	req, err := http.NewRequest(method, c.baseURL+path+queryStr, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("timestamp", timestamp)
	req.Header.Set("signature", signature)
	req.Header.Set("User-Agent", "deltabot/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		if resp.StatusCode >= 400 {
			return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New("empty error response")}
		}
		return nil, nil
	}

	if resp.StatusCode >= 500 {
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s", respBody)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s", respBody)}
		}
		return nil, fmt.Errorf("%s: parse envelope: %w", op, err)
	}

	if !env.Success {
		rejected := &RejectedError{Op: op, Status: resp.StatusCode}
		if env.Error != nil {
			rejected.Code = env.Error.Code
			rejected.Message = env.Error.Message
			if env.Error.Code == "ip_not_whitelisted_for_api_key" {
				log.Error().Msg("IP address not whitelisted for this API key, update key settings on the exchange")
			}
		}
		return nil, rejected
	}

	return env.Result, nil
}

// sign computes the request signature per Delta's signing scheme.
func (c *Client) sign(method, timestamp, path, query, body string) string {
	message := method + timestamp + path + query + body
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
