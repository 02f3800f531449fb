// Package feed streams live mark prices over the exchange websocket. It is a
// supplement to REST ticker polling: consumers fall back to REST when the
// cached price goes stale.
package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const staleAfter = 30 * time.Second

// Feed holds the latest mark price for one symbol.
type Feed struct {
	url    string
	symbol string

	mu      sync.RWMutex
	conn    *websocket.Conn
	price   decimal.Decimal
	updated time.Time
	running bool
	stopCh  chan struct{}
}

// New creates a feed for a symbol.
func New(url, symbol string) *Feed {
	return &Feed{
		url:    url,
		symbol: symbol,
		stopCh: make(chan struct{}),
	}
}

// Start connects and begins streaming in the background.
func (f *Feed) Start() {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()

	go f.run()
	log.Info().Str("url", f.url).Str("symbol", f.symbol).Msg("📈 Price feed started")
}

// Stop closes the connection and halts reconnects.
func (f *Feed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	f.running = false
	close(f.stopCh)
	if f.conn != nil {
		f.conn.Close()
	}
	log.Info().Msg("Price feed stopped")
}

// Price returns the cached mark price and whether it is fresh enough to use.
func (f *Feed) Price() (decimal.Decimal, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.updated.IsZero() || time.Since(f.updated) > staleAfter {
		return decimal.Zero, false
	}
	return f.price, true
}

func (f *Feed) isRunning() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.running
}

func (f *Feed) run() {
	for f.isRunning() {
		if err := f.connect(); err != nil {
			log.Error().Err(err).Msg("Feed connection failed")
			select {
			case <-f.stopCh:
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		f.readMessages()

		if f.isRunning() {
			log.Warn().Msg("Feed disconnected, reconnecting...")
			time.Sleep(time.Second)
		}
	}
}

func (f *Feed) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	if err != nil {
		return err
	}

	sub := map[string]any{
		"type": "subscribe",
		"payload": map[string]any{
			"channels": []map[string]any{
				{"name": "v2/ticker", "symbols": []string{f.symbol}},
			},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return err
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	return nil
}

type tickerMessage struct {
	Type      string          `json:"type"`
	Symbol    string          `json:"symbol"`
	MarkPrice decimal.Decimal `json:"mark_price"`
	Close     decimal.Decimal `json:"close"`
}

func (f *Feed) readMessages() {
	for {
		_, raw, err := f.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg tickerMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type != "v2/ticker" || msg.Symbol != f.symbol {
			continue
		}

		price := msg.MarkPrice
		if !price.IsPositive() {
			price = msg.Close
		}
		if !price.IsPositive() {
			continue
		}

		f.mu.Lock()
		f.price = price
		f.updated = time.Now()
		f.mu.Unlock()
	}
}
