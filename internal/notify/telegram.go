// Package notify pushes trade and liquidation alerts to Telegram. The
// notifier is optional; callers get nil when no token is configured and must
// skip alerting.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/deltabot/internal/strategy"
)

// Notifier sends one-way alerts to a single chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	symbol string
}

// New creates a notifier, or returns (nil, nil) when no token is set.
func New(token string, chatID int64, symbol string) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Info().Str("bot", api.Self.UserName).Msg("🔔 Telegram alerts enabled")
	return &Notifier{api: api, chatID: chatID, symbol: symbol}, nil
}

// EntryPlaced reports a new bracket.
func (n *Notifier) EntryPlaced(pos *strategy.ActivePosition) {
	dirEmoji := "🟢"
	if pos.Side == strategy.SideSell {
		dirEmoji = "🔴"
	}
	n.send(fmt.Sprintf(`%s *%s %s*

💰 Entry: %s
📉 Stop Loss: %s
🎯 Take Profit: %s
📦 Size: %d contracts`,
		dirEmoji, n.symbol, pos.Side,
		pos.EntryPrice.StringFixed(2),
		pos.StopLossPrice.StringFixed(2),
		pos.TakeProfitPrice.StringFixed(2),
		pos.Size,
	))
}

// StopMoved reports a trailing-stop tightening.
func (n *Notifier) StopMoved(oldStop, newStop decimal.Decimal) {
	n.send(fmt.Sprintf("🔒 *%s trailing stop moved*\n\n%s → %s",
		n.symbol, oldStop.StringFixed(2), newStop.StringFixed(2)))
}

// Liquidated reports the portfolio stop-loss firing.
func (n *Notifier) Liquidated(report strategy.LiquidationReport, changePct decimal.Decimal) {
	n.send(fmt.Sprintf(`🚨 *PORTFOLIO STOP LOSS*

📉 Equity change: %s%%
🗑 Cancel orders: %s
❌ Close position: %s (%d contracts)`,
		changePct.StringFixed(2),
		report.CancelOrders,
		report.ClosePosition,
		report.ClosedSize,
	))
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("Telegram send failed")
	}
}
