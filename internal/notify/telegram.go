// Package notify delivers whale alerts to the configured Telegram
// chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Parow01/Parowbot/internal/trade"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram posts Markdown-formatted alerts via the Bot API.
type Telegram struct {
	http    *http.Client
	baseURL string
	token   string
	chatID  string
	log     zerolog.Logger
}

// NewTelegram builds the notifier. baseURL is overridable for tests.
func NewTelegram(token, chatID, baseURL string, log zerolog.Logger) *Telegram {
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	return &Telegram{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		log:     log.With().Str("component", "telegram").Logger(),
	}
}

// Deliver formats and sends one whale alert.
func (t *Telegram) Deliver(ctx context.Context, tr trade.Trade, symbol string) error {
	return t.SendMessage(ctx, FormatWhaleMessage(tr, symbol))
}

// SendMessage posts raw Markdown text to the configured chat.
func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram rejected message: %s", result.Description)
	}
	return nil
}

// Ping verifies the bot token against getMe.
func (t *Telegram) Ping(ctx context.Context) bool {
	url := fmt.Sprintf("%s/bot%s/getMe", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := t.http.Do(req)
	if err != nil {
		t.log.Warn().Err(err).Msg("getMe failed")
		return false
	}
	defer resp.Body.Close()

	var result struct {
		OK     bool `json:"ok"`
		Result struct {
			Username string `json:"username"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}
	if result.OK {
		t.log.Info().Str("bot", result.Result.Username).Msg("connected to telegram bot")
	}
	return result.OK
}

// FormatWhaleMessage renders the alert text for one whale trade.
// Aggressive buys read as exchange inflow, sells as outflow.
func FormatWhaleMessage(tr trade.Trade, symbol string) string {
	asset := strings.TrimSuffix(strings.TrimSuffix(symbol, "USDT"), "USDC")
	ts := time.UnixMilli(tr.Time).UTC().Format("15:04:05")

	direction, typeWord := "OUTFLOW", "Outflow"
	emoji := "🔴📉"
	pressure := "POSSIBLE BUY PRESSURE"
	action := "from"
	if tr.Side == trade.Buy {
		direction, typeWord = "INFLOW", "Inflow"
		emoji = "🟢📈"
		pressure = "POSSIBLE SELL PRESSURE"
		action = "to"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🐋 *WHALE ALERT – %s DETECTED* %s\n", direction, emoji)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "🪙 *Asset:* `%s`\n", asset)
	fmt.Fprintf(&b, "📥 *Type:* %s %s Exchange\n", typeWord, action)
	fmt.Fprintf(&b, "💰 *Amount:* `%.4f %s`\n", tr.Qty, asset)
	fmt.Fprintf(&b, "💵 *Price:* `$%.4f`\n", tr.Price)
	fmt.Fprintf(&b, "📦 *Total USD:* `$%.2f`\n", tr.USDValue())
	fmt.Fprintf(&b, "⏰ *Time:* `%s UTC`\n", ts)
	fmt.Fprintf(&b, "🌐 *Source:* `%s`\n", tr.Source)
	fmt.Fprintf(&b, "📉 *Pair:* `%s`\n", symbol)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "📊 *Likely Effect:* `%s`\n", pressure)
	b.WriteString("🧭 *Watch next 15 mins for price movement*\n")
	fmt.Fprintf(&b, "📈 [View Chart](https://www.tradingview.com/symbols/%s/)", strings.Replace(symbol, "USDT", "USD", 1))
	return b.String()
}
