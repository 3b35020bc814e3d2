package exchange

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Parow01/Parowbot/internal/trade"
)

const defaultBybitBaseURL = "https://api.bybit.com"

// Bybit pulls recent spot trades from the Bybit v5 public REST API.
type Bybit struct {
	client  *Client
	baseURL string
	log     zerolog.Logger
}

type bybitResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string       `json:"category"`
		List     []bybitTrade `json:"list"`
	} `json:"result"`
}

type bybitTrade struct {
	ExecID string `json:"execId"`
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Size   string `json:"size"`
	Side   string `json:"side"`
	Time   string `json:"time"`
}

// NewBybit builds the Bybit adapter on top of the shared client.
func NewBybit(client *Client, baseURL string, log zerolog.Logger) *Bybit {
	if baseURL == "" {
		baseURL = defaultBybitBaseURL
	}
	return &Bybit{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log.With().Str("source", "bybit").Logger(),
	}
}

func (b *Bybit) Name() string { return "bybit" }

// RecentTrades fetches up to limit trades for the symbol. Bybit wraps
// results in a retCode envelope; anything but retCode 0 is treated as
// no data.
func (b *Bybit) RecentTrades(ctx context.Context, symbol string, limit int) ([]trade.Trade, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	params := url.Values{}
	params.Set("category", "spot")
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var resp bybitResponse
	if err := b.client.GetJSON(ctx, b.baseURL+"/v5/market/recent-trade", params, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		b.log.Warn().Int("retCode", resp.RetCode).Str("retMsg", resp.RetMsg).Msg("bybit returned error envelope")
		return nil, nil
	}

	trades := make([]trade.Trade, 0, len(resp.Result.List))
	for _, r := range resp.Result.List {
		price, err := strconv.ParseFloat(r.Price, 64)
		if err != nil {
			b.log.Warn().Str("price", r.Price).Msg("skipping trade with bad price")
			continue
		}
		qty, err := strconv.ParseFloat(r.Size, 64)
		if err != nil {
			b.log.Warn().Str("size", r.Size).Msg("skipping trade with bad size")
			continue
		}
		ts, err := strconv.ParseInt(r.Time, 10, 64)
		if err != nil {
			b.log.Warn().Str("time", r.Time).Msg("skipping trade with bad timestamp")
			continue
		}
		side := trade.Buy
		if strings.EqualFold(r.Side, "Sell") {
			side = trade.Sell
		}
		trades = append(trades, trade.Trade{
			Symbol: symbol,
			Price:  price,
			Qty:    qty,
			Side:   side,
			Time:   ts,
			ID:     r.ExecID,
			Source: b.Name(),
		})
	}
	return trades, nil
}

// Ping checks the v5 server time endpoint.
func (b *Bybit) Ping(ctx context.Context) bool {
	var resp bybitResponse
	if err := b.client.GetJSON(ctx, b.baseURL+"/v5/market/time", nil, &resp); err != nil {
		return false
	}
	return resp.RetCode == 0
}
