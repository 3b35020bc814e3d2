package exchange

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Parow01/Parowbot/internal/trade"
)

const defaultBinanceBaseURL = "https://api.binance.com"

// Binance pulls recent spot trades from the Binance public REST API.
type Binance struct {
	client  *Client
	baseURL string
	log     zerolog.Logger
}

type binanceTrade struct {
	ID           int64  `json:"id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	Time         int64  `json:"time"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

// NewBinance builds the Binance adapter on top of the shared client.
func NewBinance(client *Client, baseURL string, log zerolog.Logger) *Binance {
	if baseURL == "" {
		baseURL = defaultBinanceBaseURL
	}
	return &Binance{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log.With().Str("source", "binance").Logger(),
	}
}

func (b *Binance) Name() string { return "binance" }

// RecentTrades fetches up to limit trades for the symbol. Records with
// unparseable numeric fields are skipped individually.
func (b *Binance) RecentTrades(ctx context.Context, symbol string, limit int) ([]trade.Trade, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var raw []binanceTrade
	if err := b.client.GetJSON(ctx, b.baseURL+"/api/v3/trades", params, &raw); err != nil {
		return nil, err
	}

	trades := make([]trade.Trade, 0, len(raw))
	for _, r := range raw {
		price, err := strconv.ParseFloat(r.Price, 64)
		if err != nil {
			b.log.Warn().Str("price", r.Price).Msg("skipping trade with bad price")
			continue
		}
		qty, err := strconv.ParseFloat(r.Qty, 64)
		if err != nil {
			b.log.Warn().Str("qty", r.Qty).Msg("skipping trade with bad quantity")
			continue
		}
		// isBuyerMaker means the buyer sat on the book, so the
		// aggressor was a seller.
		side := trade.Buy
		if r.IsBuyerMaker {
			side = trade.Sell
		}
		trades = append(trades, trade.Trade{
			Symbol: symbol,
			Price:  price,
			Qty:    qty,
			Side:   side,
			Time:   r.Time,
			ID:     strconv.FormatInt(r.ID, 10),
			Source: b.Name(),
		})
	}
	return trades, nil
}

// Ping hits the unauthenticated ping endpoint.
func (b *Binance) Ping(ctx context.Context) bool {
	return b.client.GetJSON(ctx, b.baseURL+"/api/v3/ping", nil, &struct{}{}) == nil
}
