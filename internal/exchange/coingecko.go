package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Parow01/Parowbot/internal/trade"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com"

// coinGeckoIDs maps exchange pair symbols to CoinGecko coin ids.
var coinGeckoIDs = map[string]string{
	"BTCUSDT":   "bitcoin",
	"ETHUSDT":   "ethereum",
	"BNBUSDT":   "binancecoin",
	"ADAUSDT":   "cardano",
	"SOLUSDT":   "solana",
	"XRPUSDT":   "ripple",
	"TONUSDT":   "the-open-network",
	"COREUSDT":  "coredaoorg",
	"DOGEUSDT":  "dogecoin",
	"MATICUSDT": "matic-network",
	"LINKUSDT":  "chainlink",
	"AVAXUSDT":  "avalanche-2",
	"DOTUSDT":   "polkadot",
	"LTCUSDT":   "litecoin",
	"UNIUSDT":   "uniswap",
}

// ThresholdFunc resolves the whale threshold for a symbol. The
// simulator needs it to size fabricated trades above the bar.
type ThresholdFunc func(symbol string) float64

// CoinGecko is the last-resort source for regions where exchange APIs
// are blocked. It reads real spot prices from CoinGecko and, when
// simulation is enabled, fabricates whale-sized trades around them.
// Fabricated trades are always labeled with a simulated source name so
// they can never masquerade as exchange data.
type CoinGecko struct {
	client    *Client
	baseURL   string
	threshold ThresholdFunc
	simulate  bool
	log       zerolog.Logger

	mu         sync.Mutex
	rng        *rand.Rand
	lastPrices map[string]float64
}

// NewCoinGecko builds the CoinGecko-backed source. With simulate false
// the source only answers pings and price lookups and never yields
// trades.
func NewCoinGecko(client *Client, baseURL string, threshold ThresholdFunc, simulate bool, log zerolog.Logger) *CoinGecko {
	if baseURL == "" {
		baseURL = defaultCoinGeckoBaseURL
	}
	return &CoinGecko{
		client:     client,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		threshold:  threshold,
		simulate:   simulate,
		log:        log.With().Str("source", "coingecko-sim").Logger(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		lastPrices: make(map[string]float64),
	}
}

func (c *CoinGecko) Name() string { return "coingecko-sim" }

// RecentTrades returns simulated whale trades anchored to the live
// CoinGecko price, or nothing when simulation is disabled.
func (c *CoinGecko) RecentTrades(ctx context.Context, symbol string, _ int) ([]trade.Trade, error) {
	if !c.simulate {
		return nil, nil
	}
	prices, err := c.CurrentPrices(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	price, ok := prices[symbol]
	if !ok || price <= 0 {
		c.log.Warn().Str("symbol", symbol).Msg("no price data available")
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPrices[symbol] = price
	return c.generateWhale(symbol, price), nil
}

// generateWhale fabricates at most one whale trade per poll. Caller
// holds c.mu.
func (c *CoinGecko) generateWhale(symbol string, price float64) []trade.Trade {
	// One in four polls produces a trade, mirroring real whale
	// activity closely enough for demonstrations.
	if c.rng.Float64() >= 0.25 {
		return nil
	}
	side := trade.Buy
	if c.rng.Float64() < 0.5 {
		side = trade.Sell
	}

	// Size the trade 10%-400% above the symbol's threshold.
	multiplier := 1.1 + c.rng.Float64()*3.9
	qty := c.threshold(symbol) * multiplier / price

	// A trade this size moves the price a little in its own direction.
	variation := 0.001 + c.rng.Float64()*0.009
	if side == trade.Sell {
		variation = -variation
	}
	tradePrice := price * (1 + variation)

	now := time.Now()
	t := trade.Trade{
		Symbol: symbol,
		Price:  tradePrice,
		Qty:    qty,
		Side:   side,
		Time:   now.UnixMilli(),
		ID:     fmt.Sprintf("whale_%d_%d", now.Unix(), 10000+c.rng.Intn(90000)),
		Source: c.Name(),
	}
	c.log.Info().Str("symbol", symbol).Str("side", string(side)).Float64("usd", t.USDValue()).Msg("generated simulated whale trade")
	return []trade.Trade{t}
}

// CurrentPrices resolves live USD prices for the given pair symbols.
// Symbols without a CoinGecko id mapping are silently absent from the
// result.
func (c *CoinGecko) CurrentPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	ids := make([]string, 0, len(symbols))
	idToSymbol := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		if id, ok := coinGeckoIDs[sym]; ok {
			ids = append(ids, id)
			idToSymbol[id] = sym
		}
	}
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")

	var raw map[string]map[string]float64
	if err := c.client.GetJSON(ctx, c.baseURL+"/api/v3/simple/price", params, &raw); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(raw))
	for id, entry := range raw {
		sym, ok := idToSymbol[id]
		if !ok {
			continue
		}
		if usd, ok := entry["usd"]; ok && usd > 0 {
			prices[sym] = usd
		}
	}
	return prices, nil
}

// Ping checks the CoinGecko ping endpoint.
func (c *CoinGecko) Ping(ctx context.Context) bool {
	var resp struct {
		GeckoSays string `json:"gecko_says"`
	}
	if err := c.client.GetJSON(ctx, c.baseURL+"/api/v3/ping", nil, &resp); err != nil {
		return false
	}
	return resp.GeckoSays != ""
}
