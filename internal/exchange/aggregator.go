package exchange

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Parow01/Parowbot/internal/metrics"
	"github.com/Parow01/Parowbot/internal/trade"
)

// Aggregator queries sources in a fixed priority order and serves the
// first non-empty result. Upstream availability of any single exchange
// is not guaranteed, so fallback trades latency for availability
// without the caller knowing about multiple sources.
type Aggregator struct {
	sources []Source
	log     zerolog.Logger

	mu         sync.Mutex
	lastSource string
}

// NewAggregator wires sources in priority order, primary first.
func NewAggregator(log zerolog.Logger, sources ...Source) *Aggregator {
	return &Aggregator{
		sources:    sources,
		log:        log,
		lastSource: SourceNone,
	}
}

// RecentTrades returns the first non-empty result along with the name
// of the source that served it. When every source comes back empty or
// failing, it returns an empty list and the SourceNone sentinel.
func (a *Aggregator) RecentTrades(ctx context.Context, symbol string, limit int) ([]trade.Trade, string) {
	for i, src := range a.sources {
		trades, err := src.RecentTrades(ctx, symbol, limit)
		if err != nil {
			a.log.Warn().Err(err).Str("source", src.Name()).Str("symbol", symbol).Msg("source failed, trying next")
			continue
		}
		if len(trades) == 0 {
			continue
		}
		if i > 0 {
			a.log.Info().Str("source", src.Name()).Str("symbol", symbol).Msg("served by fallback source")
		}
		a.recordSource(src.Name())
		metrics.TradesFetched.WithLabelValues(src.Name(), symbol).Add(float64(len(trades)))
		return trades, src.Name()
	}
	a.log.Warn().Str("symbol", symbol).Msg("all sources returned no data")
	return nil, SourceNone
}

// LastSource reports the most recent source that served data, or the
// SourceNone sentinel before the first success. Not persisted across
// restarts.
func (a *Aggregator) LastSource() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSource
}

func (a *Aggregator) recordSource(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastSource != name {
		for _, src := range a.sources {
			metrics.SourceInUse.WithLabelValues(src.Name()).Set(0)
		}
		metrics.SourceInUse.WithLabelValues(name).Set(1)
	}
	a.lastSource = name
}

// Ping probes every configured source, returning true if at least one
// answers.
func (a *Aggregator) Ping(ctx context.Context) bool {
	ok := false
	for _, src := range a.sources {
		if src.Ping(ctx) {
			a.log.Info().Str("source", src.Name()).Msg("source reachable")
			ok = true
		} else {
			a.log.Warn().Str("source", src.Name()).Msg("source unreachable")
		}
	}
	return ok
}
