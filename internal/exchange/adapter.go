package exchange

import (
	"context"

	"github.com/Parow01/Parowbot/internal/trade"
)

// SourceNone is the sentinel name reported when no source produced data.
const SourceNone = "none"

// Source is a single upstream trade provider. Implementations own their
// request shaping and the mapping from the native response shape to the
// canonical trade record.
type Source interface {
	// Name identifies the source in logs, metrics, and trade records.
	Name() string
	// RecentTrades returns up to limit recent trades for the symbol.
	// An empty slice with a nil error means the source had nothing to
	// report; errors are degraded to "no data" by the aggregator.
	RecentTrades(ctx context.Context, symbol string, limit int) ([]trade.Trade, error)
	// Ping reports whether the source answers at all. Used for startup
	// health checks; a false result is not fatal.
	Ping(ctx context.Context) bool
}
