// Package detector classifies canonical trades against per-asset USD
// thresholds and suppresses repeat alerts for the same underlying
// trade.
package detector

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Parow01/Parowbot/internal/metrics"
	"github.com/Parow01/Parowbot/internal/trade"
)

const (
	// maxAlertsPerSymbol caps the dedup cache per symbol.
	maxAlertsPerSymbol = 100
	// trimKeepCount is how many of the newest keys survive a trim.
	trimKeepCount = 50
)

// Detector owns the threshold table and the bounded dedup cache. Both
// live only for the process lifetime; a restart silently resets dedup
// memory, which is an accepted limitation.
type Detector struct {
	mu               sync.Mutex
	thresholds       map[string]float64
	defaultThreshold float64
	recent           map[string]*alertCache
	log              zerolog.Logger
}

// alertCache tracks recently alerted trade keys for one symbol in
// insertion order.
type alertCache struct {
	keys  map[string]struct{}
	order []string
}

// Summary is the read-only introspection view for one symbol.
type Summary struct {
	Symbol       string  `json:"symbol"`
	ThresholdUSD float64 `json:"threshold_usd"`
	RecentAlerts int     `json:"recent_alerts_count"`
	Status       string  `json:"detector_status"`
}

// New constructs a detector with its own copy of the threshold table.
func New(thresholds map[string]float64, defaultThreshold float64, log zerolog.Logger) *Detector {
	owned := make(map[string]float64, len(thresholds))
	for k, v := range thresholds {
		owned[strings.ToUpper(k)] = v
	}
	return &Detector{
		thresholds:       owned,
		defaultThreshold: defaultThreshold,
		recent:           make(map[string]*alertCache),
		log:              log,
	}
}

// DetectWhales runs each trade through the threshold gate and then the
// dedup gate, returning the trades that cleared both in input order.
func (d *Detector) DetectWhales(trades []trade.Trade, symbol string) []trade.Trade {
	if len(trades) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	threshold := d.thresholdLocked(symbol)
	var whales []trade.Trade
	for _, t := range trades {
		if !t.Valid() {
			continue
		}
		usd := t.USDValue()
		if usd < threshold {
			continue
		}
		key := t.Key()
		cache := d.cacheFor(symbol)
		if _, seen := cache.keys[key]; seen {
			d.log.Debug().Str("symbol", symbol).Str("key", key).Msg("duplicate alert suppressed")
			continue
		}
		cache.insert(key)
		whales = append(whales, t)
		metrics.WhalesDetected.WithLabelValues(symbol).Inc()
		d.log.Info().Str("symbol", symbol).Str("side", string(t.Side)).Float64("usd", usd).Float64("threshold", threshold).Msg("whale detected")
	}
	return whales
}

// Threshold resolves the configured threshold for a symbol, stripping
// the quote suffix and falling back to the default.
func (d *Detector) Threshold(symbol string) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.thresholdLocked(symbol)
}

func (d *Detector) thresholdLocked(symbol string) float64 {
	if v, ok := d.thresholds[baseAsset(symbol)]; ok {
		return v
	}
	return d.defaultThreshold
}

// UpdateThreshold replaces the threshold for one asset at runtime.
func (d *Detector) UpdateThreshold(symbol string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("threshold must be positive, got %v", value)
	}
	base := baseAsset(symbol)
	d.mu.Lock()
	d.thresholds[base] = value
	d.mu.Unlock()
	d.log.Info().Str("asset", base).Float64("threshold", value).Msg("whale threshold updated")
	return nil
}

// Thresholds returns a copy of the current threshold table.
func (d *Detector) Thresholds() map[string]float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]float64, len(d.thresholds))
	for k, v := range d.thresholds {
		out[k] = v
	}
	return out
}

// Summary reports the detection state for one symbol without mutating
// anything.
func (d *Detector) Summary(symbol string) Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	if cache, ok := d.recent[symbol]; ok {
		count = len(cache.order)
	}
	return Summary{
		Symbol:       symbol,
		ThresholdUSD: d.thresholdLocked(symbol),
		RecentAlerts: count,
		Status:       "active",
	}
}

// cacheFor returns the per-symbol cache, creating it lazily. Caller
// holds d.mu.
func (d *Detector) cacheFor(symbol string) *alertCache {
	cache, ok := d.recent[symbol]
	if !ok {
		cache = &alertCache{keys: make(map[string]struct{})}
		d.recent[symbol] = cache
	}
	return cache
}

// insert records a key and trims the cache once it grows past the cap,
// keeping only the newest trimKeepCount entries.
func (c *alertCache) insert(key string) {
	c.keys[key] = struct{}{}
	c.order = append(c.order, key)
	if len(c.order) <= maxAlertsPerSymbol {
		return
	}
	kept := c.order[len(c.order)-trimKeepCount:]
	c.keys = make(map[string]struct{}, len(kept))
	for _, k := range kept {
		c.keys[k] = struct{}{}
	}
	c.order = append(c.order[:0], kept...)
}

// baseAsset strips the quote suffix from a trading pair.
func baseAsset(symbol string) string {
	s := strings.ToUpper(symbol)
	s = strings.TrimSuffix(s, "USDT")
	s = strings.TrimSuffix(s, "USDC")
	return s
}
