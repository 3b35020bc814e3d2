// Package monitor drives the periodic acquisition and detection cycle
// across the tracked symbols.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Parow01/Parowbot/internal/detector"
	"github.com/Parow01/Parowbot/internal/exchange"
	"github.com/Parow01/Parowbot/internal/metrics"
	"github.com/Parow01/Parowbot/internal/trade"
)

// errorPause is how long the scheduler sleeps after an unexpected
// cycle-level failure before trying again.
const errorPause = 5 * time.Second

// Fetcher acquires recent trades for a symbol, reporting which source
// served them. Satisfied by exchange.Aggregator.
type Fetcher interface {
	RecentTrades(ctx context.Context, symbol string, limit int) ([]trade.Trade, string)
}

// Notifier delivers one whale alert downstream.
type Notifier interface {
	Deliver(ctx context.Context, t trade.Trade, symbol string) error
}

// Journal records emitted alerts. May be nil when journaling is off.
type Journal interface {
	Record(t trade.Trade)
}

// Config holds the scheduler's cadence knobs.
type Config struct {
	CheckInterval time.Duration
	SymbolDelay   time.Duration
	TradeLimit    int
	Symbols       []string
}

// Scheduler is the single driver of acquisition and detection. Symbols
// are processed serially within a cycle to respect shared per-source
// rate limits.
type Scheduler struct {
	cfg      Config
	fetcher  Fetcher
	detector *detector.Detector
	notifier Notifier
	journal  Journal
	log      zerolog.Logger
}

// New wires the scheduler. journal may be nil.
func New(cfg Config, fetcher Fetcher, det *detector.Detector, notifier Notifier, journal Journal, log zerolog.Logger) *Scheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.TradeLimit <= 0 {
		cfg.TradeLimit = 50
	}
	return &Scheduler{
		cfg:      cfg,
		fetcher:  fetcher,
		detector: det,
		notifier: notifier,
		journal:  journal,
		log:      log.With().Str("component", "monitor").Logger(),
	}
}

// Run executes cycles until the context is canceled. A failing cycle
// pauses briefly and retries; the loop itself never terminates on
// recoverable conditions.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().Strs("symbols", s.cfg.Symbols).Dur("interval", s.cfg.CheckInterval).Msg("starting whale monitoring loop")

	for {
		pause := s.cfg.CheckInterval
		if err := s.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error().Err(err).Msg("cycle failed, pausing before retry")
			pause = errorPause
		}
		select {
		case <-ctx.Done():
			s.log.Info().Msg("monitoring loop stopped")
			return ctx.Err()
		case <-time.After(pause):
		}
	}
}

// runCycle checks every symbol once. A panic anywhere in the cycle is
// converted to an error so one bug cannot take the process down.
func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	for i, symbol := range s.cfg.Symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.checkSymbol(ctx, symbol)

		// Short pause between symbols to smooth outbound bursts.
		if s.cfg.SymbolDelay > 0 && i < len(s.cfg.Symbols)-1 {
			select {
			case <-time.After(s.cfg.SymbolDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// checkSymbol runs one acquisition+detection pass. Failures are logged
// and never abort the cycle; the next symbol still gets its turn.
func (s *Scheduler) checkSymbol(ctx context.Context, symbol string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("symbol", symbol).Interface("panic", r).Msg("symbol check failed")
		}
	}()

	trades, source := s.fetcher.RecentTrades(ctx, symbol, s.cfg.TradeLimit)
	if len(trades) == 0 {
		s.log.Debug().Str("symbol", symbol).Msg("no trades this cycle")
		return
	}
	s.log.Debug().Str("symbol", symbol).Str("source", source).Int("trades", len(trades)).Msg("fetched trades")

	for _, whale := range s.detector.DetectWhales(trades, symbol) {
		s.emit(ctx, whale, symbol)
	}
}

// ConsumeStream feeds live trades from the websocket path into the
// same detector. The detector's dedup cache keeps the streaming and
// polling paths from double-alerting on the same trade.
func (s *Scheduler) ConsumeStream(ctx context.Context, in <-chan trade.Trade) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			for _, whale := range s.detector.DetectWhales([]trade.Trade{t}, t.Symbol) {
				s.emit(ctx, whale, t.Symbol)
			}
		}
	}
}

func (s *Scheduler) emit(ctx context.Context, whale trade.Trade, symbol string) {
	if err := s.notifier.Deliver(ctx, whale, symbol); err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("alert delivery failed")
		return
	}
	metrics.AlertsSent.WithLabelValues(symbol).Inc()
	if s.journal != nil {
		s.journal.Record(whale)
	}
	s.log.Info().Str("symbol", symbol).Float64("usd", whale.USDValue()).Str("source", whale.Source).Msg("whale alert sent")
}

// Ensure the aggregator keeps satisfying the Fetcher contract.
var _ Fetcher = (*exchange.Aggregator)(nil)
