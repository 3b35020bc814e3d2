package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Parow01/Parowbot/internal/config"
	"github.com/Parow01/Parowbot/internal/detector"
	"github.com/Parow01/Parowbot/internal/exchange"
	"github.com/Parow01/Parowbot/internal/health"
	"github.com/Parow01/Parowbot/internal/journal"
	"github.com/Parow01/Parowbot/internal/metrics"
	"github.com/Parow01/Parowbot/internal/monitor"
	"github.com/Parow01/Parowbot/internal/notify"
	"github.com/Parow01/Parowbot/internal/trade"
	"github.com/Parow01/Parowbot/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	flag.Parse()

	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}

	log := util.NewLogger(cfg.App.LogLevel)
	if cfg.App.Env == "dev" {
		log = util.NewConsoleLogger(cfg.App.LogLevel)
	}
	log.Info().Str("env", cfg.App.Env).Strs("symbols", cfg.Monitor.Symbols).Msg("starting whale alert bot")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clientCfg := exchange.ClientConfig{
		MaxRetries:        cfg.Sources.MaxRetries,
		RetryDelay:        time.Duration(cfg.Sources.RetryDelaySecs) * time.Second,
		RequestsPerMinute: cfg.Sources.MaxRequestsPerMinute,
	}

	det := detector.New(cfg.Whales.Thresholds, cfg.Whales.DefaultThresholdUSD, log)

	binance := exchange.NewBinance(exchange.NewClient("binance", clientCfg, log), cfg.Sources.BinanceBaseURL, log)
	bybit := exchange.NewBybit(exchange.NewClient("bybit", clientCfg, log), cfg.Sources.BybitBaseURL, log)
	gecko := exchange.NewCoinGecko(
		exchange.NewClient("coingecko", clientCfg, log),
		cfg.Sources.CoinGeckoBaseURL,
		det.Threshold,
		cfg.Sources.SimulationEnabled,
		log,
	)
	agg := exchange.NewAggregator(log, binance, bybit, gecko)

	if !agg.Ping(ctx) {
		log.Warn().Msg("no upstream source reachable at startup, continuing anyway")
	}

	notifier := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.BaseURL, log)
	if !notifier.Ping(ctx) {
		log.Warn().Msg("telegram bot unreachable, alerts may not deliver")
	}

	var alertJournal monitor.Journal
	if cfg.Journal.Path != "" {
		recorder, err := journal.NewRecorder(cfg.Journal.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("open alert journal")
		}
		defer recorder.Close()
		alertJournal = recorder
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	healthSrv := health.Serve(cfg.App.HealthAddr, cfg.Monitor.Symbols, det, agg.LastSource)
	defer healthSrv.Close()
	log.Info().Str("addr", cfg.App.HealthAddr).Msg("keepalive up")

	sched := monitor.New(monitor.Config{
		CheckInterval: time.Duration(cfg.Monitor.CheckIntervalSecs) * time.Second,
		SymbolDelay:   time.Duration(cfg.Monitor.SymbolDelaySecs) * time.Second,
		TradeLimit:    cfg.Monitor.TradeLimit,
		Symbols:       cfg.Monitor.Symbols,
	}, agg, det, notifier, alertJournal, log)

	if cfg.Stream.Enabled {
		stream := exchange.NewStream(cfg.Stream.URL, cfg.Monitor.Symbols, log)
		live := make(chan trade.Trade, 1024)
		go func() {
			if err := stream.Run(ctx, live); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("trade stream stopped")
			}
			close(live)
		}()
		go sched.ConsumeStream(ctx, live)
	}

	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("monitoring loop exited")
	}
	log.Info().Msg("shutdown complete")
}
