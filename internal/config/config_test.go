package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "parowbot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if len(cfg.Monitor.Symbols) != 2 || cfg.Monitor.Symbols[0] != "BTCUSDT" {
		t.Fatalf("unexpected symbols: %+v", cfg.Monitor.Symbols)
	}
	if cfg.Monitor.CheckIntervalSecs != 60 {
		t.Fatalf("unexpected check interval: %d", cfg.Monitor.CheckIntervalSecs)
	}
	if cfg.Sources.MaxRequestsPerMinute != 100 {
		t.Fatalf("unexpected request budget: %d", cfg.Sources.MaxRequestsPerMinute)
	}
	if cfg.Sources.MaxRetries != 3 {
		t.Fatalf("unexpected max retries: %d", cfg.Sources.MaxRetries)
	}
	if cfg.Whales.DefaultThresholdUSD != 10000 {
		t.Fatalf("unexpected default threshold: %.2f", cfg.Whales.DefaultThresholdUSD)
	}
	if cfg.Whales.Thresholds["BTC"] != 100000 {
		t.Fatalf("unexpected BTC threshold: %.2f", cfg.Whales.Thresholds["BTC"])
	}
	if cfg.Stream.Enabled {
		t.Fatalf("expected stream disabled in fixture")
	}
	if cfg.Journal.Path != "data/alerts.jsonl" {
		t.Fatalf("unexpected journal path: %s", cfg.Journal.Path)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("MONITORED_SYMBOLS", "solusdt, xrpusdt")
	t.Setenv("WHALE_THRESHOLDS", "BTC:200000,SOLUSDT:15000")
	t.Setenv("DEFAULT_WHALE_THRESHOLD", "25000")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("expected env token override, got %s", cfg.Telegram.Token)
	}
	if len(cfg.Monitor.Symbols) != 2 || cfg.Monitor.Symbols[0] != "SOLUSDT" || cfg.Monitor.Symbols[1] != "XRPUSDT" {
		t.Fatalf("unexpected symbol override: %+v", cfg.Monitor.Symbols)
	}
	if cfg.Whales.Thresholds["BTC"] != 200000 {
		t.Fatalf("unexpected BTC threshold override: %.2f", cfg.Whales.Thresholds["BTC"])
	}
	if cfg.Whales.Thresholds["SOL"] != 15000 {
		t.Fatalf("expected SOLUSDT entry stripped to SOL: %+v", cfg.Whales.Thresholds)
	}
	if cfg.Whales.DefaultThresholdUSD != 25000 {
		t.Fatalf("unexpected default threshold override: %.2f", cfg.Whales.DefaultThresholdUSD)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for empty config")
	}
}

func TestParseThresholdsSkipsMalformed(t *testing.T) {
	parsed := ParseThresholds("BTC:100000,bogus,ETH:abc,ADA:10000")
	if len(parsed) != 2 {
		t.Fatalf("expected 2 parsed entries, got %+v", parsed)
	}
	if parsed["BTC"] != 100000 || parsed["ADA"] != 10000 {
		t.Fatalf("unexpected parsed values: %+v", parsed)
	}
}
