// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, and addresses.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	HealthAddr  string `yaml:"health_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Telegram holds delivery credentials for the alert channel. Token and
// chat ID are secrets and normally come from the environment.
type Telegram struct {
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
	BaseURL string `yaml:"base_url"`
}

// Monitor drives the polling cadence and the tracked symbol set.
type Monitor struct {
	CheckIntervalSecs int      `yaml:"check_interval_s"`
	SymbolDelaySecs   int      `yaml:"symbol_delay_s"`
	TradeLimit        int      `yaml:"trade_limit"`
	Symbols           []string `yaml:"symbols"`
}

// Sources configures upstream exchange endpoints and the shared
// request budget applied across them.
type Sources struct {
	BinanceBaseURL       string `yaml:"binance_base_url"`
	BybitBaseURL         string `yaml:"bybit_base_url"`
	CoinGeckoBaseURL     string `yaml:"coingecko_base_url"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
	MaxRetries           int    `yaml:"max_retries"`
	RetryDelaySecs       int    `yaml:"retry_delay_s"`
	SimulationEnabled    bool   `yaml:"simulation_enabled"`
}

// Stream configures the optional websocket acquisition path.
type Stream struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// Whales holds the per-asset USD thresholds keyed by base symbol
// (quote suffix stripped) plus the default applied to everything else.
type Whales struct {
	DefaultThresholdUSD float64            `yaml:"default_threshold_usd"`
	Thresholds          map[string]float64 `yaml:"thresholds"`
}

// Journal configures the JSONL alert journal.
type Journal struct {
	Path string `yaml:"path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Telegram Telegram `yaml:"telegram"`
	Monitor  Monitor  `yaml:"monitor"`
	Sources  Sources  `yaml:"sources"`
	Stream   Stream   `yaml:"stream"`
	Whales   Whales   `yaml:"whales"`
	Journal  Journal  `yaml:"journal"`
}

// Load reads a YAML file from disk, applies environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyEnv layers environment variables over the YAML values. Secrets
// and deployment-specific knobs are expected to arrive this way.
func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("MONITORED_SYMBOLS"); v != "" {
		c.Monitor.Symbols = ParseSymbols(v)
	}
	if v := os.Getenv("WHALE_THRESHOLDS"); v != "" {
		if parsed := ParseThresholds(v); len(parsed) > 0 {
			c.Whales.Thresholds = parsed
		}
	}
	if v := os.Getenv("DEFAULT_WHALE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Whales.DefaultThresholdUSD = f
		}
	}
	if v := os.Getenv("CHECK_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Monitor.CheckIntervalSecs = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
}

// Validate rejects configurations the scheduler cannot run with.
func (c *Config) Validate() error {
	var errs []string
	if c.Monitor.CheckIntervalSecs < 1 {
		errs = append(errs, "monitor.check_interval_s must be at least 1")
	}
	if len(c.Monitor.Symbols) == 0 {
		errs = append(errs, "monitor.symbols must list at least one symbol")
	}
	if c.Sources.MaxRetries < 1 {
		errs = append(errs, "sources.max_retries must be at least 1")
	}
	if c.Sources.MaxRequestsPerMinute < 1 {
		errs = append(errs, "sources.max_requests_per_minute must be at least 1")
	}
	if c.Whales.DefaultThresholdUSD <= 0 {
		errs = append(errs, "whales.default_threshold_usd must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ParseSymbols splits a comma-separated symbol list, uppercasing and
// dropping empties.
func ParseSymbols(raw string) []string {
	var symbols []string
	for _, part := range strings.Split(raw, ",") {
		sym := strings.ToUpper(strings.TrimSpace(part))
		if sym != "" {
			symbols = append(symbols, sym)
		}
	}
	return symbols
}

// ParseThresholds parses the compact "BTC:100000,ETH:50000" form used
// in environment overrides. Quote suffixes are stripped so entries can
// be given either as base assets or full pairs. Malformed pairs are
// skipped.
func ParseThresholds(raw string) map[string]float64 {
	thresholds := make(map[string]float64)
	for _, pair := range strings.Split(raw, ",") {
		sym, val, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		sym = strings.ToUpper(strings.TrimSpace(sym))
		sym = strings.TrimSuffix(sym, "USDT")
		sym = strings.TrimSuffix(sym, "USDC")
		if sym == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			continue
		}
		thresholds[sym] = f
	}
	return thresholds
}
