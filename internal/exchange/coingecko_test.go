package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func coinGeckoPriceServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/simple/price":
			if !strings.Contains(r.URL.Query().Get("ids"), "bitcoin") {
				t.Errorf("expected bitcoin id in query, got %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"bitcoin":{"usd":50000}}`))
		case "/api/v3/ping":
			_, _ = w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestCoinGeckoSimulationDisabled(t *testing.T) {
	server := coinGeckoPriceServer(t)
	defer server.Close()

	client := NewClient("coingecko", testClientConfig(), zerolog.Nop())
	src := NewCoinGecko(client, server.URL, func(string) float64 { return 100000 }, false, zerolog.Nop())

	trades, err := src.RecentTrades(context.Background(), "BTCUSDT", 50)
	if err != nil {
		t.Fatalf("RecentTrades returned error: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("simulation disabled must never yield trades, got %d", len(trades))
	}
}

func TestCoinGeckoSimulatedWhalesExceedThreshold(t *testing.T) {
	server := coinGeckoPriceServer(t)
	defer server.Close()

	const threshold = 100000.0
	client := NewClient("coingecko", testClientConfig(), zerolog.Nop())
	src := NewCoinGecko(client, server.URL, func(string) float64 { return threshold }, true, zerolog.Nop())

	// Generation is probabilistic, so poll until a trade appears.
	var produced bool
	for i := 0; i < 100 && !produced; i++ {
		trades, err := src.RecentTrades(context.Background(), "BTCUSDT", 50)
		if err != nil {
			t.Fatalf("RecentTrades returned error: %v", err)
		}
		for _, tr := range trades {
			produced = true
			if tr.USDValue() < threshold {
				t.Fatalf("simulated trade below threshold: %v", tr.USDValue())
			}
			if tr.Source != "coingecko-sim" {
				t.Fatalf("simulated trade must be labeled, got %s", tr.Source)
			}
			if tr.ID == "" {
				t.Fatalf("simulated trade must carry an ID")
			}
		}
	}
	if !produced {
		t.Fatalf("no simulated trade produced in 100 polls")
	}
}

func TestCoinGeckoCurrentPricesSkipsUnknownSymbols(t *testing.T) {
	server := coinGeckoPriceServer(t)
	defer server.Close()

	client := NewClient("coingecko", testClientConfig(), zerolog.Nop())
	src := NewCoinGecko(client, server.URL, func(string) float64 { return 1 }, true, zerolog.Nop())

	prices, err := src.CurrentPrices(context.Background(), []string{"BTCUSDT", "NOSUCHUSDT"})
	if err != nil {
		t.Fatalf("CurrentPrices returned error: %v", err)
	}
	if prices["BTCUSDT"] != 50000 {
		t.Fatalf("unexpected BTC price: %v", prices["BTCUSDT"])
	}
	if _, ok := prices["NOSUCHUSDT"]; ok {
		t.Fatalf("unmapped symbol should be absent")
	}
}

func TestCoinGeckoPing(t *testing.T) {
	server := coinGeckoPriceServer(t)
	defer server.Close()

	client := NewClient("coingecko", testClientConfig(), zerolog.Nop())
	src := NewCoinGecko(client, server.URL, func(string) float64 { return 1 }, true, zerolog.Nop())
	if !src.Ping(context.Background()) {
		t.Fatalf("expected ping to succeed")
	}
}
