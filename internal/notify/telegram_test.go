package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Parow01/Parowbot/internal/trade"
)

func TestDeliverPostsMessage(t *testing.T) {
	var got struct {
		ChatID    string `json:"chat_id"`
		Text      string `json:"text"`
		ParseMode string `json:"parse_mode"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	notifier := NewTelegram("test-token", "12345", server.URL, zerolog.Nop())
	tr := trade.Trade{Symbol: "BTCUSDT", Price: 50000, Qty: 2.5, Side: trade.Buy, Time: 1700000000000, ID: "tx1", Source: "binance"}

	if err := notifier.Deliver(context.Background(), tr, "BTCUSDT"); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if got.ChatID != "12345" {
		t.Fatalf("unexpected chat id: %s", got.ChatID)
	}
	if got.ParseMode != "Markdown" {
		t.Fatalf("unexpected parse mode: %s", got.ParseMode)
	}
	if !strings.Contains(got.Text, "INFLOW") || !strings.Contains(got.Text, "125000.00") {
		t.Fatalf("unexpected message text: %s", got.Text)
	}
}

func TestDeliverSurfacesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	notifier := NewTelegram("test-token", "12345", server.URL, zerolog.Nop())
	err := notifier.Deliver(context.Background(), trade.Trade{Symbol: "BTCUSDT", Price: 1, Qty: 1}, "BTCUSDT")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/getMe" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"username":"parowbot"}}`))
	}))
	defer server.Close()

	notifier := NewTelegram("test-token", "12345", server.URL, zerolog.Nop())
	if !notifier.Ping(context.Background()) {
		t.Fatalf("expected ping to succeed")
	}
}

func TestFormatWhaleMessageSides(t *testing.T) {
	sell := trade.Trade{Symbol: "ETHUSDT", Price: 2000, Qty: 30, Side: trade.Sell, Time: 1700000000000, Source: "bybit"}
	msg := FormatWhaleMessage(sell, "ETHUSDT")
	if !strings.Contains(msg, "OUTFLOW") || !strings.Contains(msg, "`ETH`") {
		t.Fatalf("unexpected sell message: %s", msg)
	}
	if !strings.Contains(msg, "tradingview.com/symbols/ETHUSD/") {
		t.Fatalf("expected chart link with USD pair: %s", msg)
	}
}
