package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClientConfig() ClientConfig {
	return ClientConfig{
		MaxRetries:        3,
		RetryDelay:        10 * time.Millisecond,
		RequestsPerMinute: 60000,
		BackoffBase:       20 * time.Millisecond,
		BackoffStep:       10 * time.Millisecond,
		Timeout:           time.Second,
	}
}

func TestGetJSONRecoversFromRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient("test", testClientConfig(), zerolog.Nop())

	var dst struct {
		OK bool `json:"ok"`
	}
	start := time.Now()
	if err := client.GetJSON(context.Background(), server.URL, nil, &dst); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	elapsed := time.Since(start)

	if !dst.OK {
		t.Fatalf("expected decoded body")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	// Two 429s: 20ms after the first, 30ms after the second.
	if elapsed < 50*time.Millisecond {
		t.Fatalf("expected at least two backoff waits, elapsed %v", elapsed)
	}
}

func TestGetJSONExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("test", testClientConfig(), zerolog.Nop())

	err := client.GetJSON(context.Background(), server.URL, nil, &struct{}{})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected all 3 attempts consumed, got %d", got)
	}
}

func TestGetJSONStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testClientConfig()
	cfg.RetryDelay = 10 * time.Second
	client := NewClient("test", cfg, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := client.GetJSON(ctx, server.URL, nil, &struct{}{})
	if err == nil {
		t.Fatalf("expected error after cancel")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("cancel did not interrupt the retry wait")
	}
}

func TestGetJSONBadBodyIsRetryable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{broken`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient("test", testClientConfig(), zerolog.Nop())

	var dst struct {
		OK bool `json:"ok"`
	}
	if err := client.GetJSON(context.Background(), server.URL, nil, &dst); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if !dst.OK {
		t.Fatalf("expected success after malformed body retry")
	}
}
