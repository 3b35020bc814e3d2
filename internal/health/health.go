// Package health exposes the keepalive HTTP endpoints used by uptime
// monitors and the status surface.
package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Parow01/Parowbot/internal/detector"
)

// StatusSource provides read-only per-symbol detection summaries.
type StatusSource interface {
	Summary(symbol string) detector.Summary
}

// Handler serves /health and /status.
type Handler struct {
	start      time.Time
	symbols    []string
	detector   StatusSource
	lastSource func() string
}

// NewHandler wires the status surface. lastSource reports which
// upstream served the most recent fetch.
func NewHandler(symbols []string, det StatusSource, lastSource func() string) *Handler {
	return &Handler{
		start:      time.Now(),
		symbols:    symbols,
		detector:   det,
		lastSource: lastSource,
	}
}

// Mux returns the routed handler.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleHealth)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/status", h.handleStatus)
	return mux
}

// Serve starts the keepalive server in the background.
func Serve(addr string, symbols []string, det StatusSource, lastSource func() string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: NewHandler(symbols, det, lastSource).Mux()}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	uptime := int(time.Since(h.start).Seconds())
	writeJSON(w, map[string]any{
		"status":           "healthy",
		"service":          "whale-alert-bot",
		"uptime_seconds":   uptime,
		"uptime_formatted": fmt.Sprintf("%dh %dm", uptime/3600, (uptime%3600)/60),
		"timestamp":        time.Now().Unix(),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	summaries := make([]detector.Summary, 0, len(h.symbols))
	for _, sym := range h.symbols {
		summaries = append(summaries, h.detector.Summary(sym))
	}
	writeJSON(w, map[string]any{
		"bot":            "Parowbot",
		"status":         "running",
		"source_in_use":  h.lastSource(),
		"uptime_seconds": int(time.Since(h.start).Seconds()),
		"symbols":        summaries,
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
