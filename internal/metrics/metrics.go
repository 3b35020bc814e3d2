package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TradesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_fetched_total", Help: "Count of trades retrieved from upstream sources"},
		[]string{"source", "symbol"},
	)
	WhalesDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "whales_detected_total", Help: "Whale trades that passed threshold and dedup gates"},
		[]string{"symbol"},
	)
	FetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fetch_errors_total", Help: "Upstream fetch attempts that failed"},
		[]string{"source"},
	)
	AlertsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_sent_total", Help: "Whale alerts forwarded to the notifier"},
		[]string{"symbol"},
	)
	SourceInUse = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "source_in_use", Help: "1 for the source that served the most recent fetch"},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(TradesFetched, WhalesDetected, FetchErrors, AlertsSent, SourceInUse)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
