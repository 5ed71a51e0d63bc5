// Package metrics registers prometheus counters for scan and tracking
// passes and serves them on an optional /metrics listener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SymbolsScannedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "symbols_scanned_total", Help: "Symbols evaluated across scan passes"},
	)
	SignalsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_generated_total", Help: "Signals emitted by the generator"},
		[]string{"symbol", "direction"},
	)
	SignalsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_resolved_total", Help: "Signals moved to a terminal status"},
		[]string{"status"},
	)
	FetchRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fetch_retries_total", Help: "Failed market data attempts that were retried"},
		[]string{"op"},
	)
	FetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fetch_failures_total", Help: "Market data calls that exhausted all retries"},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		SymbolsScannedTotal,
		SignalsGeneratedTotal,
		SignalsResolvedTotal,
		FetchRetriesTotal,
		FetchFailuresTotal,
	)
}

// Serve exposes /metrics on addr for the lifetime of the process.
// Returns nil when addr is empty.
func Serve(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
