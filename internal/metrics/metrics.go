package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fetches_total", Help: "Market data requests issued"},
		[]string{"pair", "kind"},
	)
	FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fetch_errors_total", Help: "Market data requests that returned no usable bar"},
		[]string{"pair"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Detection outcomes per cycle"},
		[]string{"pair", "signal"},
	)
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_total", Help: "Alert delivery attempts"},
		[]string{"pair", "status"},
	)
	RateLimitWaitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "rate_limit_waits_total", Help: "Times a request blocked on the provider quota"},
	)
)

func init() {
	prometheus.MustRegister(FetchesTotal, FetchErrorsTotal, SignalsTotal, AlertsTotal, RateLimitWaitsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
