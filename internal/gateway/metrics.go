package gateway

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	dispatchesTotal  *prometheus.CounterVec
	ledgerOpDuration *prometheus.HistogramVec
)

// InitMetrics registers collectors and returns the /metrics handler.
func InitMetrics(reg prometheus.Registerer) (http.Handler, error) {
	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Requests processed, by method, path and status",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "In-flight requests by method and path",
		}, []string{"method", "path"})

		dispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatches_total",
			Help: "Ride dispatches by result (ok|invalid|storage_error)",
		}, []string{"result"})

		ledgerOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_op_duration_seconds",
			Help:    "Ride ledger operation latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3, 5},
		}, []string{"op"})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, httpInflight,
			dispatchesTotal, ledgerOpDuration,
		} {
			if err := registerCollector(reg, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}
	return promhttp.Handler(), nil
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// CountDispatch records one dispatch outcome.
func CountDispatch(result string) {
	if dispatchesTotal != nil {
		dispatchesTotal.WithLabelValues(result).Inc()
	}
}

// ObserveLedgerOp records one ledger operation's latency.
func ObserveLedgerOp(op string, d time.Duration) {
	if ledgerOpDuration != nil {
		ledgerOpDuration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// WithMetrics instruments requests. No-op until InitMetrics ran.
func WithMetrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if httpRequestsTotal == nil {
				next.ServeHTTP(w, r)
				return
			}
			method := strings.ToUpper(r.Method)
			path := normalizePath(r.URL.Path)

			httpInflight.WithLabelValues(method, path).Inc()
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				httpInflight.WithLabelValues(method, path).Dec()
				httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
				httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// normalizePath collapses ride lookups to one label so cardinality stays
// bounded.
func normalizePath(p string) string {
	if strings.HasPrefix(p, "/ride/") {
		return "/ride/{id}"
	}
	return p
}
