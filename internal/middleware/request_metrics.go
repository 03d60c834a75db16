package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/liftlab/liftlab/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func RequestMetrics(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			begin := time.Now()
			resp := &responseWriter{respWriter, http.StatusOK}

			next.ServeHTTP(resp, req)

			labels := prometheus.Labels{
				"method": req.Method,
				"status": strconv.Itoa(resp.statusCode),
			}
			metricsManager.CounterRequests.With(labels).Inc()
			metricsManager.HistogramRequestDuration.With(labels).Observe(time.Since(begin).Seconds())
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.statusCode = statusCode
}
