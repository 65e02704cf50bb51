// Package metrics provides Prometheus metrics for the MarkNote server.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/marknote/internal/notestore"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marknote_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marknote_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Store metrics
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marknote_store_operations_total",
			Help: "Total note store operations by result",
		},
		[]string{"op", "status"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marknote_store_operation_duration_seconds",
			Help:    "Note store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	storeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marknote_store_events_total",
			Help: "Total committed store mutations",
		},
		[]string{"kind"},
	)

	// Watcher metrics
	externalChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marknote_external_changes_total",
			Help: "Note changes made outside the process",
		},
		[]string{"change"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordExternalChange records a change picked up by the file watcher.
func RecordExternalChange(change string) {
	externalChangesTotal.WithLabelValues(change).Inc()
}

// Store records note store activity. Its zero value is ready to use.
type Store struct{}

// ObserveOperation implements notestore.Recorder.
func (Store) ObserveOperation(op, status string, elapsed time.Duration) {
	storeOperationsTotal.WithLabelValues(op, status).Inc()
	storeOperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// NoteChanged implements notestore.Observer.
func (Store) NoteChanged(_ context.Context, ev notestore.Event) {
	storeEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
}

var (
	_ notestore.Recorder = Store{}
	_ notestore.Observer = Store{}
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request metrics labelled by the matched chi route
// pattern, so note titles never become label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
	})
}
