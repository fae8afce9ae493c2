package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "anonchat"

var (
	SearchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_started_total",
		Help:      "Search sessions spawned",
	})

	SearchesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_cancelled_total",
		Help:      "Searches cancelled by the user",
	})

	Escalations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_escalations_total",
		Help:      "Sessions that widened their filter",
	})

	PairingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pairings_created_total",
		Help:      "Pairings formed by granted claims",
	})

	ClaimsDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "claims_denied_total",
		Help:      "Claims denied after re-validation",
	}, []string{"reason"})

	SessionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_failures_total",
		Help:      "Sessions aborted after repeated errors",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_search_sessions",
		Help:      "Currently running search sessions",
	})

	ChatExits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_exits_total",
		Help:      "Pairings destroyed",
	})

	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_relayed_total",
		Help:      "Chat messages delivered to a companion",
	})

	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_failures_total",
		Help:      "Chat messages the transport failed to deliver",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request count and latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		labels := prometheus.Labels{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": strconv.Itoa(rec.status),
		}
		httpRequests.With(labels).Inc()
		httpLatency.With(labels).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
