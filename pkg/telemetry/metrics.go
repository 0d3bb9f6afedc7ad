package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsyncd_http_requests_total",
		Help: "HTTP requests processed, by method, route and status.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatsyncd_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsyncd_mutations_total",
		Help: "Chat mutations applied, by kind.",
	}, []string{"kind"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatsyncd_events_dropped_total",
		Help: "Notification events dropped on slow subscribers.",
	})
)

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route string, status int, dur time.Duration) {
	requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// CountMutation bumps the mutation counter for a mutation kind
// (message.send, reaction.toggle, ...).
func CountMutation(kind string) {
	mutationsTotal.WithLabelValues(kind).Inc()
}

// CountDroppedEvent records a subscriber that lost an event to backpressure.
func CountDroppedEvent() {
	eventsDropped.Inc()
}

// RegisterDiskGauge exposes the store's on-disk size through a gauge that
// samples on scrape.
func RegisterDiskGauge(usage func() uint64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chatsyncd_store_disk_bytes",
		Help: "Approximate bytes used by the message store.",
	}, func() float64 { return float64(usage()) })
}

// routePattern prefers the mux route template so metrics don't explode on
// per-entity paths.
func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil && tpl != "" {
			return tpl
		}
	}
	return r.URL.Path
}
