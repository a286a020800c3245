package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the cache and the login pipeline.
type Metrics struct {
	// Cache lookups by outcome ("hit", "miss")
	CacheLookups *prometheus.CounterVec

	// Login stream entries by outcome ("processed", "retried", "reclaimed", "failed")
	LoginEvents *prometheus.CounterVec

	// Domain events dropped because the bus buffer was full
	EventsDropped prometheus.Counter
}

// New creates a Metrics instance with all collectors registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iduser_cache_lookups_total",
			Help: "User cache lookups by outcome",
		}, []string{"outcome"}),

		LoginEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iduser_login_events_total",
			Help: "Login stream entries handled by outcome",
		}, []string{"outcome"}),

		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "iduser_events_dropped_total",
			Help: "Domain events dropped because the bus buffer was full",
		}),
	}
}

// IncCacheHit records a cache hit.
func (m *Metrics) IncCacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

// IncCacheMiss records a cache miss.
func (m *Metrics) IncCacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// IncLoginEvent records a login stream entry outcome.
func (m *Metrics) IncLoginEvent(outcome string) {
	if m != nil {
		m.LoginEvents.WithLabelValues(outcome).Inc()
	}
}

// IncEventsDropped records a dropped domain event.
func (m *Metrics) IncEventsDropped() {
	if m != nil {
		m.EventsDropped.Inc()
	}
}
