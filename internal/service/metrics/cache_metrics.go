package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demand",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)

	LiveBroadcastDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "demand",
			Subsystem: "live",
			Name:      "broadcast_dropped_total",
			Help:      "Prediction events dropped because the live hub queue was full",
		},
	)
)

// Register adds the collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(CacheLookups, LiveBroadcastDropped)
	})
}

// CacheHit and CacheMiss label values.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
