package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	EventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_recorded_total",
			Help: "Total number of engagement events appended by event type",
		},
		[]string{"event_type"},
	)
	TrackingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_requests_total",
			Help: "Tracking operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	StorageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Duration of storage operations, including time spent waiting for the store lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"op"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_cache_lookups_total",
			Help: "Record cache lookups by kind and result",
		},
		[]string{"kind", "result"},
	)
)

func InitMetrics() {
	for name, c := range map[string]prometheus.Collector{
		"EventsRecorded":   EventsRecorded,
		"TrackingRequests": TrackingRequests,
		"StorageDuration":  StorageDuration,
		"CacheLookups":     CacheLookups,
	} {
		if err := prometheus.Register(c); err != nil {
			log.Error().Err(err).Str("metric", name).Msg("Failed to register metric")
		}
	}
}
