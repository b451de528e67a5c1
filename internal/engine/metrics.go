package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bantrap_events_total",
	Help: "The total number of message events processed, by outcome",
}, []string{"outcome"})

var actionsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bantrap_actions_total",
	Help: "The total number of enforcement actions taken",
}, []string{"action"})

var eventDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "bantrap_event_duration_seconds",
	Help:    "A histogram of event processing latencies",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
})

var activeEvents = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "bantrap_active_events",
	Help: "Number of events currently being processed",
})
