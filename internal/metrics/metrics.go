package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Ingestion
	RecordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_records_ingested_total",
			Help: "Batch records by outcome",
		},
		[]string{"source", "outcome"}, // outcome: "accepted" or "dropped"
	)

	// Conversation store
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_messages_appended_total",
			Help: "Live messages appended",
		},
		[]string{"direction"},
	)

	MessagesResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_messages_resolved_total",
			Help: "Messages moved from open to resolved",
		},
		[]string{"scope"}, // "message" or "conversation"
	)

	MessagesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_messages_read_total",
			Help: "Messages marked as read",
		},
	)

	StoreMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_store_messages",
			Help: "Messages currently held by the conversation store",
		},
	)
)
