package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kgate_submissions_total",
			Help: "Submissions processed, by outcome status",
		},
		[]string{"status"},
	)

	CompositeScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kgate_composite_score",
			Help:    "Composite quality scores of scored submissions",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.65, 0.7, 0.75, 0.8, 0.85, 0.9, 1.0},
		},
	)

	PendingEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kgate_pending_entries",
			Help: "Pending entries currently awaiting confirmation",
		},
	)

	PendingExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kgate_pending_expired_total",
			Help: "Pending entries dropped by TTL expiry",
		},
	)

	Confirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kgate_confirmations_total",
			Help: "Pending confirmations, by result",
		},
		[]string{"result"},
	)

	DuplicatesFound = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kgate_duplicates_found_total",
			Help: "Near-duplicate warnings attached to outcomes",
		},
	)

	StoreDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kgate_store_duration_seconds",
			Help:    "External vector store hand-off latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	EmbeddingCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kgate_embedding_cache_total",
			Help: "Embedding cache lookups, by result",
		},
		[]string{"result"},
	)
)

func Register() {
	prometheus.MustRegister(
		SubmissionsTotal,
		CompositeScore,
		PendingEntries,
		PendingExpired,
		Confirmations,
		DuplicatesFound,
		StoreDuration,
		EmbeddingCacheHits,
	)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
