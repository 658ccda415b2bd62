package schedule

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "festsched_board_refresh_total",
		Help: "Number of board recomputations.",
	})
	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "festsched_board_refresh_duration_seconds",
		Help:    "Time spent building a board.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
	})
	bucketEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "festsched_bucket_entries",
		Help: "Entries per bucket on the current board.",
	}, []string{"bucket"})
	boardGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "festsched_board_generation",
		Help: "Generation of the currently published board.",
	})
)

func observeRefresh(b *Board, took time.Duration) {
	refreshTotal.Inc()
	refreshDuration.Observe(took.Seconds())
	boardGeneration.Set(float64(b.Generation))
	for _, s := range b.Sections {
		bucketEntries.WithLabelValues(s.Bucket.String()).Set(float64(len(s.Entries)))
	}
}
