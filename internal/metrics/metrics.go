// Package metrics holds the prometheus collectors for ingestion and playback.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeMedia     = "media_error"
	OutcomeStorage   = "storage_error"
	OutcomeDuplicate = "duplicate"
	OutcomeBusy      = "busy"
)

var (
	ingestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dramafeed_ingest_total",
		Help: "Episode ingestion attempts by outcome",
	}, []string{"outcome"})

	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dramafeed_ingest_duration_seconds",
		Help:    "Wall time of completed ingestion jobs",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320},
	})

	rollbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dramafeed_ingest_rollbacks_total",
		Help: "Published artifacts removed after a failed catalog insert",
	})

	playbackNavigation = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dramafeed_playback_navigation_total",
		Help: "Playback cursor moves by direction",
	}, []string{"direction"}) // direction=next|previous|select

	missingArtifacts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dramafeed_missing_artifacts_total",
		Help: "Catalog rows served with an unresolvable artifact",
	}, []string{"kind"}) // kind=media|thumbnail

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dramafeed_playback_sessions",
		Help: "Playback sessions currently held in memory",
	})
)

// RecordIngest counts one ingestion attempt; duration is observed for successes only.
func RecordIngest(outcome string, d time.Duration) {
	ingestTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		ingestDuration.Observe(d.Seconds())
	}
}

// RecordRollback counts artifacts removed by a rollback.
func RecordRollback(n int) {
	rollbackTotal.Add(float64(n))
}

// RecordNavigation counts one cursor move.
func RecordNavigation(direction string) {
	playbackNavigation.WithLabelValues(direction).Inc()
}

// RecordMissingArtifact counts a degraded view.
func RecordMissingArtifact(kind string) {
	missingArtifacts.WithLabelValues(kind).Inc()
}

// SetActiveSessions publishes the session store size.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
