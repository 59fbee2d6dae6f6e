// Package metrics exposes the Prometheus instruments the matching and
// embedding pipelines report into.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	EmbeddingSyncFailures prometheus.Counter
	VectorQueryFailures   prometheus.Counter
	ScoringFailures       prometheus.Counter
	MatchesSelected       prometheus.Counter
	GroupsCreated         prometheus.Counter

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		EmbeddingSyncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podlove_embedding_sync_failures_total",
			Help: "Profile embedding generations or index upserts that failed and were skipped.",
		}),
		VectorQueryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podlove_vector_query_failures_total",
			Help: "Similarity-index queries that failed on the matching path.",
		}),
		ScoringFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podlove_compatibility_scoring_failures_total",
			Help: "LLM compatibility scores that failed and were coerced to zero.",
		}),
		MatchesSelected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podlove_matches_selected_total",
			Help: "Completed match selections that produced a full participant set.",
		}),
		GroupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podlove_podcast_groups_created_total",
			Help: "Podcast groups persisted after match selection.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.EmbeddingSyncFailures,
		m.VectorQueryFailures,
		m.ScoringFailures,
		m.MatchesSelected,
		m.GroupsCreated,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
