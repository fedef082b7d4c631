package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts counts login and registration attempts by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthtribe_auth_attempts_total",
		Help: "Total login and registration attempts by operation and result",
	}, []string{"operation", "result"})

	// PostsCreated counts posts written to the feed.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earthtribe_posts_created_total",
		Help: "Total number of posts created",
	})

	// Searches counts non-empty searches by kind and backend.
	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthtribe_searches_total",
		Help: "Total number of searches by kind (posts, users) and backend",
	}, []string{"kind", "backend"})

	// Uploads counts object store uploads by category and result.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthtribe_uploads_total",
		Help: "Total number of uploads by category and result",
	}, []string{"category", "result"})

	// SessionRestores counts session restorations by resulting state.
	SessionRestores = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthtribe_session_restores_total",
		Help: "Total number of session restorations by resulting state",
	}, []string{"state"})
)

// Result maps an error to a metric label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
