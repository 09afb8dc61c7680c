package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipsify",
		Name:      "media_commits_total",
		Help:      "Metadata commits by media kind and outcome.",
	}, []string{"kind", "outcome"})

	Propagations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipsify",
		Name:      "name_propagations_total",
		Help:      "Background author-name rewrites by media kind and outcome.",
	}, []string{"kind", "outcome"})

	UploadAuthIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clipsify",
		Name:      "upload_credentials_issued_total",
		Help:      "Upload credentials handed out.",
	})

	PlaybackCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipsify",
		Name:      "playback_url_cache_total",
		Help:      "Signed playback URL cache lookups by result.",
	}, []string{"result"})
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
