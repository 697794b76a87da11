package bots

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Add Prometheus metrics
var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluesky_bots_polls_total",
		Help: "The total number of poll cycles run per bot",
	}, []string{"bot"})

	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluesky_bots_fetch_errors_total",
		Help: "The total number of source fetch errors per bot",
	}, []string{"bot"})

	itemsDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluesky_bots_items_discovered_total",
		Help: "The total number of new items discovered per bot",
	}, []string{"bot"})

	postsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluesky_bots_posts_published_total",
		Help: "The total number of posts published per bot",
	}, []string{"bot"})

	publishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluesky_bots_publish_errors_total",
		Help: "The total number of publish errors per bot",
	}, []string{"bot"})

	publishDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bluesky_bots_publish_duration_seconds",
		Help:    "Duration of publish calls to the posting API",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // Start at 50ms, double each bucket, 10 buckets
	})
)
