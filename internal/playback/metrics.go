package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundboard",
		Subsystem: "playback",
		Name:      "requests_total",
		Help:      "Playback requests submitted to guild actors, by operation.",
	}, []string{"op"})

	tracksStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "soundboard",
		Subsystem: "playback",
		Name:      "tracks_started_total",
		Help:      "Tracks that started playing.",
	})

	trackFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "soundboard",
		Subsystem: "playback",
		Name:      "track_failures_total",
		Help:      "Tracks that failed to open or decode.",
	})

	connectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "soundboard",
		Subsystem: "voice",
		Name:      "connect_failures_total",
		Help:      "Voice connection attempts that failed or timed out.",
	})

	activeActors = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "soundboard",
		Subsystem: "playback",
		Name:      "actors",
		Help:      "Guild actors currently running.",
	})
)
