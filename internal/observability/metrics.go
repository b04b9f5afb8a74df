package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	scanFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldsign",
			Subsystem: "scan",
			Name:      "frames_total",
			Help:      "Scanned QR frames by outcome.",
		},
		[]string{"outcome"},
	)
	classified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldsign",
			Subsystem: "scan",
			Name:      "classified_total",
			Help:      "Classified scan payloads by kind.",
		},
		[]string{"kind"},
	)
	decodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldsign",
			Subsystem: "decoder",
			Name:      "decodes_total",
			Help:      "Extrinsic decode attempts by outcome.",
		},
		[]string{"network", "outcome"},
	)
	registryBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldsign",
			Subsystem: "registry",
			Name:      "builds_total",
			Help:      "Type registry builds by outcome.",
		},
		[]string{"network", "outcome"},
	)
	registryBuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coldsign",
			Subsystem: "registry",
			Name:      "build_duration_seconds",
			Help:      "Type registry build duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"network"},
	)
	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldsign",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Signing session state transitions.",
		},
		[]string{"from", "to"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(scanFrames, classified, decodes, registryBuilds, registryBuildDuration, transitions)
	})
}

func RecordScanFrame(outcome string) {
	RegisterMetrics()
	scanFrames.WithLabelValues(outcome).Inc()
}

func RecordClassified(kind string) {
	RegisterMetrics()
	classified.WithLabelValues(kind).Inc()
}

func RecordDecode(network, outcome string) {
	RegisterMetrics()
	decodes.WithLabelValues(network, outcome).Inc()
}

func RecordRegistryBuild(network, outcome string, duration time.Duration) {
	RegisterMetrics()
	registryBuilds.WithLabelValues(network, outcome).Inc()
	registryBuildDuration.WithLabelValues(network).Observe(duration.Seconds())
}

func RecordTransition(from, to string) {
	RegisterMetrics()
	transitions.WithLabelValues(from, to).Inc()
}
