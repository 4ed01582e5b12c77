// Package metrics tracks process lifecycle counters for the procmux binary.
package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	processesStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procmux",
		Name:      "processes_started_total",
		Help:      "Total number of child processes started, by provider.",
	}, []string{"provider"})

	processExits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procmux",
		Name:      "process_exits_total",
		Help:      "Total number of observed process exits, by outcome.",
	}, []string{"outcome"})

	processDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "procmux",
		Name:      "process_duration_seconds",
		Help:      "Wall-clock lifetime of child processes in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "procmux",
		Name:      "build_info",
		Help:      "Build metadata for the running procmux binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(processesStarted, processExits, processDuration, buildInfo)
}

// Registry returns the Prometheus registry containing all procmux metrics.
func Registry() *prometheus.Registry {
	return registry
}

// IncrementProcessStarted records a process launch through the named
// provider ("local" or "docker").
func IncrementProcessStarted(provider string) {
	if provider == "" {
		provider = "unknown"
	}
	processesStarted.WithLabelValues(provider).Inc()
}

// ObserveProcessExit records an observed exit and the process lifetime.
func ObserveProcessExit(code int, lifetime time.Duration) {
	outcome := "success"
	if code != 0 {
		outcome = "failure"
	}
	processExits.WithLabelValues(outcome).Inc()
	if lifetime > 0 {
		processDuration.Observe(lifetime.Seconds())
	}
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
