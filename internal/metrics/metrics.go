package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	sessionSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hyprsave",
			Subsystem: "session",
			Name:      "saves_total",
			Help:      "Number of session saves by trigger (manual or auto).",
		}, []string{"trigger"},
	)
	sessionSaveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hyprsave",
			Subsystem: "session",
			Name:      "save_failures_total",
			Help:      "Number of aborted session saves.",
		},
	)
	sessionRestores = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hyprsave",
			Subsystem: "session",
			Name:      "restores_total",
			Help:      "Number of session restores by outcome (complete or mismatch).",
		}, []string{"outcome"},
	)
	hookFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hyprsave",
			Subsystem: "hook",
			Name:      "failures_total",
			Help:      "Number of failed hook invocations per phase.",
		}, []string{"phase"},
	)
	changesClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hyprsave",
			Subsystem: "watch",
			Name:      "changes_total",
			Help:      "Number of classified environment changes by type.",
		}, []string{"type"},
	)
	watcherRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hyprsave",
			Subsystem: "watch",
			Name:      "restarts_total",
			Help:      "Number of watcher restarts performed by health checks.",
		},
	)
	impactScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hyprsave",
			Subsystem: "watch",
			Name:      "impact_score",
			Help:      "Impact scores of classified changes.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{sessionSaves, sessionSaveFailures, sessionRestores, hookFailures, changesClassified, watcherRestarts, impactScore}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncSave(trigger string) {
	if regOK.Load() {
		sessionSaves.WithLabelValues(trigger).Inc()
	}
}
func IncSaveFailure() {
	if regOK.Load() {
		sessionSaveFailures.Inc()
	}
}
func IncRestore(outcome string) {
	if regOK.Load() {
		sessionRestores.WithLabelValues(outcome).Inc()
	}
}
func IncHookFailure(phase string) {
	if regOK.Load() {
		hookFailures.WithLabelValues(phase).Inc()
	}
}
func IncChange(changeType string) {
	if regOK.Load() {
		changesClassified.WithLabelValues(changeType).Inc()
	}
}
func IncWatcherRestart() {
	if regOK.Load() {
		watcherRestarts.Inc()
	}
}
func ObserveImpactScore(score int) {
	if regOK.Load() {
		impactScore.Observe(float64(score))
	}
}
