// Package metrics holds the Prometheus collectors of the sync engine.
//
// Labels are bounded enums. Session ids never become labels.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal counts commands handed to a transport, by kind.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodsync_commands_total",
		Help: "Player commands dispatched, by kind.",
	}, []string{"kind"})

	// DispatchFailuresTotal counts commands that could not be delivered, by reason.
	DispatchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodsync_dispatch_failures_total",
		Help: "Player commands dropped, by reason.",
	}, []string{"reason"})

	// ResolverLookupsTotal counts track resolutions, by result (hit, miss, fail).
	ResolverLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodsync_resolver_lookups_total",
		Help: "Track resolutions, by result.",
	}, []string{"result"})

	// SessionsCreatedTotal counts sessions opened.
	SessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vodsync_sessions_created_total",
		Help: "Sessions created since start.",
	})

	// SessionFailuresTotal counts session creations that failed, by stage (lookup, fetch).
	SessionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodsync_session_failures_total",
		Help: "Session creations aborted, by stage.",
	}, []string{"stage"})

	// ActiveSessions tracks live sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vodsync_active_sessions",
		Help: "Sessions currently being reconciled.",
	})

	// DriftSeconds observes |estimate - last synced| on ticks where the player is playing.
	DriftSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vodsync_drift_seconds",
		Help:    "Absolute drift between estimated and last synced track position.",
		Buckets: []float64{0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5, 10, 30},
	})
)
