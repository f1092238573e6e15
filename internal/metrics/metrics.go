// Package metrics provides Prometheus metrics for the vibesub daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vibesub"

// ─── Polling ────────────────────────────────────────────────────────────────

// StatusChecks counts status requests sent to the translation service.
var StatusChecks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "status_checks_total",
	Help:      "Total task status checks.",
})

// TransportErrors counts failed status checks by kind ("status" or "network").
var TransportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "transport_errors_total",
	Help:      "Status checks that failed with a non-2xx response or a network error.",
}, []string{"kind"})

// TasksFinished counts tasks that reached a terminal state.
var TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "tasks_finished_total",
	Help:      "Tasks that reached a terminal state, by outcome and failure reason.",
}, []string{"outcome", "reason"})

// ActivePolls tracks tasks with a live polling timer.
var ActivePolls = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "active_polls",
	Help:      "Number of tasks currently being polled.",
})

// ─── Payloads ───────────────────────────────────────────────────────────────

// SubtitleDownloads counts subtitle downloads by result ("ok" or "error").
var SubtitleDownloads = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "subtitle_downloads_total",
	Help:      "Subtitle payload downloads.",
}, []string{"result"})

// StrategyFetches counts strategies fetches by result ("ok" or "error").
var StrategyFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "strategy_fetches_total",
	Help:      "Translation strategies fetches.",
}, []string{"result"})

// ─── Rendering ──────────────────────────────────────────────────────────────

// CueSwaps counts overlay text changes made by renderers.
var CueSwaps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "cue_swaps_total",
	Help:      "Times a renderer replaced or cleared the displayed cue.",
})

// ─── API ────────────────────────────────────────────────────────────────────

// Commands counts dispatched commands by kind and result.
var Commands = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "commands_total",
	Help:      "Commands handled by the dispatcher.",
}, []string{"kind", "result"})

// EventSubscribers tracks open event streams.
var EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "event_subscribers",
	Help:      "Number of connected event stream clients.",
})
