package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for txforge.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Construct metrics
	constructsExecuted *prometheus.CounterVec
	constructDuration  *prometheus.HistogramVec

	// Action item metrics
	actionItemsEmitted  *prometheus.CounterVec
	actionItemsResolved *prometheus.CounterVec

	// Addon metrics
	addonCalls    *prometheus.CounterVec
	addonDuration *prometheus.HistogramVec
	addonErrors   *prometheus.CounterVec

	// Error metrics
	errorsByCode *prometheus.CounterVec

	// System metrics
	activeRuns         prometheus.Gauge
	backgroundTasks    prometheus.Gauge
	pendingActionItems prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of runbook runs started",
			},
			[]string{"flow", "supervised"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of runbook runs completed",
			},
			[]string{"flow", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of runbook runs in seconds",
				Buckets:   buckets,
			},
			[]string{"flow", "status"},
		),

		constructsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "constructs_executed_total",
				Help:      "Total number of constructs executed",
			},
			[]string{"type", "status"},
		),
		constructDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "construct_duration_seconds",
				Help:      "Duration of construct execution in seconds",
				Buckets:   buckets,
			},
			[]string{"type"},
		),

		actionItemsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "action_items_emitted_total",
				Help:      "Total number of action items emitted to operators",
			},
			[]string{"type"},
		),
		actionItemsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "action_items_resolved_total",
				Help:      "Total number of action items resolved by operators",
			},
			[]string{"type", "status"},
		),

		addonCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "addon_calls_total",
				Help:      "Total number of addon command invocations",
			},
			[]string{"addon", "command"},
		),
		addonDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "addon_call_duration_seconds",
				Help:      "Duration of addon command invocations in seconds",
				Buckets:   buckets,
			},
			[]string{"addon", "command"},
		),
		addonErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "addon_errors_total",
				Help:      "Total number of addon command failures",
			},
			[]string{"addon", "command"},
		),

		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of diagnostics by code",
			},
			[]string{"code"},
		),

		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Current number of active runbook runs",
			},
		),
		backgroundTasks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "background_tasks",
				Help:      "Current number of in-flight background tasks",
			},
		),
		pendingActionItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_action_items",
				Help:      "Current number of unresolved action items",
			},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.constructsExecuted,
		m.constructDuration,
		m.actionItemsEmitted,
		m.actionItemsResolved,
		m.addonCalls,
		m.addonDuration,
		m.addonErrors,
		m.errorsByCode,
		m.activeRuns,
		m.backgroundTasks,
		m.pendingActionItems,
	)

	return m, nil
}

// Run Metrics

// RecordRunStarted increments the counter for started runs.
func (m *Metrics) RecordRunStarted(flow string, supervised bool) {
	if m.runsStarted == nil {
		return
	}
	mode := "false"
	if supervised {
		mode = "true"
	}
	m.runsStarted.WithLabelValues(flow, mode).Inc()
	m.activeRuns.Inc()
}

// RecordRunCompleted records a completed run with its status and duration.
func (m *Metrics) RecordRunCompleted(flow, status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(flow, status).Inc()
	m.runDuration.WithLabelValues(flow, status).Observe(duration.Seconds())
	m.activeRuns.Dec()
}

// Construct Metrics

// ObserveConstruct records one construct reaching a terminal state.
func (m *Metrics) ObserveConstruct(constructType string, success bool) {
	if m.constructsExecuted == nil {
		return
	}
	status := "failed"
	if success {
		status = "success"
	}
	m.constructsExecuted.WithLabelValues(constructType, status).Inc()
}

// ObserveConstructDuration records how long a construct took to execute.
func (m *Metrics) ObserveConstructDuration(constructType string, duration time.Duration) {
	if m.constructDuration == nil {
		return
	}
	m.constructDuration.WithLabelValues(constructType).Observe(duration.Seconds())
}

// Action Item Metrics

// RecordActionItemEmitted counts an action item shown to an operator.
func (m *Metrics) RecordActionItemEmitted(itemType string) {
	if m.actionItemsEmitted == nil {
		return
	}
	m.actionItemsEmitted.WithLabelValues(itemType).Inc()
	m.pendingActionItems.Inc()
}

// RecordActionItemResolved counts an operator response.
func (m *Metrics) RecordActionItemResolved(itemType, status string) {
	if m.actionItemsResolved == nil {
		return
	}
	m.actionItemsResolved.WithLabelValues(itemType, status).Inc()
	m.pendingActionItems.Dec()
}

// Addon Metrics

// RecordAddonCall records an addon command invocation with its duration.
func (m *Metrics) RecordAddonCall(addon, command string, duration time.Duration) {
	if m.addonCalls == nil {
		return
	}
	m.addonCalls.WithLabelValues(addon, command).Inc()
	m.addonDuration.WithLabelValues(addon, command).Observe(duration.Seconds())
}

// RecordAddonError records an addon command failure.
func (m *Metrics) RecordAddonError(addon, command string) {
	if m.addonErrors == nil {
		return
	}
	m.addonErrors.WithLabelValues(addon, command).Inc()
}

// Error Metrics

// RecordDiagnostic counts a diagnostic by code.
func (m *Metrics) RecordDiagnostic(code string) {
	if m.errorsByCode == nil || code == "" {
		return
	}
	m.errorsByCode.WithLabelValues(code).Inc()
}

// System Metrics

// SetBackgroundTasks sets the current number of in-flight background
// tasks.
func (m *Metrics) SetBackgroundTasks(count float64) {
	if m.backgroundTasks == nil {
		return
	}
	m.backgroundTasks.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
