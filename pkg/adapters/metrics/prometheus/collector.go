package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	executionsCreated  *prometheus.CounterVec
	executionsFinished *prometheus.CounterVec
	executionDuration  *prometheus.HistogramVec
	stepsExecuted      *prometheus.CounterVec
	stepDuration       *prometheus.HistogramVec
	corrections        *prometheus.CounterVec
	persistenceErrors  prometheus.Counter
	activeExecutions   prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		executionsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mrwa_executions_created_total",
				Help: "Total number of executions created",
			},
			[]string{"input_type"},
		),
		executionsFinished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mrwa_executions_finished_total",
				Help: "Total number of executions reaching a terminal state",
			},
			[]string{"status"},
		),
		executionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mrwa_execution_duration_seconds",
				Help:    "Execution duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		stepsExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mrwa_steps_executed_total",
				Help: "Total number of step attempts",
			},
			[]string{"operation", "status"},
		),
		stepDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mrwa_step_duration_seconds",
				Help:    "Step execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
		corrections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mrwa_corrections_total",
				Help: "Total number of correction retries",
			},
			[]string{"reason"},
		),
		persistenceErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mrwa_persistence_errors_total",
				Help: "Total number of state store writes that exhausted retries",
			},
		),
		activeExecutions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mrwa_active_executions",
				Help: "Number of currently active executions",
			},
		),
	}
}

// RecordExecutionCreated records a new execution
func (c *Collector) RecordExecutionCreated(inputType string) {
	c.executionsCreated.WithLabelValues(inputType).Inc()
	c.activeExecutions.Inc()
}

// RecordExecutionFinished records a terminal transition
func (c *Collector) RecordExecutionFinished(status string, duration time.Duration) {
	c.executionsFinished.WithLabelValues(status).Inc()
	c.executionDuration.WithLabelValues(status).Observe(duration.Seconds())
	c.activeExecutions.Dec()
}

// RecordStepExecuted records one step attempt
func (c *Collector) RecordStepExecuted(operation, status string, duration time.Duration) {
	c.stepsExecuted.WithLabelValues(operation, status).Inc()
	c.stepDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCorrection records one correction retry
func (c *Collector) RecordCorrection(reason string) {
	c.corrections.WithLabelValues(reason).Inc()
}

// RecordPersistenceFailure records a write that exhausted its retries
func (c *Collector) RecordPersistenceFailure() {
	c.persistenceErrors.Inc()
}

// SetActiveExecutions sets the active execution gauge
func (c *Collector) SetActiveExecutions(n int) {
	c.activeExecutions.Set(float64(n))
}
