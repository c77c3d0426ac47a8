package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FrancoYudica/DistributedFractals/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Metrics are created and registered on first use, so constructing a collector
// that is never exercised leaves the registry untouched.
type PrometheusCollector struct {
	*NopMetrics

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	stateTransitions *prometheus.CounterVec
	stateDuration    *prometheus.HistogramVec
	tasksDispatched  *prometheus.CounterVec
	tasksCompleted   *prometheus.CounterVec
	pixelsCompleted  prometheus.Counter
	jobDuration      prometheus.Histogram
	blockRender      *prometheus.HistogramVec
	outputs          *prometheus.CounterVec
	outputBytes      prometheus.Histogram
}

var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed collector.
//
// Parameters:
//   - reg: Registerer to use (prometheus.DefaultRegisterer if nil)
//   - namespace: Metric namespace ("fractals" if empty)
//
// Returns:
//   - *PrometheusCollector: Collector ready to be passed to WithMetrics
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "fractals"
	}

	return &PrometheusCollector{NopMetrics: NewNop(), reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "state_transitions_total",
			Help:      "Job state transitions by source and target state.",
		}, []string{"from", "to"})

		p.stateDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "state_duration_seconds",
			Help:      "Time spent in a job state before leaving it.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms .. ~4m
		}, []string{"state"})

		p.tasksDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "tasks_dispatched_total",
			Help:      "Block tasks handed to workers.",
		}, []string{"worker"})

		p.tasksCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "tasks_completed_total",
			Help:      "Block results copied into the image.",
		}, []string{"worker"})

		p.pixelsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "pixels_completed_total",
			Help:      "Pixels copied into the image.",
		})

		p.jobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "job_duration_seconds",
			Help:      "Wall time of complete render jobs.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		})

		p.blockRender = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "worker",
			Name:      "block_render_seconds",
			Help:      "Time spent rendering one block.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
		}, []string{"worker"})

		p.outputs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "output",
			Name:      "deliveries_total",
			Help:      "Image deliveries by mode and outcome.",
		}, []string{"mode", "success"})

		p.outputBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "output",
			Name:      "encoded_bytes",
			Help:      "Size of delivered encoded images.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		})

		p.reg.MustRegister(
			p.stateTransitions,
			p.stateDuration,
			p.tasksDispatched,
			p.tasksCompleted,
			p.pixelsCompleted,
			p.jobDuration,
			p.blockRender,
			p.outputs,
			p.outputBytes,
		)
	})
}

// RecordStateTransition counts the transition and observes time spent in from.
func (p *PrometheusCollector) RecordStateTransition(from, to types.JobState, duration float64) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	p.stateDuration.WithLabelValues(from.String()).Observe(duration)
}

func (p *PrometheusCollector) RecordTaskDispatched(workerID string) {
	p.ensureRegistered()
	p.tasksDispatched.WithLabelValues(workerID).Inc()
}

func (p *PrometheusCollector) RecordTaskCompleted(workerID string, pixels int) {
	p.ensureRegistered()
	p.tasksCompleted.WithLabelValues(workerID).Inc()
	p.pixelsCompleted.Add(float64(pixels))
}

func (p *PrometheusCollector) RecordJobDuration(duration float64) {
	p.ensureRegistered()
	p.jobDuration.Observe(duration)
}

func (p *PrometheusCollector) RecordBlockRender(workerID string, duration float64) {
	p.ensureRegistered()
	p.blockRender.WithLabelValues(workerID).Observe(duration)
}

// RecordOutput counts the delivery; the size is only observed on success.
func (p *PrometheusCollector) RecordOutput(mode string, bytes int, success bool) {
	p.ensureRegistered()
	p.outputs.WithLabelValues(mode, strconv.FormatBool(success)).Inc()
	if success {
		p.outputBytes.Observe(float64(bytes))
	}
}
