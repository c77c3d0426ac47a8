// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/FrancoYudica/DistributedFractals/types"

// NopMetrics discards every metric.
//
// It is the default collector and is embedded by PrometheusCollector so new
// interface methods always have a fallback.
type NopMetrics struct{}

var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a collector that records nothing.
//
// Example:
//
//	job := fractals.NewJob(cfg, fractals.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// CoordinatorMetrics implementation

func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.JobState, _ /* duration */ float64) {
}

func (n *NopMetrics) RecordTaskDispatched(_ /* workerID */ string) {}

func (n *NopMetrics) RecordTaskCompleted(_ /* workerID */ string, _ /* pixels */ int) {}

func (n *NopMetrics) RecordJobDuration(_ /* duration */ float64) {}

// WorkerMetrics implementation

func (n *NopMetrics) RecordBlockRender(_ /* workerID */ string, _ /* duration */ float64) {}

// OutputMetrics implementation

func (n *NopMetrics) RecordOutput(_ /* mode */ string, _ /* bytes */ int, _ /* success */ bool) {}
