package coordinator

import (
	"github.com/FrancoYudica/DistributedFractals/internal/hooks"
	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/internal/metrics"
	"github.com/FrancoYudica/DistributedFractals/types"
)

type coordinatorOptions struct {
	logger  types.Logger
	metrics types.MetricsCollector
	hooks   types.Hooks
}

// Option configures a Coordinator.
type Option func(*coordinatorOptions)

// WithLogger sets the coordinator logger.
func WithLogger(logger types.Logger) Option {
	return func(o *coordinatorOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(o *coordinatorOptions) {
		o.metrics = m
	}
}

// WithHooks sets lifecycle callbacks. Nil callbacks are ignored.
func WithHooks(h *types.Hooks) Option {
	return func(o *coordinatorOptions) {
		o.hooks = hooks.WithDefaults(h)
	}
}

func defaultOptions() coordinatorOptions {
	return coordinatorOptions{
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
		hooks:   hooks.NewNop(),
	}
}
