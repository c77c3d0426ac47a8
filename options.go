package fractals

// Option configures a Job with optional dependencies.
type Option func(*jobOptions)

// jobOptions holds optional Job configuration.
type jobOptions struct {
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger
}

// WithHooks sets job lifecycle hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewJob
//
// Example:
//
//	hooks := &fractals.Hooks{
//	    OnTaskCompleted: func(ctx context.Context, p fractals.Progress) error {
//	        fmt.Printf("\r%3.0f%%", 100*p.Fraction())
//	        return nil
//	    },
//	}
//	job, err := fractals.NewJob(cfg, fractals.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *jobOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewJob
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *jobOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation
//
// Returns:
//   - Option: Functional option for NewJob
//
// Example:
//
//	job, err := fractals.NewJob(cfg, fractals.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(o *jobOptions) {
		o.logger = logger
	}
}
