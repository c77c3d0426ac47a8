package types

// MetricsCollector records operational metrics for a render job.
//
// Implementations must be safe for concurrent use: the coordinator and every
// local worker goroutine record into the same collector.
type MetricsCollector interface {
	CoordinatorMetrics
	WorkerMetrics
	OutputMetrics
}

// CoordinatorMetrics defines metrics recorded by the coordinator.
type CoordinatorMetrics interface {
	// RecordStateTransition records a job state transition.
	//
	// Parameters:
	//   - from: Previous state
	//   - to: New state
	//   - duration: Seconds spent in the previous state
	RecordStateTransition(from, to JobState, duration float64)

	// RecordTaskDispatched records a task handed to a worker.
	RecordTaskDispatched(workerID string)

	// RecordTaskCompleted records a result copied into the image.
	//
	// Parameters:
	//   - workerID: Worker that rendered the block
	//   - pixels: Number of pixels in the block
	RecordTaskCompleted(workerID string, pixels int)

	// RecordJobDuration records the wall time of a whole job in seconds.
	RecordJobDuration(duration float64)
}

// WorkerMetrics defines metrics recorded by compute workers.
type WorkerMetrics interface {
	// RecordBlockRender records the time one worker spent rendering one block.
	//
	// Parameters:
	//   - workerID: Worker that rendered the block
	//   - duration: Render time in seconds
	RecordBlockRender(workerID string, duration float64)
}

// OutputMetrics defines metrics recorded when the final image is delivered.
type OutputMetrics interface {
	// RecordOutput records one delivery attempt.
	//
	// Parameters:
	//   - mode: Output mode ("disk", "network", "disabled")
	//   - bytes: Encoded image size, 0 on failure
	//   - success: true if the image was delivered
	RecordOutput(mode string, bytes int, success bool)
}
