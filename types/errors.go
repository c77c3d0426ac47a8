package types

import "errors"

// Sentinel errors shared by the coordinator, workers and transports.
//
// Wrap them with context using fmt.Errorf("...: %w", err) and match with
// errors.Is.

// Job errors.
var (
	// ErrInvalidConfig is returned when a configuration cannot be normalized.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTransportRequired is returned when a coordinator or worker has no endpoint.
	ErrTransportRequired = errors.New("transport endpoint is required")

	// ErrAlreadyRunning is returned when Run is called twice on the same job.
	ErrAlreadyRunning = errors.New("job already running")

	// ErrNoWorkers is returned when a job is started with zero workers.
	ErrNoWorkers = errors.New("no workers available")
)

// Protocol errors. Both are fatal to the side that detects them.
var (
	// ErrProtocolViolation is returned when a peer sends a message whose tag is
	// not allowed in the current exchange.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnknownTask is returned when a result names a task that was not
	// outstanding for the sending worker.
	ErrUnknownTask = errors.New("result for unknown task")
)

// Transport errors.
var (
	// ErrEndpointClosed is returned by Send or Recv after the transport shut down.
	ErrEndpointClosed = errors.New("endpoint closed")

	// ErrUnknownWorker is returned when a message is addressed to a worker the
	// transport does not know.
	ErrUnknownWorker = errors.New("unknown worker")
)
