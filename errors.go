package fractals

import (
	"errors"

	"github.com/FrancoYudica/DistributedFractals/types"
)

// Sentinel errors returned by jobs. Most are re-exported from the types package
// so callers can match errors raised deep in the coordinator or transports.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrTransportRequired is returned when a NATS mode runs without a connection.
	ErrTransportRequired = types.ErrTransportRequired

	// ErrProtocolViolation is returned when a peer breaks the task protocol.
	ErrProtocolViolation = types.ErrProtocolViolation

	// ErrUnknownTask is returned for a result whose task was not outstanding.
	ErrUnknownTask = types.ErrUnknownTask

	// ErrAlreadyRunning is returned when a job is run twice.
	ErrAlreadyRunning = types.ErrAlreadyRunning

	// ErrJobIDRequired is returned when a NATS worker has no job id to join.
	ErrJobIDRequired = errors.New("job id is required")
)
