package fractals

import "github.com/FrancoYudica/DistributedFractals/types"

// Re-export types from the types package so that callers only need to import
// the root package for common use.
type (
	JobState         = types.JobState
	Progress         = types.Progress
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)

// Re-export JobState constants.
const (
	JobStateDispatching = types.JobStateDispatching
	JobStateDraining    = types.JobStateDraining
	JobStateDone        = types.JobStateDone
)
