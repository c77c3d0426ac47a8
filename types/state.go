package types

// JobState represents the coordinator's progress through one render job.
//
// States follow a strict progression:
//
//	JobStateDispatching → JobStateDraining → JobStateDone
//
// Dispatching while unsent tasks remain, Draining once every task has been
// handed out and results are still outstanding, Done once every result has been
// folded into the image.
type JobState int

const (
	// JobStateDispatching indicates tasks remain unsent.
	JobStateDispatching JobState = iota

	// JobStateDraining indicates every task was sent and results are pending.
	JobStateDraining

	// JobStateDone indicates the image is fully assembled.
	JobStateDone
)

// String returns the string representation of the state.
func (s JobState) String() string {
	switch s {
	case JobStateDispatching:
		return "Dispatching"
	case JobStateDraining:
		return "Draining"
	case JobStateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Progress is a point-in-time snapshot of a running job.
type Progress struct {
	State      JobState
	Total      uint64
	Dispatched uint64
	Completed  uint64
}

// Fraction returns the completed share of the job in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}

	return float64(p.Completed) / float64(p.Total)
}
