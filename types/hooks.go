package types

import "context"

// Hooks defines callbacks for coordinator lifecycle events.
//
// All hooks are optional and run in background goroutines so a slow hook never
// stalls dispatching. Errors returned by a hook are logged and otherwise ignored.
//
// Example:
//
//	hooks := &fractals.Hooks{
//	    OnTaskCompleted: func(ctx context.Context, p fractals.Progress) error {
//	        fmt.Printf("\r%.0f%%", p.Fraction()*100)
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnStateChanged is called after every job state transition.
	OnStateChanged func(ctx context.Context, from, to JobState) error

	// OnTaskCompleted is called after each result is copied into the image.
	OnTaskCompleted func(ctx context.Context, progress Progress) error
}
