package types

import "context"

// CoordinatorEndpoint is the coordinator's side of the message channel.
//
// Recv returns the next message from any worker, blocking until one is
// available. Messages from one worker arrive in the order that worker sent them;
// no ordering holds across workers.
type CoordinatorEndpoint interface {
	// Recv blocks until a message from any worker arrives or ctx is done.
	Recv(ctx context.Context) (Message, error)

	// Send delivers msg to the worker named by msg.WorkerID.
	Send(ctx context.Context, msg Message) error

	// Workers returns the ids of every worker taking part in the job.
	Workers() []string
}

// WorkerEndpoint is one worker's side of the message channel.
type WorkerEndpoint interface {
	// ID returns the worker's identity as known by the coordinator.
	ID() string

	// Send delivers msg to the coordinator.
	Send(ctx context.Context, msg Message) error

	// Recv blocks until the coordinator replies or ctx is done.
	Recv(ctx context.Context) (Message, error)
}
