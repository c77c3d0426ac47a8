// Package local implements the coordinator/worker message channel with Go
// channels for jobs whose workers run as goroutines of one process.
//
// All workers share one coordinator inbox; each worker has its own reply
// channel. The inbox holds two messages per worker, a Result and the Request
// that follows it, so a worker never blocks on Send after its coordinator has
// returned. Messages are passed by value and pixel buffers are handed off to the
// receiver, never written again by the sender.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/FrancoYudica/DistributedFractals/types"
)

// Hub owns the channels of one job.
type Hub struct {
	ids     []string
	inbox   chan types.Message
	replies map[string]chan types.Message

	closeOnce sync.Once
	closed    chan struct{}
}

// WorkerID returns the id of the i-th worker of a job.
func WorkerID(i int) string {
	return fmt.Sprintf("worker-%d", i)
}

// NewHub creates channels for n workers named worker-0 .. worker-(n-1).
func NewHub(n int) *Hub {
	h := &Hub{
		ids:     make([]string, n),
		inbox:   make(chan types.Message, 2*n),
		replies: make(map[string]chan types.Message, n),
		closed:  make(chan struct{}),
	}
	for i := range n {
		id := WorkerID(i)
		h.ids[i] = id
		h.replies[id] = make(chan types.Message, 1)
	}

	return h
}

// Close unblocks every pending Send and Recv with types.ErrEndpointClosed.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.closed) })
}

// Workers returns the worker ids in index order.
func (h *Hub) Workers() []string {
	return append([]string(nil), h.ids...)
}

// Coordinator returns the coordinator side of the hub.
func (h *Hub) Coordinator() types.CoordinatorEndpoint {
	return &coordinatorEndpoint{hub: h}
}

// Worker returns the endpoint of worker id.
func (h *Hub) Worker(id string) (types.WorkerEndpoint, error) {
	reply, ok := h.replies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownWorker, id)
	}

	return &workerEndpoint{hub: h, id: id, reply: reply}, nil
}

func (h *Hub) send(ctx context.Context, ch chan<- types.Message, msg types.Message) error {
	select {
	case ch <- msg:
		return nil
	case <-h.closed:
		return types.ErrEndpointClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) recv(ctx context.Context, ch <-chan types.Message) (types.Message, error) {
	select {
	case msg := <-ch:
		return msg, nil
	case <-h.closed:
		return types.Message{}, types.ErrEndpointClosed
	case <-ctx.Done():
		return types.Message{}, ctx.Err()
	}
}

type coordinatorEndpoint struct {
	hub *Hub
}

func (c *coordinatorEndpoint) Recv(ctx context.Context) (types.Message, error) {
	return c.hub.recv(ctx, c.hub.inbox)
}

func (c *coordinatorEndpoint) Send(ctx context.Context, msg types.Message) error {
	reply, ok := c.hub.replies[msg.WorkerID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownWorker, msg.WorkerID)
	}

	return c.hub.send(ctx, reply, msg)
}

func (c *coordinatorEndpoint) Workers() []string {
	return c.hub.Workers()
}

type workerEndpoint struct {
	hub   *Hub
	id    string
	reply chan types.Message
}

func (w *workerEndpoint) ID() string {
	return w.id
}

// Send stamps the worker id on msg and queues it in the coordinator inbox.
func (w *workerEndpoint) Send(ctx context.Context, msg types.Message) error {
	msg.WorkerID = w.id
	return w.hub.send(ctx, w.hub.inbox, msg)
}

func (w *workerEndpoint) Recv(ctx context.Context) (types.Message, error) {
	return w.hub.recv(ctx, w.reply)
}
