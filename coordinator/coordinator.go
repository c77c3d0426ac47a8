// Package coordinator hands out block tasks to pulling workers and assembles
// their results into one image.
//
// The coordinator never waits on a particular worker: it services whichever
// message arrives next. Each worker pulls one task at a time, so at most one
// task per worker is ever outstanding. A worker that never returns its result
// stalls the job until the context passed to Run is cancelled.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/zeebo/xxh3"

	"github.com/FrancoYudica/DistributedFractals/render"
	"github.com/FrancoYudica/DistributedFractals/tiling"
	"github.com/FrancoYudica/DistributedFractals/types"
)

// Layout describes the image a job renders.
type Layout struct {
	Width     int
	Height    int
	BlockSize int
}

// Image is an assembled RGB image.
type Image struct {
	Width    int
	Height   int
	Pixels   []byte
	Checksum uint64
	Duration time.Duration
}

// Coordinator runs one render job over an endpoint.
type Coordinator struct {
	ep     types.CoordinatorEndpoint
	layout Layout
	total  uint64

	pixels []byte

	dispatched atomic.Uint64
	completed  atomic.Uint64
	state      atomic.Int32
	running    atomic.Bool
	stateSince time.Time

	workers     map[string]struct{}
	outstanding *xsync.Map[string, uint64]
	terminated  *xsync.Map[string, struct{}]

	logger  types.Logger
	metrics types.MetricsCollector
	hooks   types.Hooks
	hookCtx context.Context
}

// New creates a coordinator for layout over ep.
//
// Returns:
//   - *Coordinator: Ready to Run
//   - error: types.ErrTransportRequired, types.ErrNoWorkers, or
//     types.ErrInvalidConfig for a non-positive size
func New(ep types.CoordinatorEndpoint, layout Layout, opts ...Option) (*Coordinator, error) {
	if ep == nil {
		return nil, types.ErrTransportRequired
	}
	if layout.Width <= 0 || layout.Height <= 0 || layout.BlockSize <= 0 {
		return nil, fmt.Errorf("%w: image %dx%d, block %d", types.ErrInvalidConfig, layout.Width, layout.Height, layout.BlockSize)
	}

	ids := ep.Workers()
	if len(ids) == 0 {
		return nil, types.ErrNoWorkers
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	workers := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		workers[id] = struct{}{}
	}

	return &Coordinator{
		ep:          ep,
		layout:      layout,
		total:       tiling.TaskCount(layout.Width, layout.Height, layout.BlockSize),
		pixels:      make([]byte, layout.Width*layout.Height*render.BytesPerPixel),
		workers:     workers,
		outstanding: xsync.NewMap[string, uint64](),
		terminated:  xsync.NewMap[string, struct{}](),
		logger:      o.logger,
		metrics:     o.metrics,
		hooks:       o.hooks,
		hookCtx:     context.Background(),
	}, nil
}

// State returns the current job state.
func (c *Coordinator) State() types.JobState {
	return types.JobState(c.state.Load())
}

// Progress returns a snapshot of the job. Safe to call from any goroutine.
func (c *Coordinator) Progress() types.Progress {
	return types.Progress{
		State:      c.State(),
		Total:      c.total,
		Dispatched: c.dispatched.Load(),
		Completed:  c.completed.Load(),
	}
}

// Outstanding returns the task each busy worker is rendering.
func (c *Coordinator) Outstanding() map[string]uint64 {
	out := make(map[string]uint64)
	c.outstanding.Range(func(worker string, task uint64) bool {
		out[worker] = task
		return true
	})

	return out
}

// Run services workers until every block is assembled.
//
// Returns:
//   - *Image: The assembled image. When ctx is cancelled first, the partially
//     assembled image is returned together with ctx.Err().
//   - error: types.ErrProtocolViolation (possibly with types.ErrUnknownTask)
//     when a worker breaks the protocol, or the endpoint error
func (c *Coordinator) Run(ctx context.Context) (*Image, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, types.ErrAlreadyRunning
	}

	start := time.Now()
	c.stateSince = start
	c.hookCtx = ctx

	c.logger.Info("job started",
		"width", c.layout.Width,
		"height", c.layout.Height,
		"block", c.layout.BlockSize,
		"tasks", c.total,
		"workers", len(c.workers),
	)

	for c.completed.Load() < c.total {
		msg, err := c.ep.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Warn("job cancelled", "completed", c.completed.Load(), "total", c.total)
				return c.image(time.Since(start)), ctx.Err()
			}

			return nil, fmt.Errorf("failed to receive from workers: %w", err)
		}

		if err := c.handle(ctx, msg); err != nil {
			c.logger.Error("job aborted", "worker", msg.WorkerID, "tag", msg.Tag, "error", err)
			return nil, err
		}
	}

	c.terminateRemaining(ctx)
	c.transitionState(types.JobStateDraining, types.JobStateDone)

	img := c.image(time.Since(start))
	c.metrics.RecordJobDuration(img.Duration.Seconds())
	c.logger.Info("image generated",
		"ms", img.Duration.Milliseconds(),
		"tasks", c.total,
		"checksum", fmt.Sprintf("%016x", img.Checksum),
	)

	return img, nil
}

func (c *Coordinator) handle(ctx context.Context, msg types.Message) error {
	if _, ok := c.workers[msg.WorkerID]; !ok {
		return fmt.Errorf("%w: %s from unknown worker %q", types.ErrProtocolViolation, msg.Tag, msg.WorkerID)
	}

	switch msg.Tag {
	case types.TagRequest:
		return c.handleRequest(ctx, msg.WorkerID)
	case types.TagResult:
		return c.handleResult(msg)
	default:
		return fmt.Errorf("%w: unexpected %s from %s", types.ErrProtocolViolation, msg.Tag, msg.WorkerID)
	}
}

func (c *Coordinator) handleRequest(ctx context.Context, worker string) error {
	if task, busy := c.outstanding.Load(worker); busy {
		return fmt.Errorf("%w: %s requested work while task %d is outstanding", types.ErrProtocolViolation, worker, task)
	}
	// A restarted process may reclaim a released id while the job drains.
	if _, done := c.terminated.Load(worker); done {
		c.logger.Warn("request after termination, terminating again", "worker", worker)
		if err := c.ep.Send(ctx, types.Terminate(worker)); err != nil {
			return fmt.Errorf("failed to terminate %s: %w", worker, err)
		}

		return nil
	}

	id := c.dispatched.Load()
	if id >= c.total {
		if c.State() == types.JobStateDispatching {
			c.transitionState(types.JobStateDispatching, types.JobStateDraining)
		}

		return c.terminate(ctx, worker)
	}

	c.outstanding.Store(worker, id)
	c.dispatched.Store(id + 1)
	if err := c.ep.Send(ctx, types.Task(worker, id)); err != nil {
		return fmt.Errorf("failed to send task %d to %s: %w", id, worker, err)
	}

	c.metrics.RecordTaskDispatched(worker)
	c.logger.Debug("task dispatched", "worker", worker, "task", id)

	if id+1 == c.total {
		c.transitionState(types.JobStateDispatching, types.JobStateDraining)
	}

	return nil
}

func (c *Coordinator) handleResult(msg types.Message) error {
	task, ok := c.outstanding.Load(msg.WorkerID)
	if !ok || task != msg.TaskID {
		return fmt.Errorf("%w: %w: task %d from %s", types.ErrProtocolViolation, types.ErrUnknownTask, msg.TaskID, msg.WorkerID)
	}

	rect := tiling.TaskRect(msg.TaskID, c.layout.Width, c.layout.Height, c.layout.BlockSize)
	if want := rect.Area() * render.BytesPerPixel; len(msg.Pixels) != want {
		return fmt.Errorf("%w: task %d from %s carries %d bytes, want %d",
			types.ErrProtocolViolation, msg.TaskID, msg.WorkerID, len(msg.Pixels), want)
	}

	c.outstanding.Delete(msg.WorkerID)
	c.blit(rect, msg.Pixels)

	completed := c.completed.Add(1)
	c.metrics.RecordTaskCompleted(msg.WorkerID, rect.Area())
	c.logger.Debug("result received", "worker", msg.WorkerID, "task", msg.TaskID, "completed", completed, "total", c.total)

	progress := c.Progress()
	go func() {
		if err := c.hooks.OnTaskCompleted(c.hookCtx, progress); err != nil {
			c.logger.Error("task completed hook error", "task", msg.TaskID, "error", err)
		}
	}()

	return nil
}

// blit copies a block-local buffer (stride rect.Width*3) into the image
// (stride Width*3).
func (c *Coordinator) blit(rect types.Rect, src []byte) {
	srcStride := rect.Width * render.BytesPerPixel
	dstStride := c.layout.Width * render.BytesPerPixel

	for row := 0; row < rect.Height; row++ {
		dst := (rect.Y+row)*dstStride + rect.X*render.BytesPerPixel
		copy(c.pixels[dst:dst+srcStride], src[row*srcStride:(row+1)*srcStride])
	}
}

func (c *Coordinator) terminate(ctx context.Context, worker string) error {
	c.terminated.Store(worker, struct{}{})
	if err := c.ep.Send(ctx, types.Terminate(worker)); err != nil {
		return fmt.Errorf("failed to terminate %s: %w", worker, err)
	}
	c.logger.Debug("worker terminated", "worker", worker)

	return nil
}

// terminateRemaining sends Terminate to every worker that has not had one.
// Failures are logged since the image is already complete.
func (c *Coordinator) terminateRemaining(ctx context.Context) {
	ids := c.ep.Workers()
	slices.Sort(ids)

	for _, id := range ids {
		if _, done := c.terminated.Load(id); done {
			continue
		}
		if err := c.terminate(ctx, id); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("failed to terminate worker", "worker", id, "error", err)
		}
	}
}

func (c *Coordinator) image(d time.Duration) *Image {
	return &Image{
		Width:    c.layout.Width,
		Height:   c.layout.Height,
		Pixels:   c.pixels,
		Checksum: xxh3.Hash(c.pixels),
		Duration: d,
	}
}

var validTransitions = map[types.JobState][]types.JobState{
	types.JobStateDispatching: {types.JobStateDraining},
	types.JobStateDraining:    {types.JobStateDone},
	types.JobStateDone:        {},
}

func (c *Coordinator) transitionState(from, to types.JobState) {
	if !slices.Contains(validTransitions[from], to) || c.State() != from {
		c.logger.Error("invalid state transition attempted",
			"from", from.String(),
			"to", to.String(),
			"current", c.State().String(),
		)

		return
	}

	c.state.Store(int32(to)) //nolint:gosec // JobState values are a small enum
	now := time.Now()
	spent := now.Sub(c.stateSince)
	c.stateSince = now

	c.logger.Info("state transition", "from", from.String(), "to", to.String())

	go func() {
		if err := c.hooks.OnStateChanged(c.hookCtx, from, to); err != nil {
			c.logger.Error("state change hook error", "from", from, "to", to, "error", err)
		}
	}()

	c.metrics.RecordStateTransition(from, to, spent.Seconds())
}
