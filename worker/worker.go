// Package worker implements the compute side of a render job: request a task,
// render its block, return the pixels, repeat until told to stop.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/internal/metrics"
	"github.com/FrancoYudica/DistributedFractals/render"
	"github.com/FrancoYudica/DistributedFractals/tiling"
	"github.com/FrancoYudica/DistributedFractals/types"
)

// BlockRenderer renders one block of the job image. *render.Renderer
// satisfies it for every numeric backend.
type BlockRenderer interface {
	RenderBlock(rect types.Rect, dst []byte) error
}

// Layout is the geometry workers share with the coordinator.
type Layout struct {
	Width     int
	Height    int
	BlockSize int
}

type workerOptions struct {
	logger  types.Logger
	metrics types.WorkerMetrics
}

// Option configures a Worker.
type Option func(*workerOptions)

// WithLogger sets the worker logger.
func WithLogger(logger types.Logger) Option {
	return func(o *workerOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the collector that records block render durations.
func WithMetrics(m types.WorkerMetrics) Option {
	return func(o *workerOptions) {
		o.metrics = m
	}
}

// Worker pulls tasks over one endpoint.
type Worker struct {
	ep       types.WorkerEndpoint
	renderer BlockRenderer
	layout   Layout
	total    uint64

	logger  types.Logger
	metrics types.WorkerMetrics
}

// New creates a worker.
func New(ep types.WorkerEndpoint, r BlockRenderer, layout Layout, opts ...Option) (*Worker, error) {
	if ep == nil {
		return nil, types.ErrTransportRequired
	}
	if r == nil {
		return nil, fmt.Errorf("%w: renderer is required", types.ErrInvalidConfig)
	}
	if layout.Width <= 0 || layout.Height <= 0 || layout.BlockSize <= 0 {
		return nil, fmt.Errorf("%w: image %dx%d, block %d", types.ErrInvalidConfig, layout.Width, layout.Height, layout.BlockSize)
	}

	o := workerOptions{
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Worker{
		ep:       ep,
		renderer: r,
		layout:   layout,
		total:    tiling.TaskCount(layout.Width, layout.Height, layout.BlockSize),
		logger:   o.logger,
		metrics:  o.metrics,
	}, nil
}

// Run pulls and renders tasks until the coordinator sends Terminate.
//
// Returns:
//   - int: Number of blocks rendered
//   - error: nil on Terminate, types.ErrProtocolViolation for an unexpected
//     message or out-of-range task, otherwise the endpoint or context error
func (w *Worker) Run(ctx context.Context) (int, error) {
	id := w.ep.ID()
	rendered := 0

	for {
		if err := w.ep.Send(ctx, types.Request(id)); err != nil {
			return rendered, fmt.Errorf("failed to request task: %w", err)
		}

		msg, err := w.ep.Recv(ctx)
		if err != nil {
			return rendered, fmt.Errorf("failed to receive task: %w", err)
		}

		switch msg.Tag {
		case types.TagTerminate:
			w.logger.Debug("worker terminated", "worker", id, "blocks", rendered)
			return rendered, nil
		case types.TagTask:
		default:
			return rendered, fmt.Errorf("%w: worker %s received %s", types.ErrProtocolViolation, id, msg.Tag)
		}

		if msg.TaskID >= w.total {
			return rendered, fmt.Errorf("%w: task %d out of range [0, %d)", types.ErrProtocolViolation, msg.TaskID, w.total)
		}

		pixels, err := w.render(id, msg.TaskID)
		if err != nil {
			return rendered, err
		}

		if err := w.ep.Send(ctx, types.Result(id, msg.TaskID, pixels)); err != nil {
			return rendered, fmt.Errorf("failed to send result for task %d: %w", msg.TaskID, err)
		}
		rendered++
	}
}

func (w *Worker) render(id string, task uint64) ([]byte, error) {
	rect := tiling.TaskRect(task, w.layout.Width, w.layout.Height, w.layout.BlockSize)
	pixels := make([]byte, rect.Area()*render.BytesPerPixel)

	start := time.Now()
	if err := w.renderer.RenderBlock(rect, pixels); err != nil {
		return nil, fmt.Errorf("failed to render task %d: %w", task, err)
	}
	elapsed := time.Since(start)

	w.metrics.RecordBlockRender(id, elapsed.Seconds())
	w.logger.Debug("block rendered", "worker", id, "task", task, "rect", rect, "ms", elapsed.Milliseconds())

	return pixels, nil
}
