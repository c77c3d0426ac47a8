package natsbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/internal/natsutil"
	"github.com/FrancoYudica/DistributedFractals/internal/wire"
	"github.com/FrancoYudica/DistributedFractals/types"
)

// DefaultBufferSize is the capacity of the channel a subscription delivers into.
const DefaultBufferSize = 256

// InboxSize returns the coordinator inbox capacity needed by n workers.
func InboxSize(n int) int {
	return 2 * n
}

type endpointOptions struct {
	logger     types.Logger
	bufferSize int
}

// Option configures an endpoint.
type Option func(*endpointOptions)

// WithLogger sets the endpoint logger.
func WithLogger(logger types.Logger) Option {
	return func(o *endpointOptions) {
		o.logger = logger
	}
}

// WithBufferSize sets the subscription channel capacity.
func WithBufferSize(n int) Option {
	return func(o *endpointOptions) {
		o.bufferSize = n
	}
}

func applyOptions(opts []Option) endpointOptions {
	o := endpointOptions{logger: logging.NewNop(), bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bufferSize <= 0 {
		o.bufferSize = DefaultBufferSize
	}

	return o
}

// inbox is a subscription delivering into a channel.
type inbox struct {
	nc    *nats.Conn
	codec *wire.Codec
	sub   *nats.Subscription
	ch    chan *nats.Msg

	closeOnce sync.Once
	closed    chan struct{}
}

// subscribe listens on subject and flushes so the server has registered the
// interest before the caller announces itself to peers.
func subscribe(nc *nats.Conn, codec *wire.Codec, subject string, size int) (*inbox, error) {
	in := &inbox{
		nc:     nc,
		codec:  codec,
		ch:     make(chan *nats.Msg, size),
		closed: make(chan struct{}),
	}

	sub, err := nc.ChanSubscribe(subject, in.ch)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	if err := nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("failed to flush subscription to %s: %w", subject, err)
	}
	in.sub = sub

	return in, nil
}

func (in *inbox) recv(ctx context.Context) (types.Message, error) {
	select {
	case m := <-in.ch:
		msg, err := in.codec.Decode(m.Data)
		if err != nil {
			return types.Message{}, fmt.Errorf("failed to decode frame on %s: %w", m.Subject, err)
		}

		return msg, nil
	case <-in.closed:
		return types.Message{}, types.ErrEndpointClosed
	case <-ctx.Done():
		return types.Message{}, ctx.Err()
	}
}

func (in *inbox) publish(subject string, msg types.Message) error {
	frame, err := in.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.Tag, err)
	}
	if limit := in.nc.MaxPayload(); limit > 0 && int64(len(frame)) > limit {
		return fmt.Errorf("%s frame of %d bytes exceeds NATS max payload %d: %w", msg.Tag, len(frame), limit, nats.ErrMaxPayload)
	}

	return natsutil.WrapClosed("failed to publish to "+subject, in.nc.Publish(subject, frame))
}

func (in *inbox) close() error {
	var err error
	in.closeOnce.Do(func() {
		close(in.closed)
		err = in.sub.Unsubscribe()
	})

	return err
}

// Coordinator is the coordinator side of a NATS job.
type Coordinator struct {
	*inbox
	prefix  string
	job     string
	workers []string
	logger  types.Logger
}

var _ types.CoordinatorEndpoint = (*Coordinator)(nil)

// NewCoordinator subscribes to the coordinator subject of job.
//
// Parameters:
//   - nc: Connection owned by the caller
//   - codec: Frame codec shared with the workers' settings
//   - prefix: Subject prefix (DefaultPrefix if empty)
//   - job: Job id, used as a subject token
//   - workers: Ids of every worker expected to take part
//
// Returns:
//   - *Coordinator: Endpoint ready to receive; call Close when the job ends
//   - error: If the subscription cannot be created
func NewCoordinator(nc *nats.Conn, codec *wire.Codec, prefix, job string, workers []string, opts ...Option) (*Coordinator, error) {
	o := applyOptions(opts)

	// Every worker can have a Request and a Result in flight at once; a full
	// channel drops messages as a slow consumer.
	size := max(o.bufferSize, InboxSize(len(workers)))

	in, err := subscribe(nc, codec, CoordinatorSubject(prefix, job), size)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		inbox:   in,
		prefix:  prefix,
		job:     job,
		workers: append([]string(nil), workers...),
		logger:  o.logger,
	}, nil
}

func (c *Coordinator) Recv(ctx context.Context) (types.Message, error) {
	return c.recv(ctx)
}

// Send publishes msg to the subject of msg.WorkerID.
func (c *Coordinator) Send(_ context.Context, msg types.Message) error {
	subject := WorkerSubject(c.prefix, c.job, msg.WorkerID)
	c.logger.Debug("publishing to worker", "subject", subject, "tag", msg.Tag, "task", msg.TaskID)

	return c.publish(subject, msg)
}

func (c *Coordinator) Workers() []string {
	return append([]string(nil), c.workers...)
}

// Close unsubscribes. Pending Recv calls return types.ErrEndpointClosed.
func (c *Coordinator) Close() error {
	return c.close()
}

// Worker is one worker's side of a NATS job.
type Worker struct {
	*inbox
	id      string
	subject string
	logger  types.Logger
}

var _ types.WorkerEndpoint = (*Worker)(nil)

// NewWorker subscribes to the subject of worker id in job.
func NewWorker(nc *nats.Conn, codec *wire.Codec, prefix, job, id string, opts ...Option) (*Worker, error) {
	o := applyOptions(opts)

	in, err := subscribe(nc, codec, WorkerSubject(prefix, job, id), o.bufferSize)
	if err != nil {
		return nil, err
	}

	return &Worker{
		inbox:   in,
		id:      id,
		subject: CoordinatorSubject(prefix, job),
		logger:  o.logger,
	}, nil
}

func (w *Worker) ID() string {
	return w.id
}

// Send stamps the worker id on msg and publishes it to the coordinator.
func (w *Worker) Send(_ context.Context, msg types.Message) error {
	msg.WorkerID = w.id
	if err := w.publish(w.subject, msg); err != nil {
		if natsutil.IsConnectivityError(err) {
			w.logger.Warn("lost connection to NATS", "worker", w.id, "error", err)
		}

		return err
	}

	return nil
}

func (w *Worker) Recv(ctx context.Context) (types.Message, error) {
	return w.recv(ctx)
}

// Close unsubscribes. Pending Recv calls return types.ErrEndpointClosed.
func (w *Worker) Close() error {
	return w.close()
}
