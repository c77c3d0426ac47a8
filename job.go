package fractals

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/FrancoYudica/DistributedFractals/coordinator"
	"github.com/FrancoYudica/DistributedFractals/fractal"
	"github.com/FrancoYudica/DistributedFractals/internal/jobstore"
	"github.com/FrancoYudica/DistributedFractals/internal/kvutil"
	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/internal/metrics"
	"github.com/FrancoYudica/DistributedFractals/internal/stableid"
	"github.com/FrancoYudica/DistributedFractals/internal/transport/local"
	"github.com/FrancoYudica/DistributedFractals/internal/transport/natsbus"
	"github.com/FrancoYudica/DistributedFractals/internal/wire"
	"github.com/FrancoYudica/DistributedFractals/numeric"
	"github.com/FrancoYudica/DistributedFractals/output"
	"github.com/FrancoYudica/DistributedFractals/palette"
	"github.com/FrancoYudica/DistributedFractals/render"
	"github.com/FrancoYudica/DistributedFractals/types"
	"github.com/FrancoYudica/DistributedFractals/worker"
)

// Image is an assembled render.
type Image = coordinator.Image

// float64Bits is the usable mantissa of the float64 backend.
const float64Bits = 52

// Job renders one image according to a Config.
//
// The same Job value can drive every role: RunLocal renders with goroutine
// workers, RunCoordinator and RunWorker split the roles across processes
// connected through NATS.
type Job struct {
	cfg Config

	logger  Logger
	metrics MetricsCollector
	hooks   *Hooks
}

// NewJob validates cfg and creates a job.
//
// Defaults are applied to zero fields, then invalid numeric and enum settings
// are replaced with defaults and reported as warnings.
//
// Parameters:
//   - cfg: Job configuration
//   - opts: Optional logger, metrics and hooks
//
// Returns:
//   - *Job: Ready to run
//   - error: Wrapping ErrInvalidConfig when a setting cannot be normalized
//
// Example:
//
//	cfg := fractals.DefaultConfig()
//	cfg.Image.Width, cfg.Image.Height = 1920, 1080
//	job, err := fractals.NewJob(cfg)
//	if err != nil {
//	    return err
//	}
//	img, err := job.RunLocal(ctx)
//	if err != nil {
//	    return err
//	}
//	return job.Deliver(ctx, img)
func NewJob(cfg Config, opts ...Option) (*Job, error) {
	o := jobOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ValidateWithWarnings(o.logger)

	j := &Job{
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metrics,
		hooks:   o.hooks,
	}
	j.warnZoomDepth()

	return j, nil
}

// Config returns the normalized configuration.
func (j *Job) Config() Config {
	return j.cfg
}

// Spec builds the job descriptor workers render from.
//
// Parameters:
//   - id: Job id; a random UUID when empty
func (j *Job) Spec(id string) (jobstore.JobSpec, error) {
	if id == "" {
		id = uuid.NewString()
	}

	kind, _ := fractal.ParseKind(j.cfg.Fractal.Kind)
	mode, err := palette.ParseMode(j.cfg.Fractal.ColorMode)
	if err != nil {
		mode = palette.BlackWhite
	}

	spec := jobstore.JobSpec{
		ID:        id,
		Width:     j.cfg.Image.Width,
		Height:    j.cfg.Image.Height,
		Samples:   j.cfg.Image.Samples,
		BlockSize: j.cfg.BlockSize,
		Workers:   j.cfg.Workers,
		Fractal: jobstore.FractalSpec{
			Kind:          kind.String(),
			MaxIterations: j.cfg.Fractal.MaxIterations,
			JuliaCx:       j.cfg.Fractal.Julia.Cx,
			JuliaCy:       j.cfg.Fractal.Julia.Cy,
		},
		ColorMode: int(mode),
		Backend:   j.cfg.Precision.Backend,
		Compress:  !j.cfg.Transport.NATS.DisableCompression,
		CreatedAt: time.Now().UTC(),
	}

	switch spec.Backend {
	case numeric.BackendBig:
		spec.Precision = j.cfg.Precision.Bits
		spec.Camera, err = serializeCamera[numeric.BigFloat](numeric.NewBigKernel(spec.Precision), j.cfg.Camera)
	default:
		spec.Camera, err = serializeCamera[numeric.Float64](numeric.Float64Kernel{}, j.cfg.Camera)
	}
	if err != nil {
		return jobstore.JobSpec{}, err
	}

	return spec, nil
}

// Run renders the job with the configured transport. nc is only used, and
// then required, for the NATS transport.
func (j *Job) Run(ctx context.Context, nc *nats.Conn) (*Image, error) {
	if j.cfg.Transport.Mode == TransportNATS {
		return j.RunCoordinator(ctx, nc)
	}

	return j.RunLocal(ctx)
}

// RunLocal renders the job with Config.Workers goroutine workers.
//
// Workers rebuild their renderer from the serialized job descriptor, exactly
// as remote workers do.
//
// Returns:
//   - *Image: The assembled image
//   - error: The first coordinator or worker error
func (j *Job) RunLocal(ctx context.Context) (*Image, error) {
	spec, err := j.Spec("")
	if err != nil {
		return nil, err
	}

	data, err := spec.Marshal()
	if err != nil {
		return nil, err
	}
	if spec, err = jobstore.Unmarshal(data); err != nil {
		return nil, err
	}

	r, err := newBlockRenderer(spec, j.logger)
	if err != nil {
		return nil, err
	}

	hub := local.NewHub(spec.Workers)
	defer hub.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	layout := worker.Layout{Width: spec.Width, Height: spec.Height, BlockSize: spec.BlockSize}
	for _, id := range hub.Workers() {
		ep, err := hub.Worker(id)
		if err != nil {
			return nil, err
		}
		w, err := worker.New(ep, r, layout, worker.WithLogger(j.logger), worker.WithMetrics(j.metrics))
		if err != nil {
			return nil, err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.Run(ctx); err != nil && ctx.Err() == nil {
				j.logger.Error("worker failed", "worker", id, "error", err)
				fail(fmt.Errorf("worker %s: %w", id, err))
			}
		}()
	}

	img, err := j.coordinate(ctx, hub.Coordinator(), spec)
	if err != nil {
		fail(err)
	}
	wg.Wait()

	if firstErr != nil {
		return img, firstErr
	}

	return img, nil
}

// RunCoordinator publishes the job descriptor over NATS and coordinates
// Config.Workers remote workers until the image is complete.
//
// The job id is Transport.NATS.JobID, or a random UUID when empty; workers
// must be started with the same id.
func (j *Job) RunCoordinator(ctx context.Context, nc *nats.Conn) (*Image, error) {
	if nc == nil {
		return nil, ErrTransportRequired
	}

	natsCfg := j.cfg.Transport.NATS
	spec, err := j.Spec(natsCfg.JobID)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := j.ensureBucket(ctx, js, kvutil.JobsConfig(natsCfg.JobTTL))
	if err != nil {
		return nil, err
	}
	store := jobstore.New(kv, j.logger)

	codec, err := wire.NewCodec(wire.WithCompression(spec.Compress))
	if err != nil {
		return nil, err
	}
	defer codec.Close()

	ids := make([]string, spec.Workers)
	for i := range ids {
		ids[i] = local.WorkerID(i)
	}

	// Subscribe before publishing the descriptor so no Request is missed.
	ep, err := natsbus.NewCoordinator(nc, codec, natsCfg.SubjectPrefix, spec.ID, ids, natsbus.WithLogger(j.logger))
	if err != nil {
		return nil, err
	}
	defer func() { _ = ep.Close() }()

	opCtx, cancel := context.WithTimeout(ctx, natsCfg.OperationTimeout)
	err = store.Put(opCtx, spec)
	cancel()
	if err != nil {
		return nil, err
	}

	j.logger.Info("job published", "job", spec.ID, "workers", spec.Workers, "backend", spec.Backend)

	img, err := j.coordinate(ctx, ep, spec)

	// Removing the descriptor tells workers that never got a Terminate, such
	// as ones that subscribed late, that the job is over.
	opCtx, cancel = context.WithTimeout(context.Background(), natsCfg.OperationTimeout)
	defer cancel()
	if delErr := store.Delete(opCtx, spec.ID); delErr != nil {
		j.logger.Warn("failed to remove job descriptor", "job", spec.ID, "error", delErr)
	}

	return img, err
}

// RunWorker joins job Transport.NATS.JobID as one compute worker.
//
// It waits for the coordinator's descriptor, claims a free worker id, renders
// until terminated and releases the id.
//
// Returns:
//   - int: Number of blocks rendered
//   - error: ErrJobIDRequired, stableid.ErrNoAvailableID when every id of the
//     job is taken, or the transport error
func (j *Job) RunWorker(ctx context.Context, nc *nats.Conn) (int, error) {
	if nc == nil {
		return 0, ErrTransportRequired
	}

	natsCfg := j.cfg.Transport.NATS
	if natsCfg.JobID == "" {
		return 0, ErrJobIDRequired
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return 0, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	jobsKV, err := j.ensureBucket(ctx, js, kvutil.JobsConfig(natsCfg.JobTTL))
	if err != nil {
		return 0, err
	}

	store := jobstore.New(jobsKV, j.logger)
	j.logger.Info("waiting for job", "job", natsCfg.JobID)
	spec, err := store.Wait(ctx, natsCfg.JobID)
	if err != nil {
		return 0, err
	}

	workersKV, err := j.ensureBucket(ctx, js, kvutil.WorkersConfig(natsCfg.WorkerIDTTL))
	if err != nil {
		return 0, err
	}

	claimer := stableid.NewClaimer(workersKV, stableid.Config{
		Job:  spec.ID,
		Size: spec.Workers,
		TTL:  natsCfg.WorkerIDTTL,
	}, j.logger)
	defer claimer.Close()

	id, err := claimer.Claim(ctx)
	if err != nil {
		return 0, err
	}
	if err := claimer.StartRenewal(); err != nil {
		return 0, err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), natsCfg.OperationTimeout)
		defer cancel()
		if err := claimer.Release(releaseCtx); err != nil {
			j.logger.Warn("failed to release worker id", "worker", id, "error", err)
		}
	}()

	r, err := newBlockRenderer(spec, j.logger)
	if err != nil {
		return 0, err
	}

	codec, err := wire.NewCodec(wire.WithCompression(spec.Compress))
	if err != nil {
		return 0, err
	}
	defer codec.Close()

	ep, err := natsbus.NewWorker(nc, codec, natsCfg.SubjectPrefix, spec.ID, id, natsbus.WithLogger(j.logger))
	if err != nil {
		return 0, err
	}
	defer func() { _ = ep.Close() }()

	w, err := worker.New(ep, r,
		worker.Layout{Width: spec.Width, Height: spec.Height, BlockSize: spec.BlockSize},
		worker.WithLogger(j.logger),
		worker.WithMetrics(j.metrics),
	)
	if err != nil {
		return 0, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var finished atomic.Bool
	go func() {
		if err := store.WaitRemoved(runCtx, spec.ID); err == nil {
			finished.Store(true)
			cancel()
		}
	}()

	n, err := w.Run(runCtx)
	if err != nil && finished.Load() && ctx.Err() == nil {
		j.logger.Info("job finished without terminate", "job", spec.ID, "worker", id, "blocks", n)
		return n, nil
	}

	return n, err
}

// Deliver hands img to the configured output.
//
// Returns:
//   - error: Delivery failure; the image itself is unaffected
func (j *Job) Deliver(ctx context.Context, img *Image) error {
	h, err := output.New(output.Config{
		Mode:    j.cfg.Output.Mode,
		Path:    j.cfg.Output.Path,
		Address: j.cfg.Output.Address,
		Port:    j.cfg.Output.Port,
		UUID:    j.cfg.Output.UUID,
		Format:  j.cfg.Output.Format,
	}, output.WithLogger(j.logger), output.WithMetrics(j.metrics))
	if err != nil {
		return err
	}

	_, err = h.Save(ctx, img.Pixels, img.Width, img.Height)

	return err
}

func (j *Job) coordinate(ctx context.Context, ep types.CoordinatorEndpoint, spec jobstore.JobSpec) (*Image, error) {
	c, err := coordinator.New(ep,
		coordinator.Layout{Width: spec.Width, Height: spec.Height, BlockSize: spec.BlockSize},
		coordinator.WithLogger(j.logger),
		coordinator.WithMetrics(j.metrics),
		coordinator.WithHooks(j.hooks),
	)
	if err != nil {
		return nil, err
	}

	return c.Run(ctx)
}

func (j *Job) ensureBucket(ctx context.Context, js jetstream.JetStream, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.Transport.NATS.OperationTimeout)
	defer cancel()

	return kvutil.EnsureBucket(ctx, js, cfg, kvutil.WithLogger(j.logger))
}

// warnZoomDepth warns when the zoom needs more mantissa bits than the
// backend has: neighbouring pixels are 1/(zoom*width) apart in world units.
func (j *Job) warnZoomDepth() {
	k := numeric.NewBigKernel(j.cfg.Precision.Bits)
	zoom, err := k.Parse(j.cfg.Camera.Zoom)
	if err != nil {
		return
	}

	pixels := k.FromInt(int64(max(j.cfg.Image.Width, j.cfg.Image.Height)))
	needed := zoom.Mul(pixels).Log2().Float64()
	if math.IsNaN(needed) {
		return
	}

	available := float64(float64Bits)
	if j.cfg.Precision.Backend == numeric.BackendBig {
		available = float64(j.cfg.Precision.Bits)
	}

	if needed > available {
		j.logger.Warn("zoom exceeds numeric precision, image will be blocky",
			"backend", j.cfg.Precision.Backend,
			"bitsNeeded", math.Ceil(needed),
			"bitsAvailable", available,
		)
	}
}

// serializeCamera parses the camera strings with k. Strings were checked by
// ValidateWithWarnings, so a parse error here is a programming error.
func serializeCamera[T numeric.Scalar[T]](k numeric.Kernel[T], c CameraConfig) (render.SerializedCamera, error) {
	x, err := k.Parse(c.X)
	if err != nil {
		return render.SerializedCamera{}, fmt.Errorf("%w: camera x: %w", ErrInvalidConfig, err)
	}
	y, err := k.Parse(c.Y)
	if err != nil {
		return render.SerializedCamera{}, fmt.Errorf("%w: camera y: %w", ErrInvalidConfig, err)
	}
	zoom, err := k.Parse(c.Zoom)
	if err != nil {
		return render.SerializedCamera{}, fmt.Errorf("%w: camera zoom: %w", ErrInvalidConfig, err)
	}

	return render.SerializeCamera(k, render.Camera[T]{X: x, Y: y, Zoom: zoom}), nil
}

// newBlockRenderer rebuilds the renderer described by spec.
func newBlockRenderer(spec jobstore.JobSpec, logger Logger) (worker.BlockRenderer, error) {
	switch spec.Backend {
	case numeric.BackendBig:
		r, err := buildRenderer[numeric.BigFloat](spec, numeric.NewBigKernel(spec.Precision), logger)
		if err != nil {
			return nil, err
		}

		return r, nil
	case numeric.BackendFloat64:
		r, err := buildRenderer[numeric.Float64](spec, numeric.Float64Kernel{}, logger)
		if err != nil {
			return nil, err
		}

		return r, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, spec.Backend)
	}
}

func buildRenderer[T numeric.Scalar[T]](spec jobstore.JobSpec, k numeric.Kernel[T], logger Logger) (*render.Renderer[T], error) {
	camera, err := render.DeserializeCamera(k, spec.Camera)
	if err != nil {
		return nil, fmt.Errorf("%w: job %s: %w", ErrInvalidConfig, spec.ID, err)
	}

	kind, err := fractal.ParseKind(spec.Fractal.Kind)
	if err != nil {
		logger.Warn("unknown fractal kind, using mandelbrot", "kind", spec.Fractal.Kind)
	}

	color, ok := palette.Lookup(palette.Mode(spec.ColorMode))
	if !ok {
		logger.Warn("unknown color mode, using black-white", "colorMode", spec.ColorMode)
	}

	sampler := fractal.New(fractal.Params{
		MaxIterations: spec.Fractal.MaxIterations,
		Kind:          kind,
		JuliaCx:       spec.Fractal.JuliaCx,
		JuliaCy:       spec.Fractal.JuliaCy,
	}, k)

	return render.New(render.Config[T]{
		Width:   spec.Width,
		Height:  spec.Height,
		Samples: spec.Samples,
		Camera:  camera,
		Sampler: sampler,
		Palette: color,
		Kernel:  k,
	}, render.WithLogger(logger)), nil
}
