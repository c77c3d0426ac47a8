// Package output delivers a finished image: to a file, to a remote viewer over
// TCP, or nowhere.
//
// Delivery failures are returned to the caller and never retried. The image
// stays in memory either way.
package output

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/internal/metrics"
	"github.com/FrancoYudica/DistributedFractals/types"
)

// Output modes.
const (
	ModeDisk     = "disk"
	ModeNetwork  = "network"
	ModeDisabled = "disabled"
)

// DefaultDialTimeout bounds the TCP connect of the network handler.
const DefaultDialTimeout = 10 * time.Second

// Handler delivers one encoded image.
type Handler interface {
	// Mode returns the handler's output mode.
	Mode() string

	// Save encodes and delivers pixels, returning the number of encoded bytes.
	Save(ctx context.Context, pixels []byte, width, height int) (int, error)
}

// Config selects and parameterizes a handler.
type Config struct {
	Mode string

	// Path is the destination file of ModeDisk. Its extension picks the format.
	Path string

	// Address and Port locate the viewer of ModeNetwork.
	Address string
	Port    int

	// UUID identifies the job to the viewer. Empty means a random one.
	UUID string

	// Format overrides the encoder of ModeNetwork, default PNG.
	Format string

	DialTimeout time.Duration
}

type handlerOptions struct {
	logger  types.Logger
	metrics types.OutputMetrics
}

// Option configures a handler built by New.
type Option func(*handlerOptions)

// WithLogger sets the handler logger.
func WithLogger(logger types.Logger) Option {
	return func(o *handlerOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the collector that records deliveries.
func WithMetrics(m types.OutputMetrics) Option {
	return func(o *handlerOptions) {
		o.metrics = m
	}
}

// New builds the handler for cfg.Mode.
//
// Returns:
//   - Handler: Wrapped so every Save is logged and recorded
//   - error: ErrUnknownMode, ErrUnsupportedFormat, or a UUID parse error
func New(cfg Config, opts ...Option) (Handler, error) {
	o := handlerOptions{
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		h   Handler
		err error
	)
	switch cfg.Mode {
	case ModeDisk:
		h, err = NewDisk(cfg.Path)
	case ModeNetwork:
		h, err = NewNetwork(cfg)
	case ModeDisabled:
		h = Disabled{}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
	if err != nil {
		return nil, err
	}

	return &instrumented{Handler: h, logger: o.logger, metrics: o.metrics}, nil
}

// Disk writes the image to a file.
type Disk struct {
	Path    string
	Encoder Encoder
}

// NewDisk creates a disk handler, choosing the encoder from the extension.
// Paths with an unsupported extension are written as PNG.
func NewDisk(path string) (*Disk, error) {
	enc, err := EncoderForPath(path)
	if errors.Is(err, ErrUnsupportedFormat) {
		enc, err = PNG(), nil
	}
	if err != nil {
		return nil, err
	}

	return &Disk{Path: path, Encoder: enc}, nil
}

// Mode returns ModeDisk.
func (d *Disk) Mode() string { return ModeDisk }

// Save encodes the image and writes it to d.Path.
func (d *Disk) Save(_ context.Context, pixels []byte, width, height int) (int, error) {
	data, err := d.Encoder.Encode(pixels, width, height)
	if err != nil {
		return 0, err
	}

	if err := os.WriteFile(d.Path, data, 0o644); err != nil { //nolint:gosec // output images are world readable
		return 0, fmt.Errorf("failed to write %s: %w", d.Path, err)
	}

	return len(data), nil
}

// Network sends the image to a viewer as two length-prefixed frames, the job
// UUID then the encoded image, over one TCP connection.
type Network struct {
	Addr        string
	UUID        uuid.UUID
	Encoder     Encoder
	DialTimeout time.Duration
}

// NewNetwork creates a network handler from cfg.Address, cfg.Port, cfg.UUID
// and cfg.Format.
func NewNetwork(cfg Config) (*Network, error) {
	enc, err := EncoderByName(cfg.Format)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	if cfg.UUID != "" {
		id, err = uuid.Parse(cfg.UUID)
		if err != nil {
			return nil, fmt.Errorf("invalid output uuid %q: %w", cfg.UUID, err)
		}
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	return &Network{
		Addr:        net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port)),
		UUID:        id,
		Encoder:     enc,
		DialTimeout: timeout,
	}, nil
}

// Mode returns ModeNetwork.
func (n *Network) Mode() string { return ModeNetwork }

// Save encodes the image, dials n.Addr and writes both frames.
func (n *Network) Save(ctx context.Context, pixels []byte, width, height int) (int, error) {
	data, err := n.Encoder.Encode(pixels, width, height)
	if err != nil {
		return 0, err
	}

	dialer := net.Dialer{Timeout: n.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", n.Addr)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to %s: %w", n.Addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	if err := WriteFrame(conn, []byte(n.UUID.String())); err != nil {
		return 0, fmt.Errorf("failed to send job id: %w", err)
	}
	if err := WriteFrame(conn, data); err != nil {
		return 0, fmt.Errorf("failed to send image: %w", err)
	}

	return len(data), nil
}

// Disabled discards the image.
type Disabled struct{}

// Mode returns ModeDisabled.
func (Disabled) Mode() string { return ModeDisabled }

// Save does nothing.
func (Disabled) Save(context.Context, []byte, int, int) (int, error) { return 0, nil }

type instrumented struct {
	Handler
	logger  types.Logger
	metrics types.OutputMetrics
}

func (h *instrumented) Save(ctx context.Context, pixels []byte, width, height int) (int, error) {
	n, err := h.Handler.Save(ctx, pixels, width, height)
	h.metrics.RecordOutput(h.Mode(), n, err == nil)
	if err != nil {
		h.logger.Error("failed to deliver image", "mode", h.Mode(), "error", err)
		return n, err
	}

	switch target := h.Handler.(type) {
	case *Disk:
		h.logger.Info("image saved", "path", target.Path, "bytes", n)
	case *Network:
		h.logger.Info("image sent", "addr", target.Addr, "uuid", target.UUID.String(), "bytes", n)
	}

	return n, nil
}
