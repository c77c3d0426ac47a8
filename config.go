package fractals

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FrancoYudica/DistributedFractals/fractal"
	"github.com/FrancoYudica/DistributedFractals/numeric"
	"github.com/FrancoYudica/DistributedFractals/output"
	"github.com/FrancoYudica/DistributedFractals/palette"
	"github.com/FrancoYudica/DistributedFractals/render"
)

// Transport modes.
const (
	TransportLocal = "local"
	TransportNATS  = "nats"
)

// ImageConfig sizes the rendered image.
type ImageConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Samples is the number of supersamples per pixel. It must be a perfect
	// square; anything else renders one sample per pixel.
	Samples int `yaml:"samples"`
}

// CameraConfig places the view. Coordinates are decimal strings so the big
// backend keeps every digit.
type CameraConfig struct {
	X    string `yaml:"x"`
	Y    string `yaml:"y"`
	Zoom string `yaml:"zoom"`
}

// JuliaConfig is the constant C of the Julia set.
type JuliaConfig struct {
	Cx float64 `yaml:"cx"`
	Cy float64 `yaml:"cy"`
}

// FractalConfig selects the fractal and its coloring.
type FractalConfig struct {
	// Kind is "mandelbrot" or "julia".
	Kind          string `yaml:"kind"`
	MaxIterations int    `yaml:"maxIterations"`

	// ColorMode is a palette name ("ocean") or its number ("7").
	ColorMode string      `yaml:"colorMode"`
	Julia     JuliaConfig `yaml:"julia"`
}

// PrecisionConfig selects the numeric backend.
type PrecisionConfig struct {
	// Backend is "float64" or "big".
	Backend string `yaml:"backend"`

	// Bits is the mantissa precision of the big backend.
	Bits uint `yaml:"bits"`
}

// OutputConfig selects where the finished image goes.
type OutputConfig struct {
	// Mode is "disk", "network" or "disabled".
	Mode    string `yaml:"mode"`
	Path    string `yaml:"path"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`

	// UUID identifies the job to a network viewer; random when empty.
	UUID string `yaml:"uuid"`

	// Format of network deliveries: png, bmp or tiff.
	Format string `yaml:"format"`
}

// NATSConfig configures the NATS transport.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix"`

	// JobID names the job that coordinator and workers meet on. The
	// coordinator generates one when empty; workers require it.
	JobID string `yaml:"jobId"`

	// DisableCompression turns off zstd compression of result payloads.
	DisableCompression bool `yaml:"disableCompression"`

	// WorkerIDTTL is the lease of a claimed worker id, renewed every TTL/3.
	WorkerIDTTL time.Duration `yaml:"workerIdTtl"`

	// JobTTL is how long a published job descriptor stays in the KV bucket.
	JobTTL time.Duration `yaml:"jobTtl"`

	// OperationTimeout bounds KV operations and bucket creation.
	OperationTimeout time.Duration `yaml:"operationTimeout"`
}

// TransportConfig selects how coordinator and workers talk.
type TransportConfig struct {
	// Mode is "local" (goroutines) or "nats".
	Mode string     `yaml:"mode"`
	NATS NATSConfig `yaml:"nats"`
}

// PrometheusConfig controls the /metrics endpoint of the CLI.
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// MetricsConfig groups metrics settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// Config is the configuration of one render job.
type Config struct {
	Image     ImageConfig     `yaml:"image"`
	BlockSize int             `yaml:"blockSize"`
	Camera    CameraConfig    `yaml:"camera"`
	Fractal   FractalConfig   `yaml:"fractal"`
	Precision PrecisionConfig `yaml:"precision"`

	// Workers is the number of compute workers of the job.
	Workers int `yaml:"workers"`

	Output    OutputConfig    `yaml:"output"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Image: ImageConfig{
			Width:   1024,
			Height:  1024,
			Samples: 1,
		},
		BlockSize: 32,
		Camera: CameraConfig{
			X:    "0",
			Y:    "0",
			Zoom: "1",
		},
		Fractal: FractalConfig{
			Kind:          fractal.KindMandelbrot.String(),
			MaxIterations: fractal.DefaultMaxIterations,
			ColorMode:     palette.DefaultMode.String(),
			Julia: JuliaConfig{
				Cx: fractal.DefaultJuliaCx,
				Cy: fractal.DefaultJuliaCy,
			},
		},
		Precision: PrecisionConfig{
			Backend: numeric.BackendFloat64,
			Bits:    numeric.DefaultPrecision,
		},
		Workers: runtime.NumCPU(),
		Output: OutputConfig{
			Mode:    output.ModeDisk,
			Path:    "./output.png",
			Address: "0.0.0.0",
			Port:    5001,
		},
		Transport: TransportConfig{
			Mode: TransportLocal,
			NATS: NATSConfig{
				URL:              "nats://127.0.0.1:4222",
				SubjectPrefix:    "fractals",
				WorkerIDTTL:      30 * time.Second,
				JobTTL:           time.Hour,
				OperationTimeout: 10 * time.Second,
			},
		},
		Metrics: MetricsConfig{
			Prometheus: PrometheusConfig{Port: 9090},
		},
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// Only zero values are replaced; out-of-range values are left for
// ValidateWithWarnings to normalize.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Image.Width == 0 {
		cfg.Image.Width = defaults.Image.Width
	}
	if cfg.Image.Height == 0 {
		cfg.Image.Height = defaults.Image.Height
	}
	if cfg.Image.Samples == 0 {
		cfg.Image.Samples = defaults.Image.Samples
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = defaults.BlockSize
	}
	if cfg.Camera.X == "" {
		cfg.Camera.X = defaults.Camera.X
	}
	if cfg.Camera.Y == "" {
		cfg.Camera.Y = defaults.Camera.Y
	}
	if cfg.Camera.Zoom == "" {
		cfg.Camera.Zoom = defaults.Camera.Zoom
	}
	if cfg.Fractal.Kind == "" {
		cfg.Fractal.Kind = defaults.Fractal.Kind
	}
	if cfg.Fractal.MaxIterations == 0 {
		cfg.Fractal.MaxIterations = defaults.Fractal.MaxIterations
	}
	if cfg.Fractal.ColorMode == "" {
		cfg.Fractal.ColorMode = defaults.Fractal.ColorMode
	}
	if cfg.Precision.Backend == "" {
		cfg.Precision.Backend = defaults.Precision.Backend
	}
	if cfg.Precision.Bits == 0 {
		cfg.Precision.Bits = defaults.Precision.Bits
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.Output.Mode == "" {
		cfg.Output.Mode = defaults.Output.Mode
	}
	if cfg.Output.Path == "" {
		cfg.Output.Path = defaults.Output.Path
	}
	if cfg.Output.Address == "" {
		cfg.Output.Address = defaults.Output.Address
	}
	if cfg.Output.Port == 0 {
		cfg.Output.Port = defaults.Output.Port
	}
	if cfg.Transport.Mode == "" {
		cfg.Transport.Mode = defaults.Transport.Mode
	}
	if cfg.Transport.NATS.URL == "" {
		cfg.Transport.NATS.URL = defaults.Transport.NATS.URL
	}
	if cfg.Transport.NATS.SubjectPrefix == "" {
		cfg.Transport.NATS.SubjectPrefix = defaults.Transport.NATS.SubjectPrefix
	}
	if cfg.Transport.NATS.WorkerIDTTL == 0 {
		cfg.Transport.NATS.WorkerIDTTL = defaults.Transport.NATS.WorkerIDTTL
	}
	if cfg.Transport.NATS.JobTTL == 0 {
		cfg.Transport.NATS.JobTTL = defaults.Transport.NATS.JobTTL
	}
	if cfg.Transport.NATS.OperationTimeout == 0 {
		cfg.Transport.NATS.OperationTimeout = defaults.Transport.NATS.OperationTimeout
	}
	if cfg.Metrics.Prometheus.Port == 0 {
		cfg.Metrics.Prometheus.Port = defaults.Metrics.Prometheus.Port
	}
}

// LoadConfig reads a YAML configuration file and applies defaults.
//
// Parameters:
//   - path: Path of the YAML file
//
// Returns:
//   - Config: Loaded configuration with defaults for missing fields
//   - error: If the file cannot be read or parsed
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration over DefaultConfig, so absent keys
// keep their default values.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	SetDefaults(&cfg)

	return cfg, nil
}

// Validate checks the settings that cannot be normalized to a default.
//
// Hard Validation Rules:
//   - Output.Mode is disk, network or disabled
//   - Output.Port is a TCP port when Output.Mode is network
//   - Transport.Mode is local or nats
//   - Transport.NATS.WorkerIDTTL >= 1s when Transport.Mode is nats
//
// Numeric fields are never rejected here; ValidateWithWarnings replaces
// invalid ones with defaults.
//
// Returns:
//   - error: Wrapping ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	switch cfg.Output.Mode {
	case output.ModeDisk:
	case output.ModeNetwork:
		if cfg.Output.Port <= 0 || cfg.Output.Port > 65535 {
			return fmt.Errorf("%w: output port %d out of range", ErrInvalidConfig, cfg.Output.Port)
		}
		if _, err := output.EncoderByName(cfg.Output.Format); err != nil {
			return fmt.Errorf("%w: output format: %w", ErrInvalidConfig, err)
		}
	case output.ModeDisabled:
	default:
		return fmt.Errorf("%w: output mode %q", ErrInvalidConfig, cfg.Output.Mode)
	}

	switch cfg.Transport.Mode {
	case TransportLocal:
	case TransportNATS:
		if cfg.Transport.NATS.WorkerIDTTL < time.Second {
			return fmt.Errorf("%w: workerIdTtl (%v) must be >= 1s", ErrInvalidConfig, cfg.Transport.NATS.WorkerIDTTL)
		}
	default:
		return fmt.Errorf("%w: transport mode %q", ErrInvalidConfig, cfg.Transport.Mode)
	}

	return nil
}

// ValidateWithWarnings replaces invalid numeric and enum settings with their
// defaults and logs a warning for each replacement.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	defaults := DefaultConfig()

	if cfg.Image.Width <= 0 {
		logger.Warn("invalid image width, using default", "width", cfg.Image.Width, "default", defaults.Image.Width)
		cfg.Image.Width = defaults.Image.Width
	}
	if cfg.Image.Height <= 0 {
		logger.Warn("invalid image height, using default", "height", cfg.Image.Height, "default", defaults.Image.Height)
		cfg.Image.Height = defaults.Image.Height
	}
	if _, ok := render.SamplesPerAxis(cfg.Image.Samples); !ok {
		logger.Warn("samples per pixel must be a perfect square, using 1", "samples", cfg.Image.Samples)
		cfg.Image.Samples = 1
	}
	if cfg.BlockSize <= 0 {
		logger.Warn("invalid block size, using default", "blockSize", cfg.BlockSize, "default", defaults.BlockSize)
		cfg.BlockSize = defaults.BlockSize
	}
	if cfg.Fractal.MaxIterations <= 0 {
		logger.Warn("invalid max iterations, using default",
			"maxIterations", cfg.Fractal.MaxIterations, "default", defaults.Fractal.MaxIterations)
		cfg.Fractal.MaxIterations = defaults.Fractal.MaxIterations
	}
	if _, err := fractal.ParseKind(cfg.Fractal.Kind); err != nil {
		logger.Warn("unknown fractal kind, using mandelbrot", "kind", cfg.Fractal.Kind)
		cfg.Fractal.Kind = fractal.KindMandelbrot.String()
	}
	if _, err := palette.ParseMode(cfg.Fractal.ColorMode); err != nil {
		logger.Warn("unknown color mode, using black-white", "colorMode", cfg.Fractal.ColorMode)
		cfg.Fractal.ColorMode = palette.BlackWhite.String()
	}
	if cfg.Precision.Backend != numeric.BackendFloat64 && cfg.Precision.Backend != numeric.BackendBig {
		logger.Warn("unknown precision backend, using float64", "backend", cfg.Precision.Backend)
		cfg.Precision.Backend = numeric.BackendFloat64
	}
	if cfg.Workers <= 0 {
		logger.Warn("invalid worker count, using 1", "workers", cfg.Workers)
		cfg.Workers = 1
	}
	if cfg.Output.Mode == output.ModeDisk {
		if _, err := output.EncoderForPath(cfg.Output.Path); err != nil {
			logger.Warn("unsupported image extension, writing png", "path", cfg.Output.Path)
		}
	}

	cfg.normalizeCamera(logger)
}

// normalizeCamera checks the camera strings with the configured backend.
func (cfg *Config) normalizeCamera(logger Logger) {
	// parse reports the sign of s and whether it is a finite number. The big
	// backend checks with its own kernel so values outside the float64 range
	// stay valid.
	parse := func(s string) (int, bool) {
		if cfg.Precision.Backend == numeric.BackendBig {
			b, err := numeric.NewBigKernel(cfg.Precision.Bits).Parse(s)
			if err != nil || b.Big().IsInf() {
				return 0, false
			}

			return b.Big().Sign(), true
		}

		f, err := numeric.Float64Kernel{}.Parse(s)
		v := f.Float64()
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}

		return f.Cmp(0), true
	}

	if _, ok := parse(cfg.Camera.X); !ok {
		logger.Warn("invalid camera x, using 0", "x", cfg.Camera.X)
		cfg.Camera.X = "0"
	}
	if _, ok := parse(cfg.Camera.Y); !ok {
		logger.Warn("invalid camera y, using 0", "y", cfg.Camera.Y)
		cfg.Camera.Y = "0"
	}
	if sign, ok := parse(cfg.Camera.Zoom); !ok || sign <= 0 {
		logger.Warn("camera zoom must be a positive number, using 1", "zoom", cfg.Camera.Zoom)
		cfg.Camera.Zoom = "1"
	}
}

// TestConfig returns a small configuration for fast tests: a 64x48 image in
// 16-pixel blocks rendered by two local workers, output disabled.
//
// Returns:
//   - Config: Configuration sized for tests
//
// Example:
//
//	cfg := fractals.TestConfig()
//	cfg.Precision.Backend = "big"
//	job, err := fractals.NewJob(cfg)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.Image = ImageConfig{Width: 64, Height: 48, Samples: 4}
	cfg.BlockSize = 16
	cfg.Fractal.MaxIterations = 64
	cfg.Workers = 2
	cfg.Output.Mode = output.ModeDisabled
	cfg.Transport.NATS.WorkerIDTTL = 3 * time.Second
	cfg.Transport.NATS.OperationTimeout = 5 * time.Second

	return cfg
}
