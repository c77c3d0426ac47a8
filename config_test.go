package fractals

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/FrancoYudica/DistributedFractals/internal/logging"
)

// warnRecorder keeps the messages of Warn calls.
type warnRecorder struct {
	*logging.NopLogger
	mu    sync.Mutex
	warns []string
}

func newWarnRecorder() *warnRecorder {
	return &warnRecorder{NopLogger: logging.NewNop()}
}

func (w *warnRecorder) Warn(msg string, _ ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warns = append(w.warns, msg)
}

func (w *warnRecorder) messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]string(nil), w.warns...)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, 1024, cfg.Image.Width)
	require.Equal(t, 1024, cfg.Image.Height)
	require.Equal(t, 1, cfg.Image.Samples)
	require.Equal(t, 32, cfg.BlockSize)
	require.Equal(t, CameraConfig{X: "0", Y: "0", Zoom: "1"}, cfg.Camera)
	require.Equal(t, "mandelbrot", cfg.Fractal.Kind)
	require.Equal(t, 128, cfg.Fractal.MaxIterations)
	require.Equal(t, "blue-green-red", cfg.Fractal.ColorMode)
	require.InDelta(t, -0.225, cfg.Fractal.Julia.Cx, 1e-12)
	require.InDelta(t, -0.700, cfg.Fractal.Julia.Cy, 1e-12)
	require.Equal(t, "float64", cfg.Precision.Backend)
	require.Equal(t, uint(256), cfg.Precision.Bits)
	require.Equal(t, runtime.NumCPU(), cfg.Workers)
	require.Equal(t, "disk", cfg.Output.Mode)
	require.Equal(t, "./output.png", cfg.Output.Path)
	require.Equal(t, 5001, cfg.Output.Port)
	require.Equal(t, TransportLocal, cfg.Transport.Mode)
	require.Equal(t, "fractals", cfg.Transport.NATS.SubjectPrefix)
	require.False(t, cfg.Transport.NATS.DisableCompression)
	require.Equal(t, 30*time.Second, cfg.Transport.NATS.WorkerIDTTL)
	require.False(t, cfg.Metrics.Prometheus.Enabled)
	require.Equal(t, 9090, cfg.Metrics.Prometheus.Port)

	require.NoError(t, cfg.Validate())
}

func TestSetDefaults(t *testing.T) {
	t.Run("applies defaults to empty config", func(t *testing.T) {
		cfg := Config{}
		SetDefaults(&cfg)

		// A zero Julia constant is a valid choice and is kept.
		want := DefaultConfig()
		want.Fractal.Julia = JuliaConfig{}
		require.Equal(t, want, cfg)
	})

	t.Run("preserves custom values", func(t *testing.T) {
		cfg := Config{
			Image:     ImageConfig{Width: 800, Height: 600, Samples: 16},
			BlockSize: 64,
			Camera:    CameraConfig{X: "-0.75", Y: "0.1", Zoom: "1e6"},
			Fractal:   FractalConfig{Kind: "julia", MaxIterations: 500, ColorMode: "ocean"},
			Precision: PrecisionConfig{Backend: "big", Bits: 512},
			Workers:   3,
		}
		SetDefaults(&cfg)

		require.Equal(t, 800, cfg.Image.Width)
		require.Equal(t, 16, cfg.Image.Samples)
		require.Equal(t, 64, cfg.BlockSize)
		require.Equal(t, "1e6", cfg.Camera.Zoom)
		require.Equal(t, "julia", cfg.Fractal.Kind)
		require.Equal(t, "ocean", cfg.Fractal.ColorMode)
		require.Equal(t, uint(512), cfg.Precision.Bits)
		require.Equal(t, 3, cfg.Workers)
	})
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
image:
  width: 320
  height: 200
  samples: 4
blockSize: 20
camera:
  x: "-0.743643887037151"
  y: "0.131825904205330"
  zoom: "1000"
fractal:
  kind: julia
  maxIterations: 300
  colorMode: "7"
  julia:
    cx: -0.8
    cy: 0.156
precision:
  backend: big
  bits: 128
workers: 4
output:
  mode: network
  address: 127.0.0.1
  port: 6000
transport:
  mode: nats
  nats:
    jobId: render-1
    workerIdTtl: 5s
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	require.Equal(t, ImageConfig{Width: 320, Height: 200, Samples: 4}, cfg.Image)
	require.Equal(t, 20, cfg.BlockSize)
	require.Equal(t, "-0.743643887037151", cfg.Camera.X)
	require.Equal(t, "julia", cfg.Fractal.Kind)
	require.Equal(t, "7", cfg.Fractal.ColorMode)
	require.InDelta(t, 0.156, cfg.Fractal.Julia.Cy, 1e-12)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, PrecisionConfig{Backend: "big", Bits: 128}, cfg.Precision)
	require.Equal(t, "network", cfg.Output.Mode)
	require.Equal(t, 6000, cfg.Output.Port)
	require.Equal(t, TransportNATS, cfg.Transport.Mode)
	require.Equal(t, "render-1", cfg.Transport.NATS.JobID)
	require.Equal(t, 5*time.Second, cfg.Transport.NATS.WorkerIDTTL)
	// Unset fields get defaults.
	require.Equal(t, "fractals", cfg.Transport.NATS.SubjectPrefix)
	require.Equal(t, "./output.png", cfg.Output.Path)

	require.NoError(t, cfg.Validate())

	_, err = ParseConfig([]byte("image: [unclosed"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig(t *testing.T) {
	cfg := TestConfig()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fractals.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown output mode", func(c *Config) { c.Output.Mode = "printer" }},
		{"network port out of range", func(c *Config) {
			c.Output.Mode = "network"
			c.Output.Port = 70000
		}},
		{"unsupported network format", func(c *Config) {
			c.Output.Mode = "network"
			c.Output.Format = "gif"
		}},
		{"unknown transport", func(c *Config) { c.Transport.Mode = "carrier-pigeon" }},
		{"short worker id ttl", func(c *Config) {
			c.Transport.Mode = TransportNATS
			c.Transport.NATS.WorkerIDTTL = 100 * time.Millisecond
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("unsupported disk extension is not fatal", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Output.Path = "out.jpg"
		require.NoError(t, cfg.Validate())
	})
}

func TestConfig_ValidateWithWarnings(t *testing.T) {
	t.Run("valid config is untouched", func(t *testing.T) {
		cfg := DefaultConfig()
		logger := newWarnRecorder()
		cfg.ValidateWithWarnings(logger)

		require.Equal(t, DefaultConfig(), cfg)
		require.Empty(t, logger.messages())
	})

	t.Run("invalid values fall back to defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Image = ImageConfig{Width: -5, Height: 0, Samples: 5}
		cfg.BlockSize = -1
		cfg.Fractal.MaxIterations = -10
		cfg.Fractal.Kind = "burning-ship"
		cfg.Fractal.ColorMode = "42"
		cfg.Precision.Backend = "decimal"
		cfg.Workers = -2
		cfg.Camera = CameraConfig{X: "abc", Y: "NaN", Zoom: "-3"}

		logger := newWarnRecorder()
		cfg.ValidateWithWarnings(logger)

		require.Equal(t, ImageConfig{Width: 1024, Height: 1024, Samples: 1}, cfg.Image)
		require.Equal(t, 32, cfg.BlockSize)
		require.Equal(t, 128, cfg.Fractal.MaxIterations)
		require.Equal(t, "mandelbrot", cfg.Fractal.Kind)
		require.Equal(t, "black-white", cfg.Fractal.ColorMode)
		require.Equal(t, "float64", cfg.Precision.Backend)
		require.Equal(t, 1, cfg.Workers)
		require.Equal(t, CameraConfig{X: "0", Y: "0", Zoom: "1"}, cfg.Camera)
		require.Len(t, logger.messages(), 12)
	})

	t.Run("big backend accepts long decimals", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Precision.Backend = "big"
		cfg.Camera = CameraConfig{
			X:    "-1.7499576837060935036022145060706997072711057972625207793024283782028600527718",
			Y:    "0.0000000000000000000000000000000000000000000000000000000000000000000000000001",
			Zoom: "1e60",
		}
		want := cfg.Camera

		logger := newWarnRecorder()
		cfg.ValidateWithWarnings(logger)
		require.Equal(t, want, cfg.Camera)
		require.Empty(t, logger.messages())
	})

	t.Run("unsupported disk extension warns", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Output.Path = "out.jpg"

		logger := newWarnRecorder()
		cfg.ValidateWithWarnings(logger)
		require.Equal(t, "out.jpg", cfg.Output.Path)
		require.Equal(t, []string{"unsupported image extension, writing png"}, logger.messages())
	})

	t.Run("big backend keeps values outside float64 range", func(t *testing.T) {
		for _, zoom := range []string{"1e400", "1e-400"} {
			cfg := DefaultConfig()
			cfg.Precision.Backend = "big"
			cfg.Precision.Bits = 2048
			cfg.Camera = CameraConfig{X: "1e-400", Y: "-2e350", Zoom: zoom}
			want := cfg.Camera

			logger := newWarnRecorder()
			cfg.ValidateWithWarnings(logger)
			require.Equal(t, want, cfg.Camera, zoom)
			require.Empty(t, logger.messages(), zoom)
		}
	})

	t.Run("big backend rejects non-positive and infinite zoom", func(t *testing.T) {
		for _, zoom := range []string{"-1e400", "0", "Inf"} {
			cfg := DefaultConfig()
			cfg.Precision.Backend = "big"
			cfg.Camera.Zoom = zoom

			logger := newWarnRecorder()
			cfg.ValidateWithWarnings(logger)
			require.Equal(t, "1", cfg.Camera.Zoom, zoom)
			require.Len(t, logger.messages(), 1, zoom)
		}
	})

	t.Run("float64 backend resets zoom that overflows", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Camera.Zoom = "1e400"

		logger := newWarnRecorder()
		cfg.ValidateWithWarnings(logger)
		require.Equal(t, "1", cfg.Camera.Zoom)
		require.Len(t, logger.messages(), 1)
	})
}
