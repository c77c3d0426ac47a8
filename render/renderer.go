// Package render turns fractal samples into RGB pixel blocks.
//
// Pixel (0,0) is the top-left corner of the image and rows grow downward. Row
// py maps to normalized y = (py + sy/n)/H - 0.5, so the top row has the
// smallest world y. The coordinator assembles blocks with the same
// convention, so a block render and a whole-image render agree byte for byte.
package render

import (
	"fmt"
	"math"

	"github.com/FrancoYudica/DistributedFractals/fractal"
	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/numeric"
	"github.com/FrancoYudica/DistributedFractals/palette"
	"github.com/FrancoYudica/DistributedFractals/types"
)

// BytesPerPixel is the size of one interleaved RGB pixel.
const BytesPerPixel = 3

// Renderer renders blocks of one image with fixed camera, sampler and palette.
//
// A Renderer is immutable after construction and safe for concurrent use.
type Renderer[T numeric.Scalar[T]] struct {
	width, height int
	n             int
	aspect        float64

	camera  Camera[T]
	sampler fractal.Sampler[T]
	color   palette.Func
	kernel  numeric.Kernel[T]
}

type rendererOptions struct {
	logger types.Logger
}

// Option configures a Renderer.
type Option func(*rendererOptions)

// WithLogger sets the logger used to report sample-count fallbacks.
func WithLogger(logger types.Logger) Option {
	return func(o *rendererOptions) {
		o.logger = logger
	}
}

// Config holds what a Renderer needs besides its options.
type Config[T numeric.Scalar[T]] struct {
	Width, Height int

	// Samples is the number of supersamples per pixel; it must be a perfect
	// square, anything else renders one sample per pixel.
	Samples int

	Camera  Camera[T]
	Sampler fractal.Sampler[T]
	Palette palette.Func
	Kernel  numeric.Kernel[T]
}

// New creates a renderer for cfg.
//
// Example:
//
//	k := numeric.Float64Kernel{}
//	color, _ := palette.Lookup(palette.Ocean)
//	r := render.New(render.Config[numeric.Float64]{
//	    Width: 800, Height: 600, Samples: 4,
//	    Camera:  render.DefaultCamera[numeric.Float64](k),
//	    Sampler: fractal.New(fractal.DefaultParams(), k),
//	    Palette: color,
//	    Kernel:  k,
//	})
//	pixels := r.Render(types.Rect{Width: 800, Height: 600})
func New[T numeric.Scalar[T]](cfg Config[T], opts ...Option) *Renderer[T] {
	o := rendererOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	n, ok := SamplesPerAxis(cfg.Samples)
	if !ok {
		o.logger.Warn("samples per pixel is not a perfect square, using 1",
			"samples", cfg.Samples)
	}

	color := cfg.Palette
	if color == nil {
		color, _ = palette.Lookup(palette.DefaultMode)
	}

	return &Renderer[T]{
		width:   cfg.Width,
		height:  cfg.Height,
		n:       n,
		aspect:  float64(cfg.Width) / float64(cfg.Height),
		camera:  cfg.Camera,
		sampler: cfg.Sampler,
		color:   color,
		kernel:  cfg.Kernel,
	}
}

// SamplesPerAxis returns sqrt(samples) when samples is a positive perfect
// square, and (1, false) otherwise.
func SamplesPerAxis(samples int) (int, bool) {
	if samples <= 0 {
		return 1, false
	}

	n := int(math.Sqrt(float64(samples)))
	for n*n > samples {
		n--
	}
	for (n+1)*(n+1) <= samples {
		n++
	}
	if n*n != samples {
		return 1, false
	}

	return n, true
}

// SamplesPerAxis returns the supersampling grid size actually used.
func (r *Renderer[T]) SamplesPerAxis() int {
	return r.n
}

// Render renders rect into a new buffer of rect.Area()*3 bytes.
func (r *Renderer[T]) Render(rect types.Rect) []byte {
	dst := make([]byte, rect.Area()*BytesPerPixel)
	_ = r.RenderBlock(rect, dst)

	return dst
}

// RenderBlock renders rect into dst, row-major with stride rect.Width*3.
func (r *Renderer[T]) RenderBlock(rect types.Rect, dst []byte) error {
	need := rect.Area() * BytesPerPixel
	if len(dst) < need {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, need, len(dst))
	}

	n := r.n
	wx := r.columns(rect)
	wy := r.rows(rect)
	count := float64(n * n)

	i := 0
	for py := 0; py < rect.Height; py++ {
		for px := 0; px < rect.Width; px++ {
			var ar, ag, ab float64
			for sy := 0; sy < n; sy++ {
				y := wy[py*n+sy]
				for sx := 0; sx < n; sx++ {
					t := clamp01(r.sampler.Sample(wx[px*n+sx], y))
					cr, cg, cb := r.color(t)
					ar += cr
					ag += cg
					ab += cb
				}
			}

			dst[i] = channel(ar / count)
			dst[i+1] = channel(ag / count)
			dst[i+2] = channel(ab / count)
			i += BytesPerPixel
		}
	}

	return nil
}

// columns returns the world x of every sub-sample column of rect.
func (r *Renderer[T]) columns(rect types.Rect) []T {
	out := make([]T, rect.Width*r.n)
	for px := 0; px < rect.Width; px++ {
		for sx := 0; sx < r.n; sx++ {
			pos := float64(rect.X+px) + float64(sx)/float64(r.n)
			nx := (pos/float64(r.width) - 0.5) * r.aspect
			out[px*r.n+sx] = r.camera.WorldX(r.kernel.FromFloat64(nx))
		}
	}

	return out
}

// rows returns the world y of every sub-sample row of rect.
func (r *Renderer[T]) rows(rect types.Rect) []T {
	out := make([]T, rect.Height*r.n)
	for py := 0; py < rect.Height; py++ {
		for sy := 0; sy < r.n; sy++ {
			pos := float64(rect.Y+py) + float64(sy)/float64(r.n)
			ny := pos/float64(r.height) - 0.5
			out[py*r.n+sy] = r.camera.WorldY(r.kernel.FromFloat64(ny))
		}
	}

	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func channel(v float64) byte {
	c := math.Round(255 * v)
	switch {
	case c < 0 || math.IsNaN(c):
		return 0
	case c > 255:
		return 255
	default:
		return byte(c)
	}
}
