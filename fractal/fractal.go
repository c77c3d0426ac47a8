// Package fractal implements escape-time samplers for the Mandelbrot and
// Julia sets over any numeric backend.
//
// A sampler maps a world coordinate to a smooth escape value in [0, 1]:
// points that never escape within the iteration budget return exactly 1.
package fractal

import (
	"fmt"
	"math"
	"strings"

	"github.com/FrancoYudica/DistributedFractals/numeric"
)

// Kind selects the recurrence variant.
type Kind int

const (
	// KindMandelbrot iterates Z(0)=0, C=world.
	KindMandelbrot Kind = iota

	// KindJulia iterates Z(0)=world, C=Params.JuliaC.
	KindJulia
)

func (k Kind) String() string {
	switch k {
	case KindMandelbrot:
		return "mandelbrot"
	case KindJulia:
		return "julia"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind reads "mandelbrot", "julia" or their numeric ids "0" and "1".
func ParseKind(s string) (Kind, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "mandelbrot", "0":
		return KindMandelbrot, nil
	case "julia", "1":
		return KindJulia, nil
	default:
		return KindMandelbrot, fmt.Errorf("unknown fractal kind %q", s)
	}
}

// Default parameter values.
const (
	DefaultMaxIterations = 128
	DefaultJuliaCx       = -0.225
	DefaultJuliaCy       = -0.700
)

// Params holds the per-job fractal parameters.
type Params struct {
	MaxIterations int
	Kind          Kind
	JuliaCx       float64
	JuliaCy       float64
}

// DefaultParams returns a Mandelbrot configuration with 128 iterations.
func DefaultParams() Params {
	return Params{
		MaxIterations: DefaultMaxIterations,
		Kind:          KindMandelbrot,
		JuliaCx:       DefaultJuliaCx,
		JuliaCy:       DefaultJuliaCy,
	}
}

// Sampler returns the smooth escape value of a world coordinate.
type Sampler[T numeric.Scalar[T]] interface {
	Sample(wx, wy T) float64
}

// New builds the sampler selected by p.Kind. Unknown kinds and non-positive
// iteration counts are replaced by their defaults.
//
// Example:
//
//	s := fractal.New(fractal.DefaultParams(), numeric.NewBigKernel(256))
//	t := s.Sample(x, y)
func New[T numeric.Scalar[T]](p Params, k numeric.Kernel[T]) Sampler[T] {
	maxIter := p.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	e := escaper[T]{
		maxIter: maxIter,
		two:     k.FromInt(2),
		four:    k.FromInt(4),
	}

	if p.Kind == KindJulia {
		return &Julia[T]{escaper: e, cx: k.FromFloat64(p.JuliaCx), cy: k.FromFloat64(p.JuliaCy)}
	}

	return &Mandelbrot[T]{escaper: e, zero: k.FromInt(0)}
}

// Mandelbrot samples the Mandelbrot set.
type Mandelbrot[T numeric.Scalar[T]] struct {
	escaper[T]
	zero T
}

func (m *Mandelbrot[T]) Sample(wx, wy T) float64 {
	return m.run(m.zero, m.zero, wx, wy)
}

// Julia samples the Julia set of a fixed constant.
type Julia[T numeric.Scalar[T]] struct {
	escaper[T]
	cx, cy T
}

func (j *Julia[T]) Sample(wx, wy T) float64 {
	return j.run(wx, wy, j.cx, j.cy)
}

type escaper[T numeric.Scalar[T]] struct {
	maxIter   int
	two, four T
}

// run iterates Z = Z^2 + C from (zx, zy) while |Z|^2 < 4.
func (e escaper[T]) run(zx, zy, cx, cy T) float64 {
	xx := zx.Mul(zx)
	yy := zy.Mul(zy)

	iter := 0
	for xx.Add(yy).Cmp(e.four) < 0 && iter < e.maxIter {
		zy = e.two.Mul(zx).Mul(zy).Add(cy)
		zx = xx.Sub(yy).Add(cx)
		xx = zx.Mul(zx)
		yy = zy.Mul(zy)
		iter++
	}

	if iter == e.maxIter {
		return 1
	}

	return Smooth(iter, e.maxIter, xx.Add(yy).Float64())
}

var ln4 = math.Log(4)

// Smooth converts an escape iteration and the squared modulus at escape into a
// normalized, band-free value clamped to [0, 1].
func Smooth(iter, maxIter int, lengthSquared float64) float64 {
	s := float64(iter) - math.Log2(math.Log(lengthSquared)/ln4)
	v := s / float64(maxIter)

	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
