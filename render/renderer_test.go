package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FrancoYudica/DistributedFractals/fractal"
	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/numeric"
	"github.com/FrancoYudica/DistributedFractals/palette"
	"github.com/FrancoYudica/DistributedFractals/tiling"
	"github.com/FrancoYudica/DistributedFractals/types"
)

type constSampler struct{ v float64 }

func (s constSampler) Sample(_, _ numeric.Float64) float64 { return s.v }

// lowerHalf returns 1 for points with world y >= 0.
type lowerHalf struct{}

func (lowerHalf) Sample(_, wy numeric.Float64) float64 {
	if wy >= 0 {
		return 1
	}

	return 0
}

func grayscale(t *testing.T) palette.Func {
	t.Helper()
	f, ok := palette.Lookup(palette.Grayscale)
	require.True(t, ok)

	return f
}

func newFloat64(t *testing.T, w, h, samples int, s fractal.Sampler[numeric.Float64]) *Renderer[numeric.Float64] {
	t.Helper()
	k := numeric.Float64Kernel{}

	return New(Config[numeric.Float64]{
		Width: w, Height: h, Samples: samples,
		Camera:  DefaultCamera[numeric.Float64](k),
		Sampler: s,
		Palette: grayscale(t),
		Kernel:  k,
	}, WithLogger(logging.NewTest(t)))
}

func TestSamplesPerAxis(t *testing.T) {
	tests := []struct {
		samples int
		want    int
		ok      bool
	}{
		{1, 1, true},
		{4, 2, true},
		{9, 3, true},
		{16, 4, true},
		{5, 1, false},
		{2, 1, false},
		{0, 1, false},
		{-4, 1, false},
	}

	for _, tt := range tests {
		n, ok := SamplesPerAxis(tt.samples)
		require.Equal(t, tt.want, n, "samples=%d", tt.samples)
		require.Equal(t, tt.ok, ok, "samples=%d", tt.samples)
	}
}

func TestNonSquareSamplesFallBack(t *testing.T) {
	k := numeric.Float64Kernel{}
	r := newFloat64(t, 8, 8, 5, fractal.New(fractal.DefaultParams(), k))

	require.Equal(t, 1, r.SamplesPerAxis())
	require.Len(t, r.Render(types.Rect{Width: 8, Height: 8}), 8*8*3)
}

func TestChannelRounding(t *testing.T) {
	r := newFloat64(t, 2, 2, 4, constSampler{v: 0.5})
	px := r.Render(types.Rect{Width: 2, Height: 2})

	for _, c := range px {
		require.Equal(t, byte(128), c)
	}
}

func TestTopRowIsNegativeWorldY(t *testing.T) {
	const w, h = 4, 6
	r := newFloat64(t, w, h, 1, lowerHalf{})
	px := r.Render(types.Rect{Width: w, Height: h})

	require.Equal(t, byte(0), px[0], "top-left pixel")
	require.Equal(t, byte(255), px[((h-1)*w)*3], "bottom-left pixel")
}

func TestBlocksMatchWholeImage(t *testing.T) {
	run := func(t *testing.T, whole func() []byte, block func(types.Rect) []byte, w, h, size int) {
		t.Helper()
		want := whole()
		got := make([]byte, w*h*3)

		for _, rect := range tiling.Tiles(w, h, size) {
			px := block(rect)
			for row := 0; row < rect.Height; row++ {
				src := px[row*rect.Width*3 : (row+1)*rect.Width*3]
				copy(got[((rect.Y+row)*w+rect.X)*3:], src)
			}
		}

		require.Equal(t, want, got)
	}

	t.Run("float64", func(t *testing.T) {
		k := numeric.Float64Kernel{}
		r := newFloat64(t, 10, 7, 4, fractal.New(fractal.DefaultParams(), k))
		run(t, func() []byte { return r.Render(types.Rect{Width: 10, Height: 7}) }, r.Render, 10, 7, 3)
	})

	t.Run("big", func(t *testing.T) {
		k := numeric.NewBigKernel(96)
		p := fractal.Params{MaxIterations: 24, Kind: fractal.KindJulia, JuliaCx: -0.8, JuliaCy: 0.156}
		r := New(Config[numeric.BigFloat]{
			Width: 6, Height: 5, Samples: 1,
			Camera:  Camera[numeric.BigFloat]{X: k.FromFloat64(0), Y: k.FromFloat64(0), Zoom: k.FromFloat64(0.5)},
			Sampler: fractal.New(p, k),
			Palette: grayscale(t),
			Kernel:  k,
		})
		run(t, func() []byte { return r.Render(types.Rect{Width: 6, Height: 5}) }, r.Render, 6, 5, 2)
	})
}

func TestRenderDeterministic(t *testing.T) {
	k := numeric.Float64Kernel{}
	r := newFloat64(t, 16, 16, 9, fractal.New(fractal.DefaultParams(), k))
	rect := types.Rect{X: 4, Y: 4, Width: 8, Height: 8}

	require.Equal(t, r.Render(rect), r.Render(rect))
}

func TestRenderBlockShortBuffer(t *testing.T) {
	r := newFloat64(t, 4, 4, 1, constSampler{})

	err := r.RenderBlock(types.Rect{Width: 4, Height: 4}, make([]byte, 10))
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestNilPaletteUsesDefault(t *testing.T) {
	k := numeric.Float64Kernel{}
	r := New(Config[numeric.Float64]{
		Width: 2, Height: 2, Samples: 1,
		Camera:  DefaultCamera[numeric.Float64](k),
		Sampler: constSampler{v: 0.5},
		Kernel:  k,
	})

	want, _ := palette.Lookup(palette.DefaultMode)
	wr, _, _ := want(0.5)
	require.Equal(t, channel(wr), r.Render(types.Rect{Width: 1, Height: 1})[0])
}
