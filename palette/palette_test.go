package palette

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedValues(t *testing.T) {
	gray, ok := Lookup(Grayscale)
	require.True(t, ok)
	r, g, b := gray(0.5)
	require.Equal(t, [3]float64{0.5, 0.5, 0.5}, [3]float64{r, g, b})

	bw, ok := Lookup(BlackWhite)
	require.True(t, ok)
	r, g, b = bw(-0.1)
	require.Equal(t, [3]float64{0, 0, 0}, [3]float64{r, g, b})
	r, g, b = bw(0.1)
	require.Equal(t, [3]float64{1, 1, 1}, [3]float64{r, g, b})

	bgr, _ := Lookup(BlueGreenRed)
	r, g, b = bgr(0)
	require.Equal(t, [3]float64{0, 0, 0}, [3]float64{r, g, b})
	r, g, b = bgr(1)
	require.Equal(t, [3]float64{0, 0, 0}, [3]float64{r, g, b})
}

func TestDeterministic(t *testing.T) {
	for _, m := range Modes() {
		f, ok := Lookup(m)
		require.True(t, ok, m.String())

		for i := 0; i <= 100; i++ {
			v := float64(i) / 100
			r1, g1, b1 := f(v)
			r2, g2, b2 := f(v)
			require.Equal(t, math.Float64bits(r1), math.Float64bits(r2))
			require.Equal(t, math.Float64bits(g1), math.Float64bits(g2))
			require.Equal(t, math.Float64bits(b1), math.Float64bits(b2))
		}
	}
}

func TestChannelsInRange(t *testing.T) {
	for _, m := range Modes() {
		f, _ := Lookup(m)
		for i := 0; i <= 1000; i++ {
			r, g, b := f(float64(i) / 1000)
			for _, c := range []float64{r, g, b} {
				require.GreaterOrEqual(t, c, 0.0, "%s(%d)", m, i)
				require.LessOrEqual(t, c, 1.0, "%s(%d)", m, i)
			}
		}
	}
}

func TestCyclicPalettesInsideIsBlack(t *testing.T) {
	for _, m := range []Mode{BlueOrange, Colorful1, Colorful2, WarmSunset, Ocean, Rainbow} {
		f, _ := Lookup(m)
		for _, v := range []float64{1, 1 - 5e-7, 1 + 5e-7} {
			r, g, b := f(v)
			require.Equal(t, [3]float64{0, 0, 0}, [3]float64{r, g, b}, m.String())
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	f, ok := Lookup(Mode(42))
	require.False(t, ok)

	r, g, b := f(0.3)
	require.Equal(t, [3]float64{1, 1, 1}, [3]float64{r, g, b})

	_, ok = Lookup(Mode(-1))
	require.False(t, ok)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"ocean", Ocean, false},
		{"7", Ocean, false},
		{"Blue_Green_Red", BlueGreenRed, false},
		{"0", BlackWhite, false},
		{"9", BlackWhite, true},
		{"plasma", BlackWhite, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestModeString(t *testing.T) {
	require.Equal(t, "blue-green-red", DefaultMode.String())
	require.Equal(t, "Mode(12)", Mode(12).String())
	require.Len(t, Modes(), 9)
}
