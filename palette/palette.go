// Package palette maps a normalized escape value in [0, 1] to an RGB color.
//
// Every palette is a closed-form function of t with no state, so the same t
// always yields bit-identical channels. The cyclic palettes paint points that
// never escaped (t == 1) pure black.
package palette

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Func maps t in [0, 1] to channels in [0, 1].
type Func func(t float64) (r, g, b float64)

// Mode selects a palette. Numeric values match the -color_mode CLI flag.
type Mode int

const (
	BlackWhite Mode = iota
	Grayscale
	BlueGreenRed
	BlueOrange
	Colorful1
	Colorful2
	WarmSunset
	Ocean
	Rainbow
)

// DefaultMode is the palette used when none is configured.
const DefaultMode = BlueGreenRed

var names = [...]string{
	BlackWhite:   "black-white",
	Grayscale:    "grayscale",
	BlueGreenRed: "blue-green-red",
	BlueOrange:   "blue-orange",
	Colorful1:    "colorful-1",
	Colorful2:    "colorful-2",
	WarmSunset:   "warm-sunset",
	Ocean:        "ocean",
	Rainbow:      "rainbow",
}

var funcs = [...]Func{
	BlackWhite:   blackWhite,
	Grayscale:    grayscale,
	BlueGreenRed: blueGreenRed,
	BlueOrange:   blueOrange,
	Colorful1:    colorful1,
	Colorful2:    colorful2,
	WarmSunset:   warmSunset,
	Ocean:        ocean,
	Rainbow:      rainbow,
}

// Modes returns every palette mode in numeric order.
func Modes() []Mode {
	out := make([]Mode, len(funcs))
	for i := range funcs {
		out[i] = Mode(i)
	}

	return out
}

// Valid reports whether m names a palette.
func (m Mode) Valid() bool {
	return m >= 0 && int(m) < len(funcs)
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}

	return names[m]
}

// ParseMode accepts a palette name ("ocean") or its number ("7").
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil {
		if m := Mode(n); m.Valid() {
			return m, nil
		}

		return BlackWhite, fmt.Errorf("unknown color mode %d", n)
	}

	for i, name := range names {
		if name == s || strings.ReplaceAll(name, "-", "_") == s {
			return Mode(i), nil
		}
	}

	return BlackWhite, fmt.Errorf("unknown color mode %q", s)
}

// Lookup returns the palette for m.
//
// Unknown modes return the black-white palette and false; the caller decides
// whether that deserves a warning.
func Lookup(m Mode) (Func, bool) {
	if !m.Valid() {
		return blackWhite, false
	}

	return funcs[m], true
}

func blackWhite(t float64) (r, g, b float64) {
	if t > 0 {
		return 1, 1, 1
	}

	return 0, 0, 0
}

func grayscale(t float64) (r, g, b float64) {
	v := math.Min(t, 1)
	return v, v, v
}

// blueGreenRed is a cubic Bernstein-style blend: blue near 0, green mid, red near 1.
func blueGreenRed(t float64) (r, g, b float64) {
	u := 1 - t
	r = 9 * u * t * t * t
	g = 15 * u * u * t * t
	b = 8.5 * u * u * u * t

	return r, g, b
}

func inside(t float64) bool {
	return math.Abs(t-1) < 1e-6
}

func blueOrange(t float64) (r, g, b float64) {
	if inside(t) {
		return 0, 0, 0
	}

	phase := 3 + 100*t*0.15
	r = 0.5 + 0.5*math.Cos(phase)
	g = 0.5 + 0.5*math.Cos(phase+0.6)
	b = 0.5 + 0.5*math.Cos(phase+1.0)

	return r, g, b
}

func colorful1(t float64) (r, g, b float64) {
	if inside(t) {
		return 0, 0, 0
	}

	d := 200 * t
	r = 0.5 + 0.5*math.Cos(d+3)
	g = 0.5 + 0.5*math.Cos(d*0.5+0.6)
	b = 0.5 + 0.5*math.Sin(d*0.35+1)

	return r, g, b
}

func colorful2(t float64) (r, g, b float64) {
	if inside(t) {
		return 0, 0, 0
	}

	d := 200 * t
	r = 0.5 + 0.5*math.Cos(d)
	g = 0.5 + 0.5*math.Cos(d+1.33)
	b = 0.5 + 0.5*math.Cos(d+2.66)

	return r, g, b
}

func warmSunset(t float64) (r, g, b float64) {
	if inside(t) {
		return 0, 0, 0
	}

	d := 200 * t
	r = 0.5 + 0.5*math.Cos(d)
	g = 0.4 + 0.4*math.Cos(d+2)
	b = 0.2 + 0.2*math.Cos(d+4)

	return r, g, b
}

func ocean(t float64) (r, g, b float64) {
	if inside(t) {
		return 0, 0, 0
	}

	d := 200 * t
	r = 0.2 + 0.2*math.Cos(d+4)
	g = 0.5 + 0.5*math.Cos(d+2)
	b = 0.7 + 0.3*math.Cos(d)

	return r, g, b
}

func rainbow(t float64) (r, g, b float64) {
	if inside(t) {
		return 0, 0, 0
	}

	d := 6 * 200 * t
	r = 0.5 + 0.5*math.Cos(d)
	g = 0.5 + 0.5*math.Cos(d+2)
	b = 0.5 + 0.5*math.Cos(d+4)

	return r, g, b
}
