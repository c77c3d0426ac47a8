package numeric

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Float64 is the hardware double backend.
type Float64 float64

var _ Scalar[Float64] = Float64(0)

func (a Float64) Add(o Float64) Float64 { return a + o }
func (a Float64) Sub(o Float64) Float64 { return a - o }
func (a Float64) Mul(o Float64) Float64 { return a * o }
func (a Float64) Quo(o Float64) Float64 { return a / o }

func (a Float64) Log() Float64  { return Float64(math.Log(float64(a))) }
func (a Float64) Log2() Float64 { return Float64(math.Log2(float64(a))) }

func (a Float64) Cmp(o Float64) int {
	switch {
	case a < o:
		return -1
	case a > o:
		return 1
	default:
		return 0
	}
}

func (a Float64) Float64() float64 { return float64(a) }

func (a Float64) String() string {
	return strconv.FormatFloat(float64(a), 'g', -1, 64)
}

// Float64Kernel builds Float64 values.
type Float64Kernel struct{}

var _ Kernel[Float64] = Float64Kernel{}

func (Float64Kernel) Name() string { return BackendFloat64 }

func (Float64Kernel) FromFloat64(v float64) Float64 { return Float64(v) }

func (Float64Kernel) FromInt(v int64) Float64 { return Float64(v) }

// Serialize writes the IEEE-754 bits big-endian.
func (Float64Kernel) Serialize(v Float64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), math.Float64bits(float64(v)))
}

// Deserialize reads 8 big-endian bytes; any other length yields 0.
func (Float64Kernel) Deserialize(b []byte) Float64 {
	if len(b) != 8 {
		return 0
	}

	return Float64(math.Float64frombits(binary.BigEndian.Uint64(b)))
}

func (Float64Kernel) Parse(s string) (Float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float64 %q: %w", s, err)
	}

	return Float64(v), nil
}
