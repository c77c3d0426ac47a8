package numeric

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ALTree/bigfloat"
)

// DefaultPrecision is the mantissa precision, in bits, of BigKernel when none
// is configured.
const DefaultPrecision uint = 256

// BigFloat is an arbitrary-precision binary float.
//
// The zero value is 0 at DefaultPrecision. The wrapped *big.Float is never
// modified once the value has been built. Binary operations are computed at the
// receiver's precision.
//
// Operations that have no defined result on big.Float (Inf-Inf, 0*Inf, 0/0,
// Inf/Inf) panic with big.ErrNaN.
type BigFloat struct {
	f *big.Float
}

var _ Scalar[BigFloat] = BigFloat{}

// NewBigFloat copies f into a new value rounded to prec bits.
func NewBigFloat(f *big.Float, prec uint) BigFloat {
	return BigFloat{f: new(big.Float).SetPrec(prec).Set(f)}
}

func (a BigFloat) val() *big.Float {
	if a.f == nil {
		return new(big.Float).SetPrec(DefaultPrecision)
	}

	return a.f
}

// Prec returns the mantissa precision in bits.
func (a BigFloat) Prec() uint {
	return a.val().Prec()
}

// Big returns a copy of the underlying big.Float.
func (a BigFloat) Big() *big.Float {
	return new(big.Float).Copy(a.val())
}

func (a BigFloat) result() *big.Float {
	return new(big.Float).SetPrec(a.Prec())
}

func (a BigFloat) Add(o BigFloat) BigFloat {
	return BigFloat{f: a.result().Add(a.val(), o.val())}
}

func (a BigFloat) Sub(o BigFloat) BigFloat {
	return BigFloat{f: a.result().Sub(a.val(), o.val())}
}

func (a BigFloat) Mul(o BigFloat) BigFloat {
	return BigFloat{f: a.result().Mul(a.val(), o.val())}
}

func (a BigFloat) Quo(o BigFloat) BigFloat {
	return BigFloat{f: a.result().Quo(a.val(), o.val())}
}

// Log returns ln(a) at a's precision. Negative receivers yield zero.
func (a BigFloat) Log() BigFloat {
	v := a.val()
	if v.Sign() < 0 {
		return BigFloat{f: a.result()}
	}

	return BigFloat{f: bigfloat.Log(v)}
}

// Log2 returns ln(a) / ln(2) at a's precision.
func (a BigFloat) Log2() BigFloat {
	v := a.val()
	if v.Sign() <= 0 {
		return a.Log()
	}

	prec := a.Prec() + 64
	num := bigfloat.Log(new(big.Float).SetPrec(prec).Set(v))
	den := bigfloat.Log(new(big.Float).SetPrec(prec).SetInt64(2))

	return BigFloat{f: a.result().Quo(num, den)}
}

func (a BigFloat) Cmp(o BigFloat) int {
	return a.val().Cmp(o.val())
}

func (a BigFloat) Float64() float64 {
	f, _ := a.val().Float64()
	return f
}

func (a BigFloat) String() string {
	return a.val().Text('g', -1)
}

// BigKernel builds BigFloat values at a fixed precision.
type BigKernel struct {
	// Prec is the mantissa precision in bits. Zero means DefaultPrecision.
	Prec uint
}

var _ Kernel[BigFloat] = BigKernel{}

// NewBigKernel returns a kernel at prec bits, or DefaultPrecision when prec is 0.
func NewBigKernel(prec uint) BigKernel {
	if prec == 0 {
		prec = DefaultPrecision
	}

	return BigKernel{Prec: prec}
}

func (k BigKernel) prec() uint {
	if k.Prec == 0 {
		return DefaultPrecision
	}

	return k.Prec
}

func (k BigKernel) Name() string { return BackendBig }

func (k BigKernel) FromFloat64(v float64) BigFloat {
	if math.IsNaN(v) {
		return k.zero()
	}

	return BigFloat{f: new(big.Float).SetPrec(k.prec()).SetFloat64(v)}
}

func (k BigKernel) FromInt(v int64) BigFloat {
	return BigFloat{f: new(big.Float).SetPrec(k.prec()).SetInt64(v)}
}

func (k BigKernel) zero() BigFloat {
	return BigFloat{f: new(big.Float).SetPrec(k.prec())}
}

// Serialize writes the shortest decimal text that parses back to exactly v.
//
// The value is first rounded to the kernel precision so every serialized
// number has one known precision on the receiving side.
func (k BigKernel) Serialize(v BigFloat) []byte {
	f := new(big.Float).SetPrec(k.prec()).Set(v.val())
	return []byte(f.Text('g', -1))
}

// Deserialize parses text written by Serialize. Malformed input yields zero at
// the kernel precision.
func (k BigKernel) Deserialize(b []byte) BigFloat {
	v, err := k.Parse(string(b))
	if err != nil {
		return k.zero()
	}

	return v
}

func (k BigKernel) Parse(s string) (BigFloat, error) {
	f, ok := new(big.Float).SetPrec(k.prec()).SetString(s)
	if !ok {
		return k.zero(), fmt.Errorf("failed to parse big float %q at %d bits", s, k.prec())
	}

	return BigFloat{f: f}, nil
}
