package numeric

// Scalar is a real number of a numeric backend.
//
// Every method returns a new value and leaves the receiver and the argument
// untouched.
type Scalar[T any] interface {
	Add(o T) T
	Sub(o T) T
	Mul(o T) T
	Quo(o T) T

	// Log returns the natural logarithm.
	//
	// Log of zero is -Inf. Negative arguments are outside the domain: Float64
	// returns NaN and BigFloat returns zero.
	Log() T

	// Log2 returns the base-2 logarithm, with the same domain rules as Log.
	Log2() T

	// Cmp returns -1, 0 or +1 as the receiver is less than, equal to or
	// greater than o.
	Cmp(o T) int

	// Float64 returns the nearest float64.
	Float64() float64
}

// Kernel constructs and serializes values of one backend.
type Kernel[T Scalar[T]] interface {
	// Name identifies the backend ("float64" or "big").
	Name() string

	FromFloat64(v float64) T
	FromInt(v int64) T

	// Serialize encodes v for transfer to another process.
	Serialize(v T) []byte

	// Deserialize decodes bytes produced by Serialize.
	//
	// Malformed input yields zero rather than an error; Parse is the checked
	// variant.
	Deserialize(b []byte) T

	// Parse reads a decimal literal such as "-0.743643887037151".
	Parse(s string) (T, error)
}

// Backend names.
const (
	BackendFloat64 = "float64"
	BackendBig     = "big"
)
