// Package numeric abstracts the arithmetic used by the fractal sampler and the
// camera so the same generic code can run on hardware doubles or on
// arbitrary-precision binary floats.
//
// A backend is a pair of types: a value type implementing Scalar and a Kernel
// that constructs and serializes values of that type. Generic code is written
// against [T Scalar[T]] and takes a Kernel[T] for the few places it needs to
// create constants.
//
// Two backends are provided:
//   - Float64 / Float64Kernel: IEEE-754 binary64, serialized as 8 big-endian bytes
//   - BigFloat / BigKernel: math/big.Float at a fixed mantissa precision
//     (DefaultPrecision bits), serialized as shortest round-trip decimal text
//
// All operations return new values; no value is ever mutated after it has
// been constructed, so scalars can be shared freely between goroutines.
package numeric
