package render

import (
	"fmt"

	"github.com/FrancoYudica/DistributedFractals/numeric"
)

// Camera maps normalized screen coordinates in [-0.5, 0.5] to world space.
//
// world = screen / Zoom + (X, Y)
type Camera[T numeric.Scalar[T]] struct {
	X, Y T
	Zoom T
}

// DefaultCamera centers the view on the origin at zoom 1.
func DefaultCamera[T numeric.Scalar[T]](k numeric.Kernel[T]) Camera[T] {
	return Camera[T]{X: k.FromInt(0), Y: k.FromInt(0), Zoom: k.FromInt(1)}
}

// ToWorld transforms a screen point to world coordinates.
func (c Camera[T]) ToWorld(sx, sy T) (T, T) {
	return c.WorldX(sx), c.WorldY(sy)
}

// WorldX transforms a screen x coordinate.
func (c Camera[T]) WorldX(sx T) T {
	return sx.Quo(c.Zoom).Add(c.X)
}

// WorldY transforms a screen y coordinate.
func (c Camera[T]) WorldY(sy T) T {
	return sy.Quo(c.Zoom).Add(c.Y)
}

// SerializedCamera is a camera in kernel wire form.
type SerializedCamera struct {
	X    []byte `json:"x"`
	Y    []byte `json:"y"`
	Zoom []byte `json:"zoom"`
}

// SerializeCamera encodes c with k.
func SerializeCamera[T numeric.Scalar[T]](k numeric.Kernel[T], c Camera[T]) SerializedCamera {
	return SerializedCamera{X: k.Serialize(c.X), Y: k.Serialize(c.Y), Zoom: k.Serialize(c.Zoom)}
}

// DeserializeCamera decodes s with k.
//
// Malformed coordinates decode to zero; a zoom that is not strictly positive is
// an error since it would collapse or mirror the view.
func DeserializeCamera[T numeric.Scalar[T]](k numeric.Kernel[T], s SerializedCamera) (Camera[T], error) {
	c := Camera[T]{X: k.Deserialize(s.X), Y: k.Deserialize(s.Y), Zoom: k.Deserialize(s.Zoom)}
	if c.Zoom.Cmp(k.FromInt(0)) <= 0 {
		return c, fmt.Errorf("%w: zoom %v", ErrInvalidZoom, c.Zoom.Float64())
	}

	return c, nil
}
