package vec

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Affine is a linear map plus translation: p' = M·p + T, where M is stored
// by the images of the unit axes. Points use Point, direction vectors use
// Dir, which skips the translation.
type Affine struct {
	Cols [3]r3.Vec
	T    r3.Vec
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{Cols: [3]r3.Vec{X, Y, Z}}
}

// Translation returns a pure translation by t.
func Translation(t r3.Vec) Affine {
	a := Identity()
	a.T = t
	return a
}

// RotationY rotates about +Y with the module-plane sign convention, so that
// Plan(RotationY(θ).Point(p)) == Rotate2(Plan(p), θ).
func RotationY(angle float64) Affine {
	c, s := math.Cos(angle), math.Sin(angle)
	return Affine{Cols: [3]r3.Vec{
		{X: c, Z: s},
		Y,
		{X: -s, Z: c},
	}}
}

// Dir applies the linear part only.
func (a Affine) Dir(v r3.Vec) r3.Vec {
	return r3.Add(r3.Add(r3.Scale(v.X, a.Cols[0]), r3.Scale(v.Y, a.Cols[1])), r3.Scale(v.Z, a.Cols[2]))
}

// Point applies the full transform.
func (a Affine) Point(p r3.Vec) r3.Vec {
	return r3.Add(a.Dir(p), a.T)
}

// Then returns the transform that applies a first and b second.
func (a Affine) Then(b Affine) Affine {
	return Affine{
		Cols: [3]r3.Vec{b.Dir(a.Cols[0]), b.Dir(a.Cols[1]), b.Dir(a.Cols[2])},
		T:    b.Point(a.T),
	}
}
