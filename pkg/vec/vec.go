// Package vec provides the small set of vector helpers the structure engine
// needs on top of gonum's r2/r3 types.
//
// The module plane is (u, v). It is lifted into 3D as (x = u, z = v) with
// Y as the fold axis, so planar rotations map onto rotations about +Y with
// the same sign convention.
package vec

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the length below which a vector is treated as degenerate.
const Epsilon = 1e-9

// Unit axes.
var (
	X = r3.Vec{X: 1}
	Y = r3.Vec{Y: 1}
	Z = r3.Vec{Z: 1}
)

// Lift maps a module-plane point to 3D at height y.
func Lift(p r2.Vec, y float64) r3.Vec {
	return r3.Vec{X: p.X, Y: y, Z: p.Y}
}

// Plan projects a 3D point onto the module plane, dropping Y.
func Plan(p r3.Vec) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Z}
}

// Polar returns the plane point at the given distance and angle from the origin.
func Polar(length, angle float64) r2.Vec {
	return r2.Vec{X: length * math.Cos(angle), Y: length * math.Sin(angle)}
}

// Rotate2 rotates p about the plane origin.
func Rotate2(p r2.Vec, angle float64) r2.Vec {
	return r2.Rotate(p, angle, r2.Vec{})
}

// Heading returns the plane angle of v in (-π, π].
func Heading(v r2.Vec) float64 {
	return math.Atan2(v.Y, v.X)
}

// Normalize returns the unit vector of v, or fallback when v is degenerate.
func Normalize(v, fallback r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < Epsilon || math.IsNaN(n) {
		return fallback
	}
	return r3.Scale(1/n, v)
}

// Reject removes the component of v along the unit vector axis.
func Reject(v, axis r3.Vec) r3.Vec {
	return r3.Sub(v, r3.Scale(r3.Dot(v, axis), axis))
}

// Perpendicular returns a unit vector perpendicular to v. Y is preferred
// when v has a horizontal component.
func Perpendicular(v r3.Vec) r3.Vec {
	u := Normalize(v, X)
	candidate := Y
	if math.Abs(r3.Dot(u, Y)) > 0.9 {
		candidate = X
	}
	return Normalize(Reject(candidate, u), Z)
}

// Distance returns |a-b|.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Mid returns the midpoint of a and b.
func Mid(a, b r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(a, b))
}

// Centroid returns the mean of pts, or the zero vector for an empty slice.
func Centroid(pts []r3.Vec) r3.Vec {
	if len(pts) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, p := range pts {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(pts)), sum)
}

// ApproxEqual reports whether a and b are within tol of each other.
func ApproxEqual(a, b r3.Vec, tol float64) bool {
	return Distance(a, b) <= tol
}

// WrapAngle normalizes a to (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// AngleBetween returns the unsigned angular distance between headings a and b, in [0, π].
func AngleBetween(a, b float64) float64 {
	return math.Abs(WrapAngle(a - b))
}

// Rad converts degrees to radians.
func Rad(deg float64) float64 { return deg * math.Pi / 180 }

// Deg converts radians to degrees.
func Deg(rad float64) float64 { return rad * 180 / math.Pi }
