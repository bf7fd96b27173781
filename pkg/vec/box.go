package vec

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Bounds returns the axis-aligned bounding box of pts. An empty slice
// yields the zero box.
func Bounds(pts []r3.Vec) r3.Box {
	if len(pts) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b = Extend(b, p)
	}
	return b
}

// Extend grows b to contain p.
func Extend(b r3.Box, p r3.Vec) r3.Box {
	return r3.Box{
		Min: r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)},
		Max: r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)},
	}
}

// Merge returns the smallest box containing a and b.
func Merge(a, b r3.Box) r3.Box {
	return Extend(Extend(a, b.Min), b.Max)
}

// Extent returns the edge lengths of b.
func Extent(b r3.Box) r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Overlap returns the per-axis length of the intersection of a and b.
// A non-positive component means the boxes are separated on that axis.
func Overlap(a, b r3.Box) r3.Vec {
	return r3.Vec{
		X: math.Min(a.Max.X, b.Max.X) - math.Max(a.Min.X, b.Min.X),
		Y: math.Min(a.Max.Y, b.Max.Y) - math.Max(a.Min.Y, b.Min.Y),
		Z: math.Min(a.Max.Z, b.Max.Z) - math.Max(a.Min.Z, b.Min.Z),
	}
}

// MinComponent returns the smallest of v's components.
func MinComponent(v r3.Vec) float64 {
	return math.Min(v.X, math.Min(v.Y, v.Z))
}

// Volume returns the product of v's components, or 0 if any is non-positive.
func Volume(v r3.Vec) float64 {
	if v.X <= 0 || v.Y <= 0 || v.Z <= 0 {
		return 0
	}
	return v.X * v.Y * v.Z
}
