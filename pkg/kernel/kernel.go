// Package kernel defines the abstract geometry kernel used to turn
// structure parts into solids and meshes. Backends (sdfx) provide solid
// modeling and boolean operations behind this interface; box-shaped parts
// can skip the kernel entirely through the exact helpers in mesh.go.
package kernel

import (
	"math"

	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// Solid is an opaque handle to a geometry kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
// Primitives are centred on the origin.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid // along Z

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees, applied X then Y then Z

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// EulerDegrees decomposes the rotation taking the unit X, Y and Z axes to
// axes[0], axes[1] and axes[2] into the angles Kernel.Rotate expects.
// A left-handed frame has its third axis negated first, which is harmless
// for parts symmetric about their mid-plane.
func EulerDegrees(axes [3]r3.Vec) (x, y, z float64) {
	axes = RightHanded(axes)
	a, b, c := axes[0], axes[1], axes[2]
	sy := math.Max(-1, math.Min(1, -a.Z))
	ry := math.Asin(sy)
	var rx, rz float64
	if math.Abs(math.Cos(ry)) < 1e-9 {
		// Gimbal lock: fold the X rotation into Z.
		rz = math.Atan2(-b.X, b.Y)
	} else {
		rx = math.Atan2(b.Z, c.Z)
		rz = math.Atan2(a.Y, a.X)
	}
	return vec.Deg(rx), vec.Deg(ry), vec.Deg(rz)
}

// RightHanded returns axes with the third axis negated if the frame is
// left-handed. Mirrored structures produce left-handed part frames.
func RightHanded(axes [3]r3.Vec) [3]r3.Vec {
	if r3.Dot(r3.Cross(axes[0], axes[1]), axes[2]) < 0 {
		axes[2] = r3.Scale(-1, axes[2])
	}
	return axes
}

// Place rotates s, built around the origin in its local frame, onto axes
// and moves it to center.
func Place(k Kernel, s Solid, center r3.Vec, axes [3]r3.Vec) Solid {
	x, y, z := EulerDegrees(axes)
	return k.Translate(k.Rotate(s, x, y, z), center.X, center.Y, center.Z)
}
