package structure

import (
	"math"

	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// Orient applies the global shape for c.Mode to a freshly assembled
// geometry. Ring mode is the identity.
func Orient(g *Geometry, c Config) *Geometry {
	if c.Mode != ModeArch {
		return g
	}
	return Arch(g, c.Arch)
}

// Feet returns the two outermost base pivots of the structure: one of the
// first module's left pair and one of the last module's right pair, each
// chosen by its distance from the structure centre in plan. When cap
// uprights are present they sit on the first module's left pair, so the
// same joints are used.
func Feet(g *Geometry) (first, last r3.Vec) {
	if len(g.Joints) == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	c := g.Center
	c.Y = 0
	farther := func(a, b r3.Vec) r3.Vec {
		if vec.Distance(a, c) >= vec.Distance(b, c) {
			return a
		}
		return b
	}
	j0 := g.Joints[0]
	jn := g.Joints[len(g.Joints)-1]
	return farther(j0.TopLeft, j0.BottomLeft), farther(jn.TopRight, jn.BottomRight)
}

// Arch stands the native ring up into a vertical arch. The feet are moved
// so their midpoint is the origin and they lie on X, the body is turned to
// the +Z side, the optional user rotation is applied, and the axes are
// swapped (x, y, z) → (x, z·flip, −y). Finally the result is re-grounded so
// the lowest beam corner sits at Y = 0.
func Arch(g *Geometry, opts ArchOptions) *Geometry {
	f1, f2 := Feet(g)
	mid := vec.Mid(f1, f2)
	mid.Y = 0
	d := r3.Sub(f2, f1)

	center := vec.Translation(r3.Scale(-1, mid))
	phi := -math.Atan2(d.Z, d.X)
	if c := center.Then(vec.RotationY(phi)).Point(g.Center); c.Z < 0 {
		phi += math.Pi
	}
	phi += opts.Rotation

	flip := 1.0
	if opts.Flip {
		flip = -1
	}
	stand := vec.Affine{Cols: [3]r3.Vec{
		vec.X,
		{Z: -1},
		{Y: flip},
	}}

	out := g.Map(center.Then(vec.RotationY(phi)).Then(stand))
	out = Reground(out)
	out.Mode = ModeArch
	return out
}

// Reground translates g so that its lowest beam corner sits at Y = 0.
func Reground(g *Geometry) *Geometry {
	if len(g.Beams) == 0 {
		return g
	}
	minY := g.Bounds().Min.Y
	if minY == 0 {
		return g
	}
	return g.Map(vec.Translation(r3.Vec{Y: -minY}))
}

// Array returns count copies of g laid out along Z, each offset from its
// neighbour by the measured depth of g and centred on the original
// position. Copy indices are set on every part.
func Array(g *Geometry, count int) *Geometry {
	if count <= 1 {
		return g
	}
	b := g.Bounds()
	depth := b.Max.Z - b.Min.Z

	out := &Geometry{
		Mode:             g.Mode,
		Modules:          g.Modules,
		Copies:           count,
		FoldAngle:        g.FoldAngle,
		RelativeRotation: g.RelativeRotation,
		Beams:            make([]Beam, 0, len(g.Beams)*count),
		Brackets:         make([]Bracket, 0, len(g.Brackets)*count),
		Bolts:            make([]Bolt, 0, len(g.Bolts)*count),
		Joints:           make([]ModuleJoints, 0, len(g.Joints)*count),
	}
	for k := 0; k < count; k++ {
		shift := vec.Translation(r3.Vec{Z: (float64(k) - float64(count-1)/2) * depth})
		for _, beam := range g.Beams {
			beam = beam.Transform(shift)
			beam.Copy = k
			out.Beams = append(out.Beams, beam)
		}
		for _, br := range g.Brackets {
			br = br.Transform(shift)
			br.Copy = k
			out.Brackets = append(out.Brackets, br)
		}
		for _, bolt := range g.Bolts {
			bolt = bolt.Transform(shift)
			bolt.Copy = k
			out.Bolts = append(out.Bolts, bolt)
		}
		for _, j := range g.Joints {
			j = j.transform(shift)
			j.Copy = k
			out.Joints = append(out.Joints, j)
		}
	}
	out.updateDerived()
	return out
}
