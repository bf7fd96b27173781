package structure

import (
	"math"

	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// ModuleJoints records where one module's joints ended up, at the base of
// the structure. Arch orientation uses them to locate the feet.
type ModuleJoints struct {
	Module      int
	Copy        int
	TopLeft     r3.Vec
	TopRight    r3.Vec
	BottomLeft  r3.Vec
	BottomRight r3.Vec
	Pivot       r3.Vec
}

func (j ModuleJoints) transform(a vec.Affine) ModuleJoints {
	j.TopLeft = a.Point(j.TopLeft)
	j.TopRight = a.Point(j.TopRight)
	j.BottomLeft = a.Point(j.BottomLeft)
	j.BottomRight = a.Point(j.BottomRight)
	j.Pivot = a.Point(j.Pivot)
	return j
}

// Geometry is the complete output of a solve. It is owned by the caller
// and holds no references back into the Config it came from.
type Geometry struct {
	Mode      Mode
	Modules   int
	Copies    int
	FoldAngle float64

	// RelativeRotation is the per-module rotation produced by the linkage.
	RelativeRotation float64

	Beams    []Beam
	Brackets []Bracket
	Bolts    []Bolt
	Joints   []ModuleJoints

	// ModuleGeometry and Faces are filled by BuildFaces.
	ModuleGeometry []ModuleGeometry
	Faces          []Face

	// Center is the centroid of all horizontal beam centres.
	Center    r3.Vec
	MaxRadius float64
	MaxHeight float64
}

// TotalRotation is |relative rotation| accumulated over every module.
func (g *Geometry) TotalRotation() float64 {
	return math.Abs(g.RelativeRotation) * float64(g.Modules)
}

// Bounds returns the bounding box of every beam corner.
func (g *Geometry) Bounds() r3.Box {
	if len(g.Beams) == 0 {
		return r3.Box{}
	}
	b := g.Beams[0].Bounds()
	for _, beam := range g.Beams[1:] {
		b = vec.Merge(b, beam.Bounds())
	}
	return b
}

// CopyBeams returns the indices of the beams belonging to one array copy.
func (g *Geometry) CopyBeams(copy int) []int {
	var idx []int
	for i, b := range g.Beams {
		if b.Copy == copy {
			idx = append(idx, i)
		}
	}
	return idx
}

// Map returns a new Geometry with every point and direction mapped through a.
// Faces are not carried over; rebuild them with BuildFaces.
func (g *Geometry) Map(a vec.Affine) *Geometry {
	out := &Geometry{
		Mode:             g.Mode,
		Modules:          g.Modules,
		Copies:           g.Copies,
		FoldAngle:        g.FoldAngle,
		RelativeRotation: g.RelativeRotation,
		Beams:            make([]Beam, len(g.Beams)),
		Brackets:         make([]Bracket, len(g.Brackets)),
		Bolts:            make([]Bolt, len(g.Bolts)),
		Joints:           make([]ModuleJoints, len(g.Joints)),
	}
	for i, b := range g.Beams {
		out.Beams[i] = b.Transform(a)
	}
	for i, b := range g.Brackets {
		out.Brackets[i] = b.Transform(a)
	}
	for i, b := range g.Bolts {
		out.Bolts[i] = b.Transform(a)
	}
	for i, j := range g.Joints {
		out.Joints[i] = j.transform(a)
	}
	out.updateDerived()
	return out
}

// updateDerived recomputes the structure centre and extents.
func (g *Geometry) updateDerived() {
	var centers []r3.Vec
	g.MaxRadius, g.MaxHeight = 0, math.Inf(-1)
	for _, b := range g.Beams {
		if b.Role.IsHorizontal() {
			centers = append(centers, b.Center())
		}
		for _, c := range b.Corners {
			g.MaxRadius = math.Max(g.MaxRadius, math.Hypot(c.X, c.Z))
			g.MaxHeight = math.Max(g.MaxHeight, c.Y)
		}
	}
	if len(g.Beams) == 0 {
		g.MaxHeight = 0
	}
	g.Center = vec.Centroid(centers)
}
