package structure

import (
	"fmt"

	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// Role is the stack role of a beam.
type Role string

const (
	RoleHorizontalTop    Role = "horizontal-top"
	RoleHorizontalBottom Role = "horizontal-bottom"
	RoleVertical         Role = "vertical"
	RoleVerticalCap      Role = "vertical-cap"
	RoleFixedBeam        Role = "fixed-beam"
	RoleFixedBeamCap     Role = "fixed-beam-cap"
)

// IsHorizontal reports whether r is one of the two horizontal stack roles.
func (r Role) IsHorizontal() bool {
	return r == RoleHorizontalTop || r == RoleHorizontalBottom
}

// IsUpright reports whether r connects the two horizontal levels.
func (r Role) IsUpright() bool {
	return !r.IsHorizontal()
}

// Pattern is the crossing pattern of a beam within a scissor X.
type Pattern string

const (
	PatternA Pattern = "A"
	PatternB Pattern = "B"
)

// Corner layout: 0..3 around the start cap, 4..7 around the end cap, both in
// the order (-w,-t), (+w,-t), (+w,+t), (-w,+t).
var beamQuads = [6][4]int{
	{0, 3, 2, 1}, // start cap
	{4, 5, 6, 7}, // end cap
	{0, 1, 5, 4}, // -thickness side
	{3, 7, 6, 2}, // +thickness side
	{0, 4, 7, 3}, // -width side
	{1, 2, 6, 5}, // +width side
}

// Quad is one face of a beam.
type Quad struct {
	Indices [4]int
	Center  r3.Vec
	Normal  r3.Vec // outward unit normal
}

// Beam is an oriented rectangular prism with its classification tags.
// A Beam is a value: Transform and Translate return new beams.
type Beam struct {
	Start, End r3.Vec
	// Axes holds the unit length, width and thickness directions.
	Axes      [3]r3.Vec
	Width     float64
	Thickness float64
	Corners   [8]r3.Vec

	Module  int
	Copy    int
	Role    Role
	StackID string
	Pattern Pattern
}

// NewBeam builds a beam along start→end whose thickness runs along
// thicknessDir, made orthogonal to the beam axis. A degenerate thickness
// direction falls back to an arbitrary perpendicular.
func NewBeam(start, end, thicknessDir r3.Vec, width, thickness float64) Beam {
	u := vec.Normalize(r3.Sub(end, start), vec.X)
	t := vec.Normalize(vec.Reject(thicknessDir, u), vec.Perpendicular(u))
	w := r3.Cross(t, u)
	b := Beam{
		Start:     start,
		End:       end,
		Axes:      [3]r3.Vec{u, w, t},
		Width:     width,
		Thickness: thickness,
	}
	hw, ht := r3.Scale(width/2, w), r3.Scale(thickness/2, t)
	offsets := [4]r3.Vec{
		r3.Sub(r3.Scale(-1, hw), ht),
		r3.Sub(hw, ht),
		r3.Add(hw, ht),
		r3.Add(r3.Scale(-1, hw), ht),
	}
	for i, o := range offsets {
		b.Corners[i] = r3.Add(start, o)
		b.Corners[i+4] = r3.Add(end, o)
	}
	return b
}

// Center returns the beam centroid.
func (b Beam) Center() r3.Vec { return vec.Mid(b.Start, b.End) }

// Length returns the end-to-end length.
func (b Beam) Length() float64 { return vec.Distance(b.Start, b.End) }

// Bounds returns the axis-aligned bounding box of the corners.
func (b Beam) Bounds() r3.Box { return vec.Bounds(b.Corners[:]) }

// Quads returns the six faces with outward normals.
func (b Beam) Quads() [6]Quad {
	c := b.Center()
	var out [6]Quad
	for i, idx := range beamQuads {
		pts := []r3.Vec{b.Corners[idx[0]], b.Corners[idx[1]], b.Corners[idx[2]], b.Corners[idx[3]]}
		fc := vec.Centroid(pts)
		out[i] = Quad{Indices: idx, Center: fc, Normal: vec.Normalize(r3.Sub(fc, c), vec.Y)}
	}
	return out
}

// Name returns a stable part name, e.g. "c0/m3/horizontal-top/A0".
func (b Beam) Name(index int) string {
	return fmt.Sprintf("c%d/m%d/%s/%s%d", b.Copy, b.Module, b.Role, b.Pattern, index)
}

// Transform maps the beam through a. Points and axes are mapped separately.
func (b Beam) Transform(a vec.Affine) Beam {
	out := b
	out.Start = a.Point(b.Start)
	out.End = a.Point(b.End)
	for i := range b.Axes {
		out.Axes[i] = vec.Normalize(a.Dir(b.Axes[i]), b.Axes[i])
	}
	for i := range b.Corners {
		out.Corners[i] = a.Point(b.Corners[i])
	}
	return out
}

// Translate returns the beam moved by d.
func (b Beam) Translate(d r3.Vec) Beam {
	return b.Transform(vec.Translation(d))
}

// Bracket is a plate bracket seated at a joint.
type Bracket struct {
	Center r3.Vec
	Axes   [3]r3.Vec // length, height, thickness directions
	Size   r3.Vec    // extents along Axes
	Module int
	Copy   int
	Joint  string
}

// Transform maps the bracket through a.
func (b Bracket) Transform(a vec.Affine) Bracket {
	out := b
	out.Center = a.Point(b.Center)
	for i := range b.Axes {
		out.Axes[i] = vec.Normalize(a.Dir(b.Axes[i]), b.Axes[i])
	}
	return out
}

// Bolt is a through-bolt at a pivot.
type Bolt struct {
	Center       r3.Vec
	Axis         r3.Vec
	Length       float64
	Diameter     float64
	HeadDiameter float64
	Module       int
	Copy         int
	Joint        string
}

// Transform maps the bolt through a.
func (b Bolt) Transform(a vec.Affine) Bolt {
	out := b
	out.Center = a.Point(b.Center)
	out.Axis = vec.Normalize(a.Dir(b.Axis), b.Axis)
	return out
}
