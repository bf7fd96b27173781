package structure

import (
	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// Segment is a pair of joint positions a beam spans.
type Segment struct {
	Start, End r3.Vec
}

// extend lengthens the segment by d at both ends.
func (s Segment) extend(d float64) Segment {
	if d == 0 {
		return s
	}
	u := vec.Normalize(r3.Sub(s.End, s.Start), vec.X)
	return Segment{Start: r3.Sub(s.Start, r3.Scale(d, u)), End: r3.Add(s.End, r3.Scale(d, u))}
}

// StackSpec describes one stack of parallel beams.
type StackSpec struct {
	A, B      Segment // crossing pattern endpoints
	Count     int
	Width     float64
	Thickness float64
	Gap       float64
	Offset    r3.Vec  // stacking direction; also the beams' thickness axis
	Extension float64 // added past each joint
	Reverse   bool    // even indices take pattern B

	Module  int
	Role    Role
	StackID string
}

// BuildStack distributes Count parallel beams centred on the joint line,
// alternating between pattern A and B. Beam i is offset along the stacking
// direction by i·(thickness+gap) − half, where half centres the stack.
// A degenerate stacking direction falls back to a perpendicular of the
// pattern A axis.
func BuildStack(s StackSpec) []Beam {
	n := s.Count
	if n < 1 {
		n = 1
	}
	axis := vec.Normalize(r3.Sub(s.A.End, s.A.Start), vec.X)
	dir := vec.Normalize(vec.Reject(s.Offset, axis), vec.Perpendicular(axis))

	total := stackDepth(n, s.Thickness, s.Gap)
	half := (total - s.Thickness) / 2

	beams := make([]Beam, 0, n)
	for i := 0; i < n; i++ {
		useA := i%2 == 0
		if s.Reverse {
			useA = !useA
		}
		seg, pattern := s.A, PatternA
		if !useA {
			seg, pattern = s.B, PatternB
		}
		seg = seg.extend(s.Extension)
		d := r3.Scale(float64(i)*(s.Thickness+s.Gap)-half, dir)

		b := NewBeam(r3.Add(seg.Start, d), r3.Add(seg.End, d), dir, s.Width, s.Thickness)
		b.Module = s.Module
		b.Role = s.Role
		b.StackID = s.StackID
		b.Pattern = pattern
		beams = append(beams, b)
	}
	return beams
}
