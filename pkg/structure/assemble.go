package structure

import (
	"fmt"

	"github.com/chazu/foldframe/pkg/linkage"
	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// levels are the heights of the native (ring) layout along the fold axis.
type levels struct {
	bottom, top   float64 // horizontal stack centres
	low, high     float64 // upright span
	stackHeight   float64
	bracketBottom float64 // bracket centres
	bracketTop    float64
}

func layoutLevels(c Config) levels {
	hh := c.HorizontalStackHeight()
	return levels{
		bottom:        hh / 2,
		low:           hh,
		high:          hh + c.VerticalLength,
		top:           hh + c.VerticalLength + hh/2,
		stackHeight:   hh,
		bracketBottom: hh + c.Bracket.Height/2,
		bracketTop:    hh + c.VerticalLength - c.Bracket.Height/2,
	}
}

// placement maps module-plane points into the running chain frame.
type placement struct {
	pos r2.Vec
	rot float64
}

func (p placement) apply(v r2.Vec) r2.Vec {
	return r2.Add(p.pos, vec.Rotate2(v, p.rot))
}

// worldJoints are one module's joints in the chain frame.
type worldJoints struct {
	tl, tr, bl, br, pivot r2.Vec
}

// Assemble builds the native ring-layout geometry for fold. Modules are
// chained so that module i's bottom-right joint coincides with module i+1's
// bottom-left joint; each module is rotated by the relative rotation with
// respect to the previous one. Arch-only options are honoured only when the
// config is in arch mode. Faces are not built here.
func Assemble(c Config, fold float64) *Geometry {
	js := linkage.SolveJoints(fold, c.LinkageParams())
	lv := layoutLevels(c)

	g := &Geometry{
		Mode:             ModeRing,
		Modules:          c.Modules,
		Copies:           1,
		FoldAngle:        fold,
		RelativeRotation: js.RelativeRotation,
	}

	var at placement
	for i := 0; i < c.Modules; i++ {
		w := worldJoints{
			tl:    at.apply(js.TopLeft),
			tr:    at.apply(js.TopRight),
			bl:    at.apply(js.BottomLeft),
			br:    at.apply(js.BottomRight),
			pivot: at.apply(js.Pivot()),
		}
		g.Joints = append(g.Joints, ModuleJoints{
			Module:      i,
			TopLeft:     vec.Lift(w.tl, 0),
			TopRight:    vec.Lift(w.tr, 0),
			BottomLeft:  vec.Lift(w.bl, 0),
			BottomRight: vec.Lift(w.br, 0),
			Pivot:       vec.Lift(w.pivot, 0),
		})

		g.Beams = append(g.Beams, horizontalStacks(c, lv, i, w)...)
		g.Beams = append(g.Beams, uprights(c, lv, i, w.tr, w.br, false)...)
		if i == 0 && c.IsArch() && c.Arch.CapUprights {
			g.Beams = append(g.Beams, uprights(c, lv, i, w.tl, w.bl, true)...)
		}
		g.Brackets = append(g.Brackets, brackets(c, lv, i, w)...)
		g.Bolts = append(g.Bolts, bolts(c, lv, i, w)...)

		next := placement{rot: at.rot + js.RelativeRotation}
		next.pos = r2.Sub(w.br, vec.Rotate2(js.BottomLeft, next.rot))
		at = next
	}

	g.updateDerived()
	return g
}

func horizontalStacks(c Config, lv levels, module int, w worldJoints) []Beam {
	var beams []Beam
	for _, l := range []struct {
		role    Role
		y       float64
		reverse bool
	}{
		{RoleHorizontalBottom, lv.bottom, c.MirrorStacks},
		{RoleHorizontalTop, lv.top, false},
	} {
		beams = append(beams, BuildStack(StackSpec{
			A:         Segment{Start: vec.Lift(w.bl, l.y), End: vec.Lift(w.tl, l.y)},
			B:         Segment{Start: vec.Lift(w.br, l.y), End: vec.Lift(w.tr, l.y)},
			Count:     c.HorizontalStack,
			Width:     c.Horizontal.Width,
			Thickness: c.Horizontal.Thickness,
			Gap:       c.StackGap,
			Offset:    vec.Y,
			Extension: c.EndOffset,
			Reverse:   l.reverse,
			Module:    module,
			Role:      l.role,
			StackID:   fmt.Sprintf("m%d/%s", module, l.role),
		})...)
	}
	return beams
}

// uprights connects the two horizontal levels on one joint pair, either as
// a scissor X of diagonal braces or, for fixed arches, as straight posts.
func uprights(c Config, lv levels, module int, top, bottom r2.Vec, capped bool) []Beam {
	pairDir := r3.Sub(vec.Lift(top, 0), vec.Lift(bottom, 0))
	normal := vec.Normalize(r3.Cross(vec.Y, pairDir), vec.X)

	spec := StackSpec{
		Count:     c.VerticalStack,
		Width:     c.Vertical.Width,
		Thickness: c.Vertical.Thickness,
		Gap:       c.StackGap,
		Offset:    normal,
		Module:    module,
	}

	if c.IsArch() && c.Arch.FixedBeams {
		spec.Role = RoleFixedBeam
		if capped {
			spec.Role = RoleFixedBeamCap
		}
		var beams []Beam
		for _, p := range []struct {
			name  string
			joint r2.Vec
		}{{"top", top}, {"bottom", bottom}} {
			post := Segment{Start: vec.Lift(p.joint, lv.low), End: vec.Lift(p.joint, lv.high)}
			s := spec
			s.A, s.B = post, post
			s.StackID = fmt.Sprintf("m%d/%s/%s", module, spec.Role, p.name)
			beams = append(beams, BuildStack(s)...)
		}
		return beams
	}

	spec.Role = RoleVertical
	if capped {
		spec.Role = RoleVerticalCap
	}
	spec.A = Segment{Start: vec.Lift(bottom, lv.low), End: vec.Lift(top, lv.high)}
	spec.B = Segment{Start: vec.Lift(top, lv.low), End: vec.Lift(bottom, lv.high)}
	spec.StackID = fmt.Sprintf("m%d/%s", module, spec.Role)
	return BuildStack(spec)
}

// brackets seats one plate bracket per joint on each level, set in from the
// joint towards the pivot by the bracket offset.
func brackets(c Config, lv levels, module int, w worldJoints) []Bracket {
	var out []Bracket
	joints := []struct {
		name string
		p    r2.Vec
	}{
		{linkage.TopLeft.String(), w.tl},
		{linkage.TopRight.String(), w.tr},
		{linkage.BottomLeft.String(), w.bl},
		{linkage.BottomRight.String(), w.br},
	}
	for _, y := range []float64{lv.bracketBottom, lv.bracketTop} {
		for _, j := range joints {
			inward := vec.Normalize(vec.Lift(r2.Sub(w.pivot, j.p), 0), vec.X)
			thick := r3.Cross(inward, vec.Y)
			center := r3.Add(vec.Lift(j.p, y), r3.Scale(c.BracketOffset, inward))
			out = append(out, Bracket{
				Center: center,
				Axes:   [3]r3.Vec{inward, vec.Y, thick},
				Size:   r3.Vec{X: c.Bracket.Length, Y: c.Bracket.Height, Z: c.Bracket.Thickness},
				Module: module,
				Joint:  j.name,
			})
		}
	}
	return out
}

// bolts places a through-bolt at every joint and at the pivot of both
// horizontal stacks.
func bolts(c Config, lv levels, module int, w worldJoints) []Bolt {
	var out []Bolt
	joints := []struct {
		name string
		p    r2.Vec
	}{
		{linkage.TopLeft.String(), w.tl},
		{linkage.TopRight.String(), w.tr},
		{linkage.BottomLeft.String(), w.bl},
		{linkage.BottomRight.String(), w.br},
		{"pivot", w.pivot},
	}
	length := lv.stackHeight + 2*c.Bolt.Overhang
	for _, y := range []float64{lv.bottom, lv.top} {
		for _, j := range joints {
			out = append(out, Bolt{
				Center:       vec.Lift(j.p, y),
				Axis:         vec.Y,
				Length:       length,
				Diameter:     c.Bolt.Diameter,
				HeadDiameter: c.Bolt.HeadDiameter,
				Module:       module,
				Joint:        j.name,
			})
		}
	}
	return out
}
