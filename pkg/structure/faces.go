package structure

import (
	"math"
	"sort"

	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// Face is a planar quad across one pair of joint ends of a module, spanned
// by the matching ends of its four horizontal beams. PatternA tags the face
// across the top joints (beam ends), PatternB the face across the bottom
// joints (beam starts). The two faces lie on opposite sides of the pivot.
// It is the mounting surface for panels.
type Face struct {
	Module  int
	Copy    int
	Pattern Pattern

	// Corners come from the horizontal-top A and B beams, then the
	// horizontal-bottom B and A beams.
	Corners    [4]r3.Vec
	Center     r3.Vec
	WidthAxis  r3.Vec
	HeightAxis r3.Vec // bottom to top
	Normal     r3.Vec // away from the module centroid
	SlideAxis  r3.Vec // along the face from the A beam to the B beam
	Width      float64
	Height     float64
}

// ModuleGeometry groups one module's beams by their position in the
// scissor. Indices refer to Geometry.Beams; -1 marks a missing slot.
type ModuleGeometry struct {
	Module   int
	Copy     int
	TopA     int
	TopB     int
	BottomA  int
	BottomB  int
	Uprights []int
	Faces    []Face
}

type moduleKey struct{ copy, module int }

// BuildFaces regroups the beams of g by module and fills g.ModuleGeometry
// and g.Faces. Beams are matched to their slot by crossing pattern tag;
// a level whose tags do not resolve both patterns falls back to ordering
// its beams along the stacking axis and alternating A, B.
func BuildFaces(g *Geometry) {
	groups := map[moduleKey][]int{}
	var keys []moduleKey
	for i, b := range g.Beams {
		k := moduleKey{b.Copy, b.Module}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], i)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].copy != keys[j].copy {
			return keys[i].copy < keys[j].copy
		}
		return keys[i].module < keys[j].module
	})

	g.ModuleGeometry = nil
	g.Faces = nil
	for _, k := range keys {
		mg := groupModule(g, k, groups[k])
		g.ModuleGeometry = append(g.ModuleGeometry, mg)
		g.Faces = append(g.Faces, mg.Faces...)
	}
}

func groupModule(g *Geometry, k moduleKey, idx []int) ModuleGeometry {
	mg := ModuleGeometry{Module: k.module, Copy: k.copy}
	var centers []r3.Vec
	var topIdx, bottomIdx []int
	for _, i := range idx {
		b := g.Beams[i]
		centers = append(centers, b.Center())
		switch b.Role {
		case RoleHorizontalTop:
			topIdx = append(topIdx, i)
		case RoleHorizontalBottom:
			bottomIdx = append(bottomIdx, i)
		default:
			mg.Uprights = append(mg.Uprights, i)
		}
	}
	mg.TopA, mg.TopB = resolvePatterns(g.Beams, topIdx)
	mg.BottomA, mg.BottomB = resolvePatterns(g.Beams, bottomIdx)

	if mg.TopA < 0 || mg.TopB < 0 || mg.BottomA < 0 || mg.BottomB < 0 {
		return mg
	}
	slots := [4]Beam{g.Beams[mg.TopA], g.Beams[mg.TopB], g.Beams[mg.BottomB], g.Beams[mg.BottomA]}
	var tops, bottoms [4]r3.Vec
	for i, b := range slots {
		tops[i], bottoms[i] = b.End, b.Start
	}

	centroid := vec.Centroid(centers)
	top := newFace(tops, centroid, vec.Centroid(bottoms[:]))
	top.Module, top.Copy, top.Pattern = k.module, k.copy, PatternA
	bottom := newFace(bottoms, centroid, vec.Centroid(tops[:]))
	bottom.Module, bottom.Copy, bottom.Pattern = k.module, k.copy, PatternB
	mg.Faces = append(mg.Faces, top, bottom)
	return mg
}

// resolvePatterns returns the first A and first B beam among idx.
func resolvePatterns(beams []Beam, idx []int) (a, b int) {
	a, b = -1, -1
	for _, i := range idx {
		switch beams[i].Pattern {
		case PatternA:
			if a < 0 {
				a = i
			}
		case PatternB:
			if b < 0 {
				b = i
			}
		}
	}
	if a >= 0 && b >= 0 || len(idx) == 0 {
		return a, b
	}
	return positionalPatterns(beams, idx)
}

// positionalPatterns orders beams along their shared stacking axis and
// assigns A to even and B to odd positions.
func positionalPatterns(beams []Beam, idx []int) (a, b int) {
	axis := beams[idx[0]].Axes[2]
	sorted := append([]int(nil), idx...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return r3.Dot(beams[sorted[i]].Center(), axis) < r3.Dot(beams[sorted[j]].Center(), axis)
	})
	a, b = sorted[0], -1
	if len(sorted) > 1 {
		b = sorted[1]
	}
	return a, b
}

// newFace builds a face from corners ordered as Face.Corners. The normal points away from the module centroid; opposite, the
// centre of the module's other face, only breaks a tie.
func newFace(c [4]r3.Vec, moduleCentroid, opposite r3.Vec) Face {
	p0, p1, p2, p3 := c[0], c[1], c[2], c[3]

	across := r3.Add(r3.Sub(p1, p0), r3.Sub(p2, p3))
	up := r3.Add(r3.Sub(p0, p3), r3.Sub(p1, p2))
	w := vec.Normalize(across, vec.X)
	center := vec.Centroid(c[:])

	n := vec.Normalize(r3.Cross(w, up), vec.Perpendicular(w))
	side := r3.Dot(n, r3.Sub(center, moduleCentroid))
	if math.Abs(side) < 1e-6*math.Max(1, r3.Norm(across)) {
		side = r3.Dot(n, r3.Sub(center, opposite))
	}
	if side < 0 {
		n = r3.Scale(-1, n)
	}
	h := vec.Normalize(vec.Reject(vec.Reject(up, n), w), vec.Perpendicular(n))

	return Face{
		Corners:    c,
		Center:     center,
		WidthAxis:  w,
		HeightAxis: h,
		Normal:     n,
		SlideAxis:  w,
		Width:      (vec.Distance(p0, p1) + vec.Distance(p3, p2)) / 2,
		Height:     (vec.Distance(p0, p3) + vec.Distance(p1, p2)) / 2,
	}
}
