package export

import (
	"math"
	"sort"

	"github.com/chazu/foldframe/pkg/structure"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// View is an orthographic projection of world space onto a drawing plane.
// Drawing Y grows upwards.
type View int

const (
	// Plan looks down the Y axis: X right, Z up the page.
	Plan View = iota
	// Elevation looks along Z: X right, Y up.
	Elevation
)

func (v View) String() string {
	if v == Plan {
		return "plan"
	}
	return "elevation"
}

// Project maps p onto the view plane.
func (v View) Project(p r3.Vec) r2.Vec {
	if v == Plan {
		return r2.Vec{X: p.X, Y: -p.Z}
	}
	return r2.Vec{X: p.X, Y: p.Y}
}

// Outline is the projected convex outline of one beam.
type Outline struct {
	Beam   int
	Points []r2.Vec
}

// Outlines projects every beam of g, optionally limited to one array copy
// (only < 0 keeps all).
func Outlines(g *structure.Geometry, v View, only int) []Outline {
	out := make([]Outline, 0, len(g.Beams))
	for i, b := range g.Beams {
		if only >= 0 && b.Copy != only {
			continue
		}
		pts := make([]r2.Vec, len(b.Corners))
		for j, c := range b.Corners {
			pts[j] = v.Project(c)
		}
		out = append(out, Outline{Beam: i, Points: Hull(pts)})
	}
	return out
}

// Hull returns the convex hull of pts in counter-clockwise order.
func Hull(pts []r2.Vec) []r2.Vec {
	if len(pts) < 3 {
		return append([]r2.Vec(nil), pts...)
	}
	ps := append([]r2.Vec(nil), pts...)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		return ps[i].Y < ps[j].Y
	})
	cross := func(o, a, b r2.Vec) float64 {
		return r2.Cross(r2.Sub(a, o), r2.Sub(b, o))
	}

	hull := make([]r2.Vec, 0, 2*len(ps))
	for _, p := range ps {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(ps) - 2; i >= 0; i-- {
		p := ps[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// Frame maps drawing coordinates into a target rectangle whose Y grows
// downwards (PDF pages and terminal cells), preserving aspect ratio.
type Frame struct {
	Scale  float64
	min    r2.Vec
	origin r2.Vec
	height float64
	aspect float64
}

// Fit returns a frame that centres outlines inside the rectangle at
// (x, y) of size w×h. aspect scales the horizontal axis, for targets whose
// cells are not square; use 1 for paper.
func Fit(outlines []Outline, x, y, w, h, aspect float64) Frame {
	lo := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, o := range outlines {
		for _, p := range o.Points {
			lo = r2.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y)}
			hi = r2.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y)}
		}
	}
	if math.IsInf(lo.X, 1) {
		lo, hi = r2.Vec{}, r2.Vec{X: 1, Y: 1}
	}
	if aspect <= 0 {
		aspect = 1
	}
	dx := math.Max(hi.X-lo.X, 1e-9) * aspect
	dy := math.Max(hi.Y-lo.Y, 1e-9)
	s := math.Min(w/dx, h/dy)

	return Frame{
		Scale:  s,
		min:    lo,
		origin: r2.Vec{X: x + (w-dx*s)/2, Y: y + (h-dy*s)/2},
		height: dy * s,
		aspect: aspect,
	}
}

// Map converts a drawing point to target coordinates.
func (f Frame) Map(p r2.Vec) r2.Vec {
	return r2.Vec{
		X: f.origin.X + (p.X-f.min.X)*f.Scale*f.aspect,
		Y: f.origin.Y + f.height - (p.Y-f.min.Y)*f.Scale,
	}
}
