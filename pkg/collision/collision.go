// Package collision classifies interfering beams in a solved structure.
//
// Detection only ever reads a Geometry. Records are recomputed for every
// fold angle and never patched.
package collision

import (
	"fmt"
	"math"

	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind classifies a collision.
type Kind string

const (
	KindVerticalHorizontal Kind = "vertical-horizontal"
	KindOverFolding        Kind = "over-folding"
	KindGeometricOverfold  Kind = "geometric-overfold"
)

// Record references two beams by index into Geometry.Beams. B is -1 when
// the structure has only one beam.
type Record struct {
	Kind   Kind   `json:"kind"`
	A      int    `json:"a"`
	B      int    `json:"b"`
	Reason string `json:"reason,omitempty"`
}

func (r Record) String() string {
	if r.Reason == "" {
		return fmt.Sprintf("%s %d/%d", r.Kind, r.A, r.B)
	}
	return fmt.Sprintf("%s %d/%d: %s", r.Kind, r.A, r.B, r.Reason)
}

// Options are the empirical thresholds of the detector.
type Options struct {
	// MinOverlapEdge is the shortest overlap edge, in mm, that counts as
	// intersection rather than touching.
	MinOverlapEdge float64
	// MinOverlapVolume is the smallest overlap volume in mm³.
	MinOverlapVolume float64
	// AngularFraction of the expected per-module spacing below which two
	// horizontal beams are considered angularly overlapping.
	AngularFraction float64
	// CenterFraction of the horizontal beam length below which two
	// angularly close beams are too near.
	CenterFraction float64
	// OverfoldTolerance is added to a full turn before the fast path fires.
	OverfoldTolerance float64
	// SkipNeighbours ignores vertical-horizontal pairs in the same or
	// adjacent modules, which share joints by construction.
	SkipNeighbours bool
}

// DefaultOptions returns the tuned thresholds.
func DefaultOptions() Options {
	return Options{
		MinOverlapEdge:    0.5,
		MinOverlapVolume:  1,
		AngularFraction:   0.3,
		CenterFraction:    0.8,
		OverfoldTolerance: vec.Rad(0.5),
		SkipNeighbours:    true,
	}
}

// Detector finds collisions in solved geometry.
type Detector struct {
	Options Options
}

// NewDetector creates a Detector with DefaultOptions.
func NewDetector() *Detector {
	return &Detector{Options: DefaultOptions()}
}

type classified struct {
	index    int
	beam     structure.Beam
	box      r3.Box
	vertical bool
}

// Detect returns every collision in g. Only the first array copy is
// examined since all copies are identical.
//
// A ring that has rotated past one full turn short-circuits everything
// else with a single geometric-overfold record.
func (d *Detector) Detect(g *structure.Geometry, c structure.Config) []Record {
	if g == nil || len(g.Beams) == 0 {
		return nil
	}
	if r, ok := d.overfold(g); ok {
		return []Record{r}
	}

	var vertical, horizontal []classified
	for _, i := range g.CopyBeams(0) {
		b := g.Beams[i]
		cb := classified{index: i, beam: b, box: b.Bounds()}
		cb.vertical = isVertical(cb.box)
		if cb.vertical {
			vertical = append(vertical, cb)
		} else {
			horizontal = append(horizontal, cb)
		}
	}

	var out []Record
	out = append(out, d.verticalHorizontal(g, vertical, horizontal)...)
	out = append(out, d.overFolding(g, c, horizontal)...)
	return out
}

// Colliding reports the set of beam indices involved in any record.
func Colliding(records []Record) map[int]bool {
	set := make(map[int]bool, 2*len(records))
	for _, r := range records {
		set[r.A] = true
		if r.B >= 0 {
			set[r.B] = true
		}
	}
	return set
}

// Count returns the number of records of kind k.
func Count(records []Record, k Kind) int {
	var n int
	for _, r := range records {
		if r.Kind == k {
			n++
		}
	}
	return n
}

func (d *Detector) overfold(g *structure.Geometry) (Record, bool) {
	total := g.TotalRotation()
	if total <= 2*math.Pi+d.Options.OverfoldTolerance {
		return Record{}, false
	}
	a, b := firstLastTop(g)
	return Record{
		Kind:   KindGeometricOverfold,
		A:      a,
		B:      b,
		Reason: fmt.Sprintf("total rotation %.2f deg exceeds a full turn", vec.Deg(total)),
	}, true
}

// firstLastTop finds the first module's and last module's top A beams,
// falling back to the first and last beam.
func firstLastTop(g *structure.Geometry) (int, int) {
	a, b := -1, -1
	last := g.Modules - 1
	for i, beam := range g.Beams {
		if beam.Copy != 0 || beam.Role != structure.RoleHorizontalTop || beam.Pattern != structure.PatternA {
			continue
		}
		if beam.Module == 0 && a < 0 {
			a = i
		}
		if beam.Module == last && b < 0 {
			b = i
		}
	}
	if a < 0 || b < 0 {
		a, b = 0, len(g.Beams)-1
	}
	if a == b {
		b = -1
	}
	return a, b
}

// isVertical compares a box's vertical extent to its larger horizontal one.
func isVertical(box r3.Box) bool {
	e := vec.Extent(box)
	return e.Y > math.Max(e.X, e.Z)
}

func (d *Detector) verticalHorizontal(g *structure.Geometry, vertical, horizontal []classified) []Record {
	var out []Record
	for _, v := range vertical {
		for _, h := range horizontal {
			if d.Options.SkipNeighbours && moduleDistance(g, v.beam.Module, h.beam.Module) <= 1 {
				continue
			}
			ov := vec.Overlap(v.box, h.box)
			edge, vol := vec.MinComponent(ov), vec.Volume(ov)
			if edge <= 0 || edge < d.Options.MinOverlapEdge || vol < d.Options.MinOverlapVolume {
				continue
			}
			out = append(out, Record{
				Kind:   KindVerticalHorizontal,
				A:      v.index,
				B:      h.index,
				Reason: fmt.Sprintf("overlap %.1f mm, %.0f mm³", edge, vol),
			})
		}
	}
	return out
}

func (d *Detector) overFolding(g *structure.Geometry, c structure.Config, horizontal []classified) []Record {
	if g.Modules < 1 {
		return nil
	}
	spacing := 2 * math.Pi / float64(g.Modules)
	angleLimit := d.Options.AngularFraction * spacing
	distLimit := d.Options.CenterFraction * c.HorizontalLength
	center := g.Center

	angle := func(p r3.Vec) float64 {
		q := r3.Sub(p, center)
		if g.Mode == structure.ModeArch {
			return math.Atan2(q.Y, q.X)
		}
		return math.Atan2(q.Z, q.X)
	}

	var out []Record
	for i := 0; i < len(horizontal); i++ {
		for j := i + 1; j < len(horizontal); j++ {
			a, b := horizontal[i], horizontal[j]
			if moduleDistance(g, a.beam.Module, b.beam.Module) <= 1 {
				continue
			}
			if edge := vec.MinComponent(vec.Overlap(a.box, b.box)); edge > 0 && edge >= d.Options.MinOverlapEdge {
				out = append(out, Record{Kind: KindOverFolding, A: a.index, B: b.index, Reason: "bounding boxes overlap"})
				continue
			}
			ca, cb := a.beam.Center(), b.beam.Center()
			da := vec.AngleBetween(angle(ca), angle(cb))
			if da < angleLimit && vec.Distance(ca, cb) < distLimit {
				out = append(out, Record{
					Kind:   KindOverFolding,
					A:      a.index,
					B:      b.index,
					Reason: fmt.Sprintf("%.1f deg apart, expected %.1f", vec.Deg(da), vec.Deg(spacing)),
				})
			}
		}
	}
	return out
}

// moduleDistance counts modules between a and b, wrapping around a ring.
func moduleDistance(g *structure.Geometry, a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if g.Mode == structure.ModeRing && g.Modules > 0 {
		if w := g.Modules - d; w < d {
			d = w
		}
	}
	return d
}
