// Package tessellate turns a solved structure and its panels into triangle
// meshes, one mesh per part.
//
// Box-shaped parts (beams, brackets, panels) are meshed exactly from their
// corners. Hardware that needs real solid modeling (bolts, drilled
// brackets) goes through a geometry kernel once per distinct size; the
// resulting template is then placed at every instance.
package tessellate

import (
	"fmt"

	"github.com/chazu/foldframe/pkg/kernel"
	"github.com/chazu/foldframe/pkg/panel"
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh kinds.
const (
	KindBeam    = "beam"
	KindBracket = "bracket"
	KindBolt    = "bolt"
	KindPanel   = "panel"
)

// Options selects the parts to mesh.
type Options struct {
	Brackets bool
	Bolts    bool // requires a kernel

	// HoleDiameter drills a bolt hole through every bracket when > 0.
	// Requires a kernel.
	HoleDiameter float64

	// KernelBeams meshes every beam through the kernel instead of from
	// its corners. Slow; useful to check a kernel against exact boxes.
	KernelBeams bool

	// Copy restricts output to one array copy. Negative means all copies.
	Copy int
}

// DefaultOptions meshes every part of every copy.
func DefaultOptions() Options {
	return Options{Brackets: true, Bolts: true, Copy: -1}
}

// Tessellate produces one mesh per part. k may be nil, in which case
// kernel-only parts are skipped. The geometry is never modified.
func Tessellate(g *structure.Geometry, panels []panel.Panel, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if g == nil {
		return nil, nil
	}
	t := &tessellator{k: k, opts: opts, templates: map[templateKey]*kernel.Mesh{}}

	var meshes []*kernel.Mesh
	for i, b := range g.Beams {
		if !t.wanted(b.Copy) {
			continue
		}
		m, err := t.beam(i, b)
		if err != nil {
			return nil, fmt.Errorf("tessellate: beam %s: %w", b.Name(i), err)
		}
		meshes = append(meshes, m)
	}
	if opts.Brackets {
		for i, b := range g.Brackets {
			if !t.wanted(b.Copy) {
				continue
			}
			m, err := t.bracket(i, b)
			if err != nil {
				return nil, fmt.Errorf("tessellate: bracket %s: %w", bracketName(i, b), err)
			}
			meshes = append(meshes, m)
		}
	}
	if opts.Bolts && k != nil {
		for i, b := range g.Bolts {
			if !t.wanted(b.Copy) {
				continue
			}
			m, err := t.bolt(i, b)
			if err != nil {
				return nil, fmt.Errorf("tessellate: bolt %s: %w", boltName(i, b), err)
			}
			meshes = append(meshes, m)
		}
	}
	for _, p := range panels {
		if !t.wanted(p.Copy) {
			continue
		}
		meshes = append(meshes, panelMesh(p))
	}
	return meshes, nil
}

// templateKey identifies a kernel-built part in its local frame.
type templateKey struct {
	kind    string
	a, b, c float64
	hole    float64
}

type tessellator struct {
	k         kernel.Kernel
	opts      Options
	templates map[templateKey]*kernel.Mesh
}

func (t *tessellator) wanted(c int) bool {
	return t.opts.Copy < 0 || t.opts.Copy == c
}

// template returns the cached local-frame mesh for key, building it once.
func (t *tessellator) template(key templateKey, build func() kernel.Solid) (*kernel.Mesh, error) {
	if m, ok := t.templates[key]; ok {
		return m, nil
	}
	m, err := t.k.ToMesh(build())
	if err != nil {
		return nil, err
	}
	m.Kind = key.kind
	t.templates[key] = m
	return m, nil
}

func (t *tessellator) beam(i int, b structure.Beam) (*kernel.Mesh, error) {
	if !t.opts.KernelBeams || t.k == nil {
		m := kernel.PrismMesh(b.Name(i), b.Corners)
		m.Kind = KindBeam
		return m, nil
	}
	s := t.k.Box(b.Length(), b.Width, b.Thickness)
	m, err := t.k.ToMesh(kernel.Place(t.k, s, b.Center(), b.Axes))
	if err != nil {
		return nil, err
	}
	m.PartName, m.Kind = b.Name(i), KindBeam
	return m, nil
}

func (t *tessellator) bracket(i int, b structure.Bracket) (*kernel.Mesh, error) {
	name := bracketName(i, b)
	if t.opts.HoleDiameter <= 0 || t.k == nil {
		m := kernel.PrismMesh(name, kernel.BoxCorners(b.Center, b.Axes, b.Size))
		m.Kind = KindBracket
		return m, nil
	}
	key := templateKey{kind: KindBracket, a: b.Size.X, b: b.Size.Y, c: b.Size.Z, hole: t.opts.HoleDiameter}
	tpl, err := t.template(key, func() kernel.Solid {
		plate := t.k.Box(b.Size.X, b.Size.Y, b.Size.Z)
		hole := t.k.Cylinder(b.Size.Z*2, t.opts.HoleDiameter/2, 32)
		return t.k.Difference(plate, hole)
	})
	if err != nil {
		return nil, err
	}
	return tpl.Placed(name, b.Center, b.Axes), nil
}

// bolt builds a shank along local Z centred on the origin with the head on
// the +Z end.
func (t *tessellator) bolt(i int, b structure.Bolt) (*kernel.Mesh, error) {
	head := headHeight(b.Diameter)
	key := templateKey{kind: KindBolt, a: b.Length, b: b.Diameter, c: b.HeadDiameter}
	tpl, err := t.template(key, func() kernel.Solid {
		shank := t.k.Cylinder(b.Length, b.Diameter/2, 32)
		top := t.k.Translate(t.k.Cylinder(head, b.HeadDiameter/2, 32), 0, 0, (b.Length+head)/2)
		return t.k.Union(shank, top)
	})
	if err != nil {
		return nil, err
	}
	return tpl.Placed(boltName(i, b), b.Center, boltFrame(b.Axis)), nil
}

// headHeight follows the usual hex-head proportion of about 0.6 d.
func headHeight(d float64) float64 { return 0.6 * d }

// boltFrame is a right-handed frame whose third axis is the bolt axis.
func boltFrame(axis r3.Vec) [3]r3.Vec {
	z := vec.Normalize(axis, vec.Y)
	x := vec.Perpendicular(z)
	return [3]r3.Vec{x, r3.Cross(z, x), z}
}

func panelMesh(p panel.Panel) *kernel.Mesh {
	axes := [3]r3.Vec{p.WidthAxis, p.HeightAxis, p.Normal}
	size := r3.Vec{X: p.Width, Y: p.Height, Z: p.Thickness}
	m := kernel.PrismMesh(panelName(p), kernel.BoxCorners(p.Center, axes, size))
	m.Kind = KindPanel
	return m
}

func bracketName(i int, b structure.Bracket) string {
	return fmt.Sprintf("c%d/m%d/bracket/%s/%d", b.Copy, b.Module, b.Joint, i)
}

func boltName(i int, b structure.Bolt) string {
	return fmt.Sprintf("c%d/m%d/bolt/%s/%d", b.Copy, b.Module, b.Joint, i)
}

func panelName(p panel.Panel) string {
	return fmt.Sprintf("c%d/m%d/panel/%s/r%dc%d", p.Copy, p.Module, p.Pattern, p.Row, p.Col)
}

// Count tallies meshes and triangles per kind.
func Count(meshes []*kernel.Mesh) (parts, triangles map[string]int) {
	parts, triangles = map[string]int{}, map[string]int{}
	for _, m := range meshes {
		parts[m.Kind]++
		triangles[m.Kind] += m.TriangleCount()
	}
	return parts, triangles
}
