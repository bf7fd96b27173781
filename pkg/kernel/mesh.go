package kernel

import (
	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which structure part this came from
	Kind     string    `json:"kind"`     // beam, bracket, bolt or panel
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the bounding box of every vertex.
func (m *Mesh) Bounds() r3.Box {
	pts := make([]r3.Vec, 0, m.VertexCount())
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		pts = append(pts, r3.Vec{X: float64(m.Vertices[i]), Y: float64(m.Vertices[i+1]), Z: float64(m.Vertices[i+2])})
	}
	return vec.Bounds(pts)
}

// Prism corner layout, shared with structure beams: 0..3 around the
// negative end, 4..7 around the positive end, both ordered (-w,-t), (+w,-t),
// (+w,+t), (-w,+t).
var prismFaces = [6][4]int{
	{0, 3, 2, 1},
	{4, 5, 6, 7},
	{0, 1, 5, 4},
	{3, 7, 6, 2},
	{0, 4, 7, 3},
	{1, 2, 6, 5},
}

// BoxCorners returns the corners of a box centred on center with edges of
// size along axes, in prism corner order.
func BoxCorners(center r3.Vec, axes [3]r3.Vec, size r3.Vec) [8]r3.Vec {
	hl := r3.Scale(size.X/2, axes[0])
	hw := r3.Scale(size.Y/2, axes[1])
	ht := r3.Scale(size.Z/2, axes[2])
	offsets := [4]r3.Vec{
		r3.Sub(r3.Scale(-1, hw), ht),
		r3.Sub(hw, ht),
		r3.Add(hw, ht),
		r3.Add(r3.Scale(-1, hw), ht),
	}
	var out [8]r3.Vec
	for i, o := range offsets {
		out[i] = r3.Add(r3.Sub(center, hl), o)
		out[i+4] = r3.Add(r3.Add(center, hl), o)
	}
	return out
}

// PrismMesh builds the exact 12-triangle mesh of a convex prism with flat
// per-face normals. Triangles wind counter-clockwise seen from outside
// whatever the handedness of the corner layout.
func PrismMesh(name string, corners [8]r3.Vec) *Mesh {
	m := &Mesh{
		Vertices: make([]float32, 0, 24*3),
		Normals:  make([]float32, 0, 24*3),
		Indices:  make([]uint32, 0, 36),
		PartName: name,
	}
	center := vec.Centroid(corners[:])
	for _, face := range prismFaces {
		p := [4]r3.Vec{corners[face[0]], corners[face[1]], corners[face[2]], corners[face[3]]}
		fc := vec.Centroid(p[:])
		n := vec.Normalize(r3.Cross(r3.Sub(p[1], p[0]), r3.Sub(p[2], p[0])), r3.Sub(fc, center))
		if r3.Dot(n, r3.Sub(fc, center)) < 0 {
			p[1], p[3] = p[3], p[1]
			n = r3.Scale(-1, n)
		}
		base := uint32(m.VertexCount())
		for _, v := range p {
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// Merge concatenates meshes into one, offsetting indices. The result takes
// the given name and the kind of the first non-nil input.
func Merge(name string, meshes ...*Mesh) *Mesh {
	out := &Mesh{PartName: name}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		if out.Kind == "" {
			out.Kind = m.Kind
		}
		base := uint32(out.VertexCount())
		out.Vertices = append(out.Vertices, m.Vertices...)
		out.Normals = append(out.Normals, m.Normals...)
		for _, i := range m.Indices {
			out.Indices = append(out.Indices, base+i)
		}
	}
	return out
}

// Placed returns a copy of m, built in its own local frame, mapped onto
// axes and moved to center. Meshing a part once and placing it many times
// avoids running the kernel per instance.
func (m *Mesh) Placed(name string, center r3.Vec, axes [3]r3.Vec) *Mesh {
	axes = RightHanded(axes)
	out := &Mesh{
		Vertices: make([]float32, len(m.Vertices)),
		Normals:  make([]float32, len(m.Normals)),
		Indices:  append([]uint32(nil), m.Indices...),
		PartName: name,
		Kind:     m.Kind,
	}
	apply := func(dst, src []float32, origin r3.Vec) {
		for i := 0; i+2 < len(src); i += 3 {
			p := r3.Add(origin, r3.Add(
				r3.Scale(float64(src[i]), axes[0]),
				r3.Add(r3.Scale(float64(src[i+1]), axes[1]), r3.Scale(float64(src[i+2]), axes[2]))))
			dst[i], dst[i+1], dst[i+2] = float32(p.X), float32(p.Y), float32(p.Z)
		}
	}
	apply(out.Vertices, m.Vertices, center)
	apply(out.Normals, m.Normals, r3.Vec{})
	return out
}
