package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/foldframe/pkg/kernel"
	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

func assertBounds(t *testing.T, s kernel.Solid, wantMin, wantMax [3]float64, tol float64) {
	t.Helper()
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > tol || math.Abs(max[i]-wantMax[i]) > tol {
			t.Fatalf("bounds = %v..%v, want %v..%v", min, max, wantMin, wantMax)
		}
	}
}

func TestPartsMesh(t *testing.T) {
	k := NewWithResolution(32)
	tests := []struct {
		name  string
		solid kernel.Solid
	}{
		{"beam section", k.Box(200, 40, 20)},
		{"bracket plate", k.Box(60, 60, 6)},
		{"bolt shank", k.Cylinder(56, 5, 32)},
		{"bolt", k.Union(k.Cylinder(56, 5, 32), k.Translate(k.Cylinder(6, 8.5, 32), 0, 0, 31))},
		{"plate overlap", k.Intersection(k.Box(60, 60, 6), k.Translate(k.Box(60, 60, 6), 30, 0, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, err := k.ToMesh(tt.solid)
			if err != nil {
				t.Fatalf("ToMesh failed: %v", err)
			}
			if mesh.IsEmpty() || mesh.TriangleCount() == 0 {
				t.Fatal("mesh is empty")
			}
			if len(mesh.Vertices) != len(mesh.Normals) {
				t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
			}
			if len(mesh.Indices) != mesh.TriangleCount()*3 {
				t.Fatalf("indices length %d != triangles*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
			}
		})
	}
}

func TestDrilledBracket(t *testing.T) {
	k := NewWithResolution(48)
	plate := k.Box(60, 60, 6)
	plain, err := k.ToMesh(plate)
	if err != nil {
		t.Fatalf("ToMesh(plate): %v", err)
	}
	drilled, err := k.ToMesh(k.Difference(plate, k.Cylinder(10, 5, 32)))
	if err != nil {
		t.Fatalf("ToMesh(drilled): %v", err)
	}
	if drilled.TriangleCount() <= plain.TriangleCount() {
		t.Errorf("drilled plate has %d triangles, plain %d", drilled.TriangleCount(), plain.TriangleCount())
	}
	assertBounds(t, k.Difference(plate, k.Cylinder(10, 5, 32)), [3]float64{-30, -30, -3}, [3]float64{30, 30, 3}, 0.01)
}

func TestBoxIsCentred(t *testing.T) {
	k := New()
	assertBounds(t, k.Box(100, 50, 25), [3]float64{-50, -25, -12.5}, [3]float64{50, 25, 12.5}, 0.01)
	assertBounds(t, k.Cylinder(40, 5, 16), [3]float64{-5, -5, -20}, [3]float64{5, 5, 20}, 0.01)
}

func TestTranslate(t *testing.T) {
	k := New()
	moved := k.Translate(k.Box(10, 10, 10), 100, 200, 300)
	assertBounds(t, moved, [3]float64{95, 195, 295}, [3]float64{105, 205, 305}, 0.5)
}

func TestRotate(t *testing.T) {
	k := New()
	tests := []struct {
		name    string
		x, y, z float64
		want    [3]float64
	}{
		{"about z", 0, 0, 90, [3]float64{10, 100, 6}},
		{"about y", 0, 90, 0, [3]float64{6, 10, 100}},
		{"about x", 90, 0, 0, [3]float64{100, 6, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max := k.Rotate(k.Box(100, 10, 6), tt.x, tt.y, tt.z).BoundingBox()
			for i := 0; i < 3; i++ {
				if got := max[i] - min[i]; math.Abs(got-tt.want[i]) > 1 {
					t.Errorf("extent[%d] = %f, want ~%f", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestNewWithResolution(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 8},
		{4, 8},
		{32, 32},
	}
	for _, tt := range tests {
		if got := NewWithResolution(tt.in).Resolution(); got != tt.want {
			t.Errorf("NewWithResolution(%d) = %d cells, want %d", tt.in, got, tt.want)
		}
	}
	if New().Resolution() != DefaultMeshCells {
		t.Errorf("New() resolution = %d", New().Resolution())
	}
}

func TestPlaceBoltAlongAxis(t *testing.T) {
	k := NewWithResolution(32)
	shank := k.Cylinder(60, 5, 16)
	head := k.Translate(k.Cylinder(6, 8.5, 16), 0, 0, 33)
	bolt := k.Union(shank, head)

	// Z of the local frame goes to world X.
	axes := [3]r3.Vec{{Y: 1}, {Z: 1}, vec.X}
	placed := kernel.Place(k, bolt, r3.Vec{X: 500, Y: 21, Z: -40}, axes)
	min, max := placed.BoundingBox()

	const tol = 0.5
	if ext := max[0] - min[0]; math.Abs(ext-66) > tol {
		t.Errorf("X extent = %f, expected ~66", ext)
	}
	if ext := max[1] - min[1]; math.Abs(ext-17) > tol {
		t.Errorf("Y extent = %f, expected ~17", ext)
	}
	if c := (max[0] + min[0]) / 2; math.Abs(c-503) > tol {
		t.Errorf("X centre = %f, expected ~503", c)
	}

	mesh, err := k.ToMesh(placed)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("bolt mesh is empty")
	}
}
