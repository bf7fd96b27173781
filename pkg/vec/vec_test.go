package vec

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{5 * math.Pi, math.Pi},
	}
	for _, tt := range tests {
		if got := WrapAngle(tt.in); math.Abs(got-tt.want) > tol {
			t.Errorf("WrapAngle(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestAngleBetweenWrapsAround(t *testing.T) {
	got := AngleBetween(Rad(179), Rad(-179))
	if math.Abs(got-Rad(2)) > tol {
		t.Errorf("AngleBetween = %f deg, want 2", Deg(got))
	}
}

func TestNormalizeFallback(t *testing.T) {
	got := Normalize(r3.Vec{}, Z)
	if got != Z {
		t.Errorf("Normalize(zero) = %v, want fallback %v", got, Z)
	}
	got = Normalize(r3.Vec{X: 3, Y: 4}, Z)
	if math.Abs(r3.Norm(got)-1) > tol {
		t.Errorf("Normalize length = %f, want 1", r3.Norm(got))
	}
}

func TestPerpendicular(t *testing.T) {
	for _, v := range []r3.Vec{X, Y, Z, {X: 1, Y: 1, Z: 1}, {X: -2, Z: 0.5}} {
		p := Perpendicular(v)
		if math.Abs(r3.Dot(p, v)) > 1e-9 {
			t.Errorf("Perpendicular(%v) = %v not perpendicular", v, p)
		}
		if math.Abs(r3.Norm(p)-1) > 1e-9 {
			t.Errorf("Perpendicular(%v) not unit", v)
		}
	}
}

func TestRotationYMatchesPlaneRotation(t *testing.T) {
	p := r3.Vec{X: 3, Y: 7, Z: -2}
	for _, a := range []float64{0, 0.3, math.Pi / 2, -2.1} {
		got := RotationY(a).Point(p)
		want2 := Rotate2(Plan(p), a)
		if math.Abs(got.X-want2.X) > tol || math.Abs(got.Z-want2.Y) > tol || got.Y != p.Y {
			t.Errorf("angle %f: got %v, want plane %v", a, got, want2)
		}
	}
}

func TestAffineThen(t *testing.T) {
	a := Translation(r3.Vec{X: 1})
	b := RotationY(math.Pi / 2)
	c := a.Then(b)
	got := c.Point(r3.Vec{})
	want := b.Point(r3.Vec{X: 1})
	if !ApproxEqual(got, want, tol) {
		t.Errorf("Then point = %v, want %v", got, want)
	}
	// Directions ignore translation.
	if d := c.Dir(X); !ApproxEqual(d, b.Dir(X), tol) {
		t.Errorf("Then dir = %v, want %v", d, b.Dir(X))
	}
}

func TestOverlap(t *testing.T) {
	a := r3.Box{Min: r3.Vec{}, Max: r3.Vec{X: 2, Y: 2, Z: 2}}
	b := r3.Box{Min: r3.Vec{X: 1, Y: 1, Z: 1}, Max: r3.Vec{X: 3, Y: 3, Z: 3}}
	o := Overlap(a, b)
	if o != (r3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Fatalf("Overlap = %v", o)
	}
	if Volume(o) != 1 {
		t.Errorf("Volume = %f, want 1", Volume(o))
	}
	c := r3.Box{Min: r3.Vec{X: 5}, Max: r3.Vec{X: 6, Y: 1, Z: 1}}
	if Volume(Overlap(a, c)) != 0 {
		t.Errorf("separated boxes should have zero overlap volume")
	}
}

func TestBoundsAndLift(t *testing.T) {
	pts := []r3.Vec{Lift(r2.Vec{X: 1, Y: 2}, 3), Lift(r2.Vec{X: -1, Y: 0}, -3)}
	b := Bounds(pts)
	if b.Min != (r3.Vec{X: -1, Y: -3, Z: 0}) || b.Max != (r3.Vec{X: 1, Y: 3, Z: 2}) {
		t.Errorf("Bounds = %+v", b)
	}
	if Plan(pts[0]) != (r2.Vec{X: 1, Y: 2}) {
		t.Errorf("Plan(Lift(p)) != p")
	}
}
