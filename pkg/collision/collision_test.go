package collision

import (
	"math"
	"testing"

	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

func beam(start, end, thick r3.Vec, module int, role structure.Role) structure.Beam {
	b := structure.NewBeam(start, end, thick, 10, 10)
	b.Module = module
	b.Role = role
	b.Pattern = structure.PatternA
	return b
}

// overlapPair is a post and a rail whose boxes share exactly 1 unit on
// every axis.
func overlapPair(railModule int) *structure.Geometry {
	post := beam(r3.Vec{}, r3.Vec{Y: 100}, vec.X, 0, structure.RoleVertical)
	rail := beam(r3.Vec{X: 4, Y: 104, Z: 9}, r3.Vec{X: 104, Y: 104, Z: 9}, vec.Y, railModule, structure.RoleHorizontalTop)
	return &structure.Geometry{
		Mode:    structure.ModeRing,
		Modules: 8,
		Copies:  1,
		Beams:   []structure.Beam{post, rail},
	}
}

func TestVerticalHorizontalScenario(t *testing.T) {
	tests := []struct {
		name   string
		module int
		skip   bool
		want   int
	}{
		{"distant module", 4, true, 1},
		{"same module unfiltered", 0, false, 1},
		{"adjacent module unfiltered", 1, false, 1},
		{"same module filtered", 0, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			d.Options.MinOverlapEdge = 0.5
			d.Options.MinOverlapVolume = 0.5
			d.Options.SkipNeighbours = tt.skip

			got := d.Detect(overlapPair(tt.module), structure.Defaults())
			if len(got) != tt.want {
				t.Fatalf("got %d records, want %d: %v", len(got), tt.want, got)
			}
			if tt.want == 0 {
				return
			}
			if r := got[0]; r.Kind != KindVerticalHorizontal || r.A != 0 || r.B != 1 {
				t.Errorf("record = %+v, want vertical-horizontal 0/1", r)
			}
		})
	}
}

func TestVerticalHorizontalThresholds(t *testing.T) {
	tests := []struct {
		name   string
		edit   func(*Options)
		module int
		want   int
	}{
		{"edge too small", func(o *Options) { o.MinOverlapEdge = 2 }, 4, 0},
		{"volume too small", func(o *Options) { o.MinOverlapEdge = 0.5; o.MinOverlapVolume = 1.5 }, 4, 0},
		{"neighbour skipped", func(o *Options) { o.MinOverlapEdge = 0.5; o.MinOverlapVolume = 0.5 }, 1, 0},
		{"neighbour wraps", func(o *Options) { o.MinOverlapEdge = 0.5; o.MinOverlapVolume = 0.5 }, 7, 0},
		{"neighbour checked", func(o *Options) {
			o.MinOverlapEdge = 0.5
			o.MinOverlapVolume = 0.5
			o.SkipNeighbours = false
		}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			tt.edit(&d.Options)
			if got := d.Detect(overlapPair(tt.module), structure.Defaults()); len(got) != tt.want {
				t.Errorf("got %d records, want %d: %v", len(got), tt.want, got)
			}
		})
	}
}

func TestOverFoldingAngularProximity(t *testing.T) {
	// Two short tangential rails 10 deg apart at radius 500, with the
	// expected spacing at 8 modules being 45 deg.
	a := beam(r3.Vec{X: 500, Z: -20}, r3.Vec{X: 500, Z: 20}, vec.Y, 0, structure.RoleHorizontalTop)
	bx, bz := 500*math.Cos(vec.Rad(10)), 500*math.Sin(vec.Rad(10))
	b := beam(r3.Vec{X: bx, Z: bz - 20}, r3.Vec{X: bx, Z: bz + 20}, vec.Y, 3, structure.RoleHorizontalTop)

	g := &structure.Geometry{Mode: structure.ModeRing, Modules: 8, Copies: 1, Beams: []structure.Beam{a, b}}
	got := NewDetector().Detect(g, structure.Defaults())
	if len(got) != 1 || got[0].Kind != KindOverFolding {
		t.Fatalf("got %v, want one over-folding record", got)
	}

	g.Beams[1].Module = 1
	if got := NewDetector().Detect(g, structure.Defaults()); len(got) != 0 {
		t.Errorf("adjacent modules flagged: %v", got)
	}
}

func TestOverFoldingBoxOverlap(t *testing.T) {
	a := beam(r3.Vec{}, r3.Vec{X: 100}, vec.Y, 0, structure.RoleHorizontalBottom)
	b := beam(r3.Vec{X: 50, Z: -50}, r3.Vec{X: 50, Z: 50}, vec.Y, 4, structure.RoleHorizontalBottom)
	g := &structure.Geometry{Mode: structure.ModeRing, Modules: 8, Copies: 1, Beams: []structure.Beam{a, b}}
	got := NewDetector().Detect(g, structure.Defaults())
	if Count(got, KindOverFolding) != 1 {
		t.Fatalf("got %v, want one over-folding record", got)
	}
	if set := Colliding(got); !set[0] || !set[1] {
		t.Errorf("colliding set = %v", set)
	}
}

func TestGeometricOverfoldShortCircuits(t *testing.T) {
	c := structure.Defaults()
	g, err := structure.Solve(c, vec.Rad(50))
	if err != nil {
		t.Fatal(err)
	}
	got := NewDetector().Detect(g, c)
	if len(got) != 1 || got[0].Kind != KindGeometricOverfold {
		t.Fatalf("got %v, want a single geometric-overfold record", got)
	}
	a, b := g.Beams[got[0].A], g.Beams[got[0].B]
	if a.Module != 0 || b.Module != c.Modules-1 {
		t.Errorf("overfold references modules %d and %d", a.Module, b.Module)
	}
	if a.Role != structure.RoleHorizontalTop || b.Role != structure.RoleHorizontalTop {
		t.Errorf("overfold references %s and %s", a.Role, b.Role)
	}
}

func TestClosedRingIsClean(t *testing.T) {
	c := structure.Defaults()
	g, err := structure.Solve(c, 2*math.Pi/float64(c.Modules))
	if err != nil {
		t.Fatal(err)
	}
	got := NewDetector().Detect(g, c)
	if n := Count(got, KindGeometricOverfold); n != 0 {
		t.Errorf("closed ring reported %d geometric overfolds", n)
	}
	if len(got) != 0 {
		t.Errorf("closed ring reported collisions: %v", got)
	}
}

func TestOpenRingIsClean(t *testing.T) {
	c := structure.Defaults()
	for _, deg := range []float64{10, 20, 30} {
		g, err := structure.Solve(c, vec.Rad(deg))
		if err != nil {
			t.Fatal(err)
		}
		if got := NewDetector().Detect(g, c); len(got) != 0 {
			t.Errorf("%.0f deg: %v", deg, got)
		}
	}
}

func TestDetectEmpty(t *testing.T) {
	if got := NewDetector().Detect(nil, structure.Defaults()); got != nil {
		t.Errorf("nil geometry: %v", got)
	}
	if got := NewDetector().Detect(&structure.Geometry{}, structure.Defaults()); got != nil {
		t.Errorf("empty geometry: %v", got)
	}
}
