package structure

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-6

func closedFold(c Config) float64 {
	return 2 * math.Pi / float64(c.Modules)
}

func TestBuildStackCentersAndAlternates(t *testing.T) {
	seg := Segment{Start: r3.Vec{}, End: r3.Vec{X: 100}}
	tests := []struct {
		name     string
		count    int
		reverse  bool
		offsets  []float64
		patterns []Pattern
	}{
		{"single", 1, false, []float64{0}, []Pattern{PatternA}},
		{"pair", 2, false, []float64{-11, 11}, []Pattern{PatternA, PatternB}},
		{"triple", 3, false, []float64{-22, 0, 22}, []Pattern{PatternA, PatternB, PatternA}},
		{"reversed", 3, true, []float64{-22, 0, 22}, []Pattern{PatternB, PatternA, PatternB}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			beams := BuildStack(StackSpec{
				A: seg, B: seg,
				Count: tt.count, Width: 40, Thickness: 20, Gap: 2,
				Offset: vec.Y, Role: RoleHorizontalTop, StackID: "s",
			})
			if len(beams) != tt.count {
				t.Fatalf("got %d beams, want %d", len(beams), tt.count)
			}
			for i, b := range beams {
				if got := b.Center().Y; math.Abs(got-tt.offsets[i]) > tol {
					t.Errorf("beam %d offset = %g, want %g", i, got, tt.offsets[i])
				}
				if b.Pattern != tt.patterns[i] {
					t.Errorf("beam %d pattern = %s, want %s", i, b.Pattern, tt.patterns[i])
				}
				if b.Role != RoleHorizontalTop || b.StackID != "s" {
					t.Errorf("beam %d lost its tags: %+v", i, b)
				}
			}
		})
	}
}

func TestBuildStackDegenerateOffset(t *testing.T) {
	seg := Segment{Start: r3.Vec{}, End: r3.Vec{X: 100}}
	for _, off := range []r3.Vec{{}, {X: 5}} {
		beams := BuildStack(StackSpec{A: seg, B: seg, Count: 2, Width: 10, Thickness: 4, Gap: 1, Offset: off})
		d := r3.Sub(beams[1].Center(), beams[0].Center())
		if math.Abs(r3.Norm(d)-5) > tol {
			t.Errorf("offset %v: beams %g apart, want 5", off, r3.Norm(d))
		}
		if math.Abs(r3.Dot(d, vec.X)) > tol {
			t.Errorf("offset %v: stacking along the beam axis", off)
		}
	}
}

func TestBuildStackExtension(t *testing.T) {
	seg := Segment{Start: r3.Vec{}, End: r3.Vec{X: 100}}
	b := BuildStack(StackSpec{A: seg, B: seg, Count: 1, Width: 10, Thickness: 4, Offset: vec.Y, Extension: 15})[0]
	if math.Abs(b.Length()-130) > tol {
		t.Errorf("length = %g, want 130", b.Length())
	}
	if math.Abs(b.Start.X+15) > tol {
		t.Errorf("start = %v, want x=-15", b.Start)
	}
}

func TestBeamCornersAndQuads(t *testing.T) {
	b := NewBeam(r3.Vec{}, r3.Vec{X: 10}, vec.Z, 4, 2)
	box := b.Bounds()
	want := r3.Box{Min: r3.Vec{X: 0, Y: -2, Z: -1}, Max: r3.Vec{X: 10, Y: 2, Z: 1}}
	if !vec.ApproxEqual(box.Min, want.Min, tol) || !vec.ApproxEqual(box.Max, want.Max, tol) {
		t.Fatalf("bounds = %+v, want %+v", box, want)
	}
	c := b.Center()
	for i, q := range b.Quads() {
		if math.Abs(r3.Norm(q.Normal)-1) > tol {
			t.Errorf("quad %d normal not unit", i)
		}
		if r3.Dot(q.Normal, r3.Sub(q.Center, c)) <= 0 {
			t.Errorf("quad %d normal points inward", i)
		}
	}
}

func TestAssembleCounts(t *testing.T) {
	c := Defaults()
	g := Assemble(c, vec.Rad(30))
	perModule := 2*c.HorizontalStack + c.VerticalStack
	if len(g.Beams) != perModule*c.Modules {
		t.Errorf("beams = %d, want %d", len(g.Beams), perModule*c.Modules)
	}
	if len(g.Brackets) != 8*c.Modules {
		t.Errorf("brackets = %d, want %d", len(g.Brackets), 8*c.Modules)
	}
	if len(g.Bolts) != 10*c.Modules {
		t.Errorf("bolts = %d, want %d", len(g.Bolts), 10*c.Modules)
	}
	if len(g.Joints) != c.Modules {
		t.Errorf("joints = %d, want %d", len(g.Joints), c.Modules)
	}
}

func TestAssembleChainingContinuity(t *testing.T) {
	for _, fold := range []float64{vec.Rad(5), vec.Rad(30), vec.Rad(45), vec.Rad(120)} {
		c := Defaults()
		c.HobermanAngle = vec.Rad(5)
		g := Assemble(c, fold)
		for i := 0; i+1 < len(g.Joints); i++ {
			if !vec.ApproxEqual(g.Joints[i].BottomRight, g.Joints[i+1].BottomLeft, tol) {
				t.Errorf("fold %.0f: module %d bottom-right %v != module %d bottom-left %v",
					vec.Deg(fold), i, g.Joints[i].BottomRight, i+1, g.Joints[i+1].BottomLeft)
			}
		}
	}
}

func TestRingClosesAtFullTurn(t *testing.T) {
	for n := 3; n <= 24; n += 3 {
		c := Defaults()
		c.Modules = n
		g := Assemble(c, closedFold(c))
		last, first := g.Joints[n-1].BottomRight, g.Joints[0].BottomLeft
		if !vec.ApproxEqual(last, first, 1e-6*c.HorizontalLength) {
			t.Errorf("n=%d: ring open, last %v first %v", n, last, first)
		}
		if math.Abs(g.TotalRotation()-2*math.Pi) > 1e-9 {
			t.Errorf("n=%d: total rotation %g", n, g.TotalRotation())
		}
	}
}

func TestAssembleExtents(t *testing.T) {
	c := Defaults()
	g := Assemble(c, vec.Rad(40))
	b := g.Bounds()
	if math.Abs(b.Min.Y) > tol {
		t.Errorf("ring min Y = %g, want 0", b.Min.Y)
	}
	wantH := 2*c.HorizontalStackHeight() + c.VerticalLength
	if math.Abs(g.MaxHeight-wantH) > tol {
		t.Errorf("max height = %g, want %g", g.MaxHeight, wantH)
	}
	if g.MaxRadius <= 0 {
		t.Errorf("max radius = %g", g.MaxRadius)
	}
}

func TestCapUprightsOnlyInArch(t *testing.T) {
	c := Defaults()
	c.Arch.CapUprights = true
	ring := Assemble(c, vec.Rad(30))
	c.Mode = ModeArch
	arch := Assemble(c, vec.Rad(30))
	if got := len(arch.Beams) - len(ring.Beams); got != c.VerticalStack {
		t.Fatalf("cap uprights added %d beams, want %d", got, c.VerticalStack)
	}
	for _, b := range arch.Beams {
		if b.Role == RoleVerticalCap && b.Module != 0 {
			t.Errorf("cap upright on module %d", b.Module)
		}
	}
}

func TestFixedBeamsArePosts(t *testing.T) {
	c := Defaults()
	c.Mode = ModeArch
	c.Arch.FixedBeams = true
	g := Assemble(c, vec.Rad(30))
	var posts int
	for _, b := range g.Beams {
		if b.Role == RoleVertical {
			t.Fatalf("scissor upright %s with fixed beams enabled", b.StackID)
		}
		if b.Role == RoleFixedBeam {
			posts++
			d := vec.Normalize(r3.Sub(b.End, b.Start), r3.Vec{})
			if math.Abs(d.Y-1) > tol {
				t.Errorf("post %s not vertical: %v", b.StackID, d)
			}
		}
	}
	if want := 2 * c.VerticalStack * c.Modules; posts != want {
		t.Errorf("posts = %d, want %d", posts, want)
	}
}

func jointNamed(j ModuleJoints, p r3.Vec) func(ModuleJoints) r3.Vec {
	switch p {
	case j.TopLeft:
		return func(m ModuleJoints) r3.Vec { return m.TopLeft }
	case j.BottomLeft:
		return func(m ModuleJoints) r3.Vec { return m.BottomLeft }
	case j.TopRight:
		return func(m ModuleJoints) r3.Vec { return m.TopRight }
	}
	return func(m ModuleJoints) r3.Vec { return m.BottomRight }
}

func TestArchGroundsAndLevelsFeet(t *testing.T) {
	for _, tt := range []struct {
		name string
		opts ArchOptions
		fold float64
	}{
		{"plain", ArchOptions{}, vec.Rad(20)},
		{"wide", ArchOptions{}, vec.Rad(35)},
		{"flipped", ArchOptions{Flip: true}, vec.Rad(20)},
		{"rotated", ArchOptions{Rotation: vec.Rad(10)}, vec.Rad(20)},
		{"capped", ArchOptions{CapUprights: true}, vec.Rad(25)},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			c.Mode = ModeArch
			c.Arch = tt.opts
			ring := Assemble(c, tt.fold)
			f1, f2 := Feet(ring)
			foot1 := jointNamed(ring.Joints[0], f1)
			foot2 := jointNamed(ring.Joints[len(ring.Joints)-1], f2)

			g := Arch(ring, tt.opts)
			if g.Mode != ModeArch {
				t.Errorf("mode = %s", g.Mode)
			}
			if minY := g.Bounds().Min.Y; math.Abs(minY) > tol {
				t.Errorf("min Y = %g, want 0", minY)
			}
			if len(g.Beams) != len(ring.Beams) {
				t.Fatalf("beam count changed: %d -> %d", len(ring.Beams), len(g.Beams))
			}

			a := foot1(g.Joints[0])
			b := foot2(g.Joints[len(g.Joints)-1])
			if math.Abs(a.Z) > tol || math.Abs(b.Z) > tol {
				t.Errorf("feet off the X axis: %v %v", a, b)
			}
			if tt.opts.Rotation == 0 {
				if math.Abs(a.Y-b.Y) > tol {
					t.Errorf("feet at different heights: %g %g", a.Y, b.Y)
				}
				if math.Abs(a.X+b.X) > tol {
					t.Errorf("feet not centred: %g %g", a.X, b.X)
				}
				rises := g.Center.Y > a.Y
				if rises == tt.opts.Flip {
					t.Errorf("flip=%v: centre Y %g, feet Y %g", tt.opts.Flip, g.Center.Y, a.Y)
				}
			}
		})
	}
}

func TestArchPreservesBeamShape(t *testing.T) {
	c := Defaults()
	c.Mode = ModeArch
	ring := Assemble(c, vec.Rad(30))
	g := Arch(ring, c.Arch)
	for i := range ring.Beams {
		if math.Abs(ring.Beams[i].Length()-g.Beams[i].Length()) > tol {
			t.Fatalf("beam %d length changed", i)
		}
		for k, ax := range g.Beams[i].Axes {
			if math.Abs(r3.Norm(ax)-1) > tol {
				t.Fatalf("beam %d axis %d not unit", i, k)
			}
		}
	}
}

func TestArrayInvariant(t *testing.T) {
	c := Defaults()
	single := Assemble(c, vec.Rad(30))
	b := single.Bounds()
	depth := b.Max.Z - b.Min.Z

	const n = 3
	g := Array(single, n)
	if len(g.Beams) != n*len(single.Beams) || len(g.Brackets) != n*len(single.Brackets) || len(g.Bolts) != n*len(single.Bolts) {
		t.Fatalf("counts %d/%d/%d, want %dx %d/%d/%d", len(g.Beams), len(g.Brackets), len(g.Bolts),
			n, len(single.Beams), len(single.Brackets), len(single.Bolts))
	}
	nb := len(single.Beams)
	for k := 1; k < n; k++ {
		for i := 0; i < nb; i++ {
			prev, cur := g.Beams[(k-1)*nb+i], g.Beams[k*nb+i]
			d := r3.Sub(cur.Center(), prev.Center())
			if math.Abs(d.Z-depth) > tol || math.Abs(d.X) > tol || math.Abs(d.Y) > tol {
				t.Fatalf("copy %d beam %d offset %v, want Z %g", k, i, d, depth)
			}
			if cur.Copy != k {
				t.Fatalf("copy index = %d, want %d", cur.Copy, k)
			}
		}
	}
	mid := g.Beams[1*nb].Center()
	if !vec.ApproxEqual(mid, single.Beams[0].Center(), tol) {
		t.Errorf("array not centred: middle copy at %v, original %v", mid, single.Beams[0].Center())
	}
}

func TestSolveArrayOnlyInRing(t *testing.T) {
	c := Defaults()
	c.ArrayCount = 2
	ring, err := Solve(c, vec.Rad(30))
	if err != nil {
		t.Fatal(err)
	}
	if ring.Copies != 2 {
		t.Errorf("ring copies = %d, want 2", ring.Copies)
	}
	c.Mode = ModeArch
	arch, err := Solve(c, vec.Rad(30))
	if err != nil {
		t.Fatal(err)
	}
	if arch.Copies != 1 {
		t.Errorf("arch copies = %d, want 1", arch.Copies)
	}
}

func moduleCentroid(g *Geometry, mg ModuleGeometry) r3.Vec {
	var pts []r3.Vec
	for _, b := range g.Beams {
		if b.Module == mg.Module && b.Copy == mg.Copy {
			pts = append(pts, b.Center())
		}
	}
	return vec.Centroid(pts)
}

func checkFaces(t *testing.T, g *Geometry) {
	t.Helper()
	for _, mg := range g.ModuleGeometry {
		mc := moduleCentroid(g, mg)
		for _, f := range mg.Faces {
			if math.Abs(r3.Norm(f.Normal)-1) > tol || math.Abs(r3.Norm(f.HeightAxis)-1) > tol {
				t.Fatalf("m%d/%s: axes not unit", f.Module, f.Pattern)
			}
			if math.Abs(r3.Dot(f.Normal, f.WidthAxis)) > tol || math.Abs(r3.Dot(f.Normal, f.HeightAxis)) > tol {
				t.Errorf("m%d/%s: axes not orthogonal to normal", f.Module, f.Pattern)
			}
			if side := r3.Dot(f.Normal, r3.Sub(f.Center, mc)); side <= tol {
				t.Errorf("m%d/%s: normal not pointing away from module centroid (%g)", f.Module, f.Pattern, side)
			}
			if f.Width <= 0 || f.Height <= 0 {
				t.Errorf("m%d/%s: size %gx%g", f.Module, f.Pattern, f.Width, f.Height)
			}
		}
	}
}

func TestFacesPerModule(t *testing.T) {
	c := Defaults()
	g, err := Solve(c, closedFold(c))
	if err != nil {
		t.Fatal(err)
	}
	if len(g.ModuleGeometry) != c.Modules {
		t.Fatalf("module geometry = %d, want %d", len(g.ModuleGeometry), c.Modules)
	}
	if len(g.Faces) != 2*c.Modules {
		t.Fatalf("faces = %d, want %d", len(g.Faces), 2*c.Modules)
	}
	for _, mg := range g.ModuleGeometry {
		for _, i := range []int{mg.TopA, mg.TopB, mg.BottomA, mg.BottomB} {
			if i < 0 {
				t.Fatalf("module %d has an unresolved slot: %+v", mg.Module, mg)
			}
		}
		if g.Beams[mg.TopA].Pattern != PatternA || g.Beams[mg.BottomB].Pattern != PatternB {
			t.Errorf("module %d slots resolved to the wrong patterns", mg.Module)
		}
		if len(mg.Uprights) != c.VerticalStack {
			t.Errorf("module %d uprights = %d", mg.Module, len(mg.Uprights))
		}
		for _, f := range mg.Faces {
			if f.HeightAxis.Y <= 0 {
				t.Errorf("module %d face %s height axis points down", mg.Module, f.Pattern)
			}
		}
	}
	checkFaces(t, g)
}

func TestFacesClearModuleCentroid(t *testing.T) {
	for _, pivot := range []float64{30, 50, 70} {
		for _, mode := range []Mode{ModeRing, ModeArch} {
			c := Defaults()
			c.PivotPercent = pivot
			c.Mode = mode
			g, err := Solve(c, vec.Rad(45))
			if err != nil {
				t.Fatalf("pivot %g %s: %v", pivot, mode, err)
			}
			for _, mg := range g.ModuleGeometry {
				if len(mg.Faces) != 2 {
					t.Fatalf("pivot %g %s: module %d has %d faces", pivot, mode, mg.Module, len(mg.Faces))
				}
				a, b := mg.Faces[0], mg.Faces[1]
				mc := moduleCentroid(g, mg)
				da := r3.Dot(a.Normal, r3.Sub(a.Center, mc))
				db := r3.Dot(b.Normal, r3.Sub(b.Center, mc))
				if da < 1 || db < 1 {
					t.Errorf("pivot %g %s: module %d faces %g and %g from centroid", pivot, mode, mg.Module, da, db)
				}
				// Every corner of the other face lies behind this one.
				for _, p := range b.Corners {
					if d := r3.Dot(a.Normal, r3.Sub(p, a.Center)); d >= 0 {
						t.Errorf("pivot %g %s: module %d faces cross (%g)", pivot, mode, mg.Module, d)
					}
				}
			}
			checkFaces(t, g)
		}
	}
}

func TestFacesArchAndArray(t *testing.T) {
	c := Defaults()
	c.Mode = ModeArch
	g, err := Solve(c, vec.Rad(20))
	if err != nil {
		t.Fatal(err)
	}
	checkFaces(t, g)

	c = Defaults()
	c.ArrayCount = 2
	g, err = Solve(c, vec.Rad(20))
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Faces) != 2*2*c.Modules {
		t.Errorf("array faces = %d", len(g.Faces))
	}
	checkFaces(t, g)
}

func TestFacesPositionalFallback(t *testing.T) {
	c := Defaults()
	g := Assemble(c, vec.Rad(30))
	for i := range g.Beams {
		g.Beams[i].Pattern = ""
	}
	BuildFaces(g)
	if len(g.Faces) != 2*c.Modules {
		t.Fatalf("faces = %d, want %d", len(g.Faces), 2*c.Modules)
	}
	checkFaces(t, g)
}

func TestSolveRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		fold  float64
		field string
	}{
		{"no modules", func(c *Config) { c.Modules = 0 }, vec.Rad(30), "modules"},
		{"negative width", func(c *Config) { c.Horizontal.Width = -1 }, vec.Rad(30), "horizontal.width"},
		{"nan length", func(c *Config) { c.VerticalLength = math.NaN() }, vec.Rad(30), "verticalLength"},
		{"bad mode", func(c *Config) { c.Mode = "dome" }, vec.Rad(30), "mode"},
		{"fold below domain", func(c *Config) {}, 0, "fold"},
		{"fold not finite", func(c *Config) {}, math.Inf(1), "fold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.edit(&c)
			g, err := Solve(c, tt.fold)
			if err == nil {
				t.Fatalf("expected error, got geometry with %d beams", len(g.Beams))
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention %q", err, tt.field)
			}
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	c := Defaults()
	c.Arch.FixedBeams = true
	c.PivotPercent = 0
	res := Validate(c)
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	var fields []string
	for _, w := range res.Warnings {
		fields = append(fields, w.Field)
	}
	joined := strings.Join(fields, ",")
	for _, want := range []string{"arch", "pivotPercent"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing warning for %s in %v", want, fields)
		}
	}
}

func TestKeyTracksEveryField(t *testing.T) {
	base := Defaults()
	k := Key(base, 0.5)
	if Key(base, 0.5) != k {
		t.Fatal("key not stable")
	}
	if Key(base, 0.6) == k {
		t.Error("fold angle not part of key")
	}
	edits := []func(*Config){
		func(c *Config) { c.Modules++ },
		func(c *Config) { c.StackGap = 3 },
		func(c *Config) { c.Arch.Flip = true },
		func(c *Config) { c.Bolt.Overhang = 1 },
	}
	for i, edit := range edits {
		c := base
		edit(&c)
		if Key(c, 0.5) == k {
			t.Errorf("edit %d did not change the key", i)
		}
	}
}

func TestCache(t *testing.T) {
	c := Defaults()
	cache := NewCache(2)

	g1, err := cache.Solve(c, vec.Rad(30))
	if err != nil {
		t.Fatal(err)
	}
	g2, err := cache.Solve(c, vec.Rad(30))
	if err != nil {
		t.Fatal(err)
	}
	if g1 != g2 {
		t.Error("second solve was not served from the cache")
	}
	if hits, misses := cache.Stats(); hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits %d misses", hits, misses)
	}

	if _, err := cache.Solve(c, vec.Rad(31)); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Solve(c, vec.Rad(32)); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 2 {
		t.Fatalf("len = %d, want 2", cache.Len())
	}
	if _, ok := cache.Get(Key(c, vec.Rad(30))); ok {
		t.Error("oldest entry survived eviction")
	}

	cache.Evict(Key(c, vec.Rad(32)))
	if cache.Len() != 1 {
		t.Errorf("len after evict = %d", cache.Len())
	}
	cache.Purge()
	if cache.Len() != 0 {
		t.Errorf("len after purge = %d", cache.Len())
	}

	if _, err := cache.Solve(Config{}, vec.Rad(30)); err == nil {
		t.Error("invalid config was cached")
	}
	if cache.Len() != 0 {
		t.Error("failed solve left an entry")
	}
}
