package main

import (
	"math"
	"testing"

	"github.com/chazu/foldframe/pkg/engine"
	"github.com/chazu/foldframe/pkg/tessellate"
)

func mustDesign(t *testing.T, app *App, source string) *engine.Design {
	t.Helper()
	d, evalErrs, err := app.engine.Evaluate(source)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return d
}

// ---------------------------------------------------------------------------
// Rapid evaluation: alternating valid and invalid sources must not panic and
// must not leak state between runs.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	app := newTestApp(t)

	sources := []string{
		`(structure :modules 6) (fold 40)`,
		`(structure :modules`,
		``,
		`(undefined-func 1 2 3)`,
		`(structure :modules 9 :pivot-percent 40)`,
		`;; just a comment`,
		`(fold 200)`,
		`(structure :modules 5) (fold 50)`,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			_ = app.Evaluate(source)
		}()
	}

	last := app.Evaluate(sources[len(sources)-1])
	mustRender(t, last)
	if last.Summary.Modules != 5 {
		t.Errorf("modules = %d after rapid runs, want 5", last.Summary.Modules)
	}
}

// ---------------------------------------------------------------------------
// Comments: a comment-only program is the default design.
// ---------------------------------------------------------------------------

func TestE2ECommentsOnly(t *testing.T) {
	app := newTestApp(t)

	source := `
;; This is a comment
  ; indented	with tabs
`
	result := app.Evaluate(source)
	mustRender(t, result)

	if result.Summary.Modules != 8 || result.Summary.Mode != "ring" {
		t.Errorf("summary = %+v, want the default ring", result.Summary)
	}
	if math.Abs(result.Summary.FoldDegrees-40) > 1e-9 {
		t.Errorf("fold = %g, want the default 40", result.Summary.FoldDegrees)
	}
}

// ---------------------------------------------------------------------------
// Arithmetic: defs feed builtin options.
// ---------------------------------------------------------------------------

func TestE2EArithmeticDefs(t *testing.T) {
	app := newTestApp(t)

	source := `
(def n (* 2 5))
(def span 2400)
(structure :modules n
           :horizontal-length (/ span 2)
           :vertical-length (- span 400))
(fold (/ 360.0 n))
`
	result := app.Evaluate(source)
	mustRender(t, result)

	if result.Summary.Modules != 10 {
		t.Errorf("modules = %d, want 10", result.Summary.Modules)
	}
	if math.Abs(result.Summary.FoldDegrees-36) > 1e-9 {
		t.Errorf("fold = %g, want 36", result.Summary.FoldDegrees)
	}
}

func TestE2EFoldOutsideDomain(t *testing.T) {
	app := newTestApp(t)
	for _, src := range []string{`(fold 0)`, `(fold 180)`, `(fold -5)`} {
		if r := app.Evaluate(src); len(r.Errors) == 0 {
			t.Errorf("%s: expected an error", src)
		}
	}
}

// ---------------------------------------------------------------------------
// Large structures: many modules and long beams still mesh.
// ---------------------------------------------------------------------------

func TestE2ELargeStructure(t *testing.T) {
	app := newTestApp(t)

	source := `(structure :modules 24 :horizontal-length 10000 :vertical-length 14000) (fold 20)`
	result := app.Render(mustDesign(t, app, source), tessellate.Options{Brackets: true, Copy: -1})
	mustRender(t, result)

	if got := kinds(result.Meshes)[tessellate.KindBeam]; got != result.Summary.Beams {
		t.Errorf("beam meshes = %d, want %d", got, result.Summary.Beams)
	}
	for _, m := range result.Meshes {
		for _, v := range m.Vertices {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("%s: non-finite vertex", m.PartName)
			}
		}
	}
}

func TestE2EArrayCopies(t *testing.T) {
	app := newTestApp(t)

	source := `(structure :modules 4 :array-count 3) (fold 45)`
	all := app.Render(mustDesign(t, app, source), tessellate.Options{Copy: -1})
	mustRender(t, all)
	if all.Summary.Copies != 3 {
		t.Fatalf("copies = %d, want 3", all.Summary.Copies)
	}

	one := app.Render(mustDesign(t, app, source), tessellate.Options{Copy: 1})
	mustRender(t, one)
	if 3*len(one.Meshes) != len(all.Meshes) {
		t.Errorf("copy 1 has %d meshes, all copies %d", len(one.Meshes), len(all.Meshes))
	}
}
