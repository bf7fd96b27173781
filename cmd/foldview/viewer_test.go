package main

import (
	"math"
	"strings"
	"testing"

	applog "github.com/chazu/foldframe/internal/log"
	"github.com/chazu/foldframe/pkg/collision"
	"github.com/chazu/foldframe/pkg/engine"
	"github.com/chazu/foldframe/pkg/search"
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	"github.com/gdamore/tcell/v2"
)

// recorder keeps the last rune and style drawn in each cell.
type recorder struct {
	tcell.Screen
	cells map[[2]int]recorded
}

type recorded struct {
	r     rune
	style tcell.Style
}

func (r *recorder) Clear() {
	r.cells = map[[2]int]recorded{}
	r.Screen.Clear()
}

func (r *recorder) SetContent(x, y int, primary rune, combining []rune, style tcell.Style) {
	r.cells[[2]int{x, y}] = recorded{primary, style}
	r.Screen.SetContent(x, y, primary, combining, style)
}

func (r *recorder) row(y int) string {
	w, _ := r.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		if c, ok := r.cells[[2]int{x, y}]; ok {
			b.WriteRune(c.r)
		}
	}
	return b.String()
}

func (r *recorder) count(fg tcell.Color) int {
	n := 0
	for _, c := range r.cells {
		if c.r != '#' {
			continue
		}
		if f, _, _ := c.style.Decompose(); f == fg {
			n++
		}
	}
	return n
}

func newTestViewer(t *testing.T, d *engine.Design) (*Viewer, *recorder) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	if err := sim.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	sim.SetSize(100, 40)
	t.Cleanup(sim.Fini)

	s := search.New()
	s.Logger = applog.Discard()
	screen := &recorder{Screen: sim, cells: map[[2]int]recorded{}}
	return NewViewer(screen, d, s), screen
}

func ringDesign(modules int, foldDeg float64) *engine.Design {
	d := engine.NewDesign()
	d.Config.Modules = modules
	d.Fold = vec.Rad(foldDeg)
	d.HasFold = true
	return d
}

func key(k tcell.Key) *tcell.EventKey { return tcell.NewEventKey(k, 0, tcell.ModNone) }

func runeKey(r rune) *tcell.EventKey { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

func TestArrowKeysChangeFold(t *testing.T) {
	v, _ := newTestViewer(t, ringDesign(8, 40))
	start := v.fold

	v.HandleEvent(key(tcell.KeyRight))
	if math.Abs(vec.Deg(v.fold-start)-fineStep) > 1e-9 {
		t.Errorf("right: fold moved %g deg", vec.Deg(v.fold-start))
	}
	v.HandleEvent(key(tcell.KeyLeft))
	v.HandleEvent(key(tcell.KeyLeft))
	if math.Abs(vec.Deg(v.fold-start)+fineStep) > 1e-9 {
		t.Errorf("left: fold moved %g deg", vec.Deg(v.fold-start))
	}
	v.HandleEvent(key(tcell.KeyPgUp))
	if math.Abs(vec.Deg(v.fold-start)-(coarseStep-fineStep)) > 1e-9 {
		t.Errorf("pgup: fold moved %g deg", vec.Deg(v.fold-start))
	}
}

func TestFoldIsClamped(t *testing.T) {
	v, _ := newTestViewer(t, ringDesign(8, 2))
	for i := 0; i < 20; i++ {
		v.HandleEvent(key(tcell.KeyPgDn))
	}
	lo, _ := structure.FoldDomain()
	if v.fold < lo {
		t.Errorf("fold %g below domain %g", v.fold, lo)
	}
	if v.geom == nil {
		t.Error("no geometry at the domain edge")
	}
}

func TestQuitKeys(t *testing.T) {
	v, _ := newTestViewer(t, ringDesign(8, 40))
	for _, ev := range []*tcell.EventKey{key(tcell.KeyEscape), key(tcell.KeyCtrlC), runeKey('q')} {
		if v.HandleEvent(ev) {
			t.Errorf("%v did not quit", ev.Name())
		}
	}
	if !v.HandleEvent(runeKey('x')) {
		t.Error("unbound key quit")
	}
}

func TestCloseKeyJumpsToClosingAngle(t *testing.T) {
	v, _ := newTestViewer(t, ringDesign(6, 40))
	v.HandleEvent(runeKey('c'))
	if math.Abs(vec.Deg(v.fold)-60) > 0.01 {
		t.Errorf("fold after c = %.3f deg, want 60", vec.Deg(v.fold))
	}
	if !strings.Contains(v.message, "closed") {
		t.Errorf("message = %q", v.message)
	}
}

func TestSafeKeyClearsCollisions(t *testing.T) {
	d := ringDesign(8, 40)
	v, _ := newTestViewer(t, d)

	// Overfold until something collides.
	for i := 0; i < 40 && len(v.records) == 0; i++ {
		v.HandleEvent(key(tcell.KeyPgUp))
	}
	if len(v.records) == 0 {
		t.Skip("no colliding fold reached")
	}
	v.HandleEvent(runeKey('s'))
	if len(v.records) != 0 && !strings.Contains(v.message, "no safe") {
		t.Errorf("after s: %d collisions, message %q", len(v.records), v.message)
	}
}

func TestDrawMarksCollisionsRed(t *testing.T) {
	v, screen := newTestViewer(t, ringDesign(8, 40))
	v.Draw()
	if screen.count(tcell.ColorWhite) == 0 {
		t.Fatal("no beams drawn")
	}
	if screen.count(tcell.ColorRed) != 0 && len(v.records) == 0 {
		t.Error("red cells without collisions")
	}

	v.records = []collision.Record{{Kind: collision.KindOverFolding, A: 0, B: 1}}
	v.Draw()
	if screen.count(tcell.ColorRed) == 0 {
		t.Error("colliding beams not drawn red")
	}

	status := screen.row(0)
	if !strings.Contains(status, "fold 40.00 deg") || !strings.Contains(status, "1 collisions") {
		t.Errorf("status line = %q", status)
	}
}

func TestViewToggle(t *testing.T) {
	v, screen := newTestViewer(t, ringDesign(8, 40))
	v.HandleEvent(runeKey('v'))
	v.Draw()
	if !strings.Contains(screen.row(0), "plan") {
		t.Errorf("status after toggle = %q", screen.row(0))
	}
	v.HandleEvent(runeKey('v'))
	v.Draw()
	if !strings.Contains(screen.row(0), "elevation") {
		t.Errorf("status after second toggle = %q", screen.row(0))
	}
}
