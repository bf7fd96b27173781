package main

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/chazu/foldframe/internal/export"
	applog "github.com/chazu/foldframe/internal/log"
	"github.com/chazu/foldframe/pkg/collision"
	"github.com/chazu/foldframe/pkg/engine"
	"github.com/chazu/foldframe/pkg/linkage"
	"github.com/chazu/foldframe/pkg/search"
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	"github.com/gdamore/tcell/v2"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	fineStep   = 0.5 // degrees per arrow key
	coarseStep = 5.0 // degrees per page key

	// cellAspect widens the horizontal axis since terminal cells are about
	// twice as tall as wide.
	cellAspect = 2.0
)

var (
	styleBeam      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleCollision = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleStatus    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorLightGray)
	styleHelp      = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Viewer draws one design folded to an adjustable angle.
type Viewer struct {
	screen   tcell.Screen
	design   *engine.Design
	searcher *search.Searcher
	log      *slog.Logger

	fold     float64
	view     export.View
	geom     *structure.Geometry
	records  []collision.Record
	message  string
	solveErr error
}

// NewViewer prepares a viewer on an initialized screen.
func NewViewer(screen tcell.Screen, d *engine.Design, s *search.Searcher) *Viewer {
	v := &Viewer{
		screen:   screen,
		design:   d,
		searcher: s,
		log:      applog.WithComponent("viewer"),
		fold:     d.FoldOr(vec.Rad(engine.DefaultFoldDegrees)),
		view:     export.Elevation,
	}
	v.recompute()
	return v
}

func (v *Viewer) recompute() {
	v.fold = linkage.ClampFold(v.fold)
	g, err := v.searcher.Solver.Solve(v.design.Config, v.fold)
	v.solveErr = err
	if err != nil {
		v.geom, v.records = nil, nil
		v.log.Warn("solve failed", slog.Float64("deg", vec.Deg(v.fold)), slog.Any("err", err))
		return
	}
	v.geom = g
	v.records = v.searcher.Detector.Detect(g, v.design.Config)
}

func (v *Viewer) setFold(fold float64) {
	prev := v.fold
	v.fold = fold
	v.recompute()
	v.log.Debug("fold", slog.Float64("from_deg", vec.Deg(prev)), slog.Float64("to_deg", vec.Deg(v.fold)))
}

// HandleEvent applies one event and reports whether the viewer should keep
// running.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyLeft, tcell.KeyDown:
			v.message = ""
			v.setFold(v.fold - vec.Rad(fineStep))
		case tcell.KeyRight, tcell.KeyUp:
			v.message = ""
			v.setFold(v.fold + vec.Rad(fineStep))
		case tcell.KeyPgDn:
			v.message = ""
			v.setFold(v.fold - vec.Rad(coarseStep))
		case tcell.KeyPgUp:
			v.message = ""
			v.setFold(v.fold + vec.Rad(coarseStep))
		case tcell.KeyRune:
			return v.handleRune(ev.Rune())
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func (v *Viewer) handleRune(r rune) bool {
	switch r {
	case 'q':
		return false
	case 'v':
		if v.view == export.Plan {
			v.view = export.Elevation
		} else {
			v.view = export.Plan
		}
	case 'c':
		a, ok := v.searcher.FindOptimalClosedAngle(v.design.Config, v.fold)
		if !ok {
			v.message = "no closing angle"
			return true
		}
		v.setFold(a)
		v.message = fmt.Sprintf("closed at %.2f deg", vec.Deg(a))
	case 's':
		a, ok := v.searcher.FindSafeFoldAngle(v.design.Config, v.fold, v.fold)
		if !ok {
			v.message = "no safe angle within range"
			return true
		}
		v.setFold(a)
		v.message = fmt.Sprintf("safe at %.2f deg", vec.Deg(a))
	}
	return true
}

// Draw renders the current state.
func (v *Viewer) Draw() {
	s := v.screen
	s.Clear()
	w, h := s.Size()

	status := fmt.Sprintf(" fold %.2f deg  %s  %d collisions", vec.Deg(v.fold), v.view, len(v.records))
	if v.geom != nil {
		status += fmt.Sprintf("  rot %.2f deg  r %.0f mm", vec.Deg(v.geom.TotalRotation()), v.geom.MaxRadius)
	}
	if v.message != "" {
		status += "  " + v.message
	}
	if v.solveErr != nil {
		status += "  error: " + v.solveErr.Error()
	}
	drawText(s, 0, 0, w, styleStatus, status)
	drawText(s, 0, h-1, w, styleHelp, " arrows fold  pgup/pgdn x10  c close  s safe  v view  q quit")

	if v.geom != nil && h > 3 {
		colliding := collision.Colliding(v.records)
		outlines := export.Outlines(v.geom, v.view, -1)
		fr := export.Fit(outlines, 0, 1, float64(w-1), float64(h-3), cellAspect)
		// Colliding beams last so they stay visible.
		for _, pass := range [2]bool{false, true} {
			for _, o := range outlines {
				if colliding[o.Beam] != pass {
					continue
				}
				style := styleBeam
				if pass {
					style = styleCollision
				}
				drawOutline(s, fr, o.Points, style)
			}
		}
	}
	s.Show()
}

func drawOutline(s tcell.Screen, fr export.Frame, pts []r2.Vec, style tcell.Style) {
	for i := range pts {
		a := fr.Map(pts[i])
		b := fr.Map(pts[(i+1)%len(pts)])
		drawLine(s, a, b, style)
	}
}

// drawLine rasterizes a segment with Bresenham's algorithm.
func drawLine(s tcell.Screen, a, b r2.Vec, style tcell.Style) {
	x0, y0 := int(math.Round(a.X)), int(math.Round(a.Y))
	x1, y1 := int(math.Round(b.X)), int(math.Round(b.Y))
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		s.SetContent(x0, y0, '#', nil, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawText(s tcell.Screen, x, y, width int, style tcell.Style, text string) {
	col := x
	for _, r := range text {
		if col >= x+width {
			return
		}
		s.SetContent(col, y, r, nil, style)
		col++
	}
	for ; col < x+width; col++ {
		s.SetContent(col, y, ' ', nil, style)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
