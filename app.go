package main

import (
	"log/slog"
	"strings"

	applog "github.com/chazu/foldframe/internal/log"
	"github.com/chazu/foldframe/pkg/collision"
	"github.com/chazu/foldframe/pkg/engine"
	"github.com/chazu/foldframe/pkg/kernel"
	"github.com/chazu/foldframe/pkg/kernel/sdfx"
	"github.com/chazu/foldframe/pkg/panel"
	"github.com/chazu/foldframe/pkg/search"
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/tessellate"
	"github.com/chazu/foldframe/pkg/vec"
)

// colorPalette is a default palette used to assign distinct colors to beam roles.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#1ABC9C", "#F39C12", "#3498DB",
}

const (
	colorCollision = "#E74C3C"
	colorBracket   = "#7F8C8D"
	colorBolt      = "#2C3E50"
	colorPanel     = "#AED6F1"
)

// boltCells is the marching-cubes resolution for bolt templates.
const boltCells = 48

// App ties the pipeline together: design source → design → geometry →
// collisions → meshes.
type App struct {
	engine   *engine.Engine
	kernel   kernel.Kernel
	searcher *search.Searcher
	log      *slog.Logger
}

// MeshData is the JSON-serializable mesh format written by the mesh command.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Kind     string    `json:"kind"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Summary describes a solved structure.
type Summary struct {
	Name            string  `json:"name,omitempty"`
	Mode            string  `json:"mode"`
	Modules         int     `json:"modules"`
	Copies          int     `json:"copies"`
	FoldDegrees     float64 `json:"foldDegrees"`
	RotationDegrees float64 `json:"rotationDegrees"`
	Beams           int     `json:"beams"`
	Brackets        int     `json:"brackets"`
	Bolts           int     `json:"bolts"`
	Panels          int     `json:"panels"`
	MaxRadius       float64 `json:"maxRadius"`
	MaxHeight       float64 `json:"maxHeight"`
}

// EvalResult is the full result of evaluating and rendering a design.
type EvalResult struct {
	Meshes     []MeshData         `json:"meshes"`
	Errors     []EvalErrorData    `json:"errors"`
	Warnings   []EvalErrorData    `json:"warnings"`
	Collisions []collision.Record `json:"collisions"`
	Summary    *Summary           `json:"summary,omitempty"`
}

// Solved is a design folded to its angle.
type Solved struct {
	Design     *engine.Design
	Geometry   *structure.Geometry
	Panels     []panel.Panel
	Collisions []collision.Record
}

// NewApp creates an App with a default searcher and the sdfx kernel.
func NewApp() *App {
	return NewAppWith(search.New())
}

// NewAppWith creates an App whose engine and solves go through s.
func NewAppWith(s *search.Searcher) *App {
	return &App{
		engine:   engine.NewEngineWith(s),
		kernel:   sdfx.NewWithResolution(boltCells),
		searcher: s,
		log:      applog.WithComponent("app"),
	}
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:     []MeshData{},
		Errors:     []EvalErrorData{},
		Warnings:   []EvalErrorData{},
		Collisions: []collision.Record{},
	}
}

// Evaluate takes design source and returns meshes, collisions and errors.
// Blank source renders nothing.
func (a *App) Evaluate(source string) EvalResult {
	result := newResult()
	if strings.TrimSpace(source) == "" {
		return result
	}

	// Step 1: Evaluate the source into a design.
	d, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error("evaluate fatal error", slog.Any("err", err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	return a.Render(d, tessellate.DefaultOptions())
}

// Render solves d and tessellates the result.
func (a *App) Render(d *engine.Design, opts tessellate.Options) EvalResult {
	result := newResult()
	for _, w := range d.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Field + ": " + w.Message})
	}

	// Step 3: Fold the structure and look for collisions.
	s, err := a.Solve(d)
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: "solve failed: " + err.Error()})
		return result
	}
	result.Collisions = append(result.Collisions, s.Collisions...)
	result.Summary = s.Summary()

	// Step 4: Tessellate every part.
	meshes, err := tessellate.Tessellate(s.Geometry, s.Panels, a.kernel, opts)
	if err != nil {
		a.log.Error("tessellate error", slog.Any("err", err))
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}

	// Step 5: Convert kernel meshes to MeshData.
	colliding := collision.Colliding(s.Collisions)
	roles := map[structure.Role]string{}
	for i, m := range meshes {
		color := colorPanel
		switch m.Kind {
		case tessellate.KindBeam:
			// Beams come first, in geometry order, unless a copy filter applies.
			b, idx := beamFor(s.Geometry, m.PartName, i)
			if c, ok := roles[b.Role]; ok {
				color = c
			} else {
				color = colorPalette[len(roles)%len(colorPalette)]
				roles[b.Role] = color
			}
			if colliding[idx] {
				color = colorCollision
			}
		case tessellate.KindBracket:
			color = colorBracket
		case tessellate.KindBolt:
			color = colorBolt
		}
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Kind:     m.Kind,
			Color:    color,
		})
	}
	return result
}

// beamFor finds the beam a mesh was built from. Mesh names carry the beam
// index; guess is tried first.
func beamFor(g *structure.Geometry, name string, guess int) (structure.Beam, int) {
	if guess < len(g.Beams) && g.Beams[guess].Name(guess) == name {
		return g.Beams[guess], guess
	}
	for i, b := range g.Beams {
		if b.Name(i) == name {
			return b, i
		}
	}
	return structure.Beam{}, -1
}

// Solve folds d to its angle, places panels and detects collisions.
func (a *App) Solve(d *engine.Design) (*Solved, error) {
	fold := d.FoldOr(vec.Rad(engine.DefaultFoldDegrees))
	if err := structure.ValidateFold(fold); err != nil {
		return nil, err
	}
	g, err := a.searcher.Solver.Solve(d.Config, fold)
	if err != nil {
		return nil, err
	}
	var panels []panel.Panel
	if d.Panels.Enabled {
		panels = panel.PlaceAll(g, d.Panels)
	}
	records := a.searcher.Detector.Detect(g, d.Config)
	a.log.Debug("solved",
		slog.Float64("deg", vec.Deg(fold)),
		slog.Int("beams", len(g.Beams)),
		slog.Int("collisions", len(records)))
	return &Solved{Design: d, Geometry: g, Panels: panels, Collisions: records}, nil
}

// Summary describes s.
func (s *Solved) Summary() *Summary {
	g := s.Geometry
	return &Summary{
		Name:            s.Design.Name,
		Mode:            string(g.Mode),
		Modules:         g.Modules,
		Copies:          g.Copies,
		FoldDegrees:     vec.Deg(g.FoldAngle),
		RotationDegrees: vec.Deg(g.TotalRotation()),
		Beams:           len(g.Beams),
		Brackets:        len(g.Brackets),
		Bolts:           len(g.Bolts),
		Panels:          len(s.Panels),
		MaxRadius:       g.MaxRadius,
		MaxHeight:       g.MaxHeight,
	}
}
