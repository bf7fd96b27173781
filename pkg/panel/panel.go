// Package panel lays flat rectangular panels onto the faces of a solved
// structure.
package panel

import (
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// Config controls panel layout. Lengths are in millimetres.
type Config struct {
	Enabled   bool    `json:"enabled" yaml:"enabled"`
	Rows      int     `json:"rows" yaml:"rows"`
	Cols      int     `json:"cols" yaml:"cols"`
	Width     float64 `json:"width" yaml:"width"`
	Height    float64 `json:"height" yaml:"height"`
	Thickness float64 `json:"thickness" yaml:"thickness"`
	SpacingX  float64 `json:"spacingX" yaml:"spacing_x"`
	SpacingY  float64 `json:"spacingY" yaml:"spacing_y"`

	// Offsets applied from the face centre, in this order.
	Separation float64 `json:"separation" yaml:"separation"` // along the height axis, + for A faces, - for B
	Slide      float64 `json:"slide" yaml:"slide"`           // along the face slide axis
	Lift       float64 `json:"lift" yaml:"lift"`             // along the face normal
}

// Defaults returns a disabled single-panel layout.
func Defaults() Config {
	return Config{
		Rows:      1,
		Cols:      1,
		Width:     600,
		Height:    1200,
		Thickness: 12,
		SpacingX:  10,
		SpacingY:  10,
		Lift:      30,
	}
}

// Panel is one placed panel. Its orientation is the face's local frame.
type Panel struct {
	Module  int
	Copy    int
	Pattern structure.Pattern
	Row     int
	Col     int

	Center     r3.Vec
	WidthAxis  r3.Vec
	HeightAxis r3.Vec
	Normal     r3.Vec
	Width      float64
	Height     float64
	Thickness  float64
}

// Corners returns the four outer corners of the panel's mid-plane.
func (p Panel) Corners() [4]r3.Vec {
	hw := r3.Scale(p.Width/2, p.WidthAxis)
	hh := r3.Scale(p.Height/2, p.HeightAxis)
	return [4]r3.Vec{
		r3.Sub(r3.Sub(p.Center, hw), hh),
		r3.Sub(r3.Add(p.Center, hw), hh),
		r3.Add(r3.Add(p.Center, hw), hh),
		r3.Add(r3.Sub(p.Center, hw), hh),
	}
}

// PlaceOnFace lays out a rows×cols grid on f. The grid origin starts at the
// face centre and is moved by the separation, slide and lift offsets before
// the grid is centred around it.
func PlaceOnFace(f structure.Face, c Config) []Panel {
	rows, cols := c.Rows, c.Cols
	if rows < 1 || cols < 1 {
		return nil
	}

	origin := f.Center
	sep := c.Separation
	if f.Pattern == structure.PatternB {
		sep = -sep
	}
	origin = r3.Add(origin, r3.Scale(sep, f.HeightAxis))
	origin = r3.Add(origin, r3.Scale(c.Slide, f.SlideAxis))
	origin = r3.Add(origin, r3.Scale(c.Lift, f.Normal))

	stepX := c.Width + c.SpacingX
	stepY := c.Height + c.SpacingY
	x0 := -float64(cols-1) * stepX / 2
	y0 := -float64(rows-1) * stepY / 2

	panels := make([]Panel, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			at := r3.Add(origin, r3.Scale(x0+float64(col)*stepX, f.WidthAxis))
			at = r3.Add(at, r3.Scale(y0+float64(r)*stepY, f.HeightAxis))
			panels = append(panels, Panel{
				Module:     f.Module,
				Copy:       f.Copy,
				Pattern:    f.Pattern,
				Row:        r,
				Col:        col,
				Center:     at,
				WidthAxis:  f.WidthAxis,
				HeightAxis: f.HeightAxis,
				Normal:     f.Normal,
				Width:      c.Width,
				Height:     c.Height,
				Thickness:  c.Thickness,
			})
		}
	}
	return panels
}

// PlaceAll places panels on every face of g. It returns nil when panels
// are disabled.
func PlaceAll(g *structure.Geometry, c Config) []Panel {
	if !c.Enabled || g == nil {
		return nil
	}
	var out []Panel
	for _, f := range g.Faces {
		out = append(out, PlaceOnFace(f, c)...)
	}
	return out
}

// Area returns the total panel area in square metres.
func Area(panels []Panel) float64 {
	var a float64
	for _, p := range panels {
		a += p.Width * p.Height / 1e6
	}
	return a
}

// FitsFace reports whether the grid described by c fits within the face
// without overhang.
func FitsFace(f structure.Face, c Config) bool {
	w := float64(c.Cols)*c.Width + float64(c.Cols-1)*c.SpacingX
	h := float64(c.Rows)*c.Height + float64(c.Rows-1)*c.SpacingY
	return w <= f.Width+vec.Epsilon && h <= f.Height+vec.Epsilon
}
