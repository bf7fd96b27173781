package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/chazu/foldframe/pkg/collision"
	"github.com/chazu/foldframe/pkg/panel"
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

// PNGOptions controls raster previews. Sizes are pixels.
type PNGOptions struct {
	Width, Height int
	View          View
	Copy          int // array copy to draw, -1 for all
	Background    color.NRGBA
	Beam          color.NRGBA
	Collision     color.NRGBA
	Panel         color.NRGBA
	IncludePanels bool
	Label         bool
}

// DefaultPNGOptions is a 1200×800 elevation with a caption.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{
		Width:         1200,
		Height:        800,
		View:          Elevation,
		Copy:          -1,
		Background:    color.NRGBA{255, 255, 255, 255},
		Beam:          color.NRGBA{74, 144, 217, 255},
		Collision:     color.NRGBA{231, 76, 60, 255},
		Panel:         color.NRGBA{174, 214, 241, 160},
		IncludePanels: true,
		Label:         true,
	}
}

const (
	pngMargin = 16
	pngLabelH = 22
)

// ExportPNG writes a preview of the report to path, creating the directory.
func ExportPNG(path string, r Report, opt PNGOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := WritePNG(f, r, opt); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WritePNG encodes a preview of the report to w.
func WritePNG(w io.Writer, r Report, opt PNGOptions) error {
	img, err := Rasterize(r, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Rasterize draws the report's structure as filled beam outlines, colliding
// beams on top.
func Rasterize(r Report, opt PNGOptions) (*image.NRGBA, error) {
	g := r.Geometry
	if g == nil {
		return nil, fmt.Errorf("report has no geometry")
	}
	if opt.Width < 2*pngMargin+pngLabelH || opt.Height < 2*pngMargin+pngLabelH {
		return nil, fmt.Errorf("image %dx%d too small", opt.Width, opt.Height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, opt.Width, opt.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(opt.Background), image.Point{}, draw.Src)

	top := 0
	if opt.Label {
		top = pngLabelH
	}
	outlines := Outlines(g, opt.View, opt.Copy)
	fr := Fit(outlines, pngMargin, float64(top+pngMargin),
		float64(opt.Width-2*pngMargin), float64(opt.Height-top-2*pngMargin), 1)

	var ras vector.Rasterizer
	if opt.IncludePanels {
		for _, p := range r.Panels {
			if opt.Copy >= 0 && p.Copy != opt.Copy {
				continue
			}
			fillOutline(&ras, img, fr, panelOutline(p, opt.View), opt.Panel)
		}
	}
	colliding := collision.Colliding(r.Collisions)
	for _, pass := range [2]bool{false, true} {
		for _, o := range outlines {
			if colliding[o.Beam] != pass {
				continue
			}
			c := opt.Beam
			if pass {
				c = opt.Collision
			}
			fillOutline(&ras, img, fr, o.Points, c)
		}
	}

	if opt.Label {
		caption(img, r, g, opt)
	}
	return img, nil
}

func panelOutline(p panel.Panel, v View) []r2.Vec {
	c := p.Corners()
	pts := make([]r2.Vec, 0, len(c))
	for _, q := range c {
		pts = append(pts, v.Project(q))
	}
	return Hull(pts)
}

// fillOutline rasterizes one polygon inside its own bounding box.
func fillOutline(ras *vector.Rasterizer, dst draw.Image, fr Frame, pts []r2.Vec, c color.NRGBA) {
	if len(pts) < 3 {
		return
	}
	mapped := make([]r2.Vec, len(pts))
	lo := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for i, p := range pts {
		q := fr.Map(p)
		mapped[i] = q
		lo = r2.Vec{X: math.Min(lo.X, q.X), Y: math.Min(lo.Y, q.Y)}
		hi = r2.Vec{X: math.Max(hi.X, q.X), Y: math.Max(hi.Y, q.Y)}
	}
	box := image.Rect(int(math.Floor(lo.X)), int(math.Floor(lo.Y)),
		int(math.Ceil(hi.X))+1, int(math.Ceil(hi.Y))+1)
	if box.Intersect(dst.Bounds()).Empty() {
		return
	}

	ras.Reset(box.Dx(), box.Dy())
	ras.DrawOp = draw.Over
	for i, q := range mapped {
		x, y := float32(q.X-float64(box.Min.X)), float32(q.Y-float64(box.Min.Y))
		if i == 0 {
			ras.MoveTo(x, y)
			continue
		}
		ras.LineTo(x, y)
	}
	ras.ClosePath()
	ras.Draw(dst, box, image.NewUniform(c), image.Point{})
}

func caption(img *image.NRGBA, r Report, g *structure.Geometry, opt PNGOptions) {
	text := fmt.Sprintf("%s  %s  fold %.2f deg  %d modules  %d collisions",
		r.Title, opt.View, vec.Deg(g.FoldAngle), g.Modules, len(r.Collisions))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{40, 40, 40, 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(pngMargin, pngMargin+basicfont.Face7x13.Ascent),
	}
	d.DrawString(text)
}
