// Package export renders solved structures for people: a PDF sheet with
// plan and elevation drawings, the bill of materials and any collisions,
// plus the 2D projections shared with the terminal viewer.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chazu/foldframe/pkg/bom"
	"github.com/chazu/foldframe/pkg/collision"
	"github.com/chazu/foldframe/pkg/panel"
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	"github.com/jung-kurt/gofpdf"
)

// Color is an RGB triple.
type Color struct{ R, G, B int }

// Report is everything drawn on the sheet.
type Report struct {
	Title      string
	Config     structure.Config
	Geometry   *structure.Geometry
	Panels     []panel.Panel
	Bill       bom.Bill
	Collisions []collision.Record
}

// PDFOptions controls PDF export. Units are millimetres on an A4
// landscape page.
type PDFOptions struct {
	BeamStroke     Color
	CollisionFill  Color
	IncludePanels  bool
	IncludeBOM     bool
	Copy           int // array copy to draw, -1 for all
	LineWidth      float64
	CollisionLimit int // collision rows listed, 0 for all
}

// DefaultPDFOptions draws everything.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		BeamStroke:    Color{40, 40, 40},
		CollisionFill: Color{220, 40, 40},
		IncludePanels: true,
		IncludeBOM:    true,
		Copy:          -1,
		LineWidth:     0.2,
	}
}

const (
	pageMargin = 12.0
	headerH    = 22.0
)

// ExportPDF writes the report to path, creating the directory.
func ExportPDF(path string, r Report, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := WritePDF(f, r, opt); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WritePDF renders the report to w.
func WritePDF(w io.Writer, r Report, opt PDFOptions) error {
	g := r.Geometry
	if g == nil {
		return fmt.Errorf("report has no geometry")
	}
	if opt.LineWidth <= 0 {
		opt.LineWidth = 0.2
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(r.Title, false)
	pdf.SetAuthor("foldframe", false)
	pdf.SetFont("Helvetica", "", 10)

	pageW, pageH := pdf.GetPageSize()
	pdf.AddPage()
	header(pdf, r)

	colliding := collision.Colliding(r.Collisions)
	viewW := (pageW - 3*pageMargin) / 2
	viewH := pageH - 2*pageMargin - headerH
	for i, v := range []View{Plan, Elevation} {
		x := pageMargin + float64(i)*(viewW+pageMargin)
		y := pageMargin + headerH
		drawView(pdf, r, v, colliding, x, y, viewW, viewH, opt)
	}

	if opt.IncludeBOM || len(r.Collisions) > 0 {
		pdf.AddPage()
		if opt.IncludeBOM {
			billTable(pdf, r.Bill)
		}
		if len(r.Collisions) > 0 {
			collisionList(pdf, r.Collisions, opt.CollisionLimit)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func header(pdf *gofpdf.Fpdf, r Report) {
	g := r.Geometry
	title := r.Title
	if title == "" {
		title = "foldframe structure"
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(pageMargin, pageMargin+5, title)

	pdf.SetFont("Helvetica", "", 9)
	line := fmt.Sprintf("%s, %d modules x %d, fold %.2f deg, rotation %.2f deg/module",
		g.Mode, g.Modules, g.Copies, vec.Deg(g.FoldAngle), vec.Deg(g.RelativeRotation))
	pdf.Text(pageMargin, pageMargin+11, line)
	line = fmt.Sprintf("%d beams, %d brackets, %d bolts, %d panels, radius %.0f mm, height %.0f mm, %d collisions",
		len(g.Beams), len(g.Brackets), len(g.Bolts), len(r.Panels), g.MaxRadius, g.MaxHeight, len(r.Collisions))
	pdf.Text(pageMargin, pageMargin+16, line)
}

func drawView(pdf *gofpdf.Fpdf, r Report, v View, colliding map[int]bool, x, y, w, h float64, opt PDFOptions) {
	pdf.SetDrawColor(180, 180, 180)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, w, h, "D")
	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(x+2, y+4, v.String())

	outlines := Outlines(r.Geometry, v, opt.Copy)
	fr := Fit(outlines, x+4, y+6, w-8, h-10, 1)

	pdf.SetLineWidth(opt.LineWidth)
	pdf.SetDrawColor(opt.BeamStroke.R, opt.BeamStroke.G, opt.BeamStroke.B)
	for _, o := range outlines {
		pts := make([]gofpdf.PointType, len(o.Points))
		for i, p := range o.Points {
			m := fr.Map(p)
			pts[i] = gofpdf.PointType{X: m.X, Y: m.Y}
		}
		if colliding[o.Beam] {
			pdf.SetFillColor(opt.CollisionFill.R, opt.CollisionFill.G, opt.CollisionFill.B)
		} else {
			pdf.SetFillColor(235, 235, 235)
		}
		pdf.Polygon(pts, "FD")
	}

	if !opt.IncludePanels {
		return
	}
	pdf.SetDrawColor(40, 90, 200)
	for _, p := range r.Panels {
		if opt.Copy >= 0 && p.Copy != opt.Copy {
			continue
		}
		cs := p.Corners()
		pts := make([]gofpdf.PointType, len(cs))
		for i, c := range cs {
			m := fr.Map(v.Project(c))
			pts[i] = gofpdf.PointType{X: m.X, Y: m.Y}
		}
		pdf.Polygon(pts, "D")
	}
}

func billTable(pdf *gofpdf.Fpdf, b bom.Bill) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Bill of materials", "", 1, "L", false, 0, "")

	widths := []float64{90, 25, 35, 35, 35}
	cols := []string{"Item", "Qty", "Length (mm)", "Unit (" + b.Currency + ")", "Total (" + b.Currency + ")"}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, c := range cols {
		pdf.CellFormat(widths[i], 6, c, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, l := range b.Lines {
		length := ""
		if l.Length > 0 {
			length = fmt.Sprintf("%.0f", l.Length)
		}
		pdf.CellFormat(widths[0], 6, l.Item, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%d", l.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, length, "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.2f", l.UnitCost), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, fmt.Sprintf("%.2f", l.Total), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3], 6, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[4], 6, fmt.Sprintf("%.2f", b.Total), "1", 1, "R", false, 0, "")
	pdf.Ln(4)
}

func collisionList(pdf *gofpdf.Fpdf, records []collision.Record, limit int) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Collisions (%d)", len(records)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for i, rec := range records {
		if limit > 0 && i >= limit {
			pdf.CellFormat(0, 5, fmt.Sprintf("... %d more", len(records)-limit), "", 1, "L", false, 0, "")
			break
		}
		pdf.CellFormat(0, 5, rec.String(), "", 1, "L", false, 0, "")
	}
}
