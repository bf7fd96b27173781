package bom

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/foldframe/pkg/panel"
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
)

func solved(t *testing.T, c structure.Config) *structure.Geometry {
	t.Helper()
	g, err := structure.Solve(c, vec.Rad(40))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return g
}

func TestBuildCounts(t *testing.T) {
	g := solved(t, structure.Defaults())
	bill := Build(g, nil, DefaultCosts())

	var beams, brackets, bolts int
	for _, l := range bill.Lines {
		switch {
		case strings.HasPrefix(l.Item, "beam "):
			beams += l.Quantity
			if l.Length <= 0 {
				t.Errorf("%s has no length", l.Item)
			}
		case l.Item == "bracket":
			brackets = l.Quantity
		case l.Item == "bolt":
			bolts = l.Quantity
		case strings.HasPrefix(l.Item, "panel"):
			t.Errorf("panel line without panels: %+v", l)
		}
	}
	if beams != len(g.Beams) || brackets != len(g.Brackets) || bolts != len(g.Bolts) {
		t.Errorf("beams=%d brackets=%d bolts=%d, want %d/%d/%d",
			beams, brackets, bolts, len(g.Beams), len(g.Brackets), len(g.Bolts))
	}
	if bill.Currency != "EUR" {
		t.Errorf("currency = %q", bill.Currency)
	}
}

func TestBuildTotals(t *testing.T) {
	c := structure.Defaults()
	g := solved(t, c)
	pc := panel.Defaults()
	pc.Enabled = true
	panels := panel.PlaceAll(g, pc)

	costs := Costs{Currency: "USD", BeamPerMetre: 2, BracketEach: 1, BoltEach: 0.5, PanelEach: 10}
	bill := Build(g, panels, costs)

	var sum float64
	for _, l := range bill.Lines {
		if math.Abs(l.Total-float64(l.Quantity)*l.UnitCost) > 1e-9 {
			t.Errorf("%s: total %.2f != %d x %.2f", l.Item, l.Total, l.Quantity, l.UnitCost)
		}
		sum += l.Total
	}
	if math.Abs(sum-bill.Total) > 1e-9 {
		t.Errorf("bill total %.4f, lines sum %.4f", bill.Total, sum)
	}

	var exact float64
	for _, b := range g.Beams {
		exact += b.Length()
	}
	got := BeamLength(bill)
	if math.Abs(got-exact/1000) > 0.0005*float64(len(g.Beams)) {
		t.Errorf("beam length %.3f m, exact %.3f m", got, exact/1000)
	}

	want := got*2 + float64(len(g.Brackets)) + 0.5*float64(len(g.Bolts)) + 10*float64(len(panels))
	if math.Abs(bill.Total-want) > 1e-6 {
		t.Errorf("total %.4f, want %.4f", bill.Total, want)
	}
}

func TestBuildGroupsBySection(t *testing.T) {
	c := structure.Defaults()
	c.Vertical = structure.Section{Width: 60, Thickness: 30}
	bill := Build(solved(t, c), nil, Costs{})

	var sections []string
	for _, l := range bill.Lines {
		if strings.HasPrefix(l.Item, "beam ") {
			sections = append(sections, l.Item)
		}
	}
	var found bool
	for _, s := range sections {
		if strings.HasSuffix(s, "60x30") {
			found = true
		}
	}
	if !found {
		t.Errorf("no 60x30 line in %v", sections)
	}
	if bill.Total != 0 {
		t.Errorf("zero costs priced at %.2f", bill.Total)
	}
}

func TestBuildEmpty(t *testing.T) {
	bill := Build(&structure.Geometry{}, nil, DefaultCosts())
	if len(bill.Lines) != 0 || bill.Total != 0 {
		t.Errorf("empty geometry bill = %+v", bill)
	}
}
