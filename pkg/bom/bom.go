// Package bom tallies the parts of a solved structure into a bill of
// materials with costs.
package bom

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/foldframe/pkg/panel"
	"github.com/chazu/foldframe/pkg/structure"
)

// Costs are unit prices in Currency.
type Costs struct {
	Currency     string  `json:"currency" yaml:"currency"`
	BeamPerMetre float64 `json:"beamPerMetre" yaml:"beam_per_metre"`
	BracketEach  float64 `json:"bracketEach" yaml:"bracket_each"`
	BoltEach     float64 `json:"boltEach" yaml:"bolt_each"`
	PanelEach    float64 `json:"panelEach" yaml:"panel_each"`
}

// DefaultCosts returns placeholder prices in EUR.
func DefaultCosts() Costs {
	return Costs{Currency: "EUR", BeamPerMetre: 4.5, BracketEach: 2.2, BoltEach: 0.6, PanelEach: 18}
}

// Line is one row of the bill.
type Line struct {
	Item     string  `json:"item"`
	Quantity int     `json:"quantity"`
	Length   float64 `json:"length,omitempty"` // mm per piece, beams only
	UnitCost float64 `json:"unitCost"`
	Total    float64 `json:"total"`
}

// Bill is the full bill of materials.
type Bill struct {
	Lines    []Line  `json:"lines"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// Build groups beams by role, section and cut length (rounded to the
// millimetre), then adds brackets, bolts and panels.
func Build(g *structure.Geometry, panels []panel.Panel, costs Costs) Bill {
	type beamKey struct {
		role   structure.Role
		w, t   float64
		length float64
	}
	counts := map[beamKey]int{}
	for _, b := range g.Beams {
		k := beamKey{b.Role, b.Width, b.Thickness, math.Round(b.Length())}
		counts[k]++
	}
	keys := make([]beamKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].role != keys[j].role {
			return keys[i].role < keys[j].role
		}
		return keys[i].length > keys[j].length
	})

	bill := Bill{Currency: costs.Currency}
	for _, k := range keys {
		unit := k.length / 1000 * costs.BeamPerMetre
		bill.add(Line{
			Item:     fmt.Sprintf("beam %s %gx%g", k.role, k.w, k.t),
			Quantity: counts[k],
			Length:   k.length,
			UnitCost: unit,
		})
	}
	if n := len(g.Brackets); n > 0 {
		bill.add(Line{Item: "bracket", Quantity: n, UnitCost: costs.BracketEach})
	}
	if n := len(g.Bolts); n > 0 {
		bill.add(Line{Item: "bolt", Quantity: n, UnitCost: costs.BoltEach})
	}
	if n := len(panels); n > 0 {
		bill.add(Line{Item: fmt.Sprintf("panel %gx%g", panels[0].Width, panels[0].Height), Quantity: n, UnitCost: costs.PanelEach})
	}
	return bill
}

func (b *Bill) add(l Line) {
	l.Total = float64(l.Quantity) * l.UnitCost
	b.Lines = append(b.Lines, l)
	b.Total += l.Total
}

// BeamLength returns the total cut length of all beams in metres.
func BeamLength(b Bill) float64 {
	var mm float64
	for _, l := range b.Lines {
		mm += float64(l.Quantity) * l.Length
	}
	return mm / 1000
}
