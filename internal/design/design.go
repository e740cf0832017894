// Package design resolves plot design codes to sample geometry and
// per-acre expansion multipliers for single tally items.
package design

import (
	"fmt"
	"math"

	"fiacore/pkg/domain"
)

// SquareFeetPerAcre converts plot areas in square feet to acres.
const SquareFeetPerAcre = 43560.0

// basalAreaConstant converts diameter in inches squared to basal area in
// square feet (pi / (4 * 144)).
const basalAreaConstant = 0.005454

// Kind distinguishes fixed-radius cluster designs from variable-radius
// (prism) point designs.
type Kind string

const (
	KindFixedRadius    Kind = "fixed_radius"
	KindVariableRadius Kind = "variable_radius"
)

// PlotDesign describes the sample geometry a design code selects. For
// fixed-radius designs the per-acre multiplier is a constant per plot type;
// for variable-radius designs it is a function of tree diameter.
type PlotDesign struct {
	Code              int
	Kind              Kind
	SubplotCount      int
	SubplotRadiusFt   float64
	MicroplotRadiusFt float64
	MacroplotRadiusFt float64
	BasalAreaFactor   float64
	PointCount        int
}

// table holds the known designs. A code outside this table is an
// unresolved-design error, never a silent default.
var table = map[int]PlotDesign{
	// National standard: four-subplot cluster with nested microplot and
	// optional macroplot.
	1: {
		Code:              1,
		Kind:              KindFixedRadius,
		SubplotCount:      4,
		SubplotRadiusFt:   24.0,
		MicroplotRadiusFt: 6.8,
		MacroplotRadiusFt: 58.9,
	},
	// Legacy periodic prism designs retained for remeasurement against
	// pre-annual inventories.
	410: {
		Code:            410,
		Kind:            KindVariableRadius,
		BasalAreaFactor: 37.5,
		PointCount:      10,
	},
	420: {
		Code:            420,
		Kind:            KindVariableRadius,
		BasalAreaFactor: 10.0,
		PointCount:      5,
	},
}

// Lookup resolves a design code against the design table.
func Lookup(code int) (PlotDesign, error) {
	d, ok := table[code]
	if !ok {
		return PlotDesign{}, domain.UnresolvedDesignError{DesignCode: code}
	}
	return d, nil
}

// fixedRadiusPerAcre returns the trees-per-acre represented by one tally
// tree on a cluster of n fixed-radius plots of the given radius.
func fixedRadiusPerAcre(radiusFt float64, count int) float64 {
	area := math.Pi * radiusFt * radiusFt / SquareFeetPerAcre
	return 1.0 / (area * float64(count))
}

// PerAcre returns the theoretical per-acre expansion multiplier for a
// single tally tree of the given diameter observed on the given plot type.
// Fixed-radius multipliers are independent of diameter; variable-radius
// multipliers grow as diameter shrinks.
func (d PlotDesign) PerAcre(plotType domain.PlotType, diameter float64) (float64, error) {
	switch d.Kind {
	case KindFixedRadius:
		switch plotType {
		case domain.PlotSubplot:
			return fixedRadiusPerAcre(d.SubplotRadiusFt, d.SubplotCount), nil
		case domain.PlotMicroplot:
			return fixedRadiusPerAcre(d.MicroplotRadiusFt, d.SubplotCount), nil
		case domain.PlotMacroplot:
			return fixedRadiusPerAcre(d.MacroplotRadiusFt, d.SubplotCount), nil
		default:
			return 0, fmt.Errorf("design %d: plot type %s carries no fixed-radius geometry", d.Code, plotType)
		}
	case KindVariableRadius:
		if diameter <= 0 {
			return 0, fmt.Errorf("design %d: prism tally requires a positive diameter, got %.2f", d.Code, diameter)
		}
		tpa := d.BasalAreaFactor / (basalAreaConstant * diameter * diameter)
		return tpa / float64(d.PointCount), nil
	default:
		return 0, domain.UnresolvedDesignError{DesignCode: d.Code}
	}
}

// PerAcre resolves a code and computes the multiplier in one step.
func PerAcre(code int, plotType domain.PlotType, diameter float64) (float64, error) {
	d, err := Lookup(code)
	if err != nil {
		return 0, err
	}
	return d.PerAcre(plotType, diameter)
}
