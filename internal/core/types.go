// Package core hosts the estimation engine: evaluation selection, snapshot
// assembly, integrity rules, per-acre aggregation and population expansion.
package core

import (
	"fiacore/internal/grm"
	"fiacore/internal/strata"
	"fiacore/pkg/domain"
)

// Attribute selects the per-tree quantity an estimate accumulates.
type Attribute string

const (
	AttrVolume  Attribute = "volume"
	AttrBiomass Attribute = "biomass"
	AttrCount   Attribute = "count"
)

// Dimension names a grouping axis for estimate output.
type Dimension string

const (
	DimSpecies   Dimension = "species"
	DimOwnership Dimension = "ownership"
	DimComponent Dimension = "component"
	DimSizeClass Dimension = "size_class"
)

// GroupKey identifies one output group. Fields not requested via GroupBy
// stay empty.
type GroupKey struct {
	Species   string
	Ownership string
	Component string
	SizeClass string
}

// Request describes one population estimate.
type Request struct {
	Geography      string
	StartYear      int
	EndYear        int
	Family         domain.EstimateFamily
	Attribute      Attribute
	LandBasis      domain.LandBasis
	EstimationType grm.EstimationType
	EquationSet    string
	GroupBy        []Dimension
}

func (r Request) normalized() Request {
	if r.Attribute == "" {
		r.Attribute = AttrVolume
	}
	if r.LandBasis == "" {
		r.LandBasis = domain.LandForest
	}
	if r.EstimationType == "" {
		r.EstimationType = grm.EstAllLive
	}
	if r.Family == domain.FamilyArea {
		r.Attribute = AttrCount
	}
	return r
}

func (r Request) wantsDimension(d Dimension) bool {
	for _, g := range r.GroupBy {
		if g == d {
			return true
		}
	}
	return false
}

// PlotContribution records one plot's per-acre value, kept for audit output.
type PlotContribution struct {
	PlotID    string  `json:"plot_id"`
	StratumID string  `json:"stratum_id"`
	Value     float64 `json:"value"`
}

// UnitTotal is the expanded population total for one estimation unit.
type UnitTotal struct {
	EstimationUnitID string  `json:"estimation_unit_id"`
	AreaAcres        float64 `json:"area_acres"`
	Total            float64 `json:"total"`
}

// Estimate is the full result of one estimation run.
type Estimate struct {
	EvaluationID  string                `json:"evaluation_id"`
	Request       Request               `json:"request"`
	Total         float64               `json:"total"`
	PerAcre       float64               `json:"per_acre"`
	Groups        map[GroupKey]float64  `json:"-"`
	Units         []UnitTotal           `json:"units"`
	StrataMeans   []strata.StratumMean  `json:"strata_means"`
	Contributions []PlotContribution    `json:"contributions"`
	UnknownTrees  int                   `json:"unknown_trees"`
	Warnings      []domain.Violation    `json:"warnings,omitempty"`
}
