// Package domain defines the core inventory entities, value types, and
// rule evaluation primitives used by fiacore.
package domain

import "time"

// EntityType identifies the type of record stored in the inventory domain.
type EntityType string

// Supported entity type identifiers used in persistence buckets and violations.
const (
	// EntityPlot identifies a permanent sample plot measurement record.
	EntityPlot EntityType = "plot"
	// EntityCondition identifies a condition-class record on a plot.
	EntityCondition EntityType = "condition"
	// EntityTree identifies an individual tally tree record.
	EntityTree EntityType = "tree"
	// EntityStratum identifies a stratum record within an estimation unit.
	EntityStratum EntityType = "stratum"
	// EntityEstimationUnit identifies an estimation unit record.
	EntityEstimationUnit EntityType = "estimation_unit"
	// EntityEvaluation identifies an evaluation snapshot record.
	EntityEvaluation EntityType = "evaluation"
)

// PlotType identifies the sample-plot geometry a value was observed on.
// Tree tallies use the first three; the remaining types are specialized
// transects and points that carry their own nonresponse accounting.
type PlotType string

// Canonical plot types recognised by the design resolver and the stratum
// adjustment calculator.
const (
	PlotSubplot        PlotType = "subplot"
	PlotMicroplot      PlotType = "microplot"
	PlotMacroplot      PlotType = "macroplot"
	PlotCWDTransect    PlotType = "cwd_transect"
	PlotFWDTransect    PlotType = "fwd_transect"
	PlotDuffPoint      PlotType = "duff_point"
	PlotRegenMicroplot PlotType = "regen_microplot"
)

// LandBasis classifies the land use of a condition for estimate scoping.
type LandBasis string

// Canonical land-basis values. Timberland is a subset of forest land;
// a timberland-scoped estimate accepts only LandTimberland, while a
// forest-land-scoped estimate accepts both forest values.
const (
	LandTimberland LandBasis = "timberland"
	LandForest     LandBasis = "forest_land"
	LandNonforest  LandBasis = "nonforest"
)

// InBasis reports whether a condition with land basis b contributes to an
// estimate restricted to the given basis.
func (b LandBasis) InBasis(restriction LandBasis) bool {
	switch restriction {
	case LandTimberland:
		return b == LandTimberland
	case LandForest:
		return b == LandTimberland || b == LandForest
	default:
		return false
	}
}

// TreeStatus records the tally status of a tree at one measurement time.
type TreeStatus string

// Canonical tree statuses. StatusNone marks the absence of a T1 record for
// a tree first tallied at T2; StatusUnknown marks an unresolvable status.
const (
	StatusLive    TreeStatus = "live"
	StatusDead    TreeStatus = "dead"
	StatusRemoved TreeStatus = "removed"
	StatusUnknown TreeStatus = "unknown"
	StatusNone    TreeStatus = ""
)

// SpeciesClass partitions species for threshold selection.
type SpeciesClass string

// Softwood and hardwood carry different sawlog diameter cutoffs.
const (
	Softwood SpeciesClass = "softwood"
	Hardwood SpeciesClass = "hardwood"
)

// EstimateFamily names the family of population estimates a request targets.
type EstimateFamily string

// Estimate families supported by the service.
const (
	FamilyArea      EstimateFamily = "area"
	FamilyVolume    EstimateFamily = "volume"
	FamilyGrowth    EstimateFamily = "growth"
	FamilyRemovals  EstimateFamily = "removals"
	FamilyMortality EstimateFamily = "mortality"
)

// ChangeFamily reports whether the family requires component-of-change
// classification between two measurement times.
func (f EstimateFamily) ChangeFamily() bool {
	switch f {
	case FamilyGrowth, FamilyRemovals, FamilyMortality:
		return true
	default:
		return false
	}
}

// EvaluationKind distinguishes the temporal design an evaluation was built
// under. Component-of-change codes are defined only within a kind.
type EvaluationKind string

// Evaluation kinds. Annual-to-annual and periodic-to-periodic remeasurement
// pairs carry distinct component families; mixing is undefined.
const (
	KindAnnual   EvaluationKind = "annual"
	KindPeriodic EvaluationKind = "periodic"
)

// Base contains common fields for all inventory records. Records are created
// at measurement or compilation time and never mutated afterwards.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Plot is one measurement of a permanent sample location. A remeasured
// location yields a new Plot record linked to its predecessor.
type Plot struct {
	Base
	EvaluationID       string   `json:"evaluation_id"`
	StratumID          string   `json:"stratum_id"`
	DesignCode         int      `json:"design_code"`
	PrevPlotID         *string  `json:"prev_plot_id"`
	MeasurementYear    int      `json:"measurement_year"`
	RemeasurementYears float64  `json:"remeasurement_years"`
	Geography          string   `json:"geography"`
	ConditionIDs       []string `json:"condition_ids"`
}

// Condition is a land-use homogeneous subdivision of a plot at one
// measurement time. Condition proportions on one plot sum to 1.0.
type Condition struct {
	Base
	PlotID     string    `json:"plot_id"`
	Proportion float64   `json:"proportion"`
	LandBasis  LandBasis `json:"land_basis"`
	Ownership  string    `json:"ownership"`
}

// Tree is one tally tree at one measurement time. A remeasured tree at T2
// links to its T1 predecessor record via PrevTreeID; the predecessor holds
// the T1 status, diameter, and plot-type assignment.
type Tree struct {
	Base
	PlotID        string       `json:"plot_id"`
	ConditionID   string       `json:"condition_id"`
	PrevTreeID    *string      `json:"prev_tree_id"`
	Species       string       `json:"species"`
	SpeciesClass  SpeciesClass `json:"species_class"`
	Status        TreeStatus   `json:"status"`
	Diameter      *float64     `json:"diameter"`
	MidDiameter   *float64     `json:"mid_diameter"`
	PlotType      PlotType     `json:"plot_type"`
	MidPlotType   *PlotType    `json:"mid_plot_type"`
	HarvestKilled bool         `json:"harvest_killed"`
}

// PointTally holds the photo-interpretation point counts backing a stratum
// for one plot type.
type PointTally struct {
	Total   int `json:"total"`
	Sampled int `json:"sampled"`
}

// Stratum partitions an estimation unit's area by remote-sensing class.
// Weights within one estimation unit sum to 1.0 by construction.
type Stratum struct {
	Base
	EstimationUnitID string                  `json:"estimation_unit_id"`
	Weight           float64                 `json:"weight"`
	ExpansionFactor  float64                 `json:"expansion_factor"`
	Points           map[PlotType]PointTally `json:"points"`
}

// EstimationUnit is a geographic subdivision with known total area,
// partitioned exhaustively and disjointly into strata.
type EstimationUnit struct {
	Base
	EvaluationID string  `json:"evaluation_id"`
	Geography    string  `json:"geography"`
	AreaAcres    float64 `json:"area_acres"`
	Description  string  `json:"description"`
}

// Evaluation is an immutable, versioned grouping of plots, strata, and
// estimation units usable together for one family of estimates.
type Evaluation struct {
	Base
	Geography        string           `json:"geography"`
	StartYear        int              `json:"start_year"`
	EndYear          int              `json:"end_year"`
	Kind             EvaluationKind   `json:"kind"`
	TimberlandOnly   bool             `json:"timberland_only"`
	GrowthAccounting bool             `json:"growth_accounting"`
	Families         []EstimateFamily `json:"families"`
	AreaAcres        float64          `json:"area_acres"`
}

// Supports reports whether the evaluation covers the given estimate family.
func (e Evaluation) Supports(family EstimateFamily) bool {
	for _, f := range e.Families {
		if f == family {
			return true
		}
	}
	return false
}

// EquationSet supplies externally fitted volume and biomass equations.
// The equations themselves are injected by plugins; the engine only
// evaluates them at the diameter governing a component's instant.
type EquationSet interface {
	Name() string
	VolumeCuFt(species string, diameter float64) (float64, error)
	BiomassLbs(species string, diameter float64) (float64, error)
}
