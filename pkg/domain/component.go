package domain

// BaseComponent is the component-of-change assigned to a remeasured tree
// for one (land basis, estimation type) pair.
type BaseComponent string

// Component-of-change bases. Mortality, cut, diversion, and reversion each
// split into two variants depending on whether the tree crossed the
// estimation-type diameter threshold after T1; the split is carried on
// Component.CrossedThresholdMidInterval rather than as separate bases.
const (
	CompSurvivor      BaseComponent = "survivor"
	CompIngrowth      BaseComponent = "ingrowth"
	CompMortality     BaseComponent = "mortality"
	CompCut           BaseComponent = "cut"
	CompDiversion     BaseComponent = "diversion"
	CompReversion     BaseComponent = "reversion"
	CompUnknown       BaseComponent = "unknown"
	CompNotApplicable BaseComponent = "not_applicable"
)

// Component is the tagged classification result for one tree under one
// (land basis, estimation type) pair. The same physical tree may carry a
// different Component for every pair it is evaluated under.
type Component struct {
	Base BaseComponent `json:"base"`
	// CrossedThresholdMidInterval is set when the tree was below the
	// estimation-type diameter threshold at T1 and reached it before the
	// event the component records.
	CrossedThresholdMidInterval bool `json:"crossed_threshold_mid_interval"`
	// Kind tags the evaluation temporal design the classification is valid
	// for. Component codes are comparable only within one kind.
	Kind EvaluationKind `json:"kind"`
}

// Code renders the component as its conventional table code.
func (c Component) Code() string {
	variant := func(one, two string) string {
		if c.CrossedThresholdMidInterval {
			return two
		}
		return one
	}
	switch c.Base {
	case CompSurvivor:
		return "SURVIVOR"
	case CompIngrowth:
		return "INGROWTH"
	case CompMortality:
		return variant("MORTALITY1", "MORTALITY2")
	case CompCut:
		return variant("CUT1", "CUT2")
	case CompDiversion:
		return variant("DIVERSION1", "DIVERSION2")
	case CompReversion:
		return variant("REVERSION1", "REVERSION2")
	case CompUnknown:
		return "UNKNOWN"
	default:
		return "NOT USED"
	}
}

// CountsTowardGrowth reports whether the component contributes to net
// growth accumulation. Cut and diversion trees contribute growth up to the
// event instant; mortality contributes the loss side of net growth.
func (c Component) CountsTowardGrowth() bool {
	switch c.Base {
	case CompSurvivor, CompIngrowth, CompMortality, CompCut, CompDiversion, CompReversion:
		return true
	default:
		return false
	}
}

// CountsTowardRemovals reports whether the component contributes to the
// removals estimate.
func (c Component) CountsTowardRemovals() bool {
	return c.Base == CompCut || c.Base == CompDiversion
}

// CountsTowardMortality reports whether the component contributes to the
// mortality estimate.
func (c Component) CountsTowardMortality() bool {
	return c.Base == CompMortality
}
