package grm

import "fiacore/pkg/domain"

// Instant names the point in the remeasurement interval whose diameter and
// plot-type assignment govern a component's expansion multiplier.
type Instant string

// Governing instants. Survivor and ingrowth trees are expanded at interval
// end; mortality, cut, diversion, and reversion trees are expanded at the
// reconstructed event midpoint.
const (
	InstantBegin Instant = "begin"
	InstantMid   Instant = "mid"
	InstantEnd   Instant = "end"
)

// History assembles everything the classifier needs to know about one
// remeasured tree. PrevStatus is StatusNone when the tree has no T1 record.
type History struct {
	PrevStatus   domain.TreeStatus
	Status       domain.TreeStatus
	PrevDiameter *float64
	MidDiameter  *float64
	Diameter     *float64
	PrevBasis    domain.LandBasis
	Basis        domain.LandBasis
	PrevPlotType domain.PlotType
	MidPlotType  domain.PlotType
	PlotType     domain.PlotType
	// HarvestKilled distinguishes harvest-caused death from natural
	// mortality for trees dead or removed at T2.
	HarvestKilled bool
}

// Classification pairs the assigned component with the instant, diameter,
// and plot type that govern its per-acre multiplier.
type Classification struct {
	Component domain.Component
	Instant   Instant
	Diameter  float64
	PlotType  domain.PlotType
}

// MidpointDiameter reconstructs the tree's diameter at the interval
// midpoint. A recorded midpoint measurement wins; otherwise the midpoint
// is the mean of the T1 and T2 diameters. The attribute of a mortality or
// removal tree must be computed by evaluating the equation at this
// diameter, not by averaging the T1/T2 attribute values.
func MidpointDiameter(h History) (float64, bool) {
	if h.MidDiameter != nil {
		return *h.MidDiameter, true
	}
	if h.PrevDiameter != nil && h.Diameter != nil {
		return (*h.PrevDiameter + *h.Diameter) / 2.0, true
	}
	if h.Diameter != nil {
		return *h.Diameter, true
	}
	if h.PrevDiameter != nil {
		return *h.PrevDiameter, true
	}
	return 0, false
}

// midPlotType falls back to the nearest recorded assignment when no
// midpoint assignment was recorded.
func midPlotType(h History) domain.PlotType {
	if h.MidPlotType != "" {
		return h.MidPlotType
	}
	if h.PrevPlotType != "" {
		return h.PrevPlotType
	}
	return h.PlotType
}

// Classify assigns the component of change for one tree under one
// (land basis restriction, estimation type) pair. The classification is
// re-run per pair: a tree can be SURVIVOR for all-live and INGROWTH for
// sawlog in the same interval.
func Classify(h History, restriction domain.LandBasis, est EstimationType, class domain.SpeciesClass, eval domain.Evaluation) Classification {
	kind := eval.Kind
	if kind == "" {
		kind = domain.KindAnnual
	}
	notApplicable := Classification{
		Component: domain.Component{Base: domain.CompNotApplicable, Kind: kind},
		Instant:   InstantEnd,
		PlotType:  h.PlotType,
	}
	if h.Diameter != nil {
		notApplicable.Diameter = *h.Diameter
	}

	// Component-of-change is defined only on growth-accounting evaluations.
	if !eval.GrowthAccounting {
		return notApplicable
	}

	threshold := Threshold(est, class)
	inBefore := h.PrevBasis.InBasis(restriction)
	inAfter := h.Basis.InBasis(restriction)

	// A tree outside the land basis at both times never contributes.
	if !inBefore && !inAfter {
		return notApplicable
	}

	unknown := Classification{
		Component: domain.Component{Base: domain.CompUnknown, Kind: kind},
		Instant:   InstantEnd,
		PlotType:  h.PlotType,
	}
	if h.Status == domain.StatusUnknown || h.PrevStatus == domain.StatusUnknown {
		return unknown
	}

	crossed := func() bool {
		if atOrAbove(h.PrevDiameter, threshold) {
			return false
		}
		mid, ok := MidpointDiameter(h)
		return ok && mid >= threshold
	}

	midEvent := func(base domain.BaseComponent) Classification {
		mid, ok := MidpointDiameter(h)
		if !ok || mid < threshold {
			// The tree never reached this type's threshold before the
			// event; it is outside the estimate, not unknown.
			return notApplicable
		}
		return Classification{
			Component: domain.Component{
				Base:                        base,
				CrossedThresholdMidInterval: crossed(),
				Kind:                        kind,
			},
			Instant:  InstantMid,
			Diameter: mid,
			PlotType: midPlotType(h),
		}
	}

	// Land-basis transitions trump tree status: a reverted or diverted
	// condition reclassifies every tree on it regardless of survival.
	if inBefore && !inAfter {
		return midEvent(domain.CompDiversion)
	}
	if !inBefore && inAfter {
		return midEvent(domain.CompReversion)
	}

	// Both times in basis: classify by status transition.
	switch h.PrevStatus {
	case domain.StatusLive:
		switch h.Status {
		case domain.StatusLive:
			if !atOrAbove(h.Diameter, threshold) {
				return notApplicable
			}
			base := domain.CompSurvivor
			if !atOrAbove(h.PrevDiameter, threshold) {
				base = domain.CompIngrowth
			}
			return Classification{
				Component: domain.Component{Base: base, Kind: kind},
				Instant:   InstantEnd,
				Diameter:  *h.Diameter,
				PlotType:  h.PlotType,
			}
		case domain.StatusDead:
			if h.HarvestKilled {
				return midEvent(domain.CompCut)
			}
			return midEvent(domain.CompMortality)
		case domain.StatusRemoved:
			return midEvent(domain.CompCut)
		default:
			return unknown
		}
	case domain.StatusNone:
		// First tally at T2: ingrowth when the tree qualifies now, outside
		// the estimate when it does not.
		if h.Status == domain.StatusLive && atOrAbove(h.Diameter, threshold) {
			return Classification{
				Component: domain.Component{Base: domain.CompIngrowth, Kind: kind},
				Instant:   InstantEnd,
				Diameter:  *h.Diameter,
				PlotType:  h.PlotType,
			}
		}
		if h.Status == domain.StatusLive || h.Status == domain.StatusDead || h.Status == domain.StatusRemoved {
			return notApplicable
		}
		return unknown
	case domain.StatusDead, domain.StatusRemoved:
		// Already out of the live tally at T1; no further change to account.
		return notApplicable
	default:
		return unknown
	}
}
