// Package grm classifies each remeasured tree's component of change
// between two measurement times, independently for every
// (land basis, estimation type) pair the tree is relevant to.
package grm

import "fiacore/pkg/domain"

// EstimationType selects the diameter threshold family a classification
// runs under. The same classification algorithm serves every type; only
// the threshold diameter differs.
type EstimationType string

// Estimation types in ascending threshold order.
const (
	// EstAllLive covers every live tree at or above the microplot tally
	// minimum.
	EstAllLive EstimationType = "all_live"
	// EstGrowingStock covers trees at or above the subplot tally minimum.
	EstGrowingStock EstimationType = "growing_stock"
	// EstSawlog covers trees at or above the species-class sawlog minimum.
	EstSawlog EstimationType = "sawlog"
)

// Tally minimum diameters in inches.
const (
	microplotMinDiameter = 1.0
	subplotMinDiameter   = 5.0
	sawlogMinSoftwood    = 9.0
	sawlogMinHardwood    = 11.0
)

// Threshold returns the minimum qualifying diameter for an estimation type
// and species class. Sawlog thresholds are species-dependent; the other
// types are uniform.
func Threshold(est EstimationType, class domain.SpeciesClass) float64 {
	switch est {
	case EstAllLive:
		return microplotMinDiameter
	case EstGrowingStock:
		return subplotMinDiameter
	case EstSawlog:
		if class == domain.Hardwood {
			return sawlogMinHardwood
		}
		return sawlogMinSoftwood
	default:
		return microplotMinDiameter
	}
}

// atOrAbove reports whether a recorded diameter meets the threshold. A nil
// diameter never qualifies.
func atOrAbove(diameter *float64, threshold float64) bool {
	return diameter != nil && *diameter >= threshold
}
