// Package strata implements stratum-level nonresponse adjustment and the
// stratified expansion of per-acre means to population totals.
package strata

import (
	"fmt"

	"fiacore/pkg/domain"
)

// Factor computes the nonresponse adjustment factor for one plot type:
// total points divided by sampled points, always >= 1.0. A stratum with
// zero sampled points cannot be used at all; that is a configuration
// defect, not a divide-by-zero to paper over.
func Factor(stratumID string, tally domain.PointTally) (float64, error) {
	if tally.Sampled <= 0 {
		return 0, domain.StratumConfigurationError{
			StratumID: stratumID,
			Reason:    "zero sampled points",
		}
	}
	if tally.Sampled > tally.Total {
		return 0, domain.StratumConfigurationError{
			StratumID: stratumID,
			Reason:    fmt.Sprintf("sampled points %d exceed total %d", tally.Sampled, tally.Total),
		}
	}
	return float64(tally.Total) / float64(tally.Sampled), nil
}

// AdjustmentFactors computes the per-plot-type adjustment factors for a
// stratum. Plot types with no recorded tally are absent from the result;
// callers must treat a missing factor for a needed plot type as a
// configuration error rather than defaulting to 1.0.
func AdjustmentFactors(s domain.Stratum) (map[domain.PlotType]float64, error) {
	factors := make(map[domain.PlotType]float64, len(s.Points))
	for plotType, tally := range s.Points {
		f, err := Factor(s.ID, tally)
		if err != nil {
			return nil, err
		}
		factors[plotType] = f
	}
	return factors, nil
}
