package strata

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"fiacore/pkg/domain"
)

// WeightTolerance bounds the acceptable deviation of stratum weight sums
// and condition proportion sums from 1.0.
const WeightTolerance = 1e-6

// AreaTolerance bounds the acceptable relative deviation between the sum of
// estimation-unit areas and an evaluation's declared total area.
const AreaTolerance = 1e-3

// StratumMean is the per-acre mean of adjusted plot values within one
// stratum, together with the inputs a variance estimator needs.
type StratumMean struct {
	StratumID  string  `json:"stratum_id"`
	Mean       float64 `json:"mean"`
	Variance   float64 `json:"variance"`
	PlotCount  int     `json:"plot_count"`
	PlotValues []float64 `json:"plot_values,omitempty"`
}

// PlotMean reduces per-plot adjusted values to a stratum mean. Plots with
// no qualifying tally contribute zeros and must be present in values; the
// mean is over all sampled plots in the stratum, not only the nonzero ones.
func PlotMean(stratumID string, values []float64) (StratumMean, error) {
	if len(values) == 0 {
		return StratumMean{}, domain.StratumConfigurationError{
			StratumID: stratumID,
			Reason:    "no sampled plots",
		}
	}
	mean, variance := stat.MeanVariance(values, nil)
	if len(values) == 1 {
		variance = 0
	}
	return StratumMean{
		StratumID:  stratumID,
		Mean:       mean,
		Variance:   variance,
		PlotCount:  len(values),
		PlotValues: values,
	}, nil
}

// ExpansionFactor converts a stratum per-acre mean into the stratum's share
// of the estimation-unit total: unit area times stratum weight divided by
// the number of sampled plots is the acreage each plot represents, and the
// mean is already per sampled plot, so the per-mean factor is area*weight.
func ExpansionFactor(unit domain.EstimationUnit, s domain.Stratum) float64 {
	return unit.AreaAcres * s.Weight
}

// ValidateWeights verifies the stratum weights within one estimation unit
// sum to 1.0 within tolerance.
func ValidateWeights(unit domain.EstimationUnit, strataIn []domain.Stratum) error {
	var sum float64
	for _, s := range strataIn {
		if s.EstimationUnitID != unit.ID {
			continue
		}
		sum += s.Weight
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return domain.StratumConfigurationError{
			StratumID: unit.ID,
			Reason:    fmt.Sprintf("stratum weights sum to %.9f, want 1.0", sum),
		}
	}
	return nil
}

// ValidateAreas verifies the estimation-unit areas within an evaluation
// match its declared total area within rounding tolerance.
func ValidateAreas(eval domain.Evaluation, units []domain.EstimationUnit) error {
	if eval.AreaAcres <= 0 {
		return nil
	}
	var sum float64
	for _, u := range units {
		sum += u.AreaAcres
	}
	if math.Abs(sum-eval.AreaAcres) > AreaTolerance*eval.AreaAcres {
		return domain.EvaluationScopeError{
			Reason: fmt.Sprintf("estimation unit areas sum to %.1f acres, evaluation declares %.1f", sum, eval.AreaAcres),
		}
	}
	return nil
}

// Expand aggregates stratum means into the estimation-unit population
// total.
func Expand(unit domain.EstimationUnit, strataByID map[string]domain.Stratum, means []StratumMean) (float64, error) {
	var total float64
	for _, m := range means {
		s, ok := strataByID[m.StratumID]
		if !ok {
			return 0, domain.ReferentialIntegrityError{
				Entity:    domain.EntityEstimationUnit,
				ID:        unit.ID,
				RefEntity: domain.EntityStratum,
				RefID:     m.StratumID,
			}
		}
		total += m.Mean * ExpansionFactor(unit, s)
	}
	return total, nil
}
