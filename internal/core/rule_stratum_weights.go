package core

import (
	"context"

	"fiacore/internal/strata"
	"fiacore/pkg/domain"
)

// stratumWeightsRule blocks evaluations whose stratum weights do not sum to
// one within each estimation unit, or whose unit areas do not add up to the
// evaluation's total area.
type stratumWeightsRule struct{}

func (stratumWeightsRule) Name() string { return "stratum_weights" }

func (stratumWeightsRule) Evaluate(ctx context.Context, view domain.RuleView) (domain.Result, error) {
	var result domain.Result
	all := view.ListStrata()
	for _, unit := range view.ListEstimationUnits() {
		if err := strata.ValidateWeights(unit, all); err != nil {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     "stratum_weights",
				Severity: domain.SeverityBlock,
				Message:  err.Error(),
				Entity:   domain.EntityEstimationUnit,
				EntityID: unit.ID,
			})
		}
	}
	if err := strata.ValidateAreas(view.Evaluation(), view.ListEstimationUnits()); err != nil {
		result.Violations = append(result.Violations, domain.Violation{
			Rule:     "stratum_weights",
			Severity: domain.SeverityBlock,
			Message:  err.Error(),
			Entity:   domain.EntityEvaluation,
			EntityID: view.Evaluation().ID,
		})
	}
	return result, nil
}
