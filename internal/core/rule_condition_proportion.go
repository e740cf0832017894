package core

import (
	"context"
	"fmt"
	"math"

	"fiacore/pkg/domain"
)

const conditionProportionTolerance = 1e-6

// conditionProportionRule blocks plots whose condition proportions do not
// sum to 1.0. A plot mapped into conditions covering more or less than the
// whole plot double-counts or drops area.
type conditionProportionRule struct{}

func (conditionProportionRule) Name() string { return "condition_proportion_sum" }

func (conditionProportionRule) Evaluate(ctx context.Context, view domain.RuleView) (domain.Result, error) {
	var result domain.Result
	for _, plot := range view.ListPlots() {
		sum := 0.0
		for _, cid := range plot.ConditionIDs {
			cond, ok := view.FindCondition(cid)
			if !ok {
				continue
			}
			sum += cond.Proportion
		}
		if math.Abs(sum-1.0) <= conditionProportionTolerance {
			continue
		}
		result.Violations = append(result.Violations, domain.Violation{
			Rule:     "condition_proportion_sum",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("condition proportions sum to %.6f", sum),
			Entity:   domain.EntityPlot,
			EntityID: plot.ID,
		})
	}
	return result, nil
}
