package core

import (
	"context"
	"fmt"

	"fiacore/pkg/domain"
)

// sampledPointsRule blocks strata whose point tallies cannot yield an
// adjustment factor: zero sampled points, or more sampled than total.
type sampledPointsRule struct{}

func (sampledPointsRule) Name() string { return "sampled_points" }

func (sampledPointsRule) Evaluate(ctx context.Context, view domain.RuleView) (domain.Result, error) {
	var result domain.Result
	for _, st := range view.ListStrata() {
		for plotType, tally := range st.Points {
			var msg string
			switch {
			case tally.Sampled <= 0:
				msg = fmt.Sprintf("%s: zero sampled points", plotType)
			case tally.Sampled > tally.Total:
				msg = fmt.Sprintf("%s: sampled points %d exceed total %d", plotType, tally.Sampled, tally.Total)
			default:
				continue
			}
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     "sampled_points",
				Severity: domain.SeverityBlock,
				Message:  msg,
				Entity:   domain.EntityStratum,
				EntityID: st.ID,
			})
		}
	}
	return result, nil
}
