package core

import (
	"context"
	"fmt"

	"fiacore/pkg/domain"
)

// remeasurementPeriodRule blocks change estimates over plots with a zero or
// negative remeasurement period: a rate cannot be annualized over no time.
// On evaluations without growth accounting the period is unused, so the rule
// only warns there.
type remeasurementPeriodRule struct{}

func (remeasurementPeriodRule) Name() string { return "remeasurement_period" }

func (remeasurementPeriodRule) Evaluate(ctx context.Context, view domain.RuleView) (domain.Result, error) {
	severity := domain.SeverityWarn
	if view.Evaluation().GrowthAccounting {
		severity = domain.SeverityBlock
	}
	var result domain.Result
	for _, plot := range view.ListPlots() {
		if plot.PrevPlotID == nil {
			continue
		}
		if plot.RemeasurementYears > 0 {
			continue
		}
		result.Violations = append(result.Violations, domain.Violation{
			Rule:     "remeasurement_period",
			Severity: severity,
			Message:  fmt.Sprintf("remeasured plot has period %.2f years", plot.RemeasurementYears),
			Entity:   domain.EntityPlot,
			EntityID: plot.ID,
		})
	}
	return result, nil
}

// DefaultRulesEngine returns a rules engine preloaded with the built-in
// snapshot integrity rules. Plugins may register additional rules on top.
func DefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(conditionProportionRule{})
	engine.Register(stratumWeightsRule{})
	engine.Register(sampledPointsRule{})
	engine.Register(remeasurementPeriodRule{})
	return engine
}
