// Package westvol provides the reference volume and biomass equation plugin
// for western species groups. Equations use the combined-variable form
// fitted outside this system; the engine only evaluates them at the
// diameter governing a tree's instant.
package westvol

import (
	"context"
	"fmt"

	"fiacore/pkg/domain"
	"fiacore/pkg/pluginapi"
)

// Plugin implements the westvol reference equation module.
type Plugin struct{}

// New constructs a westvol plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "westvol" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register wires the equation set and a diameter sanity rule.
func (Plugin) Register(registry pluginapi.Registry) error {
	if err := registry.RegisterEquationSet(equationSet{}); err != nil {
		return err
	}
	registry.RegisterRule(diameterRangeRule{})
	return nil
}

// coefficients hold the combined-variable terms: value = b0 + b1 * d^2.
type coefficients struct {
	b0, b1 float64
}

var volumeCoefficients = map[string]coefficients{
	"douglas-fir":    {b0: -1.04, b1: 0.2682},
	"ponderosa pine": {b0: -0.87, b1: 0.2454},
	"western larch":  {b0: -0.94, b1: 0.2513},
	"red alder":      {b0: -0.71, b1: 0.2219},
}

var defaultVolume = coefficients{b0: -0.90, b1: 0.2400}

var biomassCoefficients = map[string]coefficients{
	"douglas-fir":    {b0: 12.4, b1: 8.91},
	"ponderosa pine": {b0: 10.8, b1: 8.02},
	"western larch":  {b0: 11.6, b1: 8.37},
	"red alder":      {b0: 9.3, b1: 7.48},
}

var defaultBiomass = coefficients{b0: 10.5, b1: 8.10}

type equationSet struct{}

func (equationSet) Name() string { return "westvol" }

// VolumeCuFt returns gross cubic-foot volume for one stem.
func (equationSet) VolumeCuFt(species string, diameter float64) (float64, error) {
	return evaluate(volumeCoefficients, defaultVolume, species, diameter)
}

// BiomassLbs returns total aboveground dry biomass in pounds for one stem.
func (equationSet) BiomassLbs(species string, diameter float64) (float64, error) {
	return evaluate(biomassCoefficients, defaultBiomass, species, diameter)
}

func evaluate(table map[string]coefficients, fallback coefficients, species string, diameter float64) (float64, error) {
	if diameter <= 0 {
		return 0, fmt.Errorf("diameter %.2f must be positive", diameter)
	}
	c, ok := table[species]
	if !ok {
		c = fallback
	}
	v := c.b0 + c.b1*diameter*diameter
	if v < 0 {
		// Small stems near the equation intercept can go negative; clamp
		// rather than subtract volume from the population.
		v = 0
	}
	return v, nil
}

// maxCredibleDiameter marks the upper bound of the fitting data.
const maxCredibleDiameter = 120.0

type diameterRangeRule struct{}

func (diameterRangeRule) Name() string { return "westvol_diameter_range" }

func (diameterRangeRule) Evaluate(ctx context.Context, view domain.RuleView) (domain.Result, error) {
	var result domain.Result
	for _, tree := range view.ListTrees() {
		if tree.Diameter == nil || *tree.Diameter <= maxCredibleDiameter {
			continue
		}
		result.Violations = append(result.Violations, domain.Violation{
			Rule:     "westvol_diameter_range",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("diameter %.1f exceeds equation fitting range", *tree.Diameter),
			Entity:   domain.EntityTree,
			EntityID: tree.ID,
		})
	}
	return result, nil
}
