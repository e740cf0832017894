package strata

import (
	"errors"
	"math"
	"testing"

	"fiacore/pkg/domain"
)

func TestAdjustmentFactor(t *testing.T) {
	got, err := Factor("s1", domain.PointTally{Total: 100, Sampled: 90})
	if err != nil {
		t.Fatalf("factor: %v", err)
	}
	if math.Abs(got-1.1111) > 1e-4 {
		t.Fatalf("factor = %f, want ~1.1111", got)
	}
}

func TestAdjustmentFactorFullySampled(t *testing.T) {
	got, err := Factor("s1", domain.PointTally{Total: 80, Sampled: 80})
	if err != nil {
		t.Fatalf("factor: %v", err)
	}
	if got != 1.0 {
		t.Fatalf("fully sampled stratum factor = %f, want 1.0", got)
	}
}

func TestAdjustmentFactorZeroSampled(t *testing.T) {
	_, err := Factor("s1", domain.PointTally{Total: 50, Sampled: 0})
	var cfg domain.StratumConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected StratumConfigurationError, got %v", err)
	}
	if cfg.StratumID != "s1" {
		t.Fatalf("error carries stratum %q, want s1", cfg.StratumID)
	}
}

func TestAdjustmentFactorSampledExceedsTotal(t *testing.T) {
	_, err := Factor("s1", domain.PointTally{Total: 10, Sampled: 12})
	var cfg domain.StratumConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected StratumConfigurationError, got %v", err)
	}
}

func TestAdjustmentFactorsPerPlotType(t *testing.T) {
	s := domain.Stratum{
		Base: domain.Base{ID: "s1"},
		Points: map[domain.PlotType]domain.PointTally{
			domain.PlotSubplot:     {Total: 100, Sampled: 90},
			domain.PlotMicroplot:   {Total: 100, Sampled: 100},
			domain.PlotCWDTransect: {Total: 40, Sampled: 32},
		},
	}
	factors, err := AdjustmentFactors(s)
	if err != nil {
		t.Fatalf("factors: %v", err)
	}
	if len(factors) != 3 {
		t.Fatalf("expected 3 factors, got %d", len(factors))
	}
	if factors[domain.PlotMicroplot] != 1.0 {
		t.Fatalf("microplot factor = %f, want 1.0", factors[domain.PlotMicroplot])
	}
	if math.Abs(factors[domain.PlotCWDTransect]-1.25) > 1e-9 {
		t.Fatalf("cwd factor = %f, want 1.25", factors[domain.PlotCWDTransect])
	}
	if _, ok := factors[domain.PlotMacroplot]; ok {
		t.Fatalf("macroplot factor present without a recorded tally")
	}
}

func TestAdjustmentFactorsAtLeastOne(t *testing.T) {
	s := domain.Stratum{
		Base: domain.Base{ID: "s2"},
		Points: map[domain.PlotType]domain.PointTally{
			domain.PlotSubplot: {Total: 73, Sampled: 61},
		},
	}
	factors, err := AdjustmentFactors(s)
	if err != nil {
		t.Fatalf("factors: %v", err)
	}
	if factors[domain.PlotSubplot] < 1.0 {
		t.Fatalf("adjustment factor below 1.0: %f", factors[domain.PlotSubplot])
	}
}
