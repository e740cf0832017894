package core

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fiacore/internal/infra/persistence/memory"
	"fiacore/pkg/domain"
)

func TestServiceEstimateEndToEnd(t *testing.T) {
	store := seedTwoPanelStore(t)
	registry := prometheus.NewRegistry()
	service := NewEstimateService(store,
		WithLogger(zap.NewNop()),
		WithMetrics(NewMetrics(registry)))

	meta, err := service.InstallPlugin(testPlugin{name: "linear", set: linearEquations{name: "linear"}})
	require.NoError(t, err)
	assert.Equal(t, "linear", meta.Name)

	est, err := service.Estimate(context.Background(), Request{
		Geography: "OR",
		Family:    domain.FamilyVolume,
	})
	require.NoError(t, err)
	assert.Equal(t, "eval-1", est.EvaluationID)
	assert.Empty(t, est.Warnings)
	assert.Zero(t, est.UnknownTrees)

	// Live survivor at 12 inches, one fully weighted 1000-acre unit.
	spa := subplotPerAcre(t)
	assert.InDelta(t, 12.0*spa*1000, est.Total, 1e-6)
	assert.InDelta(t, 12.0*spa, est.PerAcre, 1e-9)

	// Defaults were applied by normalization.
	assert.Equal(t, AttrVolume, est.Request.Attribute)
	assert.Equal(t, domain.LandForest, est.Request.LandBasis)

	count := testutil.ToFloat64(service.metrics.estimatesTotal.WithLabelValues("volume", "ok"))
	assert.Equal(t, 1.0, count)
}

func TestServiceEstimateBlockedByRules(t *testing.T) {
	store := seedTwoPanelStore(t)
	// Records are append-only, so inject the defect through a state import:
	// plot-1's single condition now covers only a quarter of the plot.
	snapshot := store.ExportState()
	cond := snapshot.Conditions["cond-1"]
	cond.Proportion = 0.25
	snapshot.Conditions["cond-1"] = cond
	broken := memory.NewStore()
	broken.ImportState(snapshot)

	registry := prometheus.NewRegistry()
	service := NewEstimateService(broken, WithMetrics(NewMetrics(registry)))
	_, err := service.InstallPlugin(testPlugin{name: "linear", set: linearEquations{name: "linear"}})
	require.NoError(t, err)

	_, err = service.Estimate(context.Background(), Request{
		Geography: "OR",
		Family:    domain.FamilyVolume,
	})
	var ruleErr domain.RuleViolationError
	require.ErrorAs(t, err, &ruleErr)
	assert.True(t, ruleErr.Result.HasBlocking())

	violations := testutil.ToFloat64(service.metrics.ruleViolations.WithLabelValues("condition_proportion_sum", "block"))
	assert.Equal(t, 1.0, violations)
	failures := testutil.ToFloat64(service.metrics.estimatesTotal.WithLabelValues("volume", "error"))
	assert.Equal(t, 1.0, failures)
}

func TestServiceEquationSetResolution(t *testing.T) {
	newService := func(t *testing.T) *EstimateService {
		t.Helper()
		return NewEstimateService(seedTwoPanelStore(t))
	}

	t.Run("no set registered fails non-count", func(t *testing.T) {
		service := newService(t)
		_, err := service.Estimate(context.Background(), Request{
			Geography: "OR", Family: domain.FamilyVolume,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no equation set registered")
	})

	t.Run("count needs no equations", func(t *testing.T) {
		service := newService(t)
		est, err := service.Estimate(context.Background(), Request{
			Geography: "OR", Family: domain.FamilyVolume, Attribute: AttrCount,
		})
		require.NoError(t, err)
		assert.Greater(t, est.Total, 0.0)
	})

	t.Run("named set must exist", func(t *testing.T) {
		service := newService(t)
		_, err := service.InstallPlugin(testPlugin{name: "linear", set: linearEquations{name: "linear"}})
		require.NoError(t, err)
		_, err = service.Estimate(context.Background(), Request{
			Geography: "OR", Family: domain.FamilyVolume, EquationSet: "missing",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not registered")
	})

	t.Run("multiple sets need an explicit name", func(t *testing.T) {
		service := newService(t)
		_, err := service.InstallPlugin(testPlugin{name: "a", set: linearEquations{name: "a"}})
		require.NoError(t, err)
		_, err = service.InstallPlugin(testPlugin{name: "b", set: linearEquations{name: "b"}})
		require.NoError(t, err)

		_, err = service.Estimate(context.Background(), Request{
			Geography: "OR", Family: domain.FamilyVolume,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "multiple equation sets")

		est, err := service.Estimate(context.Background(), Request{
			Geography: "OR", Family: domain.FamilyVolume, EquationSet: "b",
		})
		require.NoError(t, err)
		assert.Greater(t, est.Total, 0.0)
	})
}

func TestServiceInstallPluginDuplicateSet(t *testing.T) {
	service := NewEstimateService(memory.NewStore())
	_, err := service.InstallPlugin(testPlugin{name: "linear", set: linearEquations{name: "linear"}})
	require.NoError(t, err)
	_, err = service.InstallPlugin(testPlugin{name: "linear2", set: linearEquations{name: "linear"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestServicePluginsSorted(t *testing.T) {
	service := NewEstimateService(memory.NewStore())
	for _, name := range []string{"zeta", "alpha"} {
		_, err := service.InstallPlugin(testPlugin{name: name, set: linearEquations{name: name}})
		require.NoError(t, err)
	}
	plugins := service.Plugins()
	require.Len(t, plugins, 2)
	assert.Equal(t, "alpha", plugins[0].Name)
	assert.Equal(t, "zeta", plugins[1].Name)
}

func TestServiceAreaEstimateWithoutPlugins(t *testing.T) {
	service := NewEstimateService(seedTwoPanelStore(t))
	est, err := service.Estimate(context.Background(), Request{
		Geography: "OR",
		Family:    domain.FamilyArea,
	})
	require.NoError(t, err)
	// Area requests are forced to the count attribute during normalization.
	assert.Equal(t, AttrCount, est.Request.Attribute)
	assert.InDelta(t, 1000.0, est.Total, 1e-6)
}

func TestServiceEstimateScopeError(t *testing.T) {
	service := NewEstimateService(seedTwoPanelStore(t))
	_, err := service.Estimate(context.Background(), Request{
		Geography: "NV",
		Family:    domain.FamilyVolume,
		Attribute: AttrCount,
	})
	var scope domain.EvaluationScopeError
	require.True(t, errors.As(err, &scope), "got %v", err)
}
