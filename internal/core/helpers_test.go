package core

import (
	"context"
	"testing"

	"fiacore/internal/infra/persistence/memory"
	"fiacore/pkg/domain"
	"fiacore/pkg/pluginapi"
)

func fptr(v float64) *float64 { return &v }

func sptr(s string) *string { return &s }

// linearEquations values a tree at its diameter so expected totals stay
// hand-checkable: volume = d, biomass = 2d.
type linearEquations struct {
	name string
}

func (e linearEquations) Name() string { return e.name }

func (e linearEquations) VolumeCuFt(_ string, diameter float64) (float64, error) {
	return diameter, nil
}

func (e linearEquations) BiomassLbs(_ string, diameter float64) (float64, error) {
	return 2 * diameter, nil
}

type testPlugin struct {
	name string
	set  domain.EquationSet
}

func (p testPlugin) Name() string    { return p.name }
func (p testPlugin) Version() string { return "0.0.1" }

func (p testPlugin) Register(registry pluginapi.Registry) error {
	return registry.RegisterEquationSet(p.set)
}

// seedTwoPanelStore builds the canonical two-panel remeasurement fixture:
// a 2000-2010 panel holding the T1 records and a 2010-2020 growth-accounting
// panel whose single plot remeasures it. The current panel tallies one
// survivor (10 -> 12 in), one natural mortality (10 -> 11 in reconstructed),
// and one harvest-removed tree (20 in at T1, gone at T2).
func seedTwoPanelStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateEvaluation(domain.Evaluation{
			Base:      domain.Base{ID: "eval-0"},
			Geography: "OR",
			StartYear: 2000,
			EndYear:   2010,
			Kind:      domain.KindAnnual,
			AreaAcres: 1000,
		}); err != nil {
			return err
		}
		if _, err := tx.CreateEstimationUnit(domain.EstimationUnit{
			Base:         domain.Base{ID: "unit-0"},
			EvaluationID: "eval-0",
			Geography:    "OR",
			AreaAcres:    1000,
		}); err != nil {
			return err
		}
		if _, err := tx.CreateStratum(domain.Stratum{
			Base:             domain.Base{ID: "stratum-0"},
			EstimationUnitID: "unit-0",
			Weight:           1.0,
			Points: map[domain.PlotType]domain.PointTally{
				domain.PlotSubplot: {Total: 10, Sampled: 10},
			},
		}); err != nil {
			return err
		}
		if _, err := tx.CreatePlot(domain.Plot{
			Base:            domain.Base{ID: "plot-0"},
			EvaluationID:    "eval-0",
			StratumID:       "stratum-0",
			DesignCode:      1,
			MeasurementYear: 2010,
			Geography:       "OR",
			ConditionIDs:    []string{"cond-0"},
		}); err != nil {
			return err
		}
		if _, err := tx.CreateCondition(domain.Condition{
			Base:       domain.Base{ID: "cond-0"},
			PlotID:     "plot-0",
			Proportion: 1.0,
			LandBasis:  domain.LandForest,
			Ownership:  "public",
		}); err != nil {
			return err
		}
		t1Trees := []domain.Tree{
			{
				Base: domain.Base{ID: "t1-surv"}, PlotID: "plot-0", ConditionID: "cond-0",
				Species: "douglas-fir", SpeciesClass: domain.Softwood,
				Status: domain.StatusLive, Diameter: fptr(10.0), PlotType: domain.PlotSubplot,
			},
			{
				Base: domain.Base{ID: "t1-mort"}, PlotID: "plot-0", ConditionID: "cond-0",
				Species: "douglas-fir", SpeciesClass: domain.Softwood,
				Status: domain.StatusLive, Diameter: fptr(10.0), PlotType: domain.PlotSubplot,
			},
			{
				Base: domain.Base{ID: "t1-cut"}, PlotID: "plot-0", ConditionID: "cond-0",
				Species: "ponderosa-pine", SpeciesClass: domain.Softwood,
				Status: domain.StatusLive, Diameter: fptr(20.0), PlotType: domain.PlotSubplot,
			},
		}
		for _, tree := range t1Trees {
			if _, err := tx.CreateTree(tree); err != nil {
				return err
			}
		}

		if _, err := tx.CreateEvaluation(domain.Evaluation{
			Base:             domain.Base{ID: "eval-1"},
			Geography:        "OR",
			StartYear:        2010,
			EndYear:          2020,
			Kind:             domain.KindAnnual,
			GrowthAccounting: true,
			Families: []domain.EstimateFamily{
				domain.FamilyArea, domain.FamilyVolume,
				domain.FamilyGrowth, domain.FamilyRemovals, domain.FamilyMortality,
			},
			AreaAcres: 1000,
		}); err != nil {
			return err
		}
		if _, err := tx.CreateEstimationUnit(domain.EstimationUnit{
			Base:         domain.Base{ID: "unit-1"},
			EvaluationID: "eval-1",
			Geography:    "OR",
			AreaAcres:    1000,
		}); err != nil {
			return err
		}
		if _, err := tx.CreateStratum(domain.Stratum{
			Base:             domain.Base{ID: "stratum-1"},
			EstimationUnitID: "unit-1",
			Weight:           1.0,
			Points: map[domain.PlotType]domain.PointTally{
				domain.PlotSubplot:   {Total: 10, Sampled: 10},
				domain.PlotMicroplot: {Total: 10, Sampled: 10},
			},
		}); err != nil {
			return err
		}
		if _, err := tx.CreatePlot(domain.Plot{
			Base:               domain.Base{ID: "plot-1"},
			EvaluationID:       "eval-1",
			StratumID:          "stratum-1",
			DesignCode:         1,
			PrevPlotID:         sptr("plot-0"),
			MeasurementYear:    2020,
			RemeasurementYears: 10,
			Geography:          "OR",
			ConditionIDs:       []string{"cond-1"},
		}); err != nil {
			return err
		}
		if _, err := tx.CreateCondition(domain.Condition{
			Base:       domain.Base{ID: "cond-1"},
			PlotID:     "plot-1",
			Proportion: 1.0,
			LandBasis:  domain.LandForest,
			Ownership:  "public",
		}); err != nil {
			return err
		}
		t2Trees := []domain.Tree{
			{
				Base: domain.Base{ID: "t2-surv"}, PlotID: "plot-1", ConditionID: "cond-1",
				PrevTreeID: sptr("t1-surv"),
				Species:    "douglas-fir", SpeciesClass: domain.Softwood,
				Status: domain.StatusLive, Diameter: fptr(12.0), PlotType: domain.PlotSubplot,
			},
			{
				Base: domain.Base{ID: "t2-mort"}, PlotID: "plot-1", ConditionID: "cond-1",
				PrevTreeID: sptr("t1-mort"),
				Species:    "douglas-fir", SpeciesClass: domain.Softwood,
				Status: domain.StatusDead, Diameter: fptr(11.0), PlotType: domain.PlotSubplot,
			},
			{
				Base: domain.Base{ID: "t2-cut"}, PlotID: "plot-1", ConditionID: "cond-1",
				PrevTreeID: sptr("t1-cut"),
				Species:    "ponderosa-pine", SpeciesClass: domain.Softwood,
				Status: domain.StatusRemoved, PlotType: domain.PlotSubplot,
				HarvestKilled: true,
			},
		}
		for _, tree := range t2Trees {
			if _, err := tx.CreateTree(tree); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed fixture: %v", err)
	}
	return store
}

func buildTestSnapshot(t *testing.T, store domain.PersistentStore, evaluationID string) *Snapshot {
	t.Helper()
	var snap *Snapshot
	err := store.View(context.Background(), func(view domain.StoreView) error {
		var buildErr error
		snap, buildErr = BuildSnapshot(view, evaluationID)
		return buildErr
	})
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	return snap
}
