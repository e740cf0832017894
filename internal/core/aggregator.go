package core

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"fiacore/internal/design"
	"fiacore/internal/grm"
	"fiacore/internal/strata"
	"fiacore/pkg/domain"
)

// plotResult is one plot's contribution, computed independently of every
// other plot so plots can be aggregated in parallel.
type plotResult struct {
	plotID    string
	stratumID string
	value     float64
	groups    map[GroupKey]float64
	unknown   int
}

// aggregate computes the full population estimate for one snapshot. Plots
// are processed concurrently; stratum means, adjustment, and expansion then
// run over the collected per-plot values. Aggregation never mutates the
// snapshot, so repeated runs over the same snapshot return identical
// estimates.
func aggregate(ctx context.Context, snap *Snapshot, req Request, equations domain.EquationSet) (Estimate, error) {
	eval := snap.Evaluation()
	restriction := req.LandBasis
	if eval.TimberlandOnly {
		// The evaluation's plot set was compiled for timberland only; a wider
		// restriction would silently undercount.
		restriction = domain.LandTimberland
	}
	if req.Attribute != AttrCount && equations == nil {
		return Estimate{}, fmt.Errorf("no equation set installed for attribute %q", req.Attribute)
	}

	adjByStratum := make(map[string]map[domain.PlotType]float64, len(snap.strataList))
	for _, st := range snap.strataList {
		factors, err := strata.AdjustmentFactors(st)
		if err != nil {
			return Estimate{}, err
		}
		adjByStratum[st.ID] = factors
	}

	plots := snap.ListPlots()
	results := make([]plotResult, len(plots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, plot := range plots {
		i, plot := i, plot
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := aggregatePlot(snap, plot, req, restriction, adjByStratum[plot.StratumID], equations)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Estimate{}, err
	}

	est := Estimate{
		EvaluationID: eval.ID,
		Request:      req,
		Groups:       map[GroupKey]float64{},
	}

	valuesByStratum := map[string][]float64{}
	groupValuesByStratum := map[GroupKey]map[string][]float64{}
	for _, res := range results {
		est.UnknownTrees += res.unknown
		est.Contributions = append(est.Contributions, PlotContribution{
			PlotID:    res.plotID,
			StratumID: res.stratumID,
			Value:     res.value,
		})
		valuesByStratum[res.stratumID] = append(valuesByStratum[res.stratumID], res.value)
		for key, v := range res.groups {
			byStratum, ok := groupValuesByStratum[key]
			if !ok {
				byStratum = map[string][]float64{}
				groupValuesByStratum[key] = byStratum
			}
			byStratum[res.stratumID] = append(byStratum[res.stratumID], v)
		}
	}

	meansByStratum := map[string]strata.StratumMean{}
	for _, st := range snap.strataList {
		values := valuesByStratum[st.ID]
		if len(values) == 0 {
			// A stratum with no field plots contributes a zero mean rather
			// than aborting: its weight still participates in expansion.
			meansByStratum[st.ID] = strata.StratumMean{StratumID: st.ID}
			continue
		}
		mean, err := strata.PlotMean(st.ID, values)
		if err != nil {
			return Estimate{}, err
		}
		meansByStratum[st.ID] = mean
	}

	var totalArea float64
	for _, unit := range snap.units {
		var unitMeans []strata.StratumMean
		for _, st := range snap.strataList {
			if st.EstimationUnitID != unit.ID {
				continue
			}
			unitMeans = append(unitMeans, meansByStratum[st.ID])
		}
		total, err := strata.Expand(unit, snap.strataByID, unitMeans)
		if err != nil {
			return Estimate{}, err
		}
		est.Units = append(est.Units, UnitTotal{
			EstimationUnitID: unit.ID,
			AreaAcres:        unit.AreaAcres,
			Total:            total,
		})
		est.Total += total
		totalArea += unit.AreaAcres
		est.StrataMeans = append(est.StrataMeans, unitMeans...)
	}
	if totalArea > 0 {
		est.PerAcre = est.Total / totalArea
	}

	for key, byStratum := range groupValuesByStratum {
		groupTotal, err := expandGroup(snap, byStratum, valuesByStratum)
		if err != nil {
			return Estimate{}, err
		}
		est.Groups[key] = groupTotal
	}

	sort.Slice(est.Contributions, func(i, j int) bool {
		return est.Contributions[i].PlotID < est.Contributions[j].PlotID
	})
	return est, nil
}

// expandGroup expands one group's per-plot values through the same stratum
// machinery as the overall estimate. Plots in a stratum that tallied nothing
// for the group contribute zeros, keeping the denominator honest.
func expandGroup(snap *Snapshot, byStratum map[string][]float64, allByStratum map[string][]float64) (float64, error) {
	var total float64
	for _, unit := range snap.units {
		var unitMeans []strata.StratumMean
		for _, st := range snap.strataList {
			if st.EstimationUnitID != unit.ID {
				continue
			}
			values := byStratum[st.ID]
			plotCount := len(allByStratum[st.ID])
			if plotCount == 0 {
				unitMeans = append(unitMeans, strata.StratumMean{StratumID: st.ID})
				continue
			}
			padded := make([]float64, plotCount)
			copy(padded, values)
			mean, err := strata.PlotMean(st.ID, padded)
			if err != nil {
				return 0, err
			}
			unitMeans = append(unitMeans, mean)
		}
		unitTotal, err := strata.Expand(unit, snap.strataByID, unitMeans)
		if err != nil {
			return 0, err
		}
		total += unitTotal
	}
	return total, nil
}

func aggregatePlot(snap *Snapshot, plot domain.Plot, req Request, restriction domain.LandBasis, adj map[domain.PlotType]float64, equations domain.EquationSet) (plotResult, error) {
	res := plotResult{
		plotID:    plot.ID,
		stratumID: plot.StratumID,
		groups:    map[GroupKey]float64{},
	}
	if adj == nil {
		adj = map[domain.PlotType]float64{}
	}

	if req.Family == domain.FamilyArea {
		for _, cid := range plot.ConditionIDs {
			cond, ok := snap.FindCondition(cid)
			if !ok {
				continue
			}
			if !cond.LandBasis.InBasis(restriction) {
				continue
			}
			factor, err := adjustmentFor(plot.StratumID, adj, domain.PlotSubplot)
			if err != nil {
				return plotResult{}, err
			}
			v := cond.Proportion * factor
			res.value += v
			if req.wantsDimension(DimOwnership) {
				key := GroupKey{Ownership: cond.Ownership}
				res.groups[key] += v
			}
		}
		return res, nil
	}

	for _, tree := range snap.PlotTrees(plot.ID) {
		cond, ok := snap.FindCondition(tree.ConditionID)
		if !ok {
			continue
		}
		var (
			v         float64
			comp      domain.Component
			governing float64
			err       error
		)
		if req.Family.ChangeFamily() {
			var cls grm.Classification
			v, cls, err = changeValue(snap, plot, tree, req, restriction, adj, equations)
			comp = cls.Component
			governing = cls.Diameter
		} else {
			v, err = currentValue(plot, tree, cond, req, restriction, adj, equations)
			if tree.Diameter != nil {
				governing = *tree.Diameter
			}
		}
		if err != nil {
			return plotResult{}, err
		}
		if comp.Base == domain.CompUnknown {
			res.unknown++
			continue
		}
		if v == 0 {
			continue
		}
		res.value += v
		key := GroupKey{}
		grouped := false
		if req.wantsDimension(DimSpecies) {
			key.Species = tree.Species
			grouped = true
		}
		if req.wantsDimension(DimOwnership) {
			key.Ownership = cond.Ownership
			grouped = true
		}
		if req.wantsDimension(DimComponent) && req.Family.ChangeFamily() {
			key.Component = comp.Code()
			grouped = true
		}
		if req.wantsDimension(DimSizeClass) {
			key.SizeClass = sizeClassLabel(governing)
			grouped = true
		}
		if grouped {
			res.groups[key] += v
		}
	}
	return res, nil
}

// currentValue computes a tree's per-acre contribution to a point-in-time
// estimate: live trees at or above the type threshold, valued at the
// measured diameter.
func currentValue(plot domain.Plot, tree domain.Tree, cond domain.Condition, req Request, restriction domain.LandBasis, adj map[domain.PlotType]float64, equations domain.EquationSet) (float64, error) {
	if tree.Status != domain.StatusLive || tree.Diameter == nil {
		return 0, nil
	}
	if !cond.LandBasis.InBasis(restriction) {
		return 0, nil
	}
	d := *tree.Diameter
	if d < grm.Threshold(req.EstimationType, tree.SpeciesClass) {
		return 0, nil
	}
	perAcre, err := design.PerAcre(plot.DesignCode, tree.PlotType, d)
	if err != nil {
		return 0, err
	}
	factor, err := adjustmentFor(plot.StratumID, adj, tree.PlotType)
	if err != nil {
		return 0, err
	}
	attr, err := attributeValue(equations, req.Attribute, tree.Species, d)
	if err != nil {
		return 0, err
	}
	return attr * perAcre * factor, nil
}

// changeValue computes a tree's annualized per-acre contribution to a
// growth, removals, or mortality estimate. The component classification
// decides both whether the tree participates and which instant's diameter
// and plot assignment govern its expansion.
func changeValue(snap *Snapshot, plot domain.Plot, tree domain.Tree, req Request, restriction domain.LandBasis, adj map[domain.PlotType]float64, equations domain.EquationSet) (float64, grm.Classification, error) {
	h := snap.History(tree)
	cls := grm.Classify(h, restriction, req.EstimationType, tree.SpeciesClass, snap.Evaluation())
	comp := cls.Component
	switch comp.Base {
	case domain.CompUnknown:
		return 0, cls, nil
	case domain.CompNotApplicable:
		return 0, cls, nil
	}

	years := plot.RemeasurementYears
	if years <= 0 {
		return 0, cls, fmt.Errorf("plot %s: change estimate over %.2f-year period", plot.ID, years)
	}

	perAcre, err := design.PerAcre(plot.DesignCode, cls.PlotType, cls.Diameter)
	if err != nil {
		return 0, cls, err
	}
	factor, err := adjustmentFor(plot.StratumID, adj, cls.PlotType)
	if err != nil {
		return 0, cls, err
	}
	expand := perAcre * factor / years

	switch req.Family {
	case domain.FamilyMortality:
		if comp.Base != domain.CompMortality {
			return 0, cls, nil
		}
		attr, err := attributeValue(equations, req.Attribute, tree.Species, cls.Diameter)
		if err != nil {
			return 0, cls, err
		}
		return attr * expand, cls, nil

	case domain.FamilyRemovals:
		if !comp.CountsTowardRemovals() {
			return 0, cls, nil
		}
		attr, err := attributeValue(equations, req.Attribute, tree.Species, cls.Diameter)
		if err != nil {
			return 0, cls, err
		}
		return attr * expand, cls, nil

	case domain.FamilyGrowth:
		end, begin, err := growthEndpoints(h, cls, req, restriction, tree, equations)
		if err != nil {
			return 0, cls, err
		}
		return (end - begin) * expand, cls, nil
	}
	return 0, cls, nil
}

// growthEndpoints returns the end and begin attribute values whose signed
// difference is a tree's net growth over the interval. Mortality ends the
// interval with nothing; cut and diverted trees carry their growth up to
// the midpoint event, with the removal itself accounted in the removals
// family.
func growthEndpoints(h grm.History, cls grm.Classification, req Request, restriction domain.LandBasis, tree domain.Tree, equations domain.EquationSet) (end, begin float64, err error) {
	threshold := grm.Threshold(req.EstimationType, tree.SpeciesClass)

	// Begin value exists only when the tree was live, in basis, and at or
	// above threshold at T1. Variant-2 components started below threshold,
	// so their begin value is zero by construction.
	if h.PrevStatus == domain.StatusLive && h.PrevBasis.InBasis(restriction) &&
		h.PrevDiameter != nil && *h.PrevDiameter >= threshold && !cls.Component.CrossedThresholdMidInterval {
		begin, err = attributeValue(equations, req.Attribute, tree.Species, *h.PrevDiameter)
		if err != nil {
			return 0, 0, err
		}
	}

	switch cls.Component.Base {
	case domain.CompSurvivor, domain.CompIngrowth:
		end, err = attributeValue(equations, req.Attribute, tree.Species, cls.Diameter)
	case domain.CompCut, domain.CompDiversion:
		// Growth up to the midpoint event counts; the stem leaves the pool.
		end, err = attributeValue(equations, req.Attribute, tree.Species, cls.Diameter)
	case domain.CompReversion:
		// Reverted land enters the pool carrying its standing value.
		end, err = attributeValue(equations, req.Attribute, tree.Species, cls.Diameter)
		begin = 0
	case domain.CompMortality:
		end = 0
	}
	if err != nil {
		return 0, 0, err
	}
	return end, begin, nil
}

// sizeClassLabel buckets a governing diameter into the conventional 2-inch
// diameter classes (1.0-2.9, 3.0-4.9, ...). Stems below one inch share a
// single sapling class.
func sizeClassLabel(diameter float64) string {
	if diameter < 1.0 {
		return "0.0-0.9"
	}
	lower := math.Floor((diameter-1.0)/2.0)*2.0 + 1.0
	return fmt.Sprintf("%.1f-%.1f", lower, lower+1.9)
}

func adjustmentFor(stratumID string, adj map[domain.PlotType]float64, plotType domain.PlotType) (float64, error) {
	factor, ok := adj[plotType]
	if !ok {
		return 0, domain.StratumConfigurationError{
			StratumID: stratumID,
			Reason:    fmt.Sprintf("no point tally for plot type %s", plotType),
		}
	}
	return factor, nil
}

func attributeValue(equations domain.EquationSet, attr Attribute, species string, diameter float64) (float64, error) {
	switch attr {
	case AttrCount:
		return 1, nil
	case AttrBiomass:
		return equations.BiomassLbs(species, diameter)
	default:
		return equations.VolumeCuFt(species, diameter)
	}
}
