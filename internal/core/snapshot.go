package core

import (
	"sort"

	"fiacore/internal/grm"
	"fiacore/pkg/domain"
)

// Snapshot is the evaluation-scoped arena an estimate runs against. It is
// assembled once per request from a store view, with every cross-record
// reference resolved up front; aggregation then proceeds without further
// store access. Snapshot satisfies domain.RuleView.
type Snapshot struct {
	eval       domain.Evaluation
	units      []domain.EstimationUnit
	strataList []domain.Stratum
	plots      []domain.Plot

	unitsByID   map[string]domain.EstimationUnit
	strataByID  map[string]domain.Stratum
	plotsByID   map[string]domain.Plot
	conditions  map[string]domain.Condition
	treesByID   map[string]domain.Tree
	treesByPlot map[string][]domain.Tree

	// Predecessor records live outside the evaluation (the T1 plot belongs
	// to an earlier panel) and are resolved into the arena at build time.
	prevTrees      map[string]domain.Tree      // T2 tree ID -> T1 tree
	prevConditions map[string]domain.Condition // T1 condition ID -> condition
}

// BuildSnapshot resolves every record of one evaluation, including the T1
// predecessors of remeasured plots and trees. Any dangling reference aborts
// the build with a ReferentialIntegrityError.
func BuildSnapshot(view domain.StoreView, evaluationID string) (*Snapshot, error) {
	eval, ok := view.FindEvaluation(evaluationID)
	if !ok {
		return nil, domain.ErrNotFound{Entity: domain.EntityEvaluation, ID: evaluationID}
	}
	s := &Snapshot{
		eval:           eval,
		unitsByID:      map[string]domain.EstimationUnit{},
		strataByID:     map[string]domain.Stratum{},
		plotsByID:      map[string]domain.Plot{},
		conditions:     map[string]domain.Condition{},
		treesByID:      map[string]domain.Tree{},
		treesByPlot:    map[string][]domain.Tree{},
		prevTrees:      map[string]domain.Tree{},
		prevConditions: map[string]domain.Condition{},
	}

	for _, u := range view.ListEstimationUnits() {
		if u.EvaluationID != eval.ID {
			continue
		}
		s.units = append(s.units, u)
		s.unitsByID[u.ID] = u
	}
	sort.Slice(s.units, func(i, j int) bool { return s.units[i].ID < s.units[j].ID })

	for _, st := range view.ListStrata() {
		if _, ok := s.unitsByID[st.EstimationUnitID]; !ok {
			continue
		}
		s.strataList = append(s.strataList, st)
		s.strataByID[st.ID] = st
	}
	sort.Slice(s.strataList, func(i, j int) bool { return s.strataList[i].ID < s.strataList[j].ID })

	for _, p := range view.ListPlots() {
		if p.EvaluationID != eval.ID {
			continue
		}
		if _, ok := s.strataByID[p.StratumID]; !ok {
			return nil, domain.ReferentialIntegrityError{
				Entity: domain.EntityPlot, ID: p.ID,
				RefEntity: domain.EntityStratum, RefID: p.StratumID,
			}
		}
		if p.PrevPlotID != nil {
			if _, ok := view.FindPlot(*p.PrevPlotID); !ok {
				return nil, domain.ReferentialIntegrityError{
					Entity: domain.EntityPlot, ID: p.ID,
					RefEntity: domain.EntityPlot, RefID: *p.PrevPlotID,
				}
			}
		}
		for _, cid := range p.ConditionIDs {
			cond, ok := view.FindCondition(cid)
			if !ok {
				return nil, domain.ReferentialIntegrityError{
					Entity: domain.EntityPlot, ID: p.ID,
					RefEntity: domain.EntityCondition, RefID: cid,
				}
			}
			s.conditions[cond.ID] = cond
		}
		s.plots = append(s.plots, p)
		s.plotsByID[p.ID] = p
	}
	sort.Slice(s.plots, func(i, j int) bool { return s.plots[i].ID < s.plots[j].ID })

	for _, t := range view.ListTrees() {
		if _, ok := s.plotsByID[t.PlotID]; !ok {
			continue
		}
		if _, ok := s.conditions[t.ConditionID]; !ok {
			return nil, domain.ReferentialIntegrityError{
				Entity: domain.EntityTree, ID: t.ID,
				RefEntity: domain.EntityCondition, RefID: t.ConditionID,
			}
		}
		if t.PrevTreeID != nil {
			prev, ok := view.FindTree(*t.PrevTreeID)
			if !ok {
				return nil, domain.ReferentialIntegrityError{
					Entity: domain.EntityTree, ID: t.ID,
					RefEntity: domain.EntityTree, RefID: *t.PrevTreeID,
				}
			}
			prevCond, ok := view.FindCondition(prev.ConditionID)
			if !ok {
				return nil, domain.ReferentialIntegrityError{
					Entity: domain.EntityTree, ID: prev.ID,
					RefEntity: domain.EntityCondition, RefID: prev.ConditionID,
				}
			}
			s.prevTrees[t.ID] = prev
			s.prevConditions[prevCond.ID] = prevCond
		}
		s.treesByID[t.ID] = t
		s.treesByPlot[t.PlotID] = append(s.treesByPlot[t.PlotID], t)
	}
	for _, trees := range s.treesByPlot {
		sort.Slice(trees, func(i, j int) bool { return trees[i].ID < trees[j].ID })
	}
	return s, nil
}

// Evaluation returns the evaluation this snapshot was built for.
func (s *Snapshot) Evaluation() domain.Evaluation { return s.eval }

// ListEstimationUnits returns the evaluation's units sorted by ID.
func (s *Snapshot) ListEstimationUnits() []domain.EstimationUnit {
	out := make([]domain.EstimationUnit, len(s.units))
	copy(out, s.units)
	return out
}

// ListStrata returns the evaluation's strata sorted by ID.
func (s *Snapshot) ListStrata() []domain.Stratum {
	out := make([]domain.Stratum, len(s.strataList))
	copy(out, s.strataList)
	return out
}

// ListPlots returns the evaluation's plots sorted by ID.
func (s *Snapshot) ListPlots() []domain.Plot {
	out := make([]domain.Plot, len(s.plots))
	copy(out, s.plots)
	return out
}

// ListConditions returns every condition referenced by an in-scope plot.
func (s *Snapshot) ListConditions() []domain.Condition {
	out := make([]domain.Condition, 0, len(s.conditions))
	for _, c := range s.conditions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListTrees returns every tree tallied on an in-scope plot.
func (s *Snapshot) ListTrees() []domain.Tree {
	out := make([]domain.Tree, 0, len(s.treesByID))
	for _, t := range s.treesByID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Snapshot) FindEstimationUnit(id string) (domain.EstimationUnit, bool) {
	u, ok := s.unitsByID[id]
	return u, ok
}

func (s *Snapshot) FindStratum(id string) (domain.Stratum, bool) {
	st, ok := s.strataByID[id]
	return st, ok
}

func (s *Snapshot) FindPlot(id string) (domain.Plot, bool) {
	p, ok := s.plotsByID[id]
	return p, ok
}

func (s *Snapshot) FindCondition(id string) (domain.Condition, bool) {
	c, ok := s.conditions[id]
	if !ok {
		c, ok = s.prevConditions[id]
	}
	return c, ok
}

func (s *Snapshot) FindTree(id string) (domain.Tree, bool) {
	t, ok := s.treesByID[id]
	return t, ok
}

// PlotTrees returns the trees tallied on one plot, sorted by ID.
func (s *Snapshot) PlotTrees(plotID string) []domain.Tree {
	return s.treesByPlot[plotID]
}

// History assembles the two-measurement record the component classifier
// consumes. Trees without a predecessor get StatusNone at T1.
func (s *Snapshot) History(t domain.Tree) grm.History {
	cond := s.conditions[t.ConditionID]
	h := grm.History{
		Status:        t.Status,
		Diameter:      t.Diameter,
		MidDiameter:   t.MidDiameter,
		Basis:         cond.LandBasis,
		PlotType:      t.PlotType,
		HarvestKilled: t.HarvestKilled,
		PrevStatus:    domain.StatusNone,
		// A tree with no predecessor existed under its current condition's
		// land basis for the whole interval.
		PrevBasis: cond.LandBasis,
	}
	if t.MidPlotType != nil {
		h.MidPlotType = *t.MidPlotType
	}
	if prev, ok := s.prevTrees[t.ID]; ok {
		h.PrevStatus = prev.Status
		h.PrevDiameter = prev.Diameter
		h.PrevPlotType = prev.PlotType
		if prevCond, ok := s.prevConditions[prev.ConditionID]; ok {
			h.PrevBasis = prevCond.LandBasis
		}
		if t.MidDiameter == nil && prev.MidDiameter != nil {
			h.MidDiameter = prev.MidDiameter
		}
	}
	return h
}
