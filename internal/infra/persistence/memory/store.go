// Package memory provides the in-memory implementation of the inventory
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"fiacore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Evaluation aliases domain.Evaluation for in-memory persistence.
	Evaluation = domain.Evaluation
	// EstimationUnit aliases domain.EstimationUnit.
	EstimationUnit = domain.EstimationUnit
	// Stratum aliases domain.Stratum.
	Stratum = domain.Stratum
	// Plot aliases domain.Plot.
	Plot = domain.Plot
	// Condition aliases domain.Condition.
	Condition = domain.Condition
	// Tree aliases domain.Tree.
	Tree = domain.Tree
	// Transaction aliases domain.Transaction representing a unit of work.
	Transaction = domain.Transaction
	// StoreView aliases domain.StoreView providing read-only state.
	StoreView = domain.StoreView
)

type memoryState struct {
	evaluations map[string]Evaluation
	units       map[string]EstimationUnit
	strata      map[string]Stratum
	plots       map[string]Plot
	conditions  map[string]Condition
	trees       map[string]Tree
}

// Snapshot captures a point-in-time clone of the store state for export to
// durable backends.
type Snapshot struct {
	Evaluations map[string]Evaluation     `json:"evaluations"`
	Units       map[string]EstimationUnit `json:"units"`
	Strata      map[string]Stratum        `json:"strata"`
	Plots       map[string]Plot           `json:"plots"`
	Conditions  map[string]Condition      `json:"conditions"`
	Trees       map[string]Tree           `json:"trees"`
}

func newMemoryState() memoryState {
	return memoryState{
		evaluations: make(map[string]Evaluation),
		units:       make(map[string]EstimationUnit),
		strata:      make(map[string]Stratum),
		plots:       make(map[string]Plot),
		conditions:  make(map[string]Condition),
		trees:       make(map[string]Tree),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.evaluations {
		cloned.evaluations[k] = cloneEvaluation(v)
	}
	for k, v := range s.units {
		cloned.units[k] = v
	}
	for k, v := range s.strata {
		cloned.strata[k] = cloneStratum(v)
	}
	for k, v := range s.plots {
		cloned.plots[k] = clonePlot(v)
	}
	for k, v := range s.conditions {
		cloned.conditions[k] = v
	}
	for k, v := range s.trees {
		cloned.trees[k] = cloneTree(v)
	}
	return cloned
}

func cloneEvaluation(e Evaluation) Evaluation {
	cp := e
	cp.Families = append([]domain.EstimateFamily(nil), e.Families...)
	return cp
}

func cloneStratum(st Stratum) Stratum {
	cp := st
	if st.Points != nil {
		cp.Points = make(map[domain.PlotType]domain.PointTally, len(st.Points))
		for k, v := range st.Points {
			cp.Points[k] = v
		}
	}
	return cp
}

func clonePlot(p Plot) Plot {
	cp := p
	cp.ConditionIDs = append([]string(nil), p.ConditionIDs...)
	if p.PrevPlotID != nil {
		id := *p.PrevPlotID
		cp.PrevPlotID = &id
	}
	return cp
}

func cloneTree(t Tree) Tree {
	cp := t
	if t.PrevTreeID != nil {
		id := *t.PrevTreeID
		cp.PrevTreeID = &id
	}
	if t.Diameter != nil {
		d := *t.Diameter
		cp.Diameter = &d
	}
	if t.MidDiameter != nil {
		d := *t.MidDiameter
		cp.MidDiameter = &d
	}
	if t.MidPlotType != nil {
		pt := *t.MidPlotType
		cp.MidPlotType = &pt
	}
	return cp
}

// Store provides an in-memory transactional store for inventory records.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.state.clone()
	return Snapshot{
		Evaluations: state.evaluations,
		Units:       state.units,
		Strata:      state.strata,
		Plots:       state.plots,
		Conditions:  state.conditions,
		Trees:       state.trees,
	}
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	state := newMemoryState()
	for k, v := range snapshot.Evaluations {
		state.evaluations[k] = cloneEvaluation(v)
	}
	for k, v := range snapshot.Units {
		state.units[k] = v
	}
	for k, v := range snapshot.Strata {
		state.strata[k] = cloneStratum(v)
	}
	for k, v := range snapshot.Plots {
		state.plots[k] = clonePlot(v)
	}
	for k, v := range snapshot.Conditions {
		state.conditions[k] = v
	}
	for k, v := range snapshot.Trees {
		state.trees[k] = cloneTree(v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// NowFunc returns the time provider used for CreatedAt stamps.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	store *Store
	state memoryState
	now   time.Time
}

type storeView struct {
	state *memoryState
}

// RunInTransaction executes fn against a transactional copy of the store
// state and commits atomically on success. Records are append-only, so a
// committed transaction only ever adds keys.
func (s *Store) RunInTransaction(_ context.Context, fn func(Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(StoreView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(storeView{state: &snapshot})
}

// ListEvaluations returns all evaluations sorted by ID.
func (s *Store) ListEvaluations() []Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Evaluation, 0, len(s.state.evaluations))
	for _, e := range s.state.evaluations {
		out = append(out, cloneEvaluation(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetEvaluation retrieves one evaluation by ID.
func (s *Store) GetEvaluation(id string) (Evaluation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.evaluations[id]
	if !ok {
		return Evaluation{}, false
	}
	return cloneEvaluation(e), true
}

func (tx *transaction) CreateEvaluation(e Evaluation) (Evaluation, error) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if _, exists := tx.state.evaluations[e.ID]; exists {
		return Evaluation{}, fmt.Errorf("evaluation %q already exists", e.ID)
	}
	e.CreatedAt = tx.now
	tx.state.evaluations[e.ID] = cloneEvaluation(e)
	return cloneEvaluation(e), nil
}

func (tx *transaction) CreateEstimationUnit(u EstimationUnit) (EstimationUnit, error) {
	if u.ID == "" {
		u.ID = tx.store.newID()
	}
	if _, exists := tx.state.units[u.ID]; exists {
		return EstimationUnit{}, fmt.Errorf("estimation unit %q already exists", u.ID)
	}
	if _, ok := tx.state.evaluations[u.EvaluationID]; !ok {
		return EstimationUnit{}, domain.ErrNotFound{Entity: domain.EntityEvaluation, ID: u.EvaluationID}
	}
	u.CreatedAt = tx.now
	tx.state.units[u.ID] = u
	return u, nil
}

func (tx *transaction) CreateStratum(st Stratum) (Stratum, error) {
	if st.ID == "" {
		st.ID = tx.store.newID()
	}
	if _, exists := tx.state.strata[st.ID]; exists {
		return Stratum{}, fmt.Errorf("stratum %q already exists", st.ID)
	}
	if _, ok := tx.state.units[st.EstimationUnitID]; !ok {
		return Stratum{}, domain.ErrNotFound{Entity: domain.EntityEstimationUnit, ID: st.EstimationUnitID}
	}
	st.CreatedAt = tx.now
	tx.state.strata[st.ID] = cloneStratum(st)
	return cloneStratum(st), nil
}

func (tx *transaction) CreatePlot(p Plot) (Plot, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.plots[p.ID]; exists {
		return Plot{}, fmt.Errorf("plot %q already exists", p.ID)
	}
	if _, ok := tx.state.evaluations[p.EvaluationID]; !ok {
		return Plot{}, domain.ErrNotFound{Entity: domain.EntityEvaluation, ID: p.EvaluationID}
	}
	if _, ok := tx.state.strata[p.StratumID]; !ok {
		return Plot{}, domain.ErrNotFound{Entity: domain.EntityStratum, ID: p.StratumID}
	}
	if p.PrevPlotID != nil {
		if _, ok := tx.state.plots[*p.PrevPlotID]; !ok {
			return Plot{}, domain.ErrNotFound{Entity: domain.EntityPlot, ID: *p.PrevPlotID}
		}
	}
	p.CreatedAt = tx.now
	tx.state.plots[p.ID] = clonePlot(p)
	return clonePlot(p), nil
}

func (tx *transaction) CreateCondition(c Condition) (Condition, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.conditions[c.ID]; exists {
		return Condition{}, fmt.Errorf("condition %q already exists", c.ID)
	}
	if _, ok := tx.state.plots[c.PlotID]; !ok {
		return Condition{}, domain.ErrNotFound{Entity: domain.EntityPlot, ID: c.PlotID}
	}
	c.CreatedAt = tx.now
	tx.state.conditions[c.ID] = c
	return c, nil
}

func (tx *transaction) CreateTree(t Tree) (Tree, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	if _, exists := tx.state.trees[t.ID]; exists {
		return Tree{}, fmt.Errorf("tree %q already exists", t.ID)
	}
	if _, ok := tx.state.plots[t.PlotID]; !ok {
		return Tree{}, domain.ErrNotFound{Entity: domain.EntityPlot, ID: t.PlotID}
	}
	if _, ok := tx.state.conditions[t.ConditionID]; !ok {
		return Tree{}, domain.ErrNotFound{Entity: domain.EntityCondition, ID: t.ConditionID}
	}
	if t.PrevTreeID != nil {
		if _, ok := tx.state.trees[*t.PrevTreeID]; !ok {
			return Tree{}, domain.ErrNotFound{Entity: domain.EntityTree, ID: *t.PrevTreeID}
		}
	}
	t.CreatedAt = tx.now
	tx.state.trees[t.ID] = cloneTree(t)
	return cloneTree(t), nil
}

func (tx *transaction) FindEvaluation(id string) (Evaluation, bool) {
	e, ok := tx.state.evaluations[id]
	if !ok {
		return Evaluation{}, false
	}
	return cloneEvaluation(e), true
}

func (tx *transaction) FindStratum(id string) (Stratum, bool) {
	st, ok := tx.state.strata[id]
	if !ok {
		return Stratum{}, false
	}
	return cloneStratum(st), true
}

func (tx *transaction) FindPlot(id string) (Plot, bool) {
	p, ok := tx.state.plots[id]
	if !ok {
		return Plot{}, false
	}
	return clonePlot(p), true
}

func (v storeView) ListEvaluations() []Evaluation {
	out := make([]Evaluation, 0, len(v.state.evaluations))
	for _, e := range v.state.evaluations {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v storeView) ListEstimationUnits() []EstimationUnit {
	out := make([]EstimationUnit, 0, len(v.state.units))
	for _, u := range v.state.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v storeView) ListStrata() []Stratum {
	out := make([]Stratum, 0, len(v.state.strata))
	for _, st := range v.state.strata {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v storeView) ListPlots() []Plot {
	out := make([]Plot, 0, len(v.state.plots))
	for _, p := range v.state.plots {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v storeView) ListConditions() []Condition {
	out := make([]Condition, 0, len(v.state.conditions))
	for _, c := range v.state.conditions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v storeView) ListTrees() []Tree {
	out := make([]Tree, 0, len(v.state.trees))
	for _, t := range v.state.trees {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v storeView) FindEvaluation(id string) (Evaluation, bool) {
	e, ok := v.state.evaluations[id]
	return e, ok
}

func (v storeView) FindEstimationUnit(id string) (EstimationUnit, bool) {
	u, ok := v.state.units[id]
	return u, ok
}

func (v storeView) FindStratum(id string) (Stratum, bool) {
	st, ok := v.state.strata[id]
	return st, ok
}

func (v storeView) FindPlot(id string) (Plot, bool) {
	p, ok := v.state.plots[id]
	return p, ok
}

func (v storeView) FindCondition(id string) (Condition, bool) {
	c, ok := v.state.conditions[id]
	return c, ok
}

func (v storeView) FindTree(id string) (Tree, bool) {
	t, ok := v.state.trees[id]
	return t, ok
}
