package domain

import "context"

// Transaction exposes the record-creation operations a persistence
// implementation must support within an atomic scope. Inventory records are
// append-only; there are no update or delete operations.
type Transaction interface {
	CreateEvaluation(Evaluation) (Evaluation, error)
	CreateEstimationUnit(EstimationUnit) (EstimationUnit, error)
	CreateStratum(Stratum) (Stratum, error)
	CreatePlot(Plot) (Plot, error)
	CreateCondition(Condition) (Condition, error)
	CreateTree(Tree) (Tree, error)
	FindEvaluation(id string) (Evaluation, bool)
	FindStratum(id string) (Stratum, bool)
	FindPlot(id string) (Plot, bool)
}

// StoreView provides read-only access to the full store state.
type StoreView interface {
	ListEvaluations() []Evaluation
	ListEstimationUnits() []EstimationUnit
	ListStrata() []Stratum
	ListPlots() []Plot
	ListConditions() []Condition
	ListTrees() []Tree
	FindEvaluation(id string) (Evaluation, bool)
	FindEstimationUnit(id string) (EstimationUnit, bool)
	FindStratum(id string) (Stratum, bool)
	FindPlot(id string) (Plot, bool)
	FindCondition(id string) (Condition, bool)
	FindTree(id string) (Tree, bool)
}

// PersistentStore is a minimal abstraction over durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(StoreView) error) error
	ListEvaluations() []Evaluation
	GetEvaluation(id string) (Evaluation, bool)
}
