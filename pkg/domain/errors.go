package domain

import "fmt"

// ReferentialIntegrityError reports a cross-table reference with no target.
// Fatal: it indicates a defect in the loaded snapshot, not a runtime
// condition.
type ReferentialIntegrityError struct {
	Entity    EntityType
	ID        string
	RefEntity EntityType
	RefID     string
}

func (e ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %s references %s %s which does not exist", e.Entity, e.ID, e.RefEntity, e.RefID)
}

// UnresolvedDesignError reports a plot design code outside the known design
// table. Fatal; unknown designs are never silently defaulted.
type UnresolvedDesignError struct {
	DesignCode int
}

func (e UnresolvedDesignError) Error() string {
	return fmt.Sprintf("plot design code %d not in design table", e.DesignCode)
}

// StratumConfigurationError reports an unusable stratum: zero sampled
// points, or weights that do not sum to one within tolerance. Fatal.
type StratumConfigurationError struct {
	StratumID string
	Reason    string
}

func (e StratumConfigurationError) Error() string {
	return fmt.Sprintf("stratum %s unusable: %s", e.StratumID, e.Reason)
}

// EvaluationScopeError reports a request that cannot be pinned to exactly
// one evaluation, or inputs spanning multiple evaluations. Fatal; the
// selector fails closed rather than guessing.
type EvaluationScopeError struct {
	Reason        string
	EvaluationIDs []string
}

func (e EvaluationScopeError) Error() string {
	if len(e.EvaluationIDs) > 0 {
		return fmt.Sprintf("evaluation scope: %s (candidates %v)", e.Reason, e.EvaluationIDs)
	}
	return fmt.Sprintf("evaluation scope: %s", e.Reason)
}

// ErrNotFound is returned when reference validation fails within
// transactional helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
