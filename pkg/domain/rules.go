package domain

import "context"

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether an estimate may proceed.
const (
	// SeverityBlock aborts the estimate request.
	SeverityBlock Severity = "block"
	// SeverityWarn surfaces the violation but allows the estimate.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "estimate blocked by integrity rules"
}

// RuleView provides read-only access to the evaluation-scoped snapshot for
// rule evaluation.
type RuleView interface {
	Evaluation() Evaluation
	ListEstimationUnits() []EstimationUnit
	ListStrata() []Stratum
	ListPlots() []Plot
	ListConditions() []Condition
	ListTrees() []Tree
	FindEstimationUnit(id string) (EstimationUnit, bool)
	FindStratum(id string) (Stratum, bool)
	FindPlot(id string) (Plot, bool)
	FindCondition(id string) (Condition, bool)
	FindTree(id string) (Tree, bool)
}

// Rule defines an integrity check executed against a snapshot before an
// estimate is computed.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
