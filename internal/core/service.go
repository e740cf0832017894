package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"fiacore/pkg/domain"
	"fiacore/pkg/pluginapi"
)

// EstimateService ties the persistence backend, the rules engine, and the
// plugin registry together behind the one public operation: computing a
// population estimate.
type EstimateService struct {
	store    domain.PersistentStore
	engine   *domain.RulesEngine
	registry *PluginRegistry
	logger   *zap.Logger
	metrics  *Metrics
	plugins  []PluginMetadata
}

// Option configures an EstimateService.
type Option func(*EstimateService)

// WithLogger installs a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *EstimateService) { s.logger = logger }
}

// WithMetrics installs engine instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(s *EstimateService) { s.metrics = m }
}

// WithRulesEngine replaces the default integrity rules.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(s *EstimateService) { s.engine = engine }
}

// NewEstimateService constructs a service over the given store with the
// built-in integrity rules.
func NewEstimateService(store domain.PersistentStore, opts ...Option) *EstimateService {
	s := &EstimateService{
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = DefaultRulesEngine()
	}
	s.registry = NewPluginRegistry(s.engine)
	return s
}

// Store exposes the underlying persistence backend for data loading.
func (s *EstimateService) Store() domain.PersistentStore { return s.store }

// InstallPlugin registers a plugin's equation sets and rules.
func (s *EstimateService) InstallPlugin(plugin pluginapi.Plugin) (PluginMetadata, error) {
	if err := plugin.Register(s.registry); err != nil {
		return PluginMetadata{}, fmt.Errorf("install plugin %s: %w", plugin.Name(), err)
	}
	meta := PluginMetadata{Name: plugin.Name(), Version: plugin.Version()}
	s.plugins = append(s.plugins, meta)
	s.logger.Info("plugin installed",
		zap.String("plugin", meta.Name),
		zap.String("version", meta.Version))
	return meta, nil
}

// Plugins lists installed plugins sorted by name.
func (s *EstimateService) Plugins() []PluginMetadata {
	out := make([]PluginMetadata, len(s.plugins))
	copy(out, s.plugins)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Estimate resolves the request to one evaluation, assembles and validates
// its snapshot, and runs the aggregation pipeline.
func (s *EstimateService) Estimate(ctx context.Context, req Request) (Estimate, error) {
	req = req.normalized()
	start := time.Now()
	est, err := s.estimate(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.observeEstimate(string(req.Family), status, time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("estimate failed",
			zap.String("family", string(req.Family)),
			zap.String("geography", req.Geography),
			zap.Error(err))
		return Estimate{}, err
	}
	s.metrics.observeUnknownTrees(est.UnknownTrees)
	s.logger.Info("estimate computed",
		zap.String("family", string(req.Family)),
		zap.String("geography", req.Geography),
		zap.String("evaluation", est.EvaluationID),
		zap.Float64("total", est.Total),
		zap.Int("unknown_trees", est.UnknownTrees),
		zap.Duration("elapsed", time.Since(start)))
	return est, nil
}

func (s *EstimateService) estimate(ctx context.Context, req Request) (Estimate, error) {
	eval, err := SelectEvaluation(s.store.ListEvaluations(), req)
	if err != nil {
		return Estimate{}, err
	}

	var snap *Snapshot
	if err := s.store.View(ctx, func(view domain.StoreView) error {
		var buildErr error
		snap, buildErr = BuildSnapshot(view, eval.ID)
		return buildErr
	}); err != nil {
		return Estimate{}, err
	}

	result, err := s.engine.Evaluate(ctx, snap)
	if err != nil {
		return Estimate{}, err
	}
	for _, v := range result.Violations {
		s.metrics.observeViolation(v.Rule, string(v.Severity))
	}
	if result.HasBlocking() {
		return Estimate{}, domain.RuleViolationError{Result: result}
	}

	equations, err := s.resolveEquations(req)
	if err != nil {
		return Estimate{}, err
	}

	est, err := aggregate(ctx, snap, req, equations)
	if err != nil {
		return Estimate{}, err
	}
	est.Warnings = result.Violations
	return est, nil
}

// resolveEquations picks the equation set an estimate evaluates. A named
// request must match a registered set; an unnamed request works only when
// the choice is unambiguous. Count estimates need no equations at all.
func (s *EstimateService) resolveEquations(req Request) (domain.EquationSet, error) {
	if req.EquationSet != "" {
		set, ok := s.registry.EquationSet(req.EquationSet)
		if !ok {
			return nil, fmt.Errorf("equation set %q not registered", req.EquationSet)
		}
		return set, nil
	}
	names := s.registry.EquationSetNames()
	switch len(names) {
	case 1:
		set, _ := s.registry.EquationSet(names[0])
		return set, nil
	case 0:
		if req.Attribute == AttrCount {
			return nil, nil
		}
		return nil, fmt.Errorf("no equation set registered for attribute %q", req.Attribute)
	default:
		return nil, fmt.Errorf("multiple equation sets registered %v; name one in the request", names)
	}
}
