package core

import (
	"fmt"
	"sort"

	"fiacore/pkg/domain"
)

// PluginMetadata describes an installed plugin.
type PluginMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// PluginRegistry collects equation sets and rules contributed during plugin
// installation. It satisfies pluginapi.Registry.
type PluginRegistry struct {
	engine    *domain.RulesEngine
	equations map[string]domain.EquationSet
}

// NewPluginRegistry constructs a registry that feeds rules into the given
// engine.
func NewPluginRegistry(engine *domain.RulesEngine) *PluginRegistry {
	return &PluginRegistry{
		engine:    engine,
		equations: map[string]domain.EquationSet{},
	}
}

// RegisterEquationSet installs a named equation set. Names are unique;
// re-registering a name is an error so a plugin cannot silently shadow
// another's equations.
func (r *PluginRegistry) RegisterEquationSet(set domain.EquationSet) error {
	if set == nil || set.Name() == "" {
		return fmt.Errorf("equation set must carry a name")
	}
	if _, exists := r.equations[set.Name()]; exists {
		return fmt.Errorf("equation set %q already registered", set.Name())
	}
	r.equations[set.Name()] = set
	return nil
}

// RegisterRule appends an integrity rule to the engine.
func (r *PluginRegistry) RegisterRule(rule domain.Rule) {
	r.engine.Register(rule)
}

// EquationSet returns the equation set registered under name.
func (r *PluginRegistry) EquationSet(name string) (domain.EquationSet, bool) {
	set, ok := r.equations[name]
	return set, ok
}

// EquationSetNames lists registered equation sets sorted by name.
func (r *PluginRegistry) EquationSetNames() []string {
	names := make([]string, 0, len(r.equations))
	for name := range r.equations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
