// Package pluginapi defines the stable surface plugins build against.
// Plugins inject the externally fitted volume/biomass equation sets and may
// contribute additional snapshot integrity rules; they never see internal
// engine types.
package pluginapi

import "fiacore/pkg/domain"

// Registry collects plugin contributions during installation.
type Registry interface {
	RegisterEquationSet(set domain.EquationSet) error
	RegisterRule(rule domain.Rule)
}

// Plugin is implemented by equation and rule providers.
type Plugin interface {
	Name() string
	Version() string
	Register(Registry) error
}

// Version identifies the plugin API contract.
const Version = "v1"
