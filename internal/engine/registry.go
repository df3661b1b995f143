package engine

import (
	"sort"
	"sync"

	"pongogo/internal/knowledge"
)

// Constructor builds an engine over a store with merged feature flags.
type Constructor func(store *knowledge.Store, features map[string]bool, deps Deps) Router

type registration struct {
	ctor     Constructor
	features []FeatureSpec
}

var (
	registryMu     sync.RWMutex
	registry       = map[string]registration{}
	registryOrder  []string
	defaultVersion string
)

// Register adds an engine version to the registry. Called from engine init
// functions; the registry is append-only after startup.
func Register(version string, features []FeatureSpec, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[version]; !exists {
		registryOrder = append(registryOrder, version)
	}
	registry[version] = registration{ctor: ctor, features: features}
}

// SetDefault marks a version as the factory default. The active engine
// module calls this once at initialization.
func SetDefault(version string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	defaultVersion = version
}

// DefaultVersion returns the default engine version, falling back to the
// first registered version when unset.
func DefaultVersion() (string, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if defaultVersion != "" {
		if _, ok := registry[defaultVersion]; ok {
			return defaultVersion, nil
		}
	}
	if len(registryOrder) > 0 {
		return registryOrder[0], nil
	}
	return "", configErrorf("no routing engines registered")
}

// Available returns the registered engine versions in registration order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, len(registryOrder))
	copy(out, registryOrder)
	return out
}

// EngineFeatures returns the feature flags declared by a version.
func EngineFeatures(version string) ([]FeatureSpec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[version]
	if !ok {
		return nil, configErrorf("unknown routing engine: '%s'. Available engines: %v", version, availableLocked())
	}
	specs := make([]FeatureSpec, len(reg.features))
	copy(specs, reg.features)
	return specs, nil
}

func availableLocked() []string {
	out := make([]string, len(registryOrder))
	copy(out, registryOrder)
	return out
}

// Config selects the engine version and feature overrides for the factory.
type Config struct {
	Engine   string
	Features map[string]bool
}

// New constructs an engine from configuration. An unknown engine version or
// an unknown feature flag is a *ConfigError.
func New(store *knowledge.Store, cfg *Config, deps Deps) (Router, error) {
	version := ""
	var overrides map[string]bool
	if cfg != nil {
		version = cfg.Engine
		overrides = cfg.Features
	}
	if version == "" {
		v, err := DefaultVersion()
		if err != nil {
			return nil, err
		}
		version = v
	}

	registryMu.RLock()
	reg, ok := registry[version]
	registryMu.RUnlock()
	if !ok {
		return nil, configErrorf("unknown routing engine: '%s'. Available engines: %v", version, Available())
	}

	if len(overrides) > 0 {
		if err := ValidateFeatures(version, overrides); err != nil {
			return nil, err
		}
	}

	return reg.ctor(store, mergeFeatures(reg.features, overrides), deps), nil
}

// ValidateFeatures checks submitted flags against the engine's declared set.
func ValidateFeatures(version string, features map[string]bool) error {
	specs, err := EngineFeatures(version)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(specs))
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		known[spec.Name] = true
		names = append(names, spec.Name)
	}
	sort.Strings(names)
	for name := range features {
		if !known[name] {
			return configErrorf("feature '%s' is not available for engine '%s'. Available features: %v", name, version, names)
		}
	}
	return nil
}
