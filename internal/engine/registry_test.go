package engine

import (
	"strings"
	"testing"
)

func TestRegistryRoundTrip(t *testing.T) {
	store := seedStore(t)

	for _, version := range Available() {
		router, err := New(store, &Config{Engine: version}, Deps{})
		if err != nil {
			t.Errorf("New(%s): %v", version, err)
			continue
		}
		if router.Version() != version {
			t.Errorf("New(%s).Version() = %s", version, router.Version())
		}
	}
}

func TestDefaultEngine(t *testing.T) {
	version, err := DefaultVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != Durian06Version {
		t.Errorf("default = %s, want %s", version, Durian06Version)
	}

	router, err := New(seedStore(t), nil, Deps{})
	if err != nil {
		t.Fatal(err)
	}
	if router.Version() != Durian06Version {
		t.Errorf("factory default = %s", router.Version())
	}
}

func TestUnknownEngineError(t *testing.T) {
	_, err := New(seedStore(t), &Config{Engine: "durian-99"}, Deps{})
	if err == nil {
		t.Fatal("expected error for unknown engine")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("error type = %T, want *ConfigError", err)
	}
	// The error names the available versions for the operator.
	for _, version := range Available() {
		if !strings.Contains(err.Error(), version) {
			t.Errorf("error %q does not list %s", err.Error(), version)
		}
	}
}

func TestUnknownFeatureError(t *testing.T) {
	_, err := New(seedStore(t), &Config{
		Engine:   Durian06Version,
		Features: map[string]bool{"telepathy": true},
	}, Deps{})
	if err == nil {
		t.Fatal("expected error for unknown feature")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("error type = %T, want *ConfigError", err)
	}
}

func TestEngineFeatures(t *testing.T) {
	specs, err := EngineFeatures(Durian06Version)
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, spec := range specs {
		names[spec.Name] = true
		if spec.Description == "" || spec.Category == "" {
			t.Errorf("incomplete spec: %+v", spec)
		}
	}
	for _, want := range []string{
		"violation_detection", "approval_suppression", "foundational",
		"commencement_lookback", "instruction_bundles", "semantic_flags",
		"procedural_warning", "iteration_aware", "friction_boost",
		"outcome_aware", "outcome_boost",
	} {
		if !names[want] {
			t.Errorf("feature %s not declared", want)
		}
	}

	// The frozen baseline declares no features; unknown flags are rejected.
	if err := ValidateFeatures(Durian00Version, map[string]bool{"foundational": true}); err == nil {
		t.Error("durian-00 accepted a feature flag")
	}

	if _, err := EngineFeatures("durian-99"); err == nil {
		t.Error("unknown engine accepted")
	}
}

func TestFrozenEnginesRoute(t *testing.T) {
	store := seedStore(t)
	for _, version := range []string{Durian00Version, Durian05Version} {
		router, err := New(store, &Config{Engine: version}, Deps{})
		if err != nil {
			t.Fatalf("New(%s): %v", version, err)
		}
		result := router.Route("fix the github api", nil, 5)
		if result == nil || result.Count != len(result.Instructions) {
			t.Errorf("%s: malformed result", version)
		}
		if len(result.Instructions) == 0 {
			t.Errorf("%s: no instructions routed", version)
		}
	}
}
