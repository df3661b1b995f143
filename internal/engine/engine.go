// Package engine implements the versioned routing engines (durian-*), the
// engine registry, and the factory that builds an engine from configuration.
//
// An engine transforms a user message plus optional context into a ranked,
// bounded set of instructions and a small set of action directives. Engines
// are registered by version string; the active default is set by the
// canonical engine at package initialization.
package engine

import (
	"fmt"

	"pongogo/internal/knowledge"
)

// FeatureSpec describes one feature flag declared by an engine.
type FeatureSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
	Category    string `json:"category"`
}

// Context carries the optional routing context supplied by the caller.
type Context struct {
	Files       []string `json:"files,omitempty"`
	Directories []string `json:"directories,omitempty"`
	Branch      string   `json:"branch,omitempty"`
	Language    string   `json:"language,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`

	// PreviousRouting holds explicit previous routed ids for commencement
	// lookback; when empty the engine falls back to the event log.
	PreviousRouting []string `json:"previous_routing,omitempty"`

	// Raw preserves the caller's context map verbatim for event capture.
	Raw map[string]interface{} `json:"-"`
}

// ContextFromMap builds a Context from an untyped transport map.
func ContextFromMap(raw map[string]interface{}) *Context {
	if raw == nil {
		return nil
	}
	ctx := &Context{Raw: raw}
	ctx.Files = stringSlice(raw["files"])
	ctx.Directories = stringSlice(raw["directories"])
	ctx.Branch, _ = raw["branch"].(string)
	ctx.Language, _ = raw["language"].(string)
	ctx.SessionID, _ = raw["session_id"].(string)
	if prev, ok := raw["previous_routing"].(map[string]interface{}); ok {
		ctx.PreviousRouting = stringSlice(prev["instructions"])
	} else {
		ctx.PreviousRouting = stringSlice(raw["previous_routing"])
	}
	return ctx
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ScoredInstruction is one routed instruction with its score breakdown.
type ScoredInstruction struct {
	Instruction *knowledge.Instruction
	Score       int
	Breakdown   map[string]interface{}
}

// Map renders the scored instruction in transport shape.
func (s *ScoredInstruction) Map() map[string]interface{} {
	m := s.Instruction.Map()
	m["routing_score"] = s.Score
	m["score_breakdown"] = s.Breakdown
	return m
}

// GuidanceAction directs the caller to invoke a tool before other work.
// This is the only blocking directive an engine emits.
type GuidanceAction struct {
	Action     string                 `json:"action"`
	Directive  string                 `json:"directive"`
	Parameters map[string]interface{} `json:"parameters"`
	Rationale  string                 `json:"rationale"`
}

// ProceduralHit records one procedural instruction found in the result.
type ProceduralHit struct {
	ID              string `json:"id"`
	Score           int    `json:"score"`
	DetectionMethod string `json:"detection_method"`
	ReferencedDoc   string `json:"referenced_doc,omitempty"`
}

// ProceduralWarning signals that routed instructions must be read from disk
// before acting, never executed from memory.
type ProceduralWarning struct {
	Warning      string          `json:"warning"`
	Instructions []ProceduralHit `json:"instructions"`
	Count        int             `json:"count"`
	Enforcement  string          `json:"enforcement"`
}

// FrictionRiskWatch asks the caller to monitor for friction signals.
type FrictionRiskWatch struct {
	Enabled          bool   `json:"enabled"`
	GuidanceType     string `json:"guidance_type"`
	EchoDetected     bool   `json:"echo_detected"`
	FrustrationLevel string `json:"frustration_level"`
}

// Result is the output of a single route call.
type Result struct {
	Instructions []*ScoredInstruction
	Count        int
	Analysis     map[string]interface{}

	ProceduralWarning *ProceduralWarning
	GuidanceAction    *GuidanceAction
	FrictionRiskWatch *FrictionRiskWatch
}

// Map renders the result in transport shape.
func (r *Result) Map() map[string]interface{} {
	insts := make([]map[string]interface{}, 0, len(r.Instructions))
	for _, si := range r.Instructions {
		insts = append(insts, si.Map())
	}
	m := map[string]interface{}{
		"instructions":     insts,
		"count":            r.Count,
		"routing_analysis": r.Analysis,
	}
	if r.ProceduralWarning != nil {
		m["procedural_warning"] = r.ProceduralWarning
	}
	if r.GuidanceAction != nil {
		m["guidance_action"] = r.GuidanceAction
	}
	if r.FrictionRiskWatch != nil {
		m["friction_risk_watch"] = r.FrictionRiskWatch
	}
	return m
}

// EventLookback provides access to the previous routing decision for
// commencement lookback. Implemented by the persistence substrate.
type EventLookback interface {
	// PreviousRouted returns the routed ids of the most recent event with a
	// non-zero count, offset by one (the event before the current request).
	PreviousRouted() ([]string, error)
}

// Deps carries optional collaborators injected into engines by the factory.
type Deps struct {
	Lookback EventLookback
}

// Router is the routing engine interface. Implementations must be safe for
// concurrent Route calls over a shared instruction store snapshot.
type Router interface {
	Route(message string, ctx *Context, limit int) *Result
	Version() string
	Description() string
}

// ConfigError reports an invalid engine or feature selection.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// mergeFeatures combines engine defaults with submitted overrides.
func mergeFeatures(specs []FeatureSpec, overrides map[string]bool) map[string]bool {
	merged := make(map[string]bool, len(specs))
	for _, spec := range specs {
		merged[spec.Name] = spec.Default
	}
	for name, value := range overrides {
		merged[name] = value
	}
	return merged
}
