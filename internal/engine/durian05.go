package engine

import (
	"fmt"

	"pongogo/internal/knowledge"
	"pongogo/internal/logging"
)

// Durian05Version is the frozen stable engine, preserved for A/B comparison
// and rollback. It carries the suppression, detection, bundle, and
// foundational features but none of the procedural, friction, outcome, or
// guidance passes added in durian-0.6. Do not add features to this engine.
const Durian05Version = "durian-0.5"

var durian05Features = []FeatureSpec{
	{Name: "violation_detection", Description: "Boost compliance routing on frustrated/corrective messages", Default: true, Category: "scoring"},
	{Name: "approval_suppression", Description: "Suppress routing for simple approval messages", Default: true, Category: "routing"},
	{Name: "foundational", Description: "Always-include foundational instructions (marked foundational: true)", Default: true, Category: "routing"},
	{Name: "commencement_lookback", Description: "Boost previous routing results on commencement messages", Default: true, Category: "scoring"},
	{Name: "instruction_bundles", Description: "Boost co-occurring instruction pairs based on ground truth analysis", Default: true, Category: "scoring"},
	{Name: "semantic_flags", Description: "Boost categories based on message semantic flags (corrective, directive, etc.)", Default: true, Category: "scoring"},
}

func init() {
	Register(Durian05Version, durian05Features, newDurian05)
}

type durian05 struct {
	store    *knowledge.Store
	features map[string]bool
	lookback EventLookback
}

func newDurian05(store *knowledge.Store, features map[string]bool, deps Deps) Router {
	return &durian05{store: store, features: features, lookback: deps.Lookback}
}

func (e *durian05) Version() string { return Durian05Version }

func (e *durian05) Description() string {
	return "Frozen stable rule-based routing with suppression, semantic flags, and bundles"
}

func (e *durian05) Route(message string, ctx *Context, limit int) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryRouting).Error("Routing panic: %v", r)
			result = &Result{Analysis: map[string]interface{}{"error": fmt.Sprint(r)}}
		}
	}()

	commencementDetected := false
	if e.features["approval_suppression"] {
		suppress, reason, commencement := approvalCheck(message)
		if suppress {
			return &Result{
				Analysis: map[string]interface{}{
					"suppressed":            true,
					"reason":                reason,
					"commencement_detected": false,
					"message_preview":       previewOf(message),
				},
			}
		}
		commencementDetected = commencement
	}

	keywords := extractKeywords(message)
	intent := extractIntent(message)

	var violation violationInfo
	if e.features["violation_detection"] {
		violation = detectViolations(message)
	}
	var semantic semanticFlagsInfo
	if e.features["semantic_flags"] {
		semantic = detectSemanticFlags(message)
	}

	previousIDs := map[string]bool{}
	if commencementDetected && e.features["commencement_lookback"] {
		ids := ctxPreviousRouting(ctx)
		if len(ids) == 0 && e.lookback != nil {
			if dbIDs, err := e.lookback.PreviousRouted(); err == nil {
				ids = dbIDs
			}
		}
		for _, id := range ids {
			previousIDs[id] = true
		}
	}

	analysis := map[string]interface{}{
		"keywords_extracted":    keywords,
		"intent_detected":       intent,
		"features":              e.features,
		"commencement_override": commencementDetected,
	}
	if ctx != nil && ctx.Raw != nil {
		analysis["context_used"] = ctx.Raw
	}

	var scored []*ScoredInstruction
	for _, inst := range e.store.All() {
		score, breakdown := scoreInstruction(inst, keywords, ctx, violation, semantic)
		if len(previousIDs) > 0 && previousIDs[inst.NormalizedID()] {
			score += commencementLookbackBoost
			breakdown["commencement_lookback"] = commencementLookbackBoost
		}
		if score > 0 {
			scored = append(scored, &ScoredInstruction{Instruction: inst, Score: score, Breakdown: breakdown})
		}
	}

	if e.features["instruction_bundles"] {
		if bundleInfo := applyBundleBoost(scored); bundleInfo != nil {
			analysis["bundle_boost"] = bundleInfo
		}
	}

	rankScored(scored)

	var combined []*ScoredInstruction
	if e.features["foundational"] {
		var foundational []*ScoredInstruction
		foundationalIDs := map[string]bool{}
		for _, inst := range e.store.Foundational() {
			foundational = append(foundational, &ScoredInstruction{
				Instruction: inst,
				Score:       foundationalScore,
				Breakdown:   map[string]interface{}{"foundational": true},
			})
			foundationalIDs[inst.ID] = true
		}
		var querySpecific []*ScoredInstruction
		for _, si := range scored {
			if len(querySpecific) >= limit {
				break
			}
			if !foundationalIDs[si.Instruction.ID] {
				querySpecific = append(querySpecific, si)
			}
		}
		combined = append(foundational, querySpecific...)
		analysis["foundational_count"] = len(foundational)
	} else {
		combined = scored
		if len(combined) > limit {
			combined = combined[:limit]
		}
		analysis["foundational_count"] = 0
	}

	return &Result{
		Instructions: combined,
		Count:        len(combined),
		Analysis:     analysis,
	}
}

func ctxPreviousRouting(ctx *Context) []string {
	if ctx == nil {
		return nil
	}
	return ctx.PreviousRouting
}
