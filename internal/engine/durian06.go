package engine

import (
	"fmt"
	"strings"

	"pongogo/internal/knowledge"
	"pongogo/internal/logging"
	"pongogo/internal/patterns"
)

// Durian06Version is the canonical engine version.
const Durian06Version = "durian-0.6.2"

var durian06Features = []FeatureSpec{
	{Name: "violation_detection", Description: "Boost compliance routing on frustrated/corrective messages", Default: true, Category: "scoring"},
	{Name: "approval_suppression", Description: "Suppress routing for simple approval messages", Default: true, Category: "routing"},
	{Name: "foundational", Description: "Always-include foundational instructions (marked foundational: true)", Default: true, Category: "routing"},
	{Name: "commencement_lookback", Description: "Boost previous routing results on commencement messages", Default: true, Category: "scoring"},
	{Name: "instruction_bundles", Description: "Boost co-occurring instruction pairs based on ground truth analysis", Default: true, Category: "scoring"},
	{Name: "semantic_flags", Description: "Boost categories based on message semantic flags (corrective, directive, etc.)", Default: true, Category: "scoring"},
	{Name: "procedural_warning", Description: "Warn when procedural instructions are routed (requires Read before execute)", Default: true, Category: "compliance"},
	{Name: "iteration_aware", Description: "Detect friction (correction/retry/rejection) patterns", Default: true, Category: "scoring"},
	{Name: "friction_boost", Description: "Boost trust/learning/safety categories when friction detected", Default: true, Category: "scoring"},
	{Name: "outcome_aware", Description: "Detect mistake types (incomplete_implementation, premature_action, etc.)", Default: true, Category: "scoring"},
	{Name: "outcome_boost", Description: "Boost specific preventive instructions when mistake type detected", Default: true, Category: "scoring"},
	{Name: "guidance_detection", Description: "Detect user guidance and emit a blocking capture directive", Default: true, Category: "compliance"},
}

func init() {
	Register(Durian06Version, durian06Features, newDurian06)
	SetDefault(Durian06Version)
}

// durian06 is the canonical rule-based routing engine.
type durian06 struct {
	store    *knowledge.Store
	features map[string]bool
	lookback EventLookback
}

func newDurian06(store *knowledge.Store, features map[string]bool, deps Deps) Router {
	return &durian06{store: store, features: features, lookback: deps.Lookback}
}

func (e *durian06) Version() string { return Durian06Version }

func (e *durian06) Description() string {
	return "Rule-based routing with keyword matching, taxonomy, and context heuristics"
}

// Route executes the full durian-0.6 pipeline. It never panics across the
// engine boundary: internal failures produce an empty result with
// routing_analysis.error set.
func (e *durian06) Route(message string, ctx *Context, limit int) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryRouting).Error("Routing panic: %v", r)
			result = &Result{
				Instructions: nil,
				Count:        0,
				Analysis:     map[string]interface{}{"error": fmt.Sprint(r)},
			}
		}
	}()

	timer := logging.StartTimer(logging.CategoryRouting, "durian06.Route")
	defer timer.Stop()

	// Step 1: approval suppression with commencement override.
	commencementDetected := false
	if e.features["approval_suppression"] {
		suppress, reason, commencement := approvalCheck(message)
		if suppress {
			return &Result{
				Instructions: nil,
				Count:        0,
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

	// Step 2: keyword and intent extraction.
	keywords := extractKeywords(message)
	intent := extractIntent(message)

	// Step 3: detection passes, each gated by its feature flag.
	var violation violationInfo
	if e.features["violation_detection"] {
		violation = detectViolations(message)
	}

	var semantic semanticFlagsInfo
	if e.features["semantic_flags"] {
		semantic = detectSemanticFlags(message)
	}

	var friction frictionInfo
	if e.features["iteration_aware"] {
		friction = detectFriction(message)
	}

	var mistake mistakeInfo
	if e.features["outcome_aware"] {
		mistake = detectMistakeType(message)
	}

	guidanceType := ""
	if e.features["guidance_detection"] {
		guidanceType = detectGuidance(message)
	}

	// Step 4: commencement look-back.
	previousIDs := map[string]bool{}
	var lookbackInfo map[string]interface{}
	if commencementDetected {
		if e.features["commencement_lookback"] {
			for _, id := range e.previousRouting(ctx) {
				previousIDs[id] = true
			}
			if len(previousIDs) > 0 {
				lookbackInfo = map[string]interface{}{
					"enabled":           true,
					"found":             true,
					"instruction_count": len(previousIDs),
					"boost_amount":      commencementLookbackBoost,
				}
			} else {
				lookbackInfo = map[string]interface{}{"enabled": true, "found": false}
			}
		} else {
			lookbackInfo = map[string]interface{}{"enabled": false, "reason": "feature_disabled"}
		}
	}

	analysis := map[string]interface{}{
		"keywords_extracted":    keywords,
		"intent_detected":       intent,
		"features":              e.features,
		"commencement_override": commencementDetected,
		"commencement_lookback": lookbackInfo,
	}
	if ctx != nil && ctx.Raw != nil {
		analysis["context_used"] = ctx.Raw
	}
	if violation.Detected {
		analysis["violation_detection"] = map[string]interface{}{
			"detected":     true,
			"signals":      violation.Signals,
			"boost_amount": violation.BoostAmount,
		}
	}
	if semantic.Detected {
		analysis["semantic_flags"] = map[string]interface{}{
			"detected":        true,
			"flags":           semantic.Flags,
			"category_boosts": semantic.CategoryBoosts,
		}
	}
	if friction.Detected {
		analysis["friction_detection"] = map[string]interface{}{
			"detected":      true,
			"friction_type": friction.FrictionType,
			"signals":       friction.Signals,
		}
	}
	if mistake.Detected {
		analysis["mistake_detection"] = map[string]interface{}{
			"detected":           true,
			"mistake_type":       mistake.MistakeType,
			"signals":            mistake.Signals,
			"instruction_boosts": mistake.InstructionBoosts,
		}
	}

	// Step 5: per-instruction scoring.
	var scored []*ScoredInstruction
	var scoringBreakdown []map[string]interface{}
	for _, inst := range e.store.All() {
		score, breakdown := scoreInstruction(inst, keywords, ctx, violation, semantic)

		if len(previousIDs) > 0 && previousIDs[inst.NormalizedID()] {
			score += commencementLookbackBoost
			breakdown["commencement_lookback"] = commencementLookbackBoost
		}

		if friction.Detected && e.features["friction_boost"] {
			for _, category := range inst.Categories {
				if patterns.FrictionBoostCategories[category] {
					score += patterns.FrictionBoostAmount
					breakdown["friction_boost"] = map[string]interface{}{
						"category":      category,
						"boost":         patterns.FrictionBoostAmount,
						"friction_type": friction.FrictionType,
					}
					break
				}
			}
		}

		if mistake.Detected && e.features["outcome_boost"] {
			fileName := inst.FileName()
			for _, preventive := range mistake.InstructionBoosts {
				if strings.Contains(fileName, preventive) || strings.Contains(preventive, fileName) {
					score += patterns.OutcomeBoostAmount
					breakdown["outcome_boost"] = map[string]interface{}{
						"instruction":  preventive,
						"boost":        patterns.OutcomeBoostAmount,
						"mistake_type": mistake.MistakeType,
					}
					break
				}
			}
		}

		if score > 0 {
			si := &ScoredInstruction{Instruction: inst, Score: score, Breakdown: breakdown}
			scored = append(scored, si)
			scoringBreakdown = append(scoringBreakdown, map[string]interface{}{
				"instruction_id": inst.ID,
				"score":          score,
				"breakdown":      breakdown,
			})
		}
	}
	analysis["scoring_breakdown"] = scoringBreakdown

	// Step 6: bundle boost.
	if e.features["instruction_bundles"] {
		if bundleInfo := applyBundleBoost(scored); bundleInfo != nil {
			analysis["bundle_boost"] = bundleInfo
		}
	}

	// Step 7: ranking.
	rankScored(scored)

	// Step 8: foundational overlay. Foundational instructions carry a
	// synthetic score and do not count against limit.
	var combined []*ScoredInstruction
	if e.features["foundational"] {
		foundational := make([]*ScoredInstruction, 0)
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
		ids := make([]string, 0, len(foundational))
		for _, si := range foundational {
			ids = append(ids, si.Instruction.ID)
		}
		analysis["foundational_ids"] = ids
		analysis["query_specific_count"] = len(querySpecific)
	} else {
		if len(scored) > limit {
			combined = scored[:limit]
		} else {
			combined = scored
		}
		analysis["foundational_count"] = 0
		analysis["foundational_ids"] = []string{}
		analysis["foundational_disabled"] = true
		analysis["query_specific_count"] = len(combined)
	}

	result = &Result{
		Instructions: combined,
		Count:        len(combined),
		Analysis:     analysis,
	}

	// Step 9: procedural warning for high-relevance procedural instructions.
	if e.features["procedural_warning"] {
		if warning := buildProceduralWarning(combined); warning != nil {
			result.ProceduralWarning = warning
			analysis["procedural_warning"] = warning
		}
	}

	// Guidance directive: the caller must capture guidance before other work.
	if guidanceType != "" {
		result.GuidanceAction = &GuidanceAction{
			Action:    "log_user_guidance",
			Directive: "Call log_user_guidance() before responding to the user.",
			Parameters: map[string]interface{}{
				"content":       message,
				"guidance_type": guidanceType,
				"context":       contextRaw(ctx),
			},
			Rationale: "User guidance not captured is lost. The user will repeat themselves, causing friction.",
		}
		result.FrictionRiskWatch = &FrictionRiskWatch{
			Enabled:          true,
			GuidanceType:     guidanceType,
			EchoDetected:     false,
			FrustrationLevel: frustrationLevel(friction),
		}
	}

	return result
}

// previousRouting resolves the prior routed id set: explicit context first,
// then the event log via the injected lookback.
func (e *durian06) previousRouting(ctx *Context) []string {
	if ctx != nil && len(ctx.PreviousRouting) > 0 {
		return ctx.PreviousRouting
	}
	if e.lookback == nil {
		return nil
	}
	ids, err := e.lookback.PreviousRouted()
	if err != nil {
		logging.Get(logging.CategoryRouting).Warn("Lookback query failed: %v", err)
		return nil
	}
	return ids
}

func buildProceduralWarning(combined []*ScoredInstruction) *ProceduralWarning {
	var hits []ProceduralHit
	for _, si := range combined {
		isProcedural, method, doc := proceduralCheck(si.Instruction)
		if !isProcedural {
			continue
		}
		foundational, _ := si.Breakdown["foundational"].(bool)
		if si.Score < patterns.ProceduralWarningThreshold && !foundational {
			continue
		}
		hits = append(hits, ProceduralHit{
			ID:              si.Instruction.ID,
			Score:           si.Score,
			DetectionMethod: method,
			ReferencedDoc:   doc,
		})
	}
	if len(hits) == 0 {
		return nil
	}

	lines := []string{"PROCEDURAL INSTRUCTION(S) ROUTED - READ BEFORE EXECUTING:"}
	for _, hit := range hits {
		if hit.ReferencedDoc != "" {
			lines = append(lines, fmt.Sprintf("  - %s: Read `%s` first", hit.ID, hit.ReferencedDoc))
		} else {
			lines = append(lines, fmt.Sprintf("  - %s: Read instruction file before executing", hit.ID))
		}
	}

	return &ProceduralWarning{
		Warning:      strings.Join(lines, "\n"),
		Instructions: hits,
		Count:        len(hits),
		Enforcement:  "Read tool call required before action",
	}
}

func contextRaw(ctx *Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	return ctx.Raw
}

func frustrationLevel(friction frictionInfo) string {
	if !friction.Detected {
		return "none"
	}
	switch friction.FrictionType {
	case patterns.FrictionRejection:
		return "high"
	case patterns.FrictionRetry:
		return "medium"
	default:
		return "low"
	}
}
