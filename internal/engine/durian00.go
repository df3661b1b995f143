package engine

import (
	"fmt"

	"pongogo/internal/knowledge"
	"pongogo/internal/logging"
)

// Durian00Version is the frozen baseline engine. It was used for ground
// truth labeling and is preserved unchanged for A/B comparison. Do not add
// features to this engine.
const Durian00Version = "durian-00"

func init() {
	Register(Durian00Version, nil, newDurian00)
}

// durian00 scores instructions with the baseline additive signals only:
// no suppression, no detection passes, no foundational overlay.
type durian00 struct {
	store *knowledge.Store
}

func newDurian00(store *knowledge.Store, _ map[string]bool, _ Deps) Router {
	return &durian00{store: store}
}

func (e *durian00) Version() string { return Durian00Version }

func (e *durian00) Description() string {
	return "Frozen baseline rule-based routing (keyword, category, pattern matching)"
}

func (e *durian00) Route(message string, ctx *Context, limit int) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryRouting).Error("Routing panic: %v", r)
			result = &Result{Analysis: map[string]interface{}{"error": fmt.Sprint(r)}}
		}
	}()

	keywords := extractKeywords(message)
	intent := extractIntent(message)

	analysis := map[string]interface{}{
		"keywords_extracted": keywords,
		"intent_detected":    intent,
	}
	if ctx != nil && ctx.Raw != nil {
		analysis["context_used"] = ctx.Raw
	}

	var scored []*ScoredInstruction
	var scoringBreakdown []map[string]interface{}
	for _, inst := range e.store.All() {
		score, breakdown := scoreInstruction(inst, keywords, ctx, violationInfo{}, semanticFlagsInfo{})
		if score > 0 {
			scored = append(scored, &ScoredInstruction{Instruction: inst, Score: score, Breakdown: breakdown})
			scoringBreakdown = append(scoringBreakdown, map[string]interface{}{
				"instruction_id": inst.ID,
				"score":          score,
				"breakdown":      breakdown,
			})
		}
	}
	analysis["scoring_breakdown"] = scoringBreakdown

	rankScored(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	return &Result{
		Instructions: scored,
		Count:        len(scored),
		Analysis:     analysis,
	}
}
