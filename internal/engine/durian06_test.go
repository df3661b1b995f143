package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pongogo/internal/knowledge"
)

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// seedStore loads the standard engine test fixtures.
func seedStore(t *testing.T) *knowledge.Store {
	t.Helper()
	root := t.TempDir()

	writeFixture(t, filepath.Join(root, "core", "base.instructions.md"), `---
id: core/base
description: Foundational baseline
foundational: true
---
Baseline content.
`)
	writeFixture(t, filepath.Join(root, "github", "api_fix.instructions.md"), `---
id: github/api_fix
description: Fix GitHub API integration bugs
tags: [github, api]
routing:
  applyTo:
    globs: ['**/github/*.py']
  triggers:
    keywords: [github, api]
---
GitHub API guidance.
`)
	writeFixture(t, filepath.Join(root, "trust_execution", "development_workflow_essentials.instructions.md"), `---
id: trust_execution/development_workflow_essentials
description: Development workflow essentials
tags: [workflow, development]
routing:
  triggers:
    keywords: [workflow, development]
---
Workflow essentials.
`)
	writeFixture(t, filepath.Join(root, "trust_execution", "trust_based_task_execution.instructions.md"), `---
id: trust_execution/trust_based_task_execution
description: Trust based task execution
tags: [trust, execution]
routing:
  triggers:
    keywords: [trust, execution, task]
---
Trust execution.
`)
	writeFixture(t, filepath.Join(root, "project_management", "issue_closure.instructions.md"), `---
id: project_management/issue_closure
description: Mandatory issue closure checklist workflow
tags: [closure, checklist]
routing:
  triggers:
    keywords: [issue, closure, checklist]
---
COMPLIANCE GATE: Read `+"`docs/templates/issue_closure_checklist.md`"+` before
closing any issue.

Step 1: verify acceptance criteria.
Step 2: confirm status of every sub-task.
`)

	store := knowledge.NewStore(root, "")
	if _, err := store.Load(); err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	return store
}

func newTestEngine(t *testing.T, store *knowledge.Store, features map[string]bool) Router {
	t.Helper()
	router, err := New(store, &Config{Engine: Durian06Version, Features: features}, Deps{})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	return router
}

func TestApprovalSuppressionScenario(t *testing.T) {
	router := newTestEngine(t, seedStore(t), nil)

	result := router.Route("Thanks!", nil, 5)
	if result.Count != 0 {
		t.Errorf("count = %d, want 0", result.Count)
	}
	if suppressed, _ := result.Analysis["suppressed"].(bool); !suppressed {
		t.Error("analysis.suppressed = false")
	}
	reason, _ := result.Analysis["reason"].(string)
	if !strings.Contains(reason, "approval") {
		t.Errorf("reason = %q, want approval mention", reason)
	}
}

func TestCommencementOverrideScenario(t *testing.T) {
	router := newTestEngine(t, seedStore(t), map[string]bool{"approval_suppression": true})

	result := router.Route("Yes, let's continue", nil, 5)
	if suppressed, _ := result.Analysis["suppressed"].(bool); suppressed {
		t.Fatal("commencement message was suppressed")
	}
	if override, _ := result.Analysis["commencement_override"].(bool); !override {
		t.Error("commencement_override = false")
	}
}

func TestGlobContextRouting(t *testing.T) {
	router := newTestEngine(t, seedStore(t), nil)

	ctx := ContextFromMap(map[string]interface{}{
		"files":    []interface{}{"src/github/api.py"},
		"language": "python",
	})
	result := router.Route("fix this bug", ctx, 5)

	var hit *ScoredInstruction
	for _, si := range result.Instructions {
		if si.Instruction.ID == "github/api_fix" {
			hit = si
		}
	}
	if hit == nil {
		t.Fatal("github/api_fix not routed")
	}
	globMatches, ok := hit.Breakdown["glob_matches"].([]string)
	if !ok || len(globMatches) == 0 {
		t.Errorf("glob_matches = %v", hit.Breakdown["glob_matches"])
	}
}

func TestBundleBoostScenario(t *testing.T) {
	router := newTestEngine(t, seedStore(t), nil)

	result := router.Route("trust based task execution development workflow essentials", nil, 5)

	boosts := map[string]int{}
	for _, si := range result.Instructions {
		bundle, ok := si.Breakdown["bundle_boost"].(map[string]interface{})
		if !ok {
			continue
		}
		boost, _ := bundle["boost"].(int)
		boosts[si.Instruction.ID] = boost
	}

	for _, id := range []string{
		"trust_execution/development_workflow_essentials",
		"trust_execution/trust_based_task_execution",
	} {
		if boosts[id] != 12 {
			t.Errorf("bundle boost for %s = %d, want 12", id, boosts[id])
		}
	}
}

func TestFoundationalOverlay(t *testing.T) {
	router := newTestEngine(t, seedStore(t), nil)

	result := router.Route("fix the github api", nil, 5)
	if len(result.Instructions) == 0 {
		t.Fatal("no instructions routed")
	}
	first := result.Instructions[0]
	if first.Instruction.ID != "core/base" {
		t.Errorf("first = %s, want core/base", first.Instruction.ID)
	}
	if first.Score != 1000 {
		t.Errorf("foundational score = %d, want 1000", first.Score)
	}
	if foundational, _ := first.Breakdown["foundational"].(bool); !foundational {
		t.Error("foundational breakdown flag missing")
	}
}

func TestResultBoundedByLimitPlusFoundational(t *testing.T) {
	store := seedStore(t)
	router := newTestEngine(t, store, nil)
	foundationalCount := len(store.Foundational())

	for _, limit := range []int{0, 1, 2, 5} {
		result := router.Route("github api trust execution workflow issue closure checklist", nil, limit)
		if len(result.Instructions) > limit+foundationalCount {
			t.Errorf("limit %d: %d instructions, want <= %d",
				limit, len(result.Instructions), limit+foundationalCount)
		}
		if result.Count != len(result.Instructions) {
			t.Errorf("count = %d, len = %d", result.Count, len(result.Instructions))
		}
	}
}

func TestEmptyMessageReturnsFoundationalOnly(t *testing.T) {
	store := seedStore(t)
	router := newTestEngine(t, store, nil)

	result := router.Route("", nil, 5)
	if count, _ := result.Analysis["query_specific_count"].(int); count != 0 {
		t.Errorf("query_specific_count = %d, want 0", count)
	}
	if len(result.Instructions) != len(store.Foundational()) {
		t.Errorf("instructions = %d, want foundational set only", len(result.Instructions))
	}
}

func TestProceduralWarning(t *testing.T) {
	router := newTestEngine(t, seedStore(t), nil)

	// Strong keyword overlap drives the closure instruction over the
	// warning threshold.
	result := router.Route("complete the mandatory issue closure checklist workflow process", nil, 5)
	if result.ProceduralWarning == nil {
		t.Fatal("expected procedural warning")
	}
	var hit *ProceduralHit
	for i := range result.ProceduralWarning.Instructions {
		if result.ProceduralWarning.Instructions[i].ID == "project_management/issue_closure" {
			hit = &result.ProceduralWarning.Instructions[i]
		}
	}
	if hit == nil {
		t.Fatal("issue_closure not in warning")
	}
	if hit.DetectionMethod != "compliance_gate" {
		t.Errorf("detection method = %q", hit.DetectionMethod)
	}
	if hit.ReferencedDoc != "docs/templates/issue_closure_checklist.md" {
		t.Errorf("referenced doc = %q", hit.ReferencedDoc)
	}
	if !strings.Contains(result.ProceduralWarning.Warning, "READ BEFORE EXECUTING") {
		t.Errorf("warning text = %q", result.ProceduralWarning.Warning)
	}
}

func TestGuidanceActionDirective(t *testing.T) {
	router := newTestEngine(t, seedStore(t), nil)

	result := router.Route("always use table-driven tests for the github api layer", nil, 5)
	if result.GuidanceAction == nil {
		t.Fatal("expected guidance action")
	}
	if result.GuidanceAction.Action != "log_user_guidance" {
		t.Errorf("action = %q", result.GuidanceAction.Action)
	}
	params := result.GuidanceAction.Parameters
	if params["guidance_type"] != "explicit" {
		t.Errorf("guidance_type = %v", params["guidance_type"])
	}
	if result.FrictionRiskWatch == nil || !result.FrictionRiskWatch.Enabled {
		t.Error("friction risk watch not enabled alongside guidance")
	}
}

func TestRouteDeterminism(t *testing.T) {
	store := seedStore(t)
	router := newTestEngine(t, store, nil)

	ctx := ContextFromMap(map[string]interface{}{
		"files":  []interface{}{"src/github/api.py"},
		"branch": "feature/routing",
	})
	message := "fix the github api workflow and follow the issue closure checklist"

	type ranked struct {
		ID    string
		Score int
	}
	run := func() []ranked {
		result := router.Route(message, ctx, 5)
		out := make([]ranked, 0, len(result.Instructions))
		for _, si := range result.Instructions {
			out = append(out, ranked{ID: si.Instruction.ID, Score: si.Score})
		}
		return out
	}

	first := run()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("non-deterministic ranking (-first +rerun):\n%s", diff)
		}
	}
}

func TestCommencementLookbackBoost(t *testing.T) {
	store := seedStore(t)
	router := newTestEngine(t, store, nil)

	ctx := ContextFromMap(map[string]interface{}{
		"previous_routing": map[string]interface{}{
			"instructions": []interface{}{"github/api_fix"},
		},
	})
	result := router.Route("yes, let's continue with the github api work", ctx, 5)

	var hit *ScoredInstruction
	for _, si := range result.Instructions {
		if si.Instruction.ID == "github/api_fix" {
			hit = si
		}
	}
	if hit == nil {
		t.Fatal("github/api_fix not routed")
	}
	if boost, _ := hit.Breakdown["commencement_lookback"].(int); boost != 15 {
		t.Errorf("lookback boost = %v, want 15", hit.Breakdown["commencement_lookback"])
	}
}

func TestFeatureDisabling(t *testing.T) {
	store := seedStore(t)

	// With foundational disabled, nothing outranks query results.
	router := newTestEngine(t, store, map[string]bool{"foundational": false})
	result := router.Route("fix the github api", nil, 5)
	for _, si := range result.Instructions {
		if si.Instruction.ID == "core/base" {
			t.Error("foundational instruction present despite disabled flag")
		}
	}

	// With approval_suppression disabled, approval messages still route.
	router = newTestEngine(t, store, map[string]bool{"approval_suppression": false})
	result = router.Route("Thanks!", nil, 5)
	if suppressed, _ := result.Analysis["suppressed"].(bool); suppressed {
		t.Error("suppressed despite disabled flag")
	}
}
