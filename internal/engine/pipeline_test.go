package engine

import (
	"reflect"
	"testing"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		message string
		want    []string
	}{
		{"How do I create a new Epic?", []string{"how", "create", "new", "epic"}},
		{"the a an and", nil},
		{"fix this bug", []string{"fix", "bug"}},
	}
	for _, tt := range tests {
		got := extractKeywords(tt.message)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("extractKeywords(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestExtractIntent(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"How do I create a branch?", "how-to"},
		{"What is the routing engine?", "explanation"},
		{"create a new module", "creation"},
		{"fix this bug", "troubleshooting"},
		{"validate the schema", "validation"},
		{"write docs for the API", "documentation"},
		{"hello there", "general"},
	}
	for _, tt := range tests {
		if got := extractIntent(tt.message); got != tt.want {
			t.Errorf("extractIntent(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestApprovalCheck(t *testing.T) {
	tests := []struct {
		message          string
		wantSuppress     bool
		wantReason       string
		wantCommencement bool
	}{
		{"Thanks!", true, "exact_approval_match", false},
		{"yes", true, "exact_approval_match", false},
		{"ok sounds fine", true, "short_approval_message", false},
		{"yes good fine stuff", true, "approval_dominated_message", false},
		{"Yes, let's continue", false, "commencement_phrase_detected", true},
		{"please continue with the refactor", false, "commencement_phrase_detected", true},
		{"how do I configure routing?", false, "not_approval", false},
	}
	for _, tt := range tests {
		suppress, reason, commencement := approvalCheck(tt.message)
		if suppress != tt.wantSuppress || reason != tt.wantReason || commencement != tt.wantCommencement {
			t.Errorf("approvalCheck(%q) = (%v, %q, %v), want (%v, %q, %v)",
				tt.message, suppress, reason, commencement,
				tt.wantSuppress, tt.wantReason, tt.wantCommencement)
		}
	}
}

func TestDetectViolations(t *testing.T) {
	info := detectViolations("This is UNACCEPTABLE and WRONG!!! Stop now!")
	if !info.Detected {
		t.Fatal("expected violation detection")
	}
	if info.BoostAmount == 0 || info.BoostAmount%20 != 0 {
		t.Errorf("boost = %d, want multiple of 20", info.BoostAmount)
	}

	if detectViolations("please review the pull request").Detected {
		t.Error("false positive on neutral message")
	}
}

func TestDetectSemanticFlags(t *testing.T) {
	info := detectSemanticFlags("you must follow the github workflow for this task")
	if !info.Detected {
		t.Fatal("expected semantic flags")
	}
	// directive (must), compliance (follow/workflow), technical (github),
	// meta (task) all fire.
	wantFlags := map[string]bool{"directive": true, "compliance": true, "technical": true, "meta": true}
	for _, f := range info.Flags {
		if !wantFlags[f] {
			t.Errorf("unexpected flag %q", f)
		}
	}
	if info.CategoryBoosts["safety_prevention"] != 5+8 {
		t.Errorf("safety_prevention boost = %d, want 13", info.CategoryBoosts["safety_prevention"])
	}
}

func TestDetectFrictionPriority(t *testing.T) {
	// Matches both rejection (unacceptable) and correction patterns;
	// rejection wins.
	info := detectFriction("unacceptable, that's not right at all")
	if !info.Detected {
		t.Fatal("expected friction")
	}
	if info.FrictionType != "rejection" {
		t.Errorf("friction type = %q, want rejection", info.FrictionType)
	}

	info = detectFriction("let's try again from the top")
	if info.FrictionType != "retry" {
		t.Errorf("friction type = %q, want retry", info.FrictionType)
	}

	info = detectFriction("you did it wrong")
	if info.FrictionType != "correction" {
		t.Errorf("friction type = %q, want correction", info.FrictionType)
	}
}

func TestDetectMistakeType(t *testing.T) {
	info := detectMistakeType("you keep cutting corners on this")
	if !info.Detected || info.MistakeType != "incomplete_implementation" {
		t.Fatalf("mistake = %+v", info)
	}
	if len(info.InstructionBoosts) == 0 {
		t.Error("no preventive instructions mapped")
	}
}

func TestDetectGuidance(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"always use tabs for indentation in this repo", "explicit"},
		{"never commit directly to main", "explicit"},
		{"I prefer to use table-driven tests here", "implicit"},
		{"that's not what I meant", "implicit"},
		{"fix the parser", ""},
	}
	for _, tt := range tests {
		if got := detectGuidance(tt.message); got != tt.want {
			t.Errorf("detectGuidance(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}
