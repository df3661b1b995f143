package server

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pongogo/internal/config"
	"pongogo/internal/db"
	"pongogo/internal/discovery"
	"pongogo/internal/engine"
	"pongogo/internal/reload"
)

func writeInstruction(t *testing.T, root, relPath, content string) {
	t.Helper()
	path := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestServer(t *testing.T) (*Server, *db.Database) {
	t.Helper()
	projectRoot := t.TempDir()
	knowledgeRoot := filepath.Join(projectRoot, ".pongogo", "instructions")

	writeInstruction(t, knowledgeRoot, "github/api_fix.instructions.md", `---
id: github/api_fix
description: Fix GitHub API integration bugs
tags: [github, api]
routing:
  applyTo:
    globs: ['**/github/*.py']
---
GitHub API guidance.
`)
	writeInstruction(t, knowledgeRoot, "core/base.instructions.md", `---
id: core/base
description: Foundational baseline
foundational: true
---
Baseline.
`)

	database, err := db.Open(filepath.Join(projectRoot, ".pongogo", "pongogo.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	controller, err := reload.NewController(knowledgeRoot, "", &engine.Config{}, engine.Deps{Lookback: database})
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	return New(cfg, controller, database, discovery.NewSystem(projectRoot, database)), database
}

func TestRouteInstructionsToolEndToEnd(t *testing.T) {
	srv, database := newTestServer(t)

	messages := []string{
		"fix the github api integration",
		"debug the github api client",
		"github api error handling",
	}
	var last map[string]interface{}
	for _, message := range messages {
		last = srv.routeInstructions(map[string]interface{}{
			"message": message,
			"context": map[string]interface{}{
				"files": []interface{}{"src/github/api.py"},
			},
			"limit": float64(5),
		})
	}

	if last["routing_engine_version"] != engine.Durian06Version {
		t.Errorf("routing_engine_version = %v", last["routing_engine_version"])
	}

	// Event capture persistence: one event per route call.
	count, err := database.EventCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("event count = %d, want 3", count)
	}
	lastEvent, err := database.LastEvent()
	if err != nil {
		t.Fatal(err)
	}
	if lastEvent.UserMessage != messages[2] {
		t.Errorf("last event message = %q", lastEvent.UserMessage)
	}
	if lastEvent.EngineVersion != engine.Durian06Version {
		t.Errorf("last event engine = %q", lastEvent.EngineVersion)
	}
	if lastEvent.InstructionCount != len(lastEvent.RoutedInstructions) {
		t.Errorf("instruction_count = %d, routed = %d",
			lastEvent.InstructionCount, len(lastEvent.RoutedInstructions))
	}
}

func TestRouteInstructionsSuppressed(t *testing.T) {
	srv, _ := newTestServer(t)

	result := srv.routeInstructions(map[string]interface{}{"message": "Thanks!"})
	if result["count"] != 0 {
		t.Errorf("count = %v, want 0", result["count"])
	}
	analysis := result["routing_analysis"].(map[string]interface{})
	if suppressed, _ := analysis["suppressed"].(bool); !suppressed {
		t.Error("not suppressed")
	}
}

func TestGetInstructionsTool(t *testing.T) {
	srv, _ := newTestServer(t)

	result := srv.getInstructions(map[string]interface{}{
		"topic": "api_fix", "category": "github", "exact_match": true,
	})
	if result["count"] != 1 {
		t.Fatalf("count = %v", result["count"])
	}

	result = srv.getInstructions(map[string]interface{}{
		"topic": "nope", "category": "github", "exact_match": true,
	})
	if result["count"] != 0 || result["error"] == nil {
		t.Errorf("missing instruction result = %v", result)
	}

	result = srv.getInstructions(map[string]interface{}{"category": "github"})
	if result["count"] != 1 {
		t.Errorf("category count = %v", result["count"])
	}

	result = srv.getInstructions(map[string]interface{}{})
	if result["count"] != 2 {
		t.Errorf("all count = %v", result["count"])
	}
}

func TestSearchInstructionsTool(t *testing.T) {
	srv, _ := newTestServer(t)

	result := srv.searchInstructions(map[string]interface{}{"query": "github", "limit": float64(10)})
	if result["count"].(int) < 1 {
		t.Errorf("count = %v", result["count"])
	}
	if result["query"] != "github" {
		t.Errorf("query echo = %v", result["query"])
	}
}

func TestReindexToolSpamPrevention(t *testing.T) {
	srv, _ := newTestServer(t)

	first := srv.reindexKnowledgeBase(map[string]interface{}{})
	if !first.Success {
		t.Fatalf("first reindex: %+v", first)
	}
	second := srv.reindexKnowledgeBase(map[string]interface{}{})
	if !second.Skipped || second.Reason != "spam_prevention" {
		t.Errorf("second reindex = %+v", second)
	}
	forced := srv.reindexKnowledgeBase(map[string]interface{}{"force": true})
	if !forced.Success {
		t.Errorf("forced reindex = %+v", forced)
	}
}

func TestLogUserGuidanceTool(t *testing.T) {
	srv, database := newTestServer(t)

	result := srv.logUserGuidance(map[string]interface{}{
		"content":       "always run make lint before committing",
		"guidance_type": "explicit",
	})
	if result["success"] != true {
		t.Fatalf("result = %v", result)
	}

	observations, err := database.ObservationsByStatus(db.ObservationDiscovered, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(observations) != 1 {
		t.Fatalf("observations = %d", len(observations))
	}
	if observations[0].Type != db.ObservationGuidanceExplicit {
		t.Errorf("type = %s", observations[0].Type)
	}

	// Missing content is a structured failure, not an error.
	result = srv.logUserGuidance(map[string]interface{}{"guidance_type": "explicit"})
	if result["success"] != false {
		t.Errorf("empty content result = %v", result)
	}
}

func TestResourceRead(t *testing.T) {
	srv, _ := newTestServer(t)

	result, rpcErr := srv.handleResourceRead("instruction://pongogo/github/api_fix")
	if rpcErr != nil {
		t.Fatalf("rpc error: %v", rpcErr.Message)
	}
	payload := result.(map[string]interface{})
	contents := payload["contents"].([]map[string]interface{})
	if text, _ := contents[0]["text"].(string); !strings.Contains(text, "GitHub API guidance") {
		t.Errorf("resource text = %q", text)
	}

	if _, rpcErr := srv.handleResourceRead("instruction://pongogo/github/missing"); rpcErr == nil {
		t.Error("expected error for missing instruction")
	}
	if _, rpcErr := srv.handleResourceRead("file:///etc/passwd"); rpcErr == nil {
		t.Error("expected error for unsupported URI")
	}
}

func TestStdioRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	requests := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_routing_info","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"no/such/method"}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Run(ctx, strings.NewReader(requests), &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("responses = %d, want 4\n%s", len(lines), out.String())
	}

	var initResp struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &initResp); err != nil {
		t.Fatal(err)
	}
	if initResp.Result.ServerInfo.Name != "pongogo-knowledge" {
		t.Errorf("server name = %q", initResp.Result.ServerInfo.Name)
	}

	var errResp struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[3]), &errResp); err != nil {
		t.Fatal(err)
	}
	if errResp.Error == nil || errResp.Error.Code != codeMethodNotFound {
		t.Errorf("unknown method response = %s", lines[3])
	}
}
