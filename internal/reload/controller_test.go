package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pongogo/internal/engine"
)

func writeInstruction(t *testing.T, root, category, name, description string) {
	t.Helper()
	dir := filepath.Join(root, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "---\nid: " + category + "/" + name + "\ndescription: " + description + "\n---\nBody.\n"
	if err := os.WriteFile(filepath.Join(dir, name+".instructions.md"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestController(t *testing.T) (*Controller, string) {
	t.Helper()
	root := t.TempDir()
	writeInstruction(t, root, "github", "api_fix", "Fix GitHub API integrations")

	controller, err := NewController(root, "", &engine.Config{}, engine.Deps{})
	if err != nil {
		t.Fatal(err)
	}
	return controller, root
}

func TestControllerInitialLoad(t *testing.T) {
	controller, _ := newTestController(t)

	store, router := controller.Snapshot()
	if store.Count() != 1 {
		t.Errorf("count = %d, want 1", store.Count())
	}
	if router.Version() != engine.Durian06Version {
		t.Errorf("engine = %s", router.Version())
	}
}

func TestControllerRejectsBadEngineConfig(t *testing.T) {
	root := t.TempDir()
	_, err := NewController(root, "", &engine.Config{Engine: "durian-99"}, engine.Deps{})
	if err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestManualReindexSwapsSnapshot(t *testing.T) {
	controller, root := newTestController(t)

	writeInstruction(t, root, "devops", "container_management", "Container management")

	result := controller.Reindex(true)
	if !result.Success {
		t.Fatalf("reindex failed: %s", result.Error)
	}
	if result.OldCount != 1 || result.NewCount != 2 {
		t.Errorf("counts = %d -> %d, want 1 -> 2", result.OldCount, result.NewCount)
	}
	if result.Engine != engine.Durian06Version {
		t.Errorf("engine = %s", result.Engine)
	}

	store, _ := controller.Snapshot()
	if store.Count() != 2 {
		t.Errorf("post-swap count = %d", store.Count())
	}
}

func TestManualReindexSpamPrevention(t *testing.T) {
	controller, _ := newTestController(t)

	first := controller.Reindex(false)
	if !first.Success {
		t.Fatalf("first reindex failed: %+v", first)
	}

	second := controller.Reindex(false)
	if second.Success || !second.Skipped {
		t.Fatalf("second reindex not skipped: %+v", second)
	}
	if second.Reason != "spam_prevention" {
		t.Errorf("reason = %q", second.Reason)
	}
	if second.WaitSeconds <= 0 || second.WaitSeconds > 10 {
		t.Errorf("wait_seconds = %v", second.WaitSeconds)
	}

	// Force bypasses the floor.
	forced := controller.Reindex(true)
	if !forced.Success {
		t.Errorf("forced reindex failed: %+v", forced)
	}
}

func TestWatchDebouncedReload(t *testing.T) {
	if testing.Short() {
		t.Skip("debounce test sleeps through the 3s window")
	}
	controller, root := newTestController(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- controller.Watch(ctx) }()

	// Let the watcher establish its watches before mutating the tree.
	time.Sleep(300 * time.Millisecond)

	writeInstruction(t, root, "github", "issue_closure", "Issue closure workflow")
	writeInstruction(t, root, "github", "issue_commencement", "Issue commencement workflow")

	// Both writes fall in one debounce window and produce a single reload.
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		store, _ := controller.Snapshot()
		if store.Count() == 3 {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	store, _ := controller.Snapshot()
	if store.Count() != 3 {
		t.Fatalf("count = %d, want 3 after debounced reload", store.Count())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}

func TestNonInstructionFilesIgnored(t *testing.T) {
	if testing.Short() {
		t.Skip("debounce test sleeps through the 3s window")
	}
	controller, root := newTestController(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go controller.Watch(ctx)
	time.Sleep(300 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "github", "README.md"), []byte("notes"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(4 * time.Second)
	store, _ := controller.Snapshot()
	if store.Count() != 1 {
		t.Errorf("count = %d; non-instruction file triggered reload", store.Count())
	}
}
