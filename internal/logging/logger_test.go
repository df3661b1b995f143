package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetState() {
	stateMu.Lock()
	logsDir = ""
	debugOn = false
	logLevel = LevelInfo
	stateMu.Unlock()
	Close()
}

func TestDisabledByDefault(t *testing.T) {
	resetState()
	root := t.TempDir()

	if err := Initialize(root, "INFO"); err != nil {
		t.Fatal(err)
	}
	if IsDebugMode() {
		t.Error("debug mode on without debug level")
	}

	// No-op loggers must be safe to use.
	Get(CategoryRouting).Info("message %d", 1)
	Routing("convenience call")

	if _, err := os.Stat(filepath.Join(root, ".pongogo", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory created in production mode")
	}
}

func TestDebugModeWritesFiles(t *testing.T) {
	resetState()
	defer resetState()
	root := t.TempDir()

	if err := Initialize(root, "debug"); err != nil {
		t.Fatal(err)
	}
	if !IsDebugMode() {
		t.Fatal("debug mode off")
	}

	Get(CategoryStore).Info("loaded %d instructions", 7)
	Get(CategoryStore).Error("a failure: %v", os.ErrNotExist)
	timer := StartTimer(CategoryStore, "TestOp")
	timer.Stop()
	Close()

	entries, err := os.ReadDir(filepath.Join(root, ".pongogo", "logs"))
	if err != nil {
		t.Fatal(err)
	}
	var storeLog string
	for _, entry := range entries {
		if strings.Contains(entry.Name(), "store") {
			storeLog = filepath.Join(root, ".pongogo", "logs", entry.Name())
		}
	}
	if storeLog == "" {
		t.Fatalf("no store log among %v", entries)
	}

	data, err := os.ReadFile(storeLog)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "[INFO] loaded 7 instructions") {
		t.Errorf("info line missing:\n%s", content)
	}
	if !strings.Contains(content, "[ERROR]") {
		t.Errorf("error line missing:\n%s", content)
	}
}
