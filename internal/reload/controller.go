// Package reload owns the hot-reload path: a debounced filesystem watcher
// over the user instruction tree plus an atomic store/engine swap, and the
// rate-limited manual reindex operation.
package reload

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pongogo/internal/engine"
	"pongogo/internal/knowledge"
	"pongogo/internal/logging"
)

const (
	// debounceWindow is the sliding debounce for file events.
	debounceWindow = 3 * time.Second

	// minManualInterval is the spam-prevention floor between manual
	// reindexes, bypassable with force.
	minManualInterval = 10 * time.Second
)

// Controller holds the active store/engine snapshot and rebuilds it on file
// changes or manual request. The snapshot is read-shared and
// writer-exclusive-on-swap: in-flight requests keep the snapshot they read
// until they return.
type Controller struct {
	userPath  string
	corePath  string
	engineCfg *engine.Config
	deps      engine.Deps

	mu     sync.RWMutex
	store  *knowledge.Store
	router engine.Router

	manualMu   sync.Mutex
	lastManual time.Time

	pendingMu sync.Mutex
	pending   map[string]bool
	timer     *time.Timer
}

// NewController builds the initial store and engine. The initial load runs
// eagerly so the caller can fail fast on configuration errors.
func NewController(userPath, corePath string, engineCfg *engine.Config, deps engine.Deps) (*Controller, error) {
	c := &Controller{
		userPath:  userPath,
		corePath:  corePath,
		engineCfg: engineCfg,
		deps:      deps,
		pending:   map[string]bool{},
	}

	store := knowledge.NewStore(userPath, corePath)
	if _, err := store.Load(); err != nil {
		return nil, err
	}
	router, err := engine.New(store, engineCfg, deps)
	if err != nil {
		return nil, err
	}

	c.store = store
	c.router = router
	return c, nil
}

// Snapshot returns the current store and engine. Callers use the snapshot
// for the whole request; a concurrent swap does not affect them.
func (c *Controller) Snapshot() (*knowledge.Store, engine.Router) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store, c.router
}

// ReloadResult reports the outcome of a reindex.
type ReloadResult struct {
	Success     bool    `json:"success"`
	OldCount    int     `json:"old_count,omitempty"`
	NewCount    int     `json:"new_count,omitempty"`
	ElapsedMs   float64 `json:"elapsed_ms,omitempty"`
	Engine      string  `json:"engine,omitempty"`
	Skipped     bool    `json:"skipped,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	WaitSeconds float64 `json:"wait_seconds,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// reload builds a fresh store and engine off-lock, then swaps both
// references atomically. The old snapshot is discarded; requests mid-flight
// continue on the snapshot they hold.
func (c *Controller) reload() *ReloadResult {
	start := time.Now()
	logging.Watcher("=== Starting knowledge base reindex ===")

	newStore := knowledge.NewStore(c.userPath, c.corePath)
	newCount, err := newStore.Load()
	if err != nil {
		logging.Get(logging.CategoryWatcher).Error("Reindex failed: %v", err)
		return &ReloadResult{Success: false, Error: err.Error()}
	}

	newRouter, err := engine.New(newStore, c.engineCfg, c.deps)
	if err != nil {
		logging.Get(logging.CategoryWatcher).Error("Reindex failed: %v", err)
		return &ReloadResult{Success: false, Error: err.Error()}
	}

	c.mu.Lock()
	oldCount := c.store.Count()
	c.store = newStore
	c.router = newRouter
	c.mu.Unlock()

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	logging.Watcher("=== Reindex complete: %d -> %d instructions (engine: %s, %.1fms) ===",
		oldCount, newCount, newRouter.Version(), elapsed)

	return &ReloadResult{
		Success:   true,
		OldCount:  oldCount,
		NewCount:  newCount,
		ElapsedMs: elapsed,
		Engine:    newRouter.Version(),
	}
}

// Reindex is the manual reload operation. Without force, a 10-second floor
// between manual reindexes returns a structured skip rather than reloading.
func (c *Controller) Reindex(force bool) *ReloadResult {
	c.manualMu.Lock()
	if !force {
		since := time.Since(c.lastManual)
		if since < minManualInterval {
			wait := (minManualInterval - since).Seconds()
			c.manualMu.Unlock()
			logging.Get(logging.CategoryWatcher).Warn(
				"Manual reindex skipped (spam prevention): wait %.1fs", wait)
			return &ReloadResult{
				Success:     false,
				Skipped:     true,
				Reason:      "spam_prevention",
				WaitSeconds: float64(int(wait*10)) / 10,
			}
		}
	}
	c.manualMu.Unlock()

	result := c.reload()
	if result.Success {
		c.manualMu.Lock()
		c.lastManual = time.Now()
		c.manualMu.Unlock()
	}
	return result
}

// Watch runs the filesystem observer until the context is cancelled. Only
// create/write/remove/rename events on *.instructions.md files schedule a
// reload; each qualifying event resets the 3-second debounce timer.
func (c *Controller) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := c.addRecursive(watcher, c.userPath); err != nil {
		// Directory may not exist yet; the watcher stays up and the next
		// manual reindex picks up new files.
		logging.Get(logging.CategoryWatcher).Warn("Initial watch failed (dir may not exist): %v", err)
	} else {
		logging.Watcher("Watching directory: %s", c.userPath)
	}

	for {
		select {
		case <-ctx.Done():
			c.cancelTimer()
			logging.Watcher("Watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			c.handleEvent(watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryWatcher).Error("Watcher error: %v", err)
		}
	}
}

func (c *Controller) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	// New subdirectories must join the watch set for recursive coverage.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			c.addRecursive(watcher, event.Name)
			return
		}
	}

	if !strings.HasSuffix(event.Name, knowledge.InstructionSuffix) {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	logging.Watcher("File %s: %s", event.Op, filepath.Base(event.Name))

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pending[event.Name] = true

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(debounceWindow, c.debounceFired)
}

func (c *Controller) debounceFired() {
	c.pendingMu.Lock()
	count := len(c.pending)
	c.pending = map[string]bool{}
	c.pendingMu.Unlock()

	if count == 0 {
		return
	}
	logging.Watcher("Debounce period complete - triggering reindex (%d file(s) changed)", count)
	c.reload()
}

func (c *Controller) cancelTimer() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				logging.Get(logging.CategoryWatcher).Warn("Failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
}
