// Package coreinstr bundles the protected core instruction set into the
// binary and materializes it on disk for the instruction store.
//
// Core instructions shadow user files: an id loaded from here can never be
// replaced by a user instruction.
package coreinstr

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"pongogo/internal/config"
)

//go:embed instructions
var bundled embed.FS

// EnvCorePath overrides the bundled core with an on-disk tree, used in
// development and tests.
const EnvCorePath = "PONGOGO_CORE_PATH"

// Path returns the on-disk root of the bundled core instructions,
// extracting them to a per-version cache directory on first use.
// Returns "" (core-less operation) when extraction is impossible.
func Path() string {
	if override := os.Getenv(EnvCorePath); override != "" {
		return override
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	root := filepath.Join(cacheDir, "pongogo", "core-instructions", config.Version())

	if err := extract(root); err != nil {
		return ""
	}
	return filepath.Join(root, "instructions")
}

// extract writes the embedded tree under root. Idempotent: files already
// present with matching size are left alone.
func extract(root string) error {
	return fs.WalkDir(bundled, "instructions", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(root, path)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		data, err := bundled.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read bundled %s: %w", path, err)
		}
		if info, err := os.Stat(target); err == nil && info.Size() == int64(len(data)) {
			return nil
		}
		return os.WriteFile(target, data, 0644)
	})
}
