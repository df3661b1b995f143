package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvKnowledgePath, "")
	t.Setenv(EnvProjectRoot, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Routing.Engine)
	assert.Equal(t, 5, cfg.Routing.LimitDefault)
	assert.Equal(t, "INFO", cfg.Server.LogLevel)
	assert.NotNil(t, cfg.Routing.Features)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
routing:
  engine: durian-0.5
  limit_default: 3
  features:
    foundational: false
knowledge:
  path: /opt/knowledge
server:
  log_level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "durian-0.5", cfg.Routing.Engine)
	assert.Equal(t, 3, cfg.Routing.LimitDefault)
	assert.Equal(t, map[string]bool{"foundational": false}, cfg.Routing.Features)
	assert.Equal(t, "/opt/knowledge", cfg.Knowledge.Path)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoadInvalidYAMLIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routing: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestKnowledgePathEnvOverride(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvProjectRoot, t.TempDir())
	t.Setenv(EnvKnowledgePath, "/custom/instructions")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/custom/instructions", cfg.KnowledgePath())
}

func TestProjectRootResolution(t *testing.T) {
	// Explicit root wins.
	t.Setenv(EnvProjectRoot, "/explicit/root")
	t.Setenv(EnvKnowledgePath, "/other/.pongogo/instructions")
	assert.Equal(t, "/explicit/root", ProjectRoot())

	// Knowledge path with a .pongogo parent resolves to that parent's dir.
	t.Setenv(EnvProjectRoot, "")
	assert.Equal(t, "/other", ProjectRoot())

	// Fallback: current working directory.
	t.Setenv(EnvKnowledgePath, "")
	cwd, _ := os.Getwd()
	assert.Equal(t, cwd, ProjectRoot())
}

func TestVersion(t *testing.T) {
	t.Setenv(EnvVersion, "9.9.9")
	assert.Equal(t, "9.9.9", Version())

	t.Setenv(EnvVersion, "")
	assert.Equal(t, FallbackVersion, Version())
}

func TestWriteRoundTrip(t *testing.T) {
	t.Setenv(EnvKnowledgePath, "")
	root := t.TempDir()
	cfg := Default()
	cfg.Routing.Engine = "durian-0.6.2"

	path, err := cfg.Write(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".pongogo", "config.yaml"), path)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "durian-0.6.2", loaded.Routing.Engine)
}
