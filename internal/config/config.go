// Package config loads Pongogo server configuration from YAML with
// environment variable overrides.
//
// Loading order (later overrides earlier):
//  1. Built-in defaults
//  2. Config file (PONGOGO_CONFIG_PATH, or <root>/.pongogo/config.yaml)
//  3. Environment overrides (PONGOGO_KNOWLEDGE_PATH)
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by the server.
const (
	EnvConfigPath    = "PONGOGO_CONFIG_PATH"
	EnvKnowledgePath = "PONGOGO_KNOWLEDGE_PATH"
	EnvProjectRoot   = "PONGOGO_PROJECT_ROOT"
	EnvVersion       = "PONGOGO_VERSION"
)

// FallbackVersion is reported when PONGOGO_VERSION is unset.
const FallbackVersion = "0.6.2"

// Config holds all Pongogo configuration.
type Config struct {
	Routing   RoutingConfig   `yaml:"routing"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Server    ServerConfig    `yaml:"server"`
}

// RoutingConfig selects the engine version and its feature flags.
type RoutingConfig struct {
	// Engine is the version string (e.g., "durian-0.6.2").
	// Empty means use the registered default engine.
	Engine string `yaml:"engine"`

	// LimitDefault is the default routing limit.
	LimitDefault int `yaml:"limit_default"`

	// Features overrides per-engine feature flag defaults.
	Features map[string]bool `yaml:"features"`
}

// KnowledgeConfig locates the user instruction tree.
type KnowledgeConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds transport-level settings.
type ServerConfig struct {
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Routing: RoutingConfig{
			Engine:       "",
			LimitDefault: 5,
			Features:     map[string]bool{},
		},
		Knowledge: KnowledgeConfig{Path: ""},
		Server:    ServerConfig{LogLevel: "INFO"},
	}
}

// Load reads configuration with the documented precedence.
// An explicit path (parameter or PONGOGO_CONFIG_PATH) that exists but holds
// invalid YAML is a fatal configuration error. The default config file is
// best-effort: parse failures are ignored.
func Load(explicitPath string) (*Config, error) {
	cfg := Default()

	path := explicitPath
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
			}
			// Explicit path that does not exist: fall through to defaults.
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in config file %s: %w", path, err)
		}
	} else {
		defaultPath := filepath.Join(ProjectRoot(), ".pongogo", "config.yaml")
		if data, err := os.ReadFile(defaultPath); err == nil {
			// Best effort: a broken default config must not prevent startup.
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	if override := os.Getenv(EnvKnowledgePath); override != "" {
		cfg.Knowledge.Path = override
	}

	if cfg.Routing.LimitDefault <= 0 {
		cfg.Routing.LimitDefault = 5
	}
	if cfg.Routing.Features == nil {
		cfg.Routing.Features = map[string]bool{}
	}

	return cfg, nil
}

// ProjectRoot resolves the project root directory:
//  1. PONGOGO_PROJECT_ROOT if set
//  2. the .pongogo-parent directory of PONGOGO_KNOWLEDGE_PATH
//  3. the current working directory
func ProjectRoot() string {
	if root := os.Getenv(EnvProjectRoot); root != "" {
		return root
	}

	if kp := os.Getenv(EnvKnowledgePath); kp != "" {
		// Knowledge path layout is <root>/.pongogo/instructions; walk up
		// until a .pongogo component is found.
		dir := filepath.Clean(kp)
		for dir != "/" && dir != "." {
			if filepath.Base(dir) == ".pongogo" {
				return filepath.Dir(dir)
			}
			dir = filepath.Dir(dir)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// KnowledgePath returns the user instruction root for the given config,
// defaulting to <project_root>/.pongogo/instructions.
func (c *Config) KnowledgePath() string {
	if c.Knowledge.Path != "" {
		return c.Knowledge.Path
	}
	return filepath.Join(ProjectRoot(), ".pongogo", "instructions")
}

// Version returns the running Pongogo version.
func Version() string {
	if v := os.Getenv(EnvVersion); v != "" {
		return v
	}
	return FallbackVersion
}

// Write serializes the config to <root>/.pongogo/config.yaml, creating the
// directory if needed. Used by the init command.
func (c *Config) Write(projectRoot string) (string, error) {
	dir := filepath.Join(projectRoot, ".pongogo")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to serialize config: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
