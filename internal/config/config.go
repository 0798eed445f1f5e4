// Package config loads noteseek's configuration: hardcoded defaults,
// then the user config file, then NOTESEEK_* environment overrides, in
// increasing precedence. Command-line flags are applied on top by the
// caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	nserrors "github.com/dkrall/noteseek/internal/errors"
	"github.com/dkrall/noteseek/internal/pipeline"
	"github.com/dkrall/noteseek/internal/traverse"
)

// Config is the complete noteseek configuration.
type Config struct {
	// Roots are the note directories to index.
	Roots []string `yaml:"roots"`

	// TextExtensions lists the extensions treated as line-indexable text.
	TextExtensions []string `yaml:"text_extensions"`

	// ExcludeDirs are directory basenames skipped during traversal.
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// Workers bounds concurrent file tasks.
	Workers int `yaml:"workers"`

	// Selector picks the selection frontend: auto, fzf or tui.
	Selector string `yaml:"selector"`

	// Editor opens selected records. Empty falls back to $EDITOR.
	Editor string `yaml:"editor"`

	// LogLevel sets the log verbosity: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// NewConfig returns the hardcoded defaults.
func NewConfig() *Config {
	return &Config{
		Roots:          []string{defaultNotesDir()},
		TextExtensions: append([]string(nil), traverse.DefaultTextExtensions...),
		Workers:        pipeline.DefaultWorkers,
		Selector:       "auto",
		LogLevel:       "info",
	}
}

func defaultNotesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "notes"
	}
	return filepath.Join(home, "notes")
}

// GetUserConfigPath returns the user configuration file path, honoring
// XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "noteseek", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "noteseek", "config.yaml")
	}
	return filepath.Join(home, ".config", "noteseek", "config.yaml")
}

// Load builds the effective configuration: defaults, user config file,
// then environment overrides. A missing config file is fine.
func Load() (*Config, error) {
	return load(GetUserConfigPath())
}

func load(path string) (*Config, error) {
	cfg := NewConfig()

	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.expandRoots()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML parses path and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nserrors.Wrap(nserrors.ErrCodeConfigNotFound, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nserrors.Wrap(nserrors.ErrCodeConfigInvalid,
			fmt.Errorf("parsing %s: %w", path, err))
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if len(other.Roots) > 0 {
		c.Roots = other.Roots
	}
	if len(other.TextExtensions) > 0 {
		c.TextExtensions = other.TextExtensions
	}
	if len(other.ExcludeDirs) > 0 {
		c.ExcludeDirs = append(c.ExcludeDirs, other.ExcludeDirs...)
	}
	if other.Workers != 0 {
		c.Workers = other.Workers
	}
	if other.Selector != "" {
		c.Selector = other.Selector
	}
	if other.Editor != "" {
		c.Editor = other.Editor
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies NOTESEEK_* variables, the highest
// precedence below command-line flags.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NOTESEEK_ROOTS"); v != "" {
		c.Roots = filepath.SplitList(v)
	}
	if v := os.Getenv("NOTESEEK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
	if v := os.Getenv("NOTESEEK_SELECTOR"); v != "" {
		c.Selector = v
	}
	if v := os.Getenv("NOTESEEK_EDITOR"); v != "" {
		c.Editor = v
	}
	if v := os.Getenv("NOTESEEK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// expandRoots resolves a leading "~" in each root.
func (c *Config) expandRoots() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	for i, root := range c.Roots {
		if root == "~" {
			c.Roots[i] = home
		} else if strings.HasPrefix(root, "~/") {
			c.Roots[i] = filepath.Join(home, root[2:])
		}
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return nserrors.New(nserrors.ErrCodeConfigInvalid, "no roots configured", nil)
	}
	if c.Workers <= 0 {
		return nserrors.New(nserrors.ErrCodeConfigInvalid,
			fmt.Sprintf("workers must be positive, got %d", c.Workers), nil)
	}
	switch c.Selector {
	case "", "auto", "fzf", "tui":
	default:
		return nserrors.New(nserrors.ErrCodeConfigInvalid,
			"unknown selector: "+c.Selector, nil)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nserrors.New(nserrors.ErrCodeConfigInvalid,
			"unknown log level: "+c.LogLevel, nil)
	}
	for _, ext := range c.TextExtensions {
		if !strings.HasPrefix(ext, ".") {
			return nserrors.New(nserrors.ErrCodeConfigInvalid,
				"text extension must start with a dot: "+ext, nil)
		}
	}
	return nil
}

// WriteYAML writes c to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nserrors.Wrap(nserrors.ErrCodeInternal, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nserrors.Wrap(nserrors.ErrCodeFilePermission, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Pipeline translates c into a pipeline configuration. The password is
// not part of the file config; it is prompted per run.
func (c *Config) Pipeline(password string) pipeline.Config {
	return pipeline.Config{
		Roots:          c.Roots,
		TextExtensions: c.TextExtensions,
		ExcludeDirs:    c.ExcludeDirs,
		Workers:        c.Workers,
		Password:       password,
	}
}
