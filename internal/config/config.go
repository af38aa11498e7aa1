package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete gridcoalesce configuration.
// It carries the coalesce tunables and store section of the schema
// SPEC_FULL.md §4.9 describes, plus a version field and a server section.
type Config struct {
	Version         int     `yaml:"version" json:"version"`
	MaxContexts     int     `yaml:"maxContexts" json:"maxContexts"`
	RelevanceWindow float64 `yaml:"relevanceWindow" json:"relevanceWindow"`
	MultiGridLimit  int     `yaml:"multiGridLimit" json:"multiGridLimit"`

	Store  StoreConfig  `yaml:"store" json:"store"`
	Server ServerConfig `yaml:"server" json:"server"`
}

// StoreConfig selects and configures the grid store backend.
type StoreConfig struct {
	// Kind selects the backend: "memory", "sqlite", or "bleve".
	Kind string `yaml:"kind" json:"kind"`
	// Path is the on-disk location for "sqlite" and "bleve" backends.
	// Ignored for "memory".
	Path string `yaml:"path" json:"path"`
}

// ServerConfig configures CLI-wide logging behavior.
type ServerConfig struct {
	LogLevel string `yaml:"logLevel" json:"logLevel"`
}

// NewConfig creates a new Config with sensible defaults. These mirror the
// constants gridstore itself hard-codes (MaxContexts, RelevanceWindow,
// MultiGridLimit). Nothing in this module copies a loaded Config into
// those gridstore vars.
func NewConfig() *Config {
	return &Config{
		Version:         1,
		MaxContexts:     40,
		RelevanceWindow: 0.25,
		MultiGridLimit:  100_000,
		Store: StoreConfig{
			Kind: "memory",
			Path: "",
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/gridcoalesce/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/gridcoalesce/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gridcoalesce", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "gridcoalesce", "config.yaml")
	}
	return filepath.Join(home, ".config", "gridcoalesce", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/gridcoalesce/config.yaml)
//  3. Project config (.gridcoalesce.yaml in dir)
//  4. Environment variables (GRIDCOALESCE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .gridcoalesce.yaml or
// .gridcoalesce.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".gridcoalesce.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".gridcoalesce.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.MaxContexts != 0 {
		c.MaxContexts = other.MaxContexts
	}
	if other.RelevanceWindow != 0 {
		c.RelevanceWindow = other.RelevanceWindow
	}
	if other.MultiGridLimit != 0 {
		c.MultiGridLimit = other.MultiGridLimit
	}

	if other.Store.Kind != "" {
		c.Store.Kind = other.Store.Kind
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies GRIDCOALESCE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GRIDCOALESCE_MAX_CONTEXTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxContexts = n
		}
	}
	if v := os.Getenv("GRIDCOALESCE_RELEVANCE_WINDOW"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.RelevanceWindow = w
		}
	}
	if v := os.Getenv("GRIDCOALESCE_MULTI_GRID_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MultiGridLimit = n
		}
	}
	if v := os.Getenv("GRIDCOALESCE_STORE_KIND"); v != "" {
		c.Store.Kind = v
	}
	if v := os.Getenv("GRIDCOALESCE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("GRIDCOALESCE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// FindProjectRoot finds the project root directory.
// It looks for a .git directory or .gridcoalesce.yaml/.yml file by walking
// up the directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".gridcoalesce.yaml")) ||
			fileExists(filepath.Join(currentDir, ".gridcoalesce.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.MaxContexts <= 0 {
		return fmt.Errorf("maxContexts must be positive, got %d", c.MaxContexts)
	}
	if c.RelevanceWindow < 0 || c.RelevanceWindow > 1 {
		return fmt.Errorf("relevanceWindow must be between 0 and 1, got %f", c.RelevanceWindow)
	}
	if c.MultiGridLimit <= 0 {
		return fmt.Errorf("multiGridLimit must be positive, got %d", c.MultiGridLimit)
	}

	validStoreKinds := map[string]bool{"memory": true, "sqlite": true, "bleve": true}
	if !validStoreKinds[strings.ToLower(c.Store.Kind)] {
		return fmt.Errorf("store.kind must be 'memory', 'sqlite', or 'bleve', got %s", c.Store.Kind)
	}
	if c.Store.Kind != "memory" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for store.kind=%s", c.Store.Kind)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.logLevel must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns a list of field names that were added with their default values.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.MaxContexts == 0 {
		c.MaxContexts = defaults.MaxContexts
		added = append(added, "maxContexts")
	}
	if c.RelevanceWindow == 0 {
		c.RelevanceWindow = defaults.RelevanceWindow
		added = append(added, "relevanceWindow")
	}
	if c.MultiGridLimit == 0 {
		c.MultiGridLimit = defaults.MultiGridLimit
		added = append(added, "multiGridLimit")
	}
	if c.Store.Kind == "" {
		c.Store.Kind = defaults.Store.Kind
		added = append(added, "store.kind")
	}

	return added
}
