package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Edge case tests covering scenarios that could cause silent failures or
// unexpected behavior in configuration loading and validation.

// =============================================================================
// FindProjectRoot Edge Cases
// =============================================================================

func TestFindProjectRoot_NonExistentDir_ReturnsAbsPath(t *testing.T) {
	nonExistent := "/nonexistent/path/that/does/not/exist"

	root, err := FindProjectRoot(nonExistent)

	require.NoError(t, err)
	assert.Equal(t, nonExistent, root)
}

func TestFindProjectRoot_RelativePath_ResolvesToAbsolute(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldWd)

	require.NoError(t, os.Chdir(tmpDir))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".git"), 0755))

	root, err := FindProjectRoot(".")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root))
}

func TestFindProjectRoot_NestedGitStopsAtFirstMatch(t *testing.T) {
	tmpDir := t.TempDir()
	outer := filepath.Join(tmpDir, "outer")
	inner := filepath.Join(outer, "inner")
	require.NoError(t, os.MkdirAll(filepath.Join(outer, ".git"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(inner, ".git"), 0755))

	root, err := FindProjectRoot(inner)
	require.NoError(t, err)
	wantAbs, _ := filepath.Abs(inner)
	assert.Equal(t, wantAbs, root)
}

// =============================================================================
// Load Edge Cases
// =============================================================================

func TestLoad_EmptyProjectConfigFile_UsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg-empty"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".gridcoalesce.yaml"), []byte(""), 0644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.MaxContexts)
}

func TestLoad_MalformedYAML_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg-empty"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	malformed := "maxContexts: [this is not an int\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".gridcoalesce.yaml"), []byte(malformed), 0644))

	_, err := Load(tmpDir)
	assert.Error(t, err)
}

func TestLoad_BothYamlAndYmlPresent_PrefersYaml(t *testing.T) {
	tmpDir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg-empty"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".gridcoalesce.yaml"), []byte("maxContexts: 11\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".gridcoalesce.yml"), []byte("maxContexts: 22\n"), 0644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 11, cfg.MaxContexts)
}

func TestLoad_UserConfigMergesBeforeProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	xdgDir := filepath.Join(tmpDir, "xdg")
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", xdgDir)
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	userConfigDir := filepath.Join(xdgDir, "gridcoalesce")
	require.NoError(t, os.MkdirAll(userConfigDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(userConfigDir, "config.yaml"),
		[]byte("maxContexts: 15\nstore:\n  kind: sqlite\n  path: /user/grid.db\n"), 0644))

	projectDir := filepath.Join(tmpDir, "project")
	require.NoError(t, os.MkdirAll(projectDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".gridcoalesce.yaml"),
		[]byte("maxContexts: 25\n"), 0644))

	cfg, err := Load(projectDir)
	require.NoError(t, err)
	// project config wins over user config for max_contexts
	assert.Equal(t, 25, cfg.MaxContexts)
	// store settings only set at user level survive the merge
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, "/user/grid.db", cfg.Store.Path)
}

// =============================================================================
// Env override edge cases
// =============================================================================

func TestApplyEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	cfg := NewConfig()

	os.Setenv("GRIDCOALESCE_MAX_CONTEXTS", "not-a-number")
	os.Setenv("GRIDCOALESCE_RELEVANCE_WINDOW", "2.5")
	os.Setenv("GRIDCOALESCE_MULTI_GRID_LIMIT", "-5")
	defer func() {
		os.Unsetenv("GRIDCOALESCE_MAX_CONTEXTS")
		os.Unsetenv("GRIDCOALESCE_RELEVANCE_WINDOW")
		os.Unsetenv("GRIDCOALESCE_MULTI_GRID_LIMIT")
	}()

	cfg.applyEnvOverrides()

	assert.Equal(t, 40, cfg.MaxContexts)
	assert.Equal(t, 0.25, cfg.RelevanceWindow)
	assert.Equal(t, 100_000, cfg.MultiGridLimit)
}

func TestApplyEnvOverrides_StoreKindAndPath(t *testing.T) {
	cfg := NewConfig()

	os.Setenv("GRIDCOALESCE_STORE_KIND", "bleve")
	os.Setenv("GRIDCOALESCE_STORE_PATH", "/data/index.bleve")
	defer func() {
		os.Unsetenv("GRIDCOALESCE_STORE_KIND")
		os.Unsetenv("GRIDCOALESCE_STORE_PATH")
	}()

	cfg.applyEnvOverrides()

	assert.Equal(t, "bleve", cfg.Store.Kind)
	assert.Equal(t, "/data/index.bleve", cfg.Store.Path)
}

// =============================================================================
// Validate edge cases
// =============================================================================

func TestValidate_RelevanceWindowBoundaries(t *testing.T) {
	cfg := NewConfig()

	cfg.RelevanceWindow = 0
	assert.NoError(t, cfg.Validate())

	cfg.RelevanceWindow = 1
	assert.NoError(t, cfg.Validate())
}

func TestValidate_StoreKindCaseInsensitive(t *testing.T) {
	cfg := NewConfig()
	cfg.Store.Kind = "SQLITE"
	cfg.Store.Path = "/tmp/grid.db"

	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// WriteYAML / round-trip edge cases
// =============================================================================

func TestWriteYAML_RoundTripsThroughLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "roundtrip.yaml")

	original := NewConfig()
	original.MaxContexts = 99
	original.Store.Kind = "sqlite"
	original.Store.Path = "/tmp/rt.db"

	require.NoError(t, original.WriteYAML(path))

	loaded := NewConfig()
	require.NoError(t, loaded.loadYAML(path))

	assert.Equal(t, 99, loaded.MaxContexts)
	assert.Equal(t, "sqlite", loaded.Store.Kind)
	assert.Equal(t, "/tmp/rt.db", loaded.Store.Path)
}

func TestWriteYAML_NonExistentDirectory_ReturnsError(t *testing.T) {
	cfg := NewConfig()
	err := cfg.WriteYAML("/nonexistent/dir/config.yaml")
	assert.Error(t, err)
}
