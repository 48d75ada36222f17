package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
project:
  root: ./src
  exclude_dirs: [tests, build]
analysis:
  profile: heuristic
  type_check_uses: true
output:
  format: edges
  kinds: [Call, Create]
`), 0o644))

	t.Setenv("DEPGRAPH_WORKERS", "3")
	t.Setenv("DEPGRAPH_DB", "/tmp/x.db")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "./src", cfg.Project.Root)
	assert.Equal(t, []string{"tests", "build"}, cfg.Project.ExcludeDirs)
	assert.Equal(t, "heuristic", cfg.Analysis.Profile)
	assert.True(t, cfg.Analysis.TypeCheckUses)
	assert.Equal(t, 3, cfg.Analysis.Workers)
	assert.Equal(t, "edges", cfg.Output.Format)
	assert.Equal(t, "canonical", cfg.Output.Naming)
	assert.Equal(t, []string{"Call", "Create"}, cfg.Output.Kinds)
	assert.Equal(t, "/tmp/x.db", cfg.Store.Path)

	t.Run("Env overrides file", func(t *testing.T) {
		t.Setenv("DEPGRAPH_PROFILE", "strict")
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "strict", cfg.Analysis.Profile)
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Analysis.Profile = "loose"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Output.Format = "csv"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	t.Setenv("DEPGRAPH_WORKERS", "many")
	_, err := LoadConfig("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
