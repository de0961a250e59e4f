package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pbaille/plan/internal/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PLAN_CONFIG_PATH", "")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, hierarchy.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, "plan.db", filepath.Base(cfg.DBPath))
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())
	t.Setenv("PLAN_CONFIG_PATH", dir)

	content := `
db: /tmp/trips.db
addr: ":9090"
log:
  level: debug
thresholds:
  nesting: 60
  promotion: -30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".plan.yaml"), []byte(content), 0o644))

	l := NewLoader()
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/trips.db", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, hierarchy.Thresholds{Nesting: 60, Promotion: -30}, cfg.Thresholds)
	assert.Equal(t, filepath.Join(dir, ".plan.yaml"), l.File())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PLAN_CONFIG_PATH", "")
	t.Setenv("PLAN_ADDR", ":7000")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
}

func TestLoad_RejectsInvertedThresholds(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())
	t.Setenv("PLAN_CONFIG_PATH", dir)

	content := "thresholds:\n  nesting: -10\n  promotion: 10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".plan.yaml"), []byte(content), 0o644))

	_, err := NewLoader().Load()
	assert.Error(t, err)
}
