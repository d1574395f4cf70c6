package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seismcp/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultDataDir, cfg.DataDir)
	assert.Equal(t, domain.DefaultMaxSeconds, cfg.Limits.MaxSeconds)
	assert.Equal(t, domain.DefaultMaxTraces, cfg.Limits.MaxTraces)
	assert.Equal(t, int64(domain.DefaultMaxTotalSamples), cfg.Limits.MaxTotalSamples)
	assert.Equal(t, int64(domain.DefaultMaxEstimatedBytes), cfg.Limits.MaxEstimatedBytes)
	assert.Equal(t, "IRIS", cfg.Provider)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MAX_SECONDS", "120")
	t.Setenv("DATA_DIR", "/tmp/quakes")
	t.Setenv("FDSN_PROVIDER", "EMSC")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Limits.MaxSeconds)
	assert.Equal(t, "/tmp/quakes", cfg.DataDir)
	assert.Equal(t, "EMSC", cfg.Provider)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seismcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("MAX_TRACES: 42\nLLM_MODEL: gpt-4o\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Limits.MaxTraces)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("MAX_SECONDS", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_SECONDS must be > 0")
}
