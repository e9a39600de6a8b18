package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "config.toml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Checklist Regelkast", cfg.Checklist.SheetBase)
	assert.Equal(t, 80.0, cfg.Checklist.ThresholdPercent)
	assert.Equal(t, "J36", cfg.Checklist.TrendStorageCell)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should be written")
}

func TestConfigSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Checklist.ThresholdPercent = 75
	cfg.Checkboxes["Check Box 33"] = "C33"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 75.0, loaded.Checklist.ThresholdPercent)
	assert.Equal(t, "C33", loaded.Checkboxes["Check Box 33"])
}

func TestLoadConfigFillsEmptyKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[checklist]
sheet_base = ""
threshold_percent = 0

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Checklist Regelkast", cfg.Checklist.SheetBase)
	assert.Equal(t, 80.0, cfg.Checklist.ThresholdPercent)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 500, cfg.Log.Buffer)
	assert.NotNil(t, cfg.Checkboxes)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[checklist\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
