package pathing

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirsFromEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ESM_DATA_DIR", filepath.Join(root, "data"))
	t.Setenv("ESM_CONFIG_DIR", filepath.Join(root, "etc"))

	require.NoError(t, EnsureDirs())
	assert.DirExists(t, filepath.Join(root, "data"))
	assert.DirExists(t, filepath.Join(root, "etc"))
	assert.Equal(t, filepath.Join(root, "data", "esm-meter.db"), GetMeterDbPath())
}

func TestDefaults(t *testing.T) {
	t.Setenv("ESM_DATA_DIR", "")
	t.Setenv("ESM_CONFIG_DIR", "")
	assert.Equal(t, defaultConfigDir, GetConfigDir())
	assert.Equal(t, defaultDataDir, GetDataDir())
}
