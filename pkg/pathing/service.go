package pathing

import (
	"os"
	"path/filepath"
)

const (
	defaultDataDir   = "/var/lib/european_smart_meter"
	defaultConfigDir = "/etc/european_smart_meter"
)

// EnsureDirs creates the data and config directories. Called on startup.
func EnsureDirs() error {
	for _, dir := range []string{GetDataDir(), GetConfigDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func GetMeterDbPath() string {
	return filepath.Join(GetDataDir(), "esm-meter.db")
}

// GetDataDir honours ESM_DATA_DIR.
func GetDataDir() string {
	if dir := os.Getenv("ESM_DATA_DIR"); dir != "" {
		return dir
	}
	return defaultDataDir
}

// GetConfigDir honours ESM_CONFIG_DIR.
func GetConfigDir() string {
	if dir := os.Getenv("ESM_CONFIG_DIR"); dir != "" {
		return dir
	}
	return defaultConfigDir
}
