package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "meter_collector.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.FileExists(t, path)

	// The written file loads back to the same values.
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meter_collector.toml")
	content := `
poll_interval = "10s"
timezone = "UTC"

[feed]
kind = "serial"
serial_device = "/dev/ttyAMA0"
validate_crc = true

[mqtt]
enabled = true
broker = "mqtt.local:1883"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.PollInterval.Duration)
	assert.Equal(t, "serial", cfg.Feed.Kind)
	assert.Equal(t, "/dev/ttyAMA0", cfg.Feed.SerialDevice)
	assert.True(t, cfg.Feed.ValidateCRC)
	assert.Equal(t, uint(115200), cfg.Feed.Baudrate)
	assert.Equal(t, 5*time.Second, cfg.Feed.Options().Timeout)
	assert.Equal(t, "mqtt.local:1883", cfg.MQTT.Broker)
	assert.Equal(t, "european_smart_meter", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0:9039", cfg.ListenAddr())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad kind":      "[feed]\nkind = \"smoke-signals\"\n",
		"zero interval": "poll_interval = \"0s\"\n",
		"bad duration":  "poll_interval = \"soon\"\n",
		"mqtt broker":   "[mqtt]\nenabled = true\n",
		"bad timezone":  "timezone = \"Mars/Olympus_Mons\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "meter_collector.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDatabasePath(t *testing.T) {
	t.Setenv("ESM_DATA_DIR", "/tmp/esm")
	cfg := Default()
	assert.Equal(t, "/tmp/esm/esm-meter.db", cfg.DatabasePath())

	cfg.Database.Path = "/srv/meter.db"
	assert.Equal(t, "/srv/meter.db", cfg.DatabasePath())
}
