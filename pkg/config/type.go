package config

import "time"

type MeterCollectorConfig struct {
	// Interval between two telegram fetches.
	PollInterval Duration `toml:"poll_interval"`
	// IANA zone used for report spans and CSV imports, e.g. Europe/Amsterdam.
	Timezone string `toml:"timezone"`
	// Fingerprints kept in memory to skip the store for unchanged counters.
	// 0 disables the cache.
	RecentCacheSize int `toml:"recent_cache_size"`

	Feed     FeedConfig     `toml:"feed"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	MQTT     MQTTConfig     `toml:"mqtt"`
	Log      LogConfig      `toml:"log"`
}

type FeedConfig struct {
	// http, serial or file
	Kind         string   `toml:"kind"`
	Endpoint     string   `toml:"endpoint"`
	File         string   `toml:"file"`
	SerialDevice string   `toml:"serial_device"`
	Baudrate     uint     `toml:"baudrate"`
	ValidateCRC  bool     `toml:"validate_crc"`
	Timeout      Duration `toml:"timeout"`
}

type DatabaseConfig struct {
	// Empty means the default path in the data directory.
	Path string `toml:"path"`
}

type ServerConfig struct {
	Enabled       bool   `toml:"enabled"`
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
}

type MQTTConfig struct {
	Enabled     bool   `toml:"enabled"`
	Broker      string `toml:"broker"`
	TopicPrefix string `toml:"topic_prefix"`
	ClientID    string `toml:"client_id"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a time.Duration written as "1s", "500ms" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}
