package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/NotCoffee418/european_smart_meter/pkg/feed"
	"github.com/NotCoffee418/european_smart_meter/pkg/pathing"
)

var ErrInvalidConfig = errors.New("invalid config")

func DefaultPath() string {
	return filepath.Join(pathing.GetConfigDir(), "meter_collector.toml")
}

func Default() *MeterCollectorConfig {
	return &MeterCollectorConfig{
		PollInterval:    Duration{time.Second},
		Timezone:        "Local",
		RecentCacheSize: 1024,
		Feed: FeedConfig{
			Kind:         "http",
			Endpoint:     "http://p1meter.local/api/v1/telegram",
			SerialDevice: "/dev/ttyUSB0",
			Baudrate:     115200,
			Timeout:      Duration{5 * time.Second},
		},
		Server: ServerConfig{
			Enabled:       true,
			ListenAddress: "0.0.0.0",
			ListenPort:    9039,
		},
		MQTT: MQTTConfig{
			TopicPrefix: "european_smart_meter",
			ClientID:    "european_smart_meter",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config at path. A missing file is created with defaults.
// Keys absent from an existing file keep their default value.
func Load(path string) (*MeterCollectorConfig, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *MeterCollectorConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	cfgFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer cfgFile.Close()

	if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func (c *MeterCollectorConfig) Validate() error {
	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidConfig)
	}
	switch c.Feed.Kind {
	case "http":
		if c.Feed.Endpoint == "" {
			return fmt.Errorf("%w: feed.endpoint is required for http feeds", ErrInvalidConfig)
		}
	case "serial":
		if c.Feed.SerialDevice == "" {
			return fmt.Errorf("%w: feed.serial_device is required for serial feeds", ErrInvalidConfig)
		}
	case "file":
		if c.Feed.File == "" {
			return fmt.Errorf("%w: feed.file is required for file feeds", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown feed.kind %q", ErrInvalidConfig, c.Feed.Kind)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required when mqtt is enabled", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *MeterCollectorConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *MeterCollectorConfig) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return pathing.GetMeterDbPath()
}

func (c *MeterCollectorConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.ListenAddress, c.Server.ListenPort)
}

func (f FeedConfig) Options() feed.Options {
	return feed.Options{
		Kind:         f.Kind,
		Endpoint:     f.Endpoint,
		File:         f.File,
		SerialDevice: f.SerialDevice,
		Baudrate:     f.Baudrate,
		ValidateCRC:  f.ValidateCRC,
		Timeout:      f.Timeout.Duration,
	}
}
