// Package config loads the service configuration from a YAML file with
// sensible defaults for running on a bare device.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultDeviceName = "BTBerryWifi"
	DefaultTimeout    = "15"
	DefaultDataDir    = "/var/lib/btwifiset"

	// TimeoutNever disables the idle shutdown.
	TimeoutNever = "never"
)

// Config is the service configuration.
type Config struct {
	// DeviceName is the advertised Bluetooth name.
	DeviceName string `yaml:"device_name"`

	// Timeout is the idle shutdown in minutes, or "never". The idle
	// clock restarts on every inbound write.
	Timeout string `yaml:"timeout"`

	// StatePath holds the lock posture and nonce counter document.
	StatePath string `yaml:"state_path"`

	// SecretPath holds the shared password (first line). Missing or
	// empty means no password.
	SecretPath string `yaml:"secret_path"`

	Log Log `yaml:"log"`
}

// Log configures the logging destinations.
type Log struct {
	// Console enables human-readable logging to stderr.
	Console bool `yaml:"console"`

	// Level is the console log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// File, when set, captures protocol events in CBOR form.
	File string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DeviceName: DefaultDeviceName,
		Timeout:    DefaultTimeout,
		StatePath:  DefaultDataDir + "/info.json",
		SecretPath: DefaultDataDir + "/crypto",
		Log:        Log{Console: true, Level: "info"},
	}
}

// Load reads a YAML configuration file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if _, err := cfg.IdleTimeout(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// IdleTimeout converts the Timeout field to a duration. Zero means no
// timeout ("never").
func (c Config) IdleTimeout() (time.Duration, error) {
	if c.Timeout == TimeoutNever {
		return 0, nil
	}
	minutes, err := strconv.Atoi(c.Timeout)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("invalid timeout %q: want minutes or %q", c.Timeout, TimeoutNever)
	}
	return time.Duration(minutes) * time.Minute, nil
}
