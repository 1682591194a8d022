// Package config loads layered configuration for both binaries: struct
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DeviceConfig configures the framed daemon.
type DeviceConfig struct {
	// ServerURL is the widget service base URL.
	ServerURL string `koanf:"server_url"`
	// Widget names the widget list to display.
	Widget string `koanf:"widget"`
	// StoragePath is the removable storage mount point.
	StoragePath string `koanf:"storage_path"`
	// SPIPort and the pin names wire up the panel.
	SPIPort  string `koanf:"spi_port"`
	ResetPin string `koanf:"reset_pin"`
	DCPin    string `koanf:"dc_pin"`
	BusyPin  string `koanf:"busy_pin"`
	LEDPin   string `koanf:"led_pin"`
	// ButtonDevice is the evdev input device name.
	ButtonDevice string `koanf:"button_device"`
	// NoPanel swaps the hardware panel for a no-op, for development.
	NoPanel bool `koanf:"no_panel"`

	SleepInterval time.Duration `koanf:"sleep_interval"`
	InputWindow   time.Duration `koanf:"input_window"`
	NetTimeout    time.Duration `koanf:"net_timeout"`
	DeepSleep     bool          `koanf:"deep_sleep"`
	// PruneInactive evicts the inactive orientation's entries during
	// reconciliation to halve the storage footprint.
	PruneInactive bool   `koanf:"prune_inactive"`
	Shuffle       bool   `koanf:"shuffle"`
	ShuffleSeed   uint64 `koanf:"shuffle_seed"`
	BatteryPath   string `koanf:"battery_path"`

	LogLevel string `koanf:"log_level"`
}

// ServerConfig configures the widgetd service.
type ServerConfig struct {
	Listen string `koanf:"listen"`
	// ConcertsUserID selects whose concert history the concerts widget
	// serves.
	ConcertsUserID string `koanf:"concerts_user_id"`
	// ConcertsAPI overrides the upstream endpoint.
	ConcertsAPI string `koanf:"concerts_api"`
	// ConcertsLimit caps the item list length.
	ConcertsLimit int `koanf:"concerts_limit"`

	UpstreamTimeout time.Duration `koanf:"upstream_timeout"`
	LogLevel        string        `koanf:"log_level"`
}

func defaultDevice() *DeviceConfig {
	return &DeviceConfig{
		ServerURL:     "http://localhost:3000",
		Widget:        "concerts",
		StoragePath:   "/mnt/sdcard",
		SPIPort:       "SPI0.0",
		ResetPin:      "GPIO17",
		DCPin:         "GPIO25",
		BusyPin:       "GPIO24",
		LEDPin:        "",
		ButtonDevice:  "frame-button",
		SleepInterval: 15 * time.Minute,
		InputWindow:   10 * time.Second,
		NetTimeout:    30 * time.Second,
		Shuffle:       true,
		BatteryPath:   "/sys/class/power_supply/battery/capacity",
		LogLevel:      "info",
	}
}

func defaultServer() *ServerConfig {
	return &ServerConfig{
		Listen:          ":3000",
		ConcertsLimit:   128,
		UpstreamTimeout: 30 * time.Second,
		LogLevel:        "info",
	}
}

// LoadDevice loads the device config: defaults, optional YAML at path (or
// FRAME_CONFIG), then FRAME_-prefixed environment variables.
func LoadDevice(path string) (*DeviceConfig, error) {
	cfg := defaultDevice()
	if err := load(cfg, path, "FRAME_"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadServer loads the service config the same way under WIDGETD_.
func LoadServer(path string) (*ServerConfig, error) {
	cfg := defaultServer()
	if err := load(cfg, path, "WIDGETD_"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(cfg any, path, envPrefix string) error {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return fmt.Errorf("config: loading defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return fmt.Errorf("config: loading %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return fmt.Errorf("config: loading environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	return nil
}
