package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/vknob/internal/gatt"
	"github.com/chaz8081/vknob/internal/hid"
	"github.com/chaz8081/vknob/internal/session"
)

// Config holds all application configuration.
type Config struct {
	Device    DeviceConfig  `yaml:"device"`
	Button    ButtonConfig  `yaml:"button"`
	Battery   BatteryConfig `yaml:"battery"`
	Session   SessionConfig `yaml:"session"`
	TracePath string        `yaml:"trace_path"` // empty disables tracing
	LogLevel  string        `yaml:"log_level"`
}

// DeviceConfig holds the advertised name and Device Information values.
type DeviceConfig struct {
	Name           string `yaml:"name"`
	Manufacturer   string `yaml:"manufacturer"`
	VendorID       uint16 `yaml:"vendor_id"`
	ProductID      uint16 `yaml:"product_id"`
	ProductVersion uint16 `yaml:"product_version"`
	CompanyID      uint16 `yaml:"company_id"`
}

// ButtonConfig holds button and key settings.
type ButtonConfig struct {
	DebounceTicks int      `yaml:"debounce_ticks"`
	Key           string   `yaml:"key"`    // media key sent on press, e.g. "play_pause"
	Hotkey        []string `yaml:"hotkey"` // desktop simulator only
}

// BatteryConfig holds the reported battery level.
type BatteryConfig struct {
	Level uint8 `yaml:"level"`
}

// SessionConfig holds session loop timing.
type SessionConfig struct {
	AdvertisePoll time.Duration `yaml:"advertise_poll"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	InitRetries   int           `yaml:"init_retries"`
	ReconnectMax  int           `yaml:"reconnect_max"` // seconds
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vknob")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	p := gatt.DefaultProfile()
	o := session.DefaultOptions()

	return &Config{
		Device: DeviceConfig{
			Name:           o.DeviceName,
			Manufacturer:   p.Manufacturer,
			VendorID:       p.VendorID,
			ProductID:      p.ProductID,
			ProductVersion: p.ProductVersion,
			CompanyID:      o.CompanyID,
		},
		Button: ButtonConfig{
			DebounceTicks: o.DebounceThreshold,
			Key:           o.Key.String(),
			Hotkey:        []string{"ctrl", "shift", "k"},
		},
		Battery: BatteryConfig{
			Level: p.BatteryLevel,
		},
		Session: SessionConfig{
			AdvertisePoll: o.AdvertisePoll,
			TickInterval:  o.TickInterval,
			InitRetries:   o.InitRetries,
			ReconnectMax:  o.ReconnectMax,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in trace_path is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.TracePath = expandTilde(cfg.TracePath)

	return cfg, nil
}

// WriteDefault writes the default config to DefaultConfigPath. It returns
// the path written, or "" if a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	header := "# vknob configuration\n# key: vol_up, vol_down, mute, play_pause, stop, next_track, prev_track\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Device.Name == "" {
		return fmt.Errorf("device.name must not be empty")
	}

	if _, err := c.SessionOptions().AdvertisingData().Encode(); err != nil {
		return fmt.Errorf("device.name %q does not fit the advertising payload: %w", c.Device.Name, err)
	}

	if c.Button.DebounceTicks <= 0 {
		return fmt.Errorf("button.debounce_ticks must be > 0")
	}

	if _, err := hid.ParseMediaKey(c.Button.Key); err != nil {
		return fmt.Errorf("button.key: %w", err)
	}

	if c.Battery.Level > 100 {
		return fmt.Errorf("battery.level must be 0-100, got %d", c.Battery.Level)
	}

	if c.Session.AdvertisePoll <= 0 {
		return fmt.Errorf("session.advertise_poll must be > 0")
	}

	if c.Session.TickInterval < 0 {
		return fmt.Errorf("session.tick_interval must be >= 0")
	}

	if c.Session.InitRetries < 0 {
		return fmt.Errorf("session.init_retries must be >= 0")
	}

	if c.Session.ReconnectMax <= 0 {
		return fmt.Errorf("session.reconnect_max must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// Profile returns the GATT profile values described by c.
func (c *Config) Profile() gatt.Profile {
	return gatt.Profile{
		Manufacturer:   c.Device.Manufacturer,
		VendorIDSource: gatt.VendorIDSourceUSB,
		VendorID:       c.Device.VendorID,
		ProductID:      c.Device.ProductID,
		ProductVersion: c.Device.ProductVersion,
		BatteryLevel:   c.Battery.Level,
	}
}

// SessionOptions converts c to controller options. An unparseable key
// is left as hid.Clear, which the controller replaces with its default.
func (c *Config) SessionOptions() session.Options {
	key, _ := hid.ParseMediaKey(c.Button.Key)
	o := session.DefaultOptions()
	o.DeviceName = c.Device.Name
	o.CompanyID = c.Device.CompanyID
	o.Profile = c.Profile()
	o.Key = key
	o.DebounceThreshold = c.Button.DebounceTicks
	o.AdvertisePoll = c.Session.AdvertisePoll
	o.TickInterval = c.Session.TickInterval
	o.InitRetries = c.Session.InitRetries
	o.ReconnectMax = c.Session.ReconnectMax
	return o
}

// ParseLogLevel maps a log_level string to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
