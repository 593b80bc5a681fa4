package config

import (
	"encoding/json"
	"os"
	"time"
)

// Config is the root configuration structure
type Config struct {
	App     AppConfig     `json:"app"`
	Device  DeviceConfig  `json:"device"`
	Server  ServerConfig  `json:"server"`
	Logging LoggingConfig `json:"logging"`
	Trail   TrailConfig   `json:"trail"`
	Slack   SlackConfig   `json:"slack"`
}

// AppConfig contains application metadata
type AppConfig struct {
	Name       string `json:"name"`
	InstanceID string `json:"instance_id"`
}

// DeviceConfig defines the serial link to the display board
type DeviceConfig struct {
	// Port skips discovery when set
	Port          string `json:"port,omitempty"`
	BaudRate      int    `json:"baud_rate"`
	TimeoutMS     int    `json:"timeout_ms"`
	SettleDelayMS int    `json:"settle_delay_ms"`
	// Simulate prints commands to stdout instead of opening a port
	Simulate bool `json:"simulate,omitempty"`
}

// ServerConfig defines HTTP API settings
type ServerConfig struct {
	Port           int    `json:"port"`
	RequestsPerMin int    `json:"requests_per_min"`
	BurstSize      int    `json:"burst_size"`
	AllowedOrigin  string `json:"allowed_origin"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level      string `json:"level"`
	BasePath   string `json:"base_path"`
	Filename   string `json:"filename"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

// TrailConfig defines the device diagnostic trail file
type TrailConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

// SlackConfig defines Slack notification settings
type SlackConfig struct {
	WebhookURL     string `json:"webhook_url"`
	NotifyStartup  bool   `json:"notify_startup"`
	NotifyShutdown bool   `json:"notify_shutdown"`
	NotifyErrors   bool   `json:"notify_errors"`
	MaxFailures    int    `json:"max_failures"`
	CooldownSec    int    `json:"cooldown_sec"`
}

// Load reads and parses a configuration file. An empty path yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile is Load without environment overrides, for editing the file
// in place.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults sets default values for unspecified fields
func (c *Config) applyDefaults() {
	// App defaults
	if c.App.Name == "" {
		c.App.Name = "heartlink"
	}
	if c.App.InstanceID == "" {
		hostname, _ := os.Hostname()
		c.App.InstanceID = hostname
	}

	// Device defaults (must match the board firmware)
	if c.Device.BaudRate == 0 {
		c.Device.BaudRate = 9600
	}
	if c.Device.TimeoutMS == 0 {
		c.Device.TimeoutMS = 1000
	}
	if c.Device.SettleDelayMS == 0 {
		c.Device.SettleDelayMS = 3000
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.RequestsPerMin == 0 {
		c.Server.RequestsPerMin = 600
	}
	if c.Server.BurstSize == 0 {
		c.Server.BurstSize = 20
	}
	if c.Server.AllowedOrigin == "" {
		c.Server.AllowedOrigin = "*"
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Filename == "" {
		c.Logging.Filename = "heartlink.log"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}

	// Trail defaults
	if c.Trail.Path == "" {
		c.Trail.Path = "heartlink-device.log"
	}
	if c.Trail.MaxSizeMB == 0 {
		c.Trail.MaxSizeMB = 10
	}
	if c.Trail.MaxBackups == 0 {
		c.Trail.MaxBackups = 3
	}

	// Slack defaults
	if c.Slack.MaxFailures == 0 {
		c.Slack.MaxFailures = 3
	}
	if c.Slack.CooldownSec == 0 {
		c.Slack.CooldownSec = 300
	}
}

// applyEnv applies environment overrides. HEARTLINK_PORT takes precedence
// over the legacy ARDUINO_PORT.
func (c *Config) applyEnv() {
	if port := os.Getenv("ARDUINO_PORT"); port != "" {
		c.Device.Port = port
	}
	if port := os.Getenv("HEARTLINK_PORT"); port != "" {
		c.Device.Port = port
	}
	if level := os.Getenv("HEARTLINK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if url := os.Getenv("HEARTLINK_SLACK_WEBHOOK"); url != "" {
		c.Slack.WebhookURL = url
	}
}

// Save writes the configuration as indented JSON
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetTimeout returns the serial I/O timeout as a duration
func (c *DeviceConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetSettleDelay returns the post-open settle delay as a duration
func (c *DeviceConfig) GetSettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// GetCooldown returns how long a tripped Slack breaker stays open
func (c *SlackConfig) GetCooldown() time.Duration {
	return time.Duration(c.CooldownSec) * time.Second
}
