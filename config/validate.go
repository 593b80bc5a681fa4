package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ValidationError contains details about configuration validation failures
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidBaudRates lists the baud rates the board firmware can be built for
var ValidBaudRates = []int{300, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors
func Validate(cfg *Config) error {
	var errors ValidationErrors

	errors = append(errors, validateDevice(cfg.Device)...)

	// Validate server
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "must be between 1 and 65535",
		})
	}
	if cfg.Server.RequestsPerMin < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.requests_per_min",
			Message: "must be at least 1",
		})
	}
	if cfg.Server.BurstSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.burst_size",
			Message: "must be at least 1",
		})
	}

	// Validate logging
	if !slices.Contains(validLevels, strings.ToLower(cfg.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level: %s (available: %s)", cfg.Logging.Level, strings.Join(validLevels, ", ")),
		})
	}
	if cfg.Logging.BasePath != "" && !isDir(cfg.Logging.BasePath) {
		errors = append(errors, ValidationError{
			Field:   "logging.base_path",
			Message: fmt.Sprintf("directory does not exist: %s", cfg.Logging.BasePath),
		})
	}

	// Validate trail
	if dir := filepath.Dir(cfg.Trail.Path); !isDir(dir) {
		errors = append(errors, ValidationError{
			Field:   "trail.path",
			Message: fmt.Sprintf("directory does not exist: %s", dir),
		})
	}

	// Validate slack
	if cfg.Slack.WebhookURL != "" && !strings.HasPrefix(cfg.Slack.WebhookURL, "https://") && !strings.HasPrefix(cfg.Slack.WebhookURL, "http://") {
		errors = append(errors, ValidationError{
			Field:   "slack.webhook_url",
			Message: "must be an http(s) URL",
		})
	}
	if cfg.Slack.MaxFailures < 1 {
		errors = append(errors, ValidationError{
			Field:   "slack.max_failures",
			Message: "must be at least 1",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validateDevice(dev DeviceConfig) ValidationErrors {
	var errors ValidationErrors

	if !slices.Contains(ValidBaudRates, dev.BaudRate) {
		errors = append(errors, ValidationError{
			Field:   "device.baud_rate",
			Message: fmt.Sprintf("invalid baud rate: %d", dev.BaudRate),
		})
	}

	if dev.TimeoutMS < 1 {
		errors = append(errors, ValidationError{
			Field:   "device.timeout_ms",
			Message: "must be at least 1 millisecond",
		})
	}

	if dev.SettleDelayMS < 0 {
		errors = append(errors, ValidationError{
			Field:   "device.settle_delay_ms",
			Message: "must not be negative",
		})
	}

	return errors
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
