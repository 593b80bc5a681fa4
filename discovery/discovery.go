// Package discovery finds the display board among the serial ports visible on the host.
package discovery

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Enumerator lists the serial ports currently visible on the host
type Enumerator func() ([]*enumerator.PortDetails, error)

// Matcher recognizes a port by a case-insensitive substring of its descriptor text
type Matcher struct {
	Name      string
	Substring string
}

// Match reports whether the descriptor text contains the matcher substring
func (m Matcher) Match(d Descriptor) bool {
	return strings.Contains(strings.ToLower(d.Text()), strings.ToLower(m.Substring))
}

// DefaultMatchers returns the identifiers in priority order for the given OS
func DefaultMatchers(goos string) []Matcher {
	matchers := []Matcher{
		{Name: "board", Substring: "Arduino"},
		{Name: "ch340", Substring: "CH340"},
		{Name: "cp210x", Substring: "CP210"},
		{Name: "usb-serial", Substring: "USB Serial"},
	}

	switch goos {
	case "windows":
		matchers = append(matchers, Matcher{Name: "os-port", Substring: "COM"})
	case "darwin":
		matchers = append(matchers, Matcher{Name: "os-port", Substring: "usbmodem"})
	default:
		matchers = append(matchers, Matcher{Name: "os-port", Substring: "CDC/ACM"})
	}
	return matchers
}

// Discoverer ranks enumerated ports against an ordered list of matchers
type Discoverer struct {
	enumerate Enumerator
	matchers  []Matcher
	logger    *slog.Logger
}

// Option configures a Discoverer
type Option func(*Discoverer)

// WithEnumerator replaces the system port enumerator
func WithEnumerator(e Enumerator) Option {
	return func(d *Discoverer) {
		d.enumerate = e
	}
}

// WithMatchers replaces the default matcher list
func WithMatchers(m []Matcher) Option {
	return func(d *Discoverer) {
		d.matchers = m
	}
}

// New creates a Discoverer using the system enumerator and the default matchers
func New(logger *slog.Logger, opts ...Option) *Discoverer {
	d := &Discoverer{
		enumerate: enumerator.GetDetailedPortsList,
		matchers:  DefaultMatchers(runtime.GOOS),
		logger:    logger.With("component", "discovery"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// List returns descriptors for all visible ports in enumeration order
func (d *Discoverer) List() ([]Descriptor, error) {
	ports, err := d.enumerate()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(ports))
	for _, p := range ports {
		if p == nil {
			continue
		}
		descriptors = append(descriptors, FromPortDetails(p))
	}
	return descriptors, nil
}

// Discover picks the port to use. The first port matching the highest-priority
// matcher wins; when nothing matches, the first enumerated port is returned.
func (d *Discoverer) Discover() (Descriptor, bool) {
	ports, err := d.List()
	if err != nil {
		d.logger.Warn("Port enumeration failed", "error", err)
		return Descriptor{}, false
	}

	if len(ports) == 0 {
		d.logger.Info("No serial ports found")
		return Descriptor{}, false
	}

	d.logger.Info("Available serial ports", "count", len(ports))
	for _, p := range ports {
		d.logger.Info("Serial port",
			"device", p.Device,
			"description", p.Description,
			"manufacturer", p.Manufacturer,
			"hwid", p.HWID,
		)
	}

	if p, m, ok := Select(ports, d.matchers); ok {
		d.logger.Info("Auto-detected device", "device", p.Device, "matcher", m.Name)
		return p, true
	}

	// No identifier matched: fall back to the first port. Nothing confirms
	// this is the display board.
	d.logger.Warn("No known identifier matched, falling back to first port",
		"device", ports[0].Device,
	)
	return ports[0], true
}

// Select returns the first port matching the highest-priority matcher
func Select(ports []Descriptor, matchers []Matcher) (Descriptor, Matcher, bool) {
	for _, m := range matchers {
		for _, p := range ports {
			if m.Match(p) {
				return p, m, true
			}
		}
	}
	return Descriptor{}, Matcher{}, false
}
