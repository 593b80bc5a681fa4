// Package link maintains the serial connection to the display board and
// delivers like/skip commands over it.
package link

import (
	"log/slog"
	"sync"
	"time"

	"heartlink/discovery"
	"heartlink/serial"
)

const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = time.Second
	// DefaultSettleDelay covers the board rebooting when the host opens the line
	DefaultSettleDelay = 3 * time.Second
)

// Config contains the connection settings for a Manager
type Config struct {
	// Port overrides discovery when set
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
	// SettleDelay defaults when zero; a negative value disables it
	SettleDelay time.Duration
}

func (c *Config) setDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	switch {
	case c.SettleDelay == 0:
		c.SettleDelay = DefaultSettleDelay
	case c.SettleDelay < 0:
		c.SettleDelay = 0
	}
}

// Discoverer picks a port when none is configured
type Discoverer interface {
	Discover() (discovery.Descriptor, bool)
}

// Option configures a Manager
type Option func(*Manager)

// WithOpener replaces the function used to open the port
func WithOpener(open serial.Opener) Option {
	return func(m *Manager) {
		m.open = open
	}
}

// WithSleep replaces the function used to wait out the settle delay
func WithSleep(sleep func(time.Duration)) Option {
	return func(m *Manager) {
		m.sleep = sleep
	}
}

// WithStateHook registers fn to be called on every state change.
// fn runs with the connection lock held and must not block.
func WithStateHook(fn func(Transition)) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// Manager owns the single serial handle to the display board
type Manager struct {
	config    Config
	discovery Discoverer
	open      serial.Opener
	sleep     func(time.Duration)
	onChange  func(Transition)
	logger    *slog.Logger

	// mu guards the handle, the selected port and the state, and is held for
	// the whole of every connect and send.
	mu       sync.Mutex
	port     serial.Port
	portName string
	state    State

	statusMu sync.RWMutex
	status   Snapshot

	statsMu sync.RWMutex
	stats   Stats

	// Guarded by mu. closed is terminal; attached is set by the first
	// successful connect.
	closed   bool
	attached bool
}

// NewManager creates a Manager. No I/O is performed until Start or Connect.
// disc may be nil when cfg.Port is set.
func NewManager(cfg Config, disc Discoverer, logger *slog.Logger, opts ...Option) *Manager {
	cfg.setDefaults()

	m := &Manager{
		config:    cfg,
		discovery: disc,
		open:      serial.OpenPort,
		sleep:     time.Sleep,
		logger:    logger.With("component", "link"),
		portName:  cfg.Port,
		state:     StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}

	if cfg.Port != "" {
		m.logger.Info("Using configured port", "port", cfg.Port)
	}

	m.mu.Lock()
	m.publish()
	m.mu.Unlock()
	return m
}

// Start makes the initial connection attempt. A missing device is not an
// error; the next send retries.
func (m *Manager) Start() bool {
	ok := m.Connect()
	if !ok {
		m.logger.Warn("Device not available at startup, will retry on next command")
	}
	return ok
}

// Close disconnects from the device and retires the manager. Later connect
// and send attempts fail without touching the port. Only the first call has
// any effect.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	if m.port != nil {
		m.logger.Info("Disconnecting", "port", m.portName)
	}
	m.closeLocked()
	m.setState(StateDisconnected, nil)
}

// Connect opens the port and waits for the board to settle. It returns true
// immediately when already connected and never retries on failure.
func (m *Manager) Connect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked()
}

// EnsureConnected returns true if connected, otherwise makes one Connect attempt
func (m *Manager) EnsureConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureConnectedLocked()
}

// Disconnect closes the port if open. It is safe to call at any time.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.port != nil {
		m.logger.Info("Disconnecting", "port", m.portName)
	}
	m.closeLocked()
	m.setState(StateDisconnected, nil)
}

// Config returns the effective connection settings
func (m *Manager) Config() Config {
	return m.config
}

func (m *Manager) connectedLocked() bool {
	return m.state == StateConnected && m.port != nil && m.port.IsOpen()
}

func (m *Manager) ensureConnectedLocked() bool {
	if m.connectedLocked() {
		return true
	}
	switch {
	case m.closed:
	case m.attached:
		m.logger.Warn("Connection lost, reconnecting", "port", m.portName, "state", m.state)
	default:
		m.logger.Info("Not connected yet, connecting", "port", m.portName, "state", m.state)
	}
	return m.connectLocked()
}

func (m *Manager) connectLocked() bool {
	if m.connectedLocked() {
		return true
	}
	if m.closed {
		m.logger.Debug("Connect refused", "error", ErrClosed)
		return false
	}

	// Drop any handle left behind by a previous session
	m.closeLocked()

	if m.portName == "" {
		if !m.selectPortLocked() {
			m.logger.Error("Connection failed", "error", ErrNoPort)
			m.recordError(ErrNoPort)
			m.setState(StateDisconnected, ErrNoPort)
			return false
		}
	}

	m.logger.Info("Connecting to device",
		"port", m.portName,
		"baud_rate", m.config.BaudRate,
	)

	port, err := m.open(serial.PortConfig{
		Device:      m.portName,
		BaudRate:    m.config.BaudRate,
		DataBits:    8,
		StopBits:    1,
		Parity:      "none",
		ReadTimeout: m.config.ReadTimeout,
	})
	if err != nil {
		m.logger.Error("Connection failed", "port", m.portName, "error", err)
		m.recordError(err)
		m.setState(StateFailed, err)
		return false
	}

	m.port = port
	m.setState(StateConnecting, nil)

	m.logger.Debug("Waiting for device to settle", "delay", m.config.SettleDelay)
	m.sleep(m.config.SettleDelay)

	m.setState(StateConnected, nil)
	m.attached = true
	m.recordConnect()
	m.logger.Info("Connected to device", "port", m.portName)
	return true
}

// selectPortLocked runs discovery. A selected port is kept for the life of the manager.
func (m *Manager) selectPortLocked() bool {
	if m.discovery == nil {
		return false
	}
	d, ok := m.discovery.Discover()
	if !ok || d.Device == "" {
		return false
	}
	m.portName = d.Device
	m.logger.Info("Selected port", "port", d.Device, "description", d.Description)
	return true
}

func (m *Manager) closeLocked() {
	if m.port == nil {
		return
	}
	if err := m.port.Close(); err != nil {
		m.logger.Warn("Error closing port", "port", m.portName, "error", err)
	}
	m.port = nil
}

// setState records a transition. Callers must hold m.mu.
func (m *Manager) setState(to State, err error) {
	from := m.state
	m.state = to
	m.publish()

	if from != to && m.onChange != nil {
		m.onChange(Transition{From: from, To: to, Port: m.portName, Err: err})
	}
}
