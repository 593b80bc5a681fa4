package link

import "time"

// State is the connection state of the manager
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

// Snapshot is a point-in-time copy of the connection status
type Snapshot struct {
	Connected bool    `json:"connected"`
	Port      *string `json:"port"`
	BaudRate  int     `json:"baud_rate"`
	State     State   `json:"-"`
}

// PortName returns the selected port or "" when none is selected
func (s Snapshot) PortName() string {
	if s.Port == nil {
		return ""
	}
	return *s.Port
}

// Stats contains command statistics for the link
type Stats struct {
	CommandsSent    int64     `json:"commands_sent"`
	BytesSent       int64     `json:"bytes_sent"`
	Errors          int64     `json:"errors"`
	Connects        int64     `json:"connects"`
	LastCommandTime time.Time `json:"last_command_time"`
	LastError       string    `json:"last_error,omitempty"`
}

// Transition describes a state change, passed to the manager's state hook
type Transition struct {
	From State
	To   State
	Port string
	Err  error
}

// Status returns the current connection snapshot. It never waits for an
// in-flight send or settle delay and performs no I/O.
func (m *Manager) Status() Snapshot {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.status
}

// Stats returns a copy of the current statistics
func (m *Manager) Stats() Stats {
	m.statsMu.RLock()
	defer m.statsMu.RUnlock()
	return m.stats
}

// publish refreshes the status cell. Callers must hold m.mu.
func (m *Manager) publish() {
	snap := Snapshot{
		Connected: m.state == StateConnected,
		BaudRate:  m.config.BaudRate,
		State:     m.state,
	}
	if m.portName != "" {
		name := m.portName
		snap.Port = &name
	}

	m.statusMu.Lock()
	m.status = snap
	m.statusMu.Unlock()
}

func (m *Manager) recordSent(n int) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.stats.CommandsSent++
	m.stats.BytesSent += int64(n)
	m.stats.LastCommandTime = time.Now()
}

func (m *Manager) recordError(err error) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.stats.Errors++
	m.stats.LastError = err.Error()
}

func (m *Manager) recordConnect() {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.stats.Connects++
}
