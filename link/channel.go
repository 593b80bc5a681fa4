package link

import (
	"errors"
	"fmt"
	"log/slog"
)

// Channel writes commands to the device through a Manager. At most one
// command is on the wire at a time; concurrent callers wait their turn.
type Channel struct {
	manager *Manager
	logger  *slog.Logger
}

// NewChannel creates a command channel over m
func NewChannel(m *Manager) *Channel {
	return &Channel{
		manager: m,
		logger:  m.logger,
	}
}

// Send writes cmd and flushes it. It returns false when the device is
// unavailable or the write fails. A failed write drops the connection; the
// next Send makes one reconnect attempt before writing.
func (c *Channel) Send(cmd Command) bool {
	b, ok := cmd.Byte()
	if !ok {
		c.logger.Warn("Refusing to send", "command", cmd, "error", ErrUnknownCommand)
		return false
	}

	m := c.manager
	m.mu.Lock()
	defer m.mu.Unlock()

	c.logger.Info("Sending command", "command", cmd, "port", m.portName)

	if !m.ensureConnectedLocked() {
		c.logger.Warn("Command not sent", "command", cmd, "error", ErrNotConnected)
		return false
	}

	n, err := c.writeLocked(b)
	if err != nil {
		c.logger.Error("Error sending command",
			"command", cmd,
			"port", m.portName,
			"error", err,
		)
		m.recordError(err)
		m.closeLocked()
		m.setState(StateDisconnected, err)
		return false
	}

	m.recordSent(n)
	c.logger.Info("Command sent", "command", cmd, "port", m.portName)
	return true
}

// Dispatch sends the command named by action. The error is non-nil only for
// an unrecognized action, in which case the device is not touched.
func (c *Channel) Dispatch(action string) (bool, error) {
	cmd, err := ParseAction(action)
	if err != nil {
		c.logger.Warn("Rejected action", "action", action)
		return false, err
	}
	return c.Send(cmd), nil
}

func (c *Channel) writeLocked(b byte) (int, error) {
	port := c.manager.port

	n, err := port.Write([]byte{b})
	if err != nil {
		return n, fmt.Errorf("write: %w", err)
	}
	if n != 1 {
		return n, errors.New("write: short write")
	}
	if err := port.Flush(); err != nil {
		return n, fmt.Errorf("flush: %w", err)
	}
	return n, nil
}
