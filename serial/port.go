package serial

import (
	"errors"
	"io"
	"time"
)

// ErrPortClosed is returned by writes and flushes on a port that has been closed
var ErrPortClosed = errors.New("port is closed")

// PortConfig contains serial port configuration settings
type PortConfig struct {
	Device      string
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string // "none", "odd", "even"
	ReadTimeout time.Duration
}

// Port defines the interface for serial port operations
type Port interface {
	io.WriteCloser

	// Flush waits until all output has been transmitted
	Flush() error

	// Device returns the device path
	Device() string

	// IsOpen returns true if the port is currently open
	IsOpen() bool
}

// Opener opens a Port for the given configuration
type Opener func(config PortConfig) (Port, error)

// OpenPort is the default Opener backed by a real serial device
func OpenPort(config PortConfig) (Port, error) {
	p, err := Open(config)
	if err != nil {
		return nil, err
	}
	return p, nil
}
