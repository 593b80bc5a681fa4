package serial

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
)

// ErrInvalidMode is wrapped by modeFor for settings the driver cannot apply
var ErrInvalidMode = errors.New("invalid serial mode")

var parities = map[string]serial.Parity{
	"":      serial.NoParity,
	"none":  serial.NoParity,
	"odd":   serial.OddParity,
	"even":  serial.EvenParity,
	"mark":  serial.MarkParity,
	"space": serial.SpaceParity,
}

// RealPort is a command line to a board attached over USB serial. Writes are
// not buffered by the driver past Flush, which blocks until the byte is on
// the wire.
type RealPort struct {
	port   serial.Port
	device string
	isOpen bool
}

// Open opens the board's port. Whatever the board printed while booting is
// discarded so a later reader starts clean.
func Open(config PortConfig) (*RealPort, error) {
	mode, err := modeFor(config)
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(config.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", config.Device, err)
	}

	if config.ReadTimeout > 0 {
		if err := port.SetReadTimeout(config.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", config.Device, err)
		}
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("reset input on %s: %w", config.Device, err)
	}

	return &RealPort{
		port:   port,
		device: config.Device,
		isOpen: true,
	}, nil
}

// modeFor maps PortConfig onto the driver's mode. Zero data and stop bits
// mean 8 and 1.
func modeFor(config PortConfig) (*serial.Mode, error) {
	if config.BaudRate <= 0 {
		return nil, fmt.Errorf("%w: baud rate %d", ErrInvalidMode, config.BaudRate)
	}

	mode := &serial.Mode{BaudRate: config.BaudRate, DataBits: config.DataBits}
	switch {
	case mode.DataBits == 0:
		mode.DataBits = 8
	case mode.DataBits < 5 || mode.DataBits > 8:
		return nil, fmt.Errorf("%w: %d data bits", ErrInvalidMode, config.DataBits)
	}

	switch config.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("%w: %d stop bits", ErrInvalidMode, config.StopBits)
	}

	parity, ok := parities[config.Parity]
	if !ok {
		return nil, fmt.Errorf("%w: parity %q", ErrInvalidMode, config.Parity)
	}
	mode.Parity = parity
	return mode, nil
}

func (p *RealPort) Write(data []byte) (int, error) {
	if !p.isOpen {
		return 0, ErrPortClosed
	}
	n, err := p.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("%s: %w", p.device, err)
	}
	return n, nil
}

// Close releases the device. Closing twice is a no-op.
func (p *RealPort) Close() error {
	if !p.isOpen {
		return nil
	}
	p.isOpen = false
	return p.port.Close()
}

// Flush drains the output queue so the command has left the host before
// the next one is written.
func (p *RealPort) Flush() error {
	if !p.isOpen {
		return ErrPortClosed
	}
	if err := p.port.Drain(); err != nil {
		return fmt.Errorf("drain %s: %w", p.device, err)
	}
	return nil
}

func (p *RealPort) Device() string {
	return p.device
}

func (p *RealPort) IsOpen() bool {
	return p.isOpen
}
