package serial

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// MockPort implements Port for testing purposes
type MockPort struct {
	mu       sync.Mutex
	buffer   bytes.Buffer
	device   string
	isOpen   bool
	writes   [][]byte
	writeErr error // If set, Write will return this error
	flushErr error // If set, Flush will return this error

	// pending is set between a Write and the following Flush
	pending  bool
	overlaps int
	closes   int
}

// NewMockPort creates a new mock port
func NewMockPort(device string) *MockPort {
	return &MockPort{
		device: device,
		isOpen: true,
		writes: make([][]byte, 0),
	}
}

// Write writes data to the mock port buffer
func (p *MockPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOpen {
		return 0, ErrPortClosed
	}

	if p.writeErr != nil {
		return 0, p.writeErr
	}

	if p.pending {
		p.overlaps++
	}
	p.pending = true

	// Store a copy of the data
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	p.writes = append(p.writes, dataCopy)

	return p.buffer.Write(data)
}

// Close closes the mock port
func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = false
	p.closes++
	return nil
}

// Flush completes the pending write unless a flush error is set
func (p *MockPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOpen {
		return ErrPortClosed
	}
	p.pending = false
	return p.flushErr
}

// Device returns the mock device path
func (p *MockPort) Device() string {
	return p.device
}

// IsOpen returns true if the mock port is open
func (p *MockPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}

// GetWrittenData returns all data written to the mock port
func (p *MockPort) GetWrittenData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.buffer.Bytes())
}

// GetWrites returns all individual write operations
func (p *MockPort) GetWrites() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([][]byte, len(p.writes))
	for i, w := range p.writes {
		result[i] = make([]byte, len(w))
		copy(result[i], w)
	}
	return result
}

// Overlaps returns how many writes started before the previous one was flushed
func (p *MockPort) Overlaps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlaps
}

// Closes returns how many times Close was called
func (p *MockPort) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// Reset clears all written data
func (p *MockPort) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffer.Reset()
	p.writes = make([][]byte, 0)
	p.overlaps = 0
	p.pending = false
}

// SetWriteError sets an error to be returned on subsequent writes
func (p *MockPort) SetWriteError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// SetFlushError sets an error to be returned on subsequent flushes
func (p *MockPort) SetFlushError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushErr = err
}

// ClearWriteError clears any write or flush error
func (p *MockPort) ClearWriteError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = nil
	p.flushErr = nil
}

// Reopen reopens a closed mock port
func (p *MockPort) Reopen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = true
}

// StdoutPort implements Port by printing each written byte to a console writer.
// It stands in for the display board when running without hardware.
type StdoutPort struct {
	mu     sync.Mutex
	out    io.Writer
	device string
	isOpen bool
}

// NewStdoutPort creates a new stdout port
func NewStdoutPort(device string) *StdoutPort {
	return NewConsolePort(device, os.Stdout)
}

// NewConsolePort creates a console port writing to out
func NewConsolePort(device string, out io.Writer) *StdoutPort {
	return &StdoutPort{
		out:    out,
		device: device,
		isOpen: true,
	}
}

// OpenStdoutPort is an Opener that ignores the device and prints to stdout
func OpenStdoutPort(config PortConfig) (Port, error) {
	return NewStdoutPort(config.Device), nil
}

// Write prints the data as quoted bytes
func (p *StdoutPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isOpen {
		return 0, ErrPortClosed
	}
	if _, err := fmt.Fprintf(p.out, "[%s][%s] %q\n", p.device, time.Now().Format("15:04:05.000"), data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close closes the stdout port
func (p *StdoutPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = false
	return nil
}

// Flush is a no-op for stdout
func (p *StdoutPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isOpen {
		return ErrPortClosed
	}
	return nil
}

// Device returns the device name
func (p *StdoutPort) Device() string {
	return p.device
}

// IsOpen returns true if the port is open
func (p *StdoutPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}
