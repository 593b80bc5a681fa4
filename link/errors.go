package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPort is recorded when no port is configured and discovery finds none
	ErrNoPort = errors.New("no serial port found")

	// ErrNotConnected is logged when a send cannot reach the device
	ErrNotConnected = errors.New("device not connected")

	// ErrClosed is logged when a connect is attempted after Close
	ErrClosed = errors.New("link closed")

	// ErrUnknownCommand is logged when a Command value has no wire byte
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidAction is the sentinel wrapped by InvalidActionError.
	//
	// It is a caller error, distinct from the device being unavailable.
	ErrInvalidAction = errors.New("invalid action")
)

// InvalidActionError reports an action string that maps to no Command
type InvalidActionError struct {
	Action string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action: %q", e.Action)
}

func (e *InvalidActionError) Unwrap() error {
	return ErrInvalidAction
}
