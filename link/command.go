package link

import (
	"fmt"
	"strings"
)

// Command is a single-byte signal understood by the display firmware.
// The constant value is the byte written on the wire.
type Command byte

const (
	// Like shows the heart animation
	Like Command = 'L'
	// Skip shows the cross animation
	Skip Command = 'D'
)

// Valid reports whether c is a known command
func (c Command) Valid() bool {
	return c == Like || c == Skip
}

// Byte returns the wire byte for c
func (c Command) Byte() (byte, bool) {
	if !c.Valid() {
		return 0, false
	}
	return byte(c), true
}

func (c Command) String() string {
	switch c {
	case Like:
		return "like"
	case Skip:
		return "skip"
	default:
		return fmt.Sprintf("Command(0x%02x)", byte(c))
	}
}

// ParseAction maps an action name to a Command. Matching is case-insensitive
// and ignores surrounding whitespace; the returned error keeps the raw input.
func ParseAction(action string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "like", "match":
		return Like, nil
	case "skip", "dislike":
		return Skip, nil
	default:
		return 0, &InvalidActionError{Action: action}
	}
}
