package discovery

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Descriptor holds the identifying strings the OS reports for a serial port
type Descriptor struct {
	Device       string `json:"device"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer"`
	HWID         string `json:"hwid"`
}

// Text returns the combined description, manufacturer and hardware ID used for matching
func (d Descriptor) Text() string {
	return d.Description + " " + d.Manufacturer + " " + d.HWID
}

// usbVendors maps USB vendor IDs to the manufacturer names commonly reported for them
var usbVendors = map[string]string{
	"2341": "Arduino LLC",
	"2a03": "Arduino Srl",
	"1a86": "QinHeng Electronics (CH340)",
	"10c4": "Silicon Labs (CP210x)",
	"0403": "FTDI",
	"067b": "Prolific Technology",
	"239a": "Adafruit",
	"303a": "Espressif",
}

// FromPortDetails builds a Descriptor from an enumerated port
func FromPortDetails(p *enumerator.PortDetails) Descriptor {
	d := Descriptor{
		Device:      p.Name,
		Description: strings.TrimSpace(p.Product),
		HWID:        "n/a",
	}
	if d.Description == "" {
		d.Description = describeDevice(p.Name)
	}

	if p.IsUSB {
		d.Manufacturer = usbVendors[strings.ToLower(p.VID)]
		d.HWID = fmt.Sprintf("USB VID:PID=%s:%s", strings.ToUpper(p.VID), strings.ToUpper(p.PID))
		if p.SerialNumber != "" {
			d.HWID += " SER=" + p.SerialNumber
		}
	}
	return d
}

// describeDevice provides a human-readable description derived from the port name
func describeDevice(device string) string {
	name := filepath.Base(device)
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	case strings.HasPrefix(name, "cu.usbmodem"), strings.HasPrefix(name, "tty.usbmodem"):
		return "USB Modem (usbmodem)"
	case strings.HasPrefix(name, "cu.usbserial"), strings.HasPrefix(name, "tty.usbserial"):
		return "USB Serial Port"
	case strings.HasPrefix(strings.ToUpper(name), "COM"):
		return fmt.Sprintf("Communications Port (%s)", name)
	default:
		return "Serial Port"
	}
}
