package ui

import (
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ControlTab sends test commands to the device through the service
type ControlTab struct {
	client      *Client
	statusLabel *widget.Label
	outputText  *widget.Entry
}

// NewControlTab creates a new control tab
func NewControlTab(client *Client) *ControlTab {
	return &ControlTab{client: client}
}

// Build constructs the control UI
func (c *ControlTab) Build() *fyne.Container {
	c.statusLabel = widget.NewLabel("Last Result: -")
	c.statusLabel.TextStyle = fyne.TextStyle{Bold: true}

	statusCard := widget.NewCard("Last Command", "", c.statusLabel)

	likeBtn := widget.NewButton("Send LIKE", func() {
		go c.sendAction("like")
	})
	likeBtn.Importance = widget.SuccessImportance

	skipBtn := widget.NewButton("Send SKIP", func() {
		go c.sendAction("skip")
	})
	skipBtn.Importance = widget.DangerImportance

	reconnectBtn := widget.NewButton("Reconnect Device", func() {
		go c.reconnect()
	})
	reconnectBtn.Importance = widget.WarningImportance

	commandButtons := container.NewGridWithColumns(3,
		likeBtn,
		skipBtn,
		reconnectBtn,
	)

	c.outputText = widget.NewMultiLineEntry()
	c.outputText.SetPlaceHolder("Command results will appear here...")
	c.outputText.Wrapping = fyne.TextWrapWord

	outputCard := widget.NewCard("Command Output", "", container.NewScroll(c.outputText))

	return container.NewBorder(
		container.NewVBox(
			statusCard,
			widget.NewSeparator(),
			widget.NewLabel("Device Commands"),
			commandButtons,
			widget.NewSeparator(),
		),
		nil,
		nil,
		nil,
		outputCard,
	)
}

func (c *ControlTab) sendAction(action string) {
	c.appendOutput(fmt.Sprintf("POST /api/haptic %q\n", action))

	result, err := c.client.Haptic(action)

	switch {
	case err != nil:
		c.setStatus("ERROR", widget.DangerImportance)
		c.appendOutput(fmt.Sprintf("Error: %v\n", err))
	case result.Error != "":
		c.setStatus("NOT SENT", widget.WarningImportance)
		c.appendOutput(fmt.Sprintf("Not sent: %s\n", result.Error))
	default:
		c.setStatus("SENT "+strings.ToUpper(action), widget.SuccessImportance)
		c.appendOutput(result.Message + "\n")
	}
}

func (c *ControlTab) reconnect() {
	c.appendOutput("POST /api/device/reconnect\n")

	status, err := c.client.Reconnect()
	if err != nil {
		c.setStatus("ERROR", widget.DangerImportance)
		c.appendOutput(fmt.Sprintf("Error: %v\n", err))
		return
	}

	if status.Connected {
		c.setStatus("CONNECTED", widget.SuccessImportance)
	} else {
		c.setStatus("NOT CONNECTED", widget.WarningImportance)
	}
	c.appendOutput(fmt.Sprintf("Device %s on %s\n", connectedText(status.Connected), status.PortName()))
}

func (c *ControlTab) setStatus(text string, importance widget.Importance) {
	fyne.Do(func() {
		c.statusLabel.SetText("Last Result: " + text)
		c.statusLabel.Importance = importance
		c.statusLabel.Refresh()
	})
}

// appendOutput appends a timestamped line to the output display
func (c *ControlTab) appendOutput(text string) {
	line := time.Now().Format("15:04:05 ") + text
	fyne.Do(func() {
		c.outputText.SetText(c.outputText.Text + line)
		// Scroll to bottom
		c.outputText.CursorRow = len(strings.Split(c.outputText.Text, "\n"))
	})
}
