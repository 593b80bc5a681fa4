package ui

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"heartlink/config"
)

// DeviceConfigTab edits the device section of the service configuration
type DeviceConfigTab struct {
	client     *Client
	configPath string
	config     *config.Config
	window     fyne.Window

	portEntry    *widget.SelectEntry
	baudSelect   *widget.Select
	timeoutEntry *widget.Entry
	settleEntry  *widget.Entry
	simulateChk  *widget.Check
}

// NewDeviceConfigTab creates a new device configuration tab
func NewDeviceConfigTab(window fyne.Window, client *Client, configPath string) *DeviceConfigTab {
	return &DeviceConfigTab{
		client:     client,
		configPath: configPath,
		window:     window,
	}
}

// Build constructs the device configuration UI
func (p *DeviceConfigTab) Build() *fyne.Container {
	p.portEntry = widget.NewSelectEntry(nil)
	p.portEntry.SetPlaceHolder("(discover automatically)")

	baudRates := make([]string, len(config.ValidBaudRates))
	for i, b := range config.ValidBaudRates {
		baudRates[i] = strconv.Itoa(b)
	}
	p.baudSelect = widget.NewSelect(baudRates, nil)
	p.timeoutEntry = widget.NewEntry()
	p.settleEntry = widget.NewEntry()
	p.simulateChk = widget.NewCheck("Print commands instead of using hardware", nil)

	form := widget.NewForm(
		widget.NewFormItem("Port", p.portEntry),
		widget.NewFormItem("Baud Rate", p.baudSelect),
		widget.NewFormItem("Timeout (ms)", p.timeoutEntry),
		widget.NewFormItem("Settle Delay (ms)", p.settleEntry),
		widget.NewFormItem("Simulate", p.simulateChk),
	)

	scanBtn := widget.NewButton("Scan Ports", func() {
		go p.scanPorts()
	})

	saveBtn := widget.NewButton("Save Configuration", func() {
		p.saveConfig()
	})
	saveBtn.Importance = widget.HighImportance

	reloadBtn := widget.NewButton("Reload Configuration", func() {
		p.loadConfig()
	})

	buttons := container.NewVBox(
		scanBtn,
		widget.NewSeparator(),
		saveBtn,
		reloadBtn,
	)

	infoLabel := widget.NewLabel("Configuration file: " + p.configPath +
		"\nChanges take effect when the service restarts.")
	infoLabel.Wrapping = fyne.TextWrapWord

	p.loadConfig()

	return container.NewBorder(
		container.NewVBox(
			widget.NewLabel("Device Configuration"),
			widget.NewSeparator(),
			infoLabel,
		),
		nil,
		nil,
		buttons,
		form,
	)
}

// loadConfig loads the configuration file, starting from defaults when it
// does not exist yet
func (p *DeviceConfigTab) loadConfig() {
	cfg, err := config.LoadFile(p.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to load config: %w", err), p.window)
		return
	}

	p.config = cfg
	dev := cfg.Device
	p.portEntry.SetText(dev.Port)
	p.baudSelect.SetSelected(strconv.Itoa(dev.BaudRate))
	p.timeoutEntry.SetText(strconv.Itoa(dev.TimeoutMS))
	p.settleEntry.SetText(strconv.Itoa(dev.SettleDelayMS))
	p.simulateChk.SetChecked(dev.Simulate)
}

// saveConfig validates the form and writes the configuration file
func (p *DeviceConfigTab) saveConfig() {
	if p.config == nil {
		return
	}

	dev, err := p.readForm()
	if err != nil {
		dialog.ShowError(err, p.window)
		return
	}

	updated := *p.config
	updated.Device = dev
	if err := config.Validate(&updated); err != nil {
		dialog.ShowError(err, p.window)
		return
	}

	if err := updated.Save(p.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to write config: %w", err), p.window)
		return
	}

	p.config = &updated
	dialog.ShowInformation("Success", "Configuration saved. Restart the service to apply it.", p.window)
}

func (p *DeviceConfigTab) readForm() (config.DeviceConfig, error) {
	dev := p.config.Device

	baudRate, err := strconv.Atoi(p.baudSelect.Selected)
	if err != nil {
		return dev, fmt.Errorf("invalid baud rate: %w", err)
	}
	timeout, err := strconv.Atoi(p.timeoutEntry.Text)
	if err != nil {
		return dev, fmt.Errorf("invalid timeout: %w", err)
	}
	settle, err := strconv.Atoi(p.settleEntry.Text)
	if err != nil {
		return dev, fmt.Errorf("invalid settle delay: %w", err)
	}

	dev.Port = p.portEntry.Text
	dev.BaudRate = baudRate
	dev.TimeoutMS = timeout
	dev.SettleDelayMS = settle
	dev.Simulate = p.simulateChk.Checked
	return dev, nil
}

// scanPorts offers the ports the service can see as choices
func (p *DeviceConfigTab) scanPorts() {
	ports, err := p.client.Ports()
	fyne.Do(func() {
		if err != nil {
			dialog.ShowError(err, p.window)
			return
		}
		options := make([]string, len(ports))
		for i, port := range ports {
			options[i] = port.Device
		}
		p.portEntry.SetOptions(options)
		if len(options) == 0 {
			dialog.ShowInformation("Scan Ports", "No serial ports found", p.window)
		}
	})
}
