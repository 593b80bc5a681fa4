package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// MainUI represents the main user interface
type MainUI struct {
	window       fyne.Window
	client       *Client
	dashboard    *DashboardTab
	deviceConfig *DeviceConfigTab
	control      *ControlTab
}

// NewMainUI creates a new main UI
func NewMainUI(window fyne.Window, client *Client, configPath string) *MainUI {
	ui := &MainUI{
		window: window,
		client: client,
	}

	// Create tabs
	ui.dashboard = NewDashboardTab(client)
	ui.deviceConfig = NewDeviceConfigTab(window, client, configPath)
	ui.control = NewControlTab(client)

	return ui
}

// Build constructs the UI layout
func (m *MainUI) Build() *fyne.Container {
	tabs := container.NewAppTabs(
		container.NewTabItem("Dashboard", m.dashboard.Build()),
		container.NewTabItem("Device Control", m.control.Build()),
		container.NewTabItem("Device Configuration", m.deviceConfig.Build()),
	)

	return container.NewBorder(
		m.buildHeader(),
		m.buildFooter(),
		nil,
		nil,
		tabs,
	)
}

// buildHeader creates the header section
func (m *MainUI) buildHeader() *fyne.Container {
	title := widget.NewLabelWithStyle("HeartLink Control Panel",
		fyne.TextAlignCenter,
		fyne.TextStyle{Bold: true})

	return container.NewVBox(
		title,
		widget.NewSeparator(),
	)
}

// buildFooter creates the footer section
func (m *MainUI) buildFooter() *fyne.Container {
	status := widget.NewLabel("API: " + m.client.BaseURL())

	return container.NewVBox(
		widget.NewSeparator(),
		status,
	)
}
