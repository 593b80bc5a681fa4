package ui

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// DashboardTab represents the dashboard UI
type DashboardTab struct {
	client          *Client
	statusLabel     *widget.Label
	instanceLabel   *widget.Label
	versionLabel    *widget.Label
	uptimeLabel     *widget.Label
	deviceLabel     *widget.Label
	portLabel       *widget.Label
	baudLabel       *widget.Label
	portTable       *widget.Table
	refreshInterval time.Duration
	portData        []PortEntry
	stopRefresh     context.CancelFunc
}

// NewDashboardTab creates a new dashboard tab
func NewDashboardTab(client *Client) *DashboardTab {
	return &DashboardTab{
		client:          client,
		refreshInterval: 2 * time.Second,
	}
}

// Build constructs the dashboard UI
func (d *DashboardTab) Build() *fyne.Container {
	d.statusLabel = widget.NewLabel("Status: Unknown")
	d.instanceLabel = widget.NewLabel("Instance: -")
	d.versionLabel = widget.NewLabel("Version: -")
	d.uptimeLabel = widget.NewLabel("Uptime: -")

	statusCard := widget.NewCard("Service Status", "", container.NewVBox(
		d.statusLabel,
		d.instanceLabel,
		d.versionLabel,
		d.uptimeLabel,
	))

	d.deviceLabel = widget.NewLabel("Device: -")
	d.portLabel = widget.NewLabel("Port: -")
	d.baudLabel = widget.NewLabel("Baud Rate: -")

	deviceCard := widget.NewCard("Device", "", container.NewVBox(
		d.deviceLabel,
		d.portLabel,
		d.baudLabel,
	))

	// Serial ports visible to the service
	d.portTable = widget.NewTable(
		func() (int, int) {
			return len(d.portData) + 1, 4 // +1 for header row
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			label := cell.(*widget.Label)

			if id.Row == 0 {
				headers := []string{"Device", "Description", "Manufacturer", "Hardware ID"}
				label.SetText(headers[id.Col])
				label.TextStyle = fyne.TextStyle{Bold: true}
				return
			}

			if id.Row-1 < len(d.portData) {
				port := d.portData[id.Row-1]
				label.TextStyle = fyne.TextStyle{}

				switch id.Col {
				case 0:
					label.SetText(port.Device)
				case 1:
					label.SetText(port.Description)
				case 2:
					label.SetText(port.Manufacturer)
				case 3:
					label.SetText(port.HWID)
				}
			}
		},
	)

	d.portTable.SetColumnWidth(0, 140)
	d.portTable.SetColumnWidth(1, 240)
	d.portTable.SetColumnWidth(2, 140)
	d.portTable.SetColumnWidth(3, 240)

	portCard := widget.NewCard("Serial Ports", "", container.NewScroll(d.portTable))

	refreshBtn := widget.NewButton("Refresh Now", func() {
		go d.refresh()
	})

	autoRefreshCheck := widget.NewCheck("Auto-refresh (2s)", func(checked bool) {
		if checked {
			d.startAutoRefresh()
		} else {
			d.stopAutoRefresh()
		}
	})

	controls := container.NewHBox(
		refreshBtn,
		autoRefreshCheck,
	)

	content := container.NewBorder(
		container.NewVBox(container.NewGridWithColumns(2, statusCard, deviceCard), controls),
		nil,
		nil,
		nil,
		portCard,
	)

	// Starts the refresh loop through the check callback
	autoRefreshCheck.SetChecked(true)

	return content
}

// refresh polls health and the port list, then updates widgets on the UI thread
func (d *DashboardTab) refresh() {
	health, healthErr := d.client.Health()
	ports, portsErr := d.client.Ports()

	fyne.Do(func() {
		if healthErr != nil {
			d.statusLabel.SetText("Status: Error - " + healthErr.Error())
			d.statusLabel.Importance = widget.DangerImportance
			d.statusLabel.Refresh()
			return
		}

		d.statusLabel.SetText(fmt.Sprintf("Status: %s", health.Status))
		if health.Status == "ok" {
			d.statusLabel.Importance = widget.SuccessImportance
		} else {
			d.statusLabel.Importance = widget.WarningImportance
		}
		d.statusLabel.Refresh()
		d.instanceLabel.SetText(fmt.Sprintf("Instance: %s", health.InstanceID))
		d.versionLabel.SetText(fmt.Sprintf("Version: %s", health.Version))
		d.uptimeLabel.SetText(fmt.Sprintf("Uptime: %s", formatUptime(health.UptimeSec)))

		d.deviceLabel.SetText(fmt.Sprintf("Device: %s", connectedText(health.Device.Connected)))
		d.portLabel.SetText(fmt.Sprintf("Port: %s", health.Device.PortName()))
		d.baudLabel.SetText(fmt.Sprintf("Baud Rate: %d", health.Device.BaudRate))

		if portsErr == nil {
			d.portData = ports
			d.portTable.Refresh()
		}
	})
}

func (d *DashboardTab) startAutoRefresh() {
	d.stopAutoRefresh()
	ctx, cancel := context.WithCancel(context.Background())
	d.stopRefresh = cancel

	go func() {
		ticker := time.NewTicker(d.refreshInterval)
		defer ticker.Stop()

		d.refresh()
		for {
			select {
			case <-ticker.C:
				d.refresh()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (d *DashboardTab) stopAutoRefresh() {
	if d.stopRefresh != nil {
		d.stopRefresh()
		d.stopRefresh = nil
	}
}

func connectedText(connected bool) string {
	if connected {
		return "CONNECTED"
	}
	return "NOT CONNECTED"
}

// formatUptime formats uptime seconds into a readable string
func formatUptime(seconds int64) string {
	duration := time.Duration(seconds) * time.Second
	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	secs := int(duration.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
