package api

import (
	"fmt"
	"net/http"
)

// MetricsHandler creates an HTTP handler for Prometheus metrics
type MetricsHandler struct {
	device Device
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(device Device) *MetricsHandler {
	return &MetricsHandler{device: device}
}

// ServeHTTP handles the /metrics endpoint in Prometheus format
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.device.Status()
	stats := h.device.Stats()
	port := snap.PortName()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	fmt.Fprintln(w, "# HELP heartlink_commands_total Total commands written to the device")
	fmt.Fprintln(w, "# TYPE heartlink_commands_total counter")
	fmt.Fprintf(w, "heartlink_commands_total{port=%q} %d\n", port, stats.CommandsSent)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP heartlink_bytes_sent_total Total bytes sent")
	fmt.Fprintln(w, "# TYPE heartlink_bytes_sent_total counter")
	fmt.Fprintf(w, "heartlink_bytes_sent_total{port=%q} %d\n", port, stats.BytesSent)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP heartlink_errors_total Total connect and write errors")
	fmt.Fprintln(w, "# TYPE heartlink_errors_total counter")
	fmt.Fprintf(w, "heartlink_errors_total{port=%q} %d\n", port, stats.Errors)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP heartlink_connects_total Successful device connections")
	fmt.Fprintln(w, "# TYPE heartlink_connects_total counter")
	fmt.Fprintf(w, "heartlink_connects_total{port=%q} %d\n", port, stats.Connects)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP heartlink_device_up Device status (1=connected, 0=not connected)")
	fmt.Fprintln(w, "# TYPE heartlink_device_up gauge")
	up := 0
	if snap.Connected {
		up = 1
	}
	fmt.Fprintf(w, "heartlink_device_up{port=%q,state=%q} %d\n", port, snap.State, up)

	if !stats.LastCommandTime.IsZero() {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "# HELP heartlink_last_command_timestamp Unix timestamp of last command sent")
		fmt.Fprintln(w, "# TYPE heartlink_last_command_timestamp gauge")
		fmt.Fprintf(w, "heartlink_last_command_timestamp{port=%q} %d\n", port, stats.LastCommandTime.Unix())
	}
}
