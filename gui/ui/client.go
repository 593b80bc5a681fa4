package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthResponse matches the /api/health response
type HealthResponse struct {
	Status     string       `json:"status"`
	App        string       `json:"app"`
	InstanceID string       `json:"instance_id"`
	Version    string       `json:"version"`
	UptimeSec  int64        `json:"uptime_sec"`
	Device     DeviceStatus `json:"device"`
}

// DeviceStatus matches the device snapshot
type DeviceStatus struct {
	Connected bool    `json:"connected"`
	Port      *string `json:"port"`
	BaudRate  int     `json:"baud_rate"`
}

// PortName returns the port or "-" when none is selected
func (d DeviceStatus) PortName() string {
	if d.Port == nil {
		return "-"
	}
	return *d.Port
}

// HapticResult matches the /api/haptic response
type HapticResult struct {
	Message           string `json:"message"`
	Error             string `json:"error"`
	Action            string `json:"action"`
	HardwareConnected bool   `json:"hardware_connected"`
}

// PortEntry is one row of /api/ports
type PortEntry struct {
	Device       string `json:"device"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer"`
	HWID         string `json:"hwid"`
}

// Client talks to the HeartLink HTTP API
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an API client for baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Sends can wait out a device settle delay
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health fetches the service health
func (c *Client) Health() (HealthResponse, error) {
	var health HealthResponse
	_, err := c.do(http.MethodGet, "/api/health", nil, &health)
	return health, err
}

// Haptic sends an action. A rejected or undelivered action is not an error;
// the result carries the server's explanation.
func (c *Client) Haptic(action string) (HapticResult, error) {
	var result HapticResult
	_, err := c.do(http.MethodPost, "/api/haptic", map[string]string{"action": action}, &result)
	return result, err
}

// Reconnect asks the service to reconnect and returns the device status
func (c *Client) Reconnect() (DeviceStatus, error) {
	var status DeviceStatus
	_, err := c.do(http.MethodPost, "/api/device/reconnect", nil, &status)
	return status, err
}

// Ports lists the serial ports the service can see
func (c *Client) Ports() ([]PortEntry, error) {
	var body struct {
		Ports []PortEntry `json:"ports"`
	}
	code, err := c.do(http.MethodGet, "/api/ports", nil, &body)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("listing ports: status %d", code)
	}
	return body.Ports, nil
}

func (c *Client) do(method, path string, in, out any) (int, error) {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return 0, fmt.Errorf("encoding request: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, &body)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("cannot connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, fmt.Errorf("rate limited, try again shortly")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("invalid response: %w", err)
	}
	return resp.StatusCode, nil
}
