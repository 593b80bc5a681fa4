package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/slack-go/slack"
	"github.com/sony/gobreaker/v2"

	"heartlink/config"
	"heartlink/link"
)

// SlackNotifier sends notifications to Slack
type SlackNotifier struct {
	config     *config.SlackConfig
	instanceID string
	logger     *slog.Logger
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
}

const footer = "HeartLink"

// NewSlackNotifier creates a new Slack notifier. After MaxFailures
// consecutive delivery failures the webhook is skipped for the cooldown.
func NewSlackNotifier(cfg *config.SlackConfig, instanceID string, logger *slog.Logger) *SlackNotifier {
	maxFailures := uint32(cfg.MaxFailures)
	if maxFailures == 0 {
		maxFailures = 1
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "slack",
		MaxRequests: 1,
		Timeout:     cfg.GetCooldown(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Slack circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &SlackNotifier{
		config:     cfg,
		instanceID: instanceID,
		logger:     logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: breaker,
	}
}

// IsEnabled returns true if Slack notifications are configured
func (s *SlackNotifier) IsEnabled() bool {
	return s.config.WebhookURL != ""
}

// NotifyStartup sends a startup notification with the initial device status
func (s *SlackNotifier) NotifyStartup(status link.Snapshot) error {
	if !s.IsEnabled() || !s.config.NotifyStartup {
		return nil
	}

	device := status.PortName()
	if device == "" {
		device = "none"
	}

	return s.send(&slack.WebhookMessage{
		Attachments: []slack.Attachment{
			{
				Color: "good",
				Title: "HeartLink Started",
				Fields: []slack.AttachmentField{
					{Title: "Instance", Value: s.instanceID, Short: true},
					{Title: "Device", Value: device, Short: true},
					{Title: "Connected", Value: fmt.Sprintf("%t", status.Connected), Short: true},
				},
				Footer: footer,
				Ts:     now(),
			},
		},
	})
}

// NotifyShutdown sends a shutdown notification
func (s *SlackNotifier) NotifyShutdown(stats link.Stats, uptime time.Duration) error {
	if !s.IsEnabled() || !s.config.NotifyShutdown {
		return nil
	}

	return s.send(&slack.WebhookMessage{
		Attachments: []slack.Attachment{
			{
				Color: "warning",
				Title: "HeartLink Stopped",
				Fields: []slack.AttachmentField{
					{Title: "Instance", Value: s.instanceID, Short: true},
					{Title: "Uptime", Value: formatDuration(uptime), Short: true},
					{Title: "Commands Sent", Value: fmt.Sprintf("%d", stats.CommandsSent), Short: true},
					{Title: "Errors", Value: fmt.Sprintf("%d", stats.Errors), Short: true},
				},
				Footer: footer,
				Ts:     now(),
			},
		},
	})
}

// NotifyDeviceLost reports a failed connect or a dropped connection
func (s *SlackNotifier) NotifyDeviceLost(device string, err error) error {
	if !s.IsEnabled() || !s.config.NotifyErrors {
		return nil
	}
	if device == "" {
		device = "none"
	}

	return s.send(&slack.WebhookMessage{
		Attachments: []slack.Attachment{
			{
				Color: "danger",
				Title: "HeartLink Device Unavailable",
				Fields: []slack.AttachmentField{
					{Title: "Instance", Value: s.instanceID, Short: true},
					{Title: "Device", Value: device, Short: true},
					{Title: "Error", Value: err.Error(), Short: false},
				},
				Footer: footer,
				Ts:     now(),
			},
		},
	})
}

// NotifyDeviceConnected reports a device that came (back) online
func (s *SlackNotifier) NotifyDeviceConnected(device string) error {
	if !s.IsEnabled() || !s.config.NotifyErrors {
		return nil
	}

	return s.send(&slack.WebhookMessage{
		Attachments: []slack.Attachment{
			{
				Color: "good",
				Title: "HeartLink Device Connected",
				Fields: []slack.AttachmentField{
					{Title: "Instance", Value: s.instanceID, Short: true},
					{Title: "Device", Value: device, Short: true},
				},
				Footer: footer,
				Ts:     now(),
			},
		},
	})
}

// OnTransition maps a link state change to a notification. Transitions
// without an error into disconnected (an explicit Disconnect) are ignored.
func (s *SlackNotifier) OnTransition(t link.Transition) error {
	switch {
	case t.To == link.StateConnected:
		return s.NotifyDeviceConnected(t.Port)
	case (t.To == link.StateDisconnected || t.To == link.StateFailed) && t.Err != nil:
		return s.NotifyDeviceLost(t.Port, t.Err)
	}
	return nil
}

func (s *SlackNotifier) send(msg *slack.WebhookMessage) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Debug("Slack notification skipped", "reason", err)
	}
	return err
}

func (s *SlackNotifier) post(msg *slack.WebhookMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()

	if err := slack.PostWebhookCustomHTTPContext(ctx, s.config.WebhookURL, s.client, msg); err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}

	s.logger.Debug("Slack notification sent")
	return nil
}

func now() json.Number {
	return json.Number(strconv.FormatInt(time.Now().Unix(), 10))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
