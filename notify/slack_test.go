package notify

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartlink/config"
	"heartlink/link"
)

type webhook struct {
	mu       sync.Mutex
	status   int
	messages []slack.WebhookMessage
}

func (h *webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var msg slack.WebhookMessage
	json.NewDecoder(r.Body).Decode(&msg)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	w.WriteHeader(h.status)
}

func (h *webhook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

func (h *webhook) last() slack.WebhookMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.messages[len(h.messages)-1]
}

func newNotifier(t *testing.T, status int) (*SlackNotifier, *webhook) {
	t.Helper()
	hook := &webhook{status: status}
	srv := httptest.NewServer(hook)
	t.Cleanup(srv.Close)

	cfg := &config.SlackConfig{
		WebhookURL:     srv.URL,
		NotifyStartup:  true,
		NotifyShutdown: true,
		NotifyErrors:   true,
		MaxFailures:    2,
		CooldownSec:    300,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSlackNotifier(cfg, "test-1", logger), hook
}

func TestDisabledSendsNothing(t *testing.T) {
	n, hook := newNotifier(t, http.StatusOK)
	n.config.WebhookURL = ""

	assert.False(t, n.IsEnabled())
	assert.NoError(t, n.NotifyStartup(link.Snapshot{}))
	assert.NoError(t, n.NotifyDeviceLost("COM8", errors.New("gone")))
	assert.Zero(t, hook.count())
}

func TestNotifyStartup(t *testing.T) {
	n, hook := newNotifier(t, http.StatusOK)
	port := "/dev/ttyACM0"

	require.NoError(t, n.NotifyStartup(link.Snapshot{Connected: true, Port: &port}))
	require.Equal(t, 1, hook.count())

	att := hook.last().Attachments[0]
	assert.Equal(t, "HeartLink Started", att.Title)
	assert.Equal(t, "/dev/ttyACM0", att.Fields[1].Value)
	assert.Equal(t, "true", att.Fields[2].Value)
}

func TestNotifyShutdown(t *testing.T) {
	n, hook := newNotifier(t, http.StatusOK)

	require.NoError(t, n.NotifyShutdown(link.Stats{CommandsSent: 12, Errors: 1}, 90*time.Minute))

	att := hook.last().Attachments[0]
	assert.Equal(t, "1h 30m 0s", att.Fields[1].Value)
	assert.Equal(t, "12", att.Fields[2].Value)
}

func TestNotifyFlagsRespected(t *testing.T) {
	n, hook := newNotifier(t, http.StatusOK)
	n.config.NotifyErrors = false

	assert.NoError(t, n.NotifyDeviceLost("COM8", errors.New("gone")))
	assert.NoError(t, n.NotifyDeviceConnected("COM8"))
	assert.Zero(t, hook.count())
}

func TestOnTransition(t *testing.T) {
	n, hook := newNotifier(t, http.StatusOK)

	require.NoError(t, n.OnTransition(link.Transition{From: link.StateConnecting, To: link.StateConnected, Port: "COM8"}))
	assert.Equal(t, "HeartLink Device Connected", hook.last().Attachments[0].Title)

	require.NoError(t, n.OnTransition(link.Transition{From: link.StateConnected, To: link.StateDisconnected, Port: "COM8", Err: errors.New("write: i/o error")}))
	last := hook.last().Attachments[0]
	assert.Equal(t, "HeartLink Device Unavailable", last.Title)
	assert.Equal(t, "write: i/o error", last.Fields[2].Value)

	// Explicit disconnects and intermediate states are quiet
	require.NoError(t, n.OnTransition(link.Transition{From: link.StateConnected, To: link.StateDisconnected, Port: "COM8"}))
	require.NoError(t, n.OnTransition(link.Transition{From: link.StateDisconnected, To: link.StateConnecting, Port: "COM8"}))
	assert.Equal(t, 2, hook.count())
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	n, hook := newNotifier(t, http.StatusInternalServerError)

	assert.Error(t, n.NotifyDeviceConnected("COM8"))
	assert.Error(t, n.NotifyDeviceConnected("COM8"))
	require.Equal(t, 2, hook.count())

	err := n.NotifyDeviceConnected("COM8")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, hook.count())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
	assert.Equal(t, "3h 0m 1s", formatDuration(3*time.Hour+time.Second))
}
