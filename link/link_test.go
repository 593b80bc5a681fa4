package link

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartlink/discovery"
	"heartlink/serial"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDiscoverer returns a fixed result and counts calls
type fakeDiscoverer struct {
	mu     sync.Mutex
	device string
	calls  int
}

func (d *fakeDiscoverer) Discover() (discovery.Descriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.device == "" {
		return discovery.Descriptor{}, false
	}
	return discovery.Descriptor{Device: d.device, Description: "Arduino Uno"}, true
}

func (d *fakeDiscoverer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// fakeOpener hands out a fresh MockPort per open unless err is set
type fakeOpener struct {
	mu      sync.Mutex
	err     error
	ports   []*serial.MockPort
	configs []serial.PortConfig
}

func (o *fakeOpener) Open(cfg serial.PortConfig) (serial.Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.configs = append(o.configs, cfg)
	if o.err != nil {
		return nil, o.err
	}
	p := serial.NewMockPort(cfg.Device)
	o.ports = append(o.ports, p)
	return p, nil
}

func (o *fakeOpener) SetError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

func (o *fakeOpener) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.configs)
}

func (o *fakeOpener) Port(i int) *serial.MockPort {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ports[i]
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
}

type fixture struct {
	disc    *fakeDiscoverer
	opener  *fakeOpener
	sleeps  *sleepRecorder
	manager *Manager
	channel *Channel
}

func newFixture(t *testing.T, cfg Config, device string, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		disc:   &fakeDiscoverer{device: device},
		opener: &fakeOpener{},
		sleeps: &sleepRecorder{},
	}
	opts = append([]Option{
		WithOpener(f.opener.Open),
		WithSleep(f.sleeps.Sleep),
	}, opts...)
	f.manager = NewManager(cfg, f.disc, discardLogger(), opts...)
	f.channel = NewChannel(f.manager)
	t.Cleanup(f.manager.Close)
	return f
}

func strPtr(s string) *string { return &s }

func TestConnectWithNoPorts(t *testing.T) {
	f := newFixture(t, Config{}, "")

	assert.False(t, f.manager.Connect())
	assert.Equal(t, Snapshot{Connected: false, Port: nil, BaudRate: 9600, State: StateDisconnected}, f.manager.Status())
	assert.Zero(t, f.opener.Calls())
}

func TestConnectDiscoveredPort(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")

	require.True(t, f.manager.Connect())

	status := f.manager.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, "/dev/ttyACM0", status.PortName())
	assert.Equal(t, StateConnected, status.State)
	assert.Equal(t, []time.Duration{DefaultSettleDelay}, f.sleeps.delays)

	require.Equal(t, 1, f.opener.Calls())
	cfg := f.opener.configs[0]
	assert.Equal(t, 9600, cfg.BaudRate)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
}

func TestConnectIsIdempotent(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")

	require.True(t, f.manager.Connect())
	require.True(t, f.manager.Connect())
	require.True(t, f.manager.EnsureConnected())

	assert.Equal(t, 1, f.opener.Calls())
	assert.Len(t, f.sleeps.delays, 1)
}

func TestConnectOpenFailure(t *testing.T) {
	f := newFixture(t, Config{Port: "COM8"}, "")
	f.opener.SetError(errors.New("access denied"))

	assert.False(t, f.manager.Connect())

	status := f.manager.Status()
	assert.False(t, status.Connected)
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, strPtr("COM8"), status.Port)
	assert.Equal(t, 1, f.opener.Calls(), "no retry loop")
	assert.Empty(t, f.sleeps.delays)
	assert.Zero(t, f.disc.Calls(), "configured port skips discovery")
	assert.Equal(t, "access denied", f.manager.Stats().LastError)
}

func TestSendLikeWritesSingleByte(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")
	require.True(t, f.manager.Connect())

	assert.True(t, f.channel.Send(Like))

	port := f.opener.Port(0)
	assert.Equal(t, []byte{0x4C}, port.GetWrittenData())

	stats := f.manager.Stats()
	assert.Equal(t, int64(1), stats.CommandsSent)
	assert.Equal(t, int64(1), stats.BytesSent)
	assert.False(t, stats.LastCommandTime.IsZero())
}

func TestSendSkipWritesD(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")

	assert.True(t, f.channel.Send(Skip))
	assert.Equal(t, []byte{0x44}, f.opener.Port(0).GetWrittenData())
}

func TestSendWriteFailureDisconnects(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")
	require.True(t, f.manager.Connect())

	port := f.opener.Port(0)
	port.SetWriteError(errors.New("device unplugged"))

	assert.False(t, f.channel.Send(Skip))

	status := f.manager.Status()
	assert.False(t, status.Connected)
	assert.Equal(t, StateDisconnected, status.State)
	assert.False(t, port.IsOpen(), "handle released")
	assert.Equal(t, 1, f.opener.Calls(), "no reconnect within the failing send")
	assert.Equal(t, int64(1), f.manager.Stats().Errors)
}

func TestSendFlushFailureDisconnects(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")
	require.True(t, f.manager.Connect())
	f.opener.Port(0).SetFlushError(errors.New("i/o timeout"))

	assert.False(t, f.channel.Send(Like))
	assert.False(t, f.manager.Status().Connected)
}

func TestSendReconnectsAfterDrop(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")
	require.True(t, f.manager.Connect())
	f.opener.Port(0).SetWriteError(errors.New("device reset"))
	require.False(t, f.channel.Send(Like))

	assert.True(t, f.channel.Send(Like))

	assert.Equal(t, 2, f.opener.Calls())
	assert.Equal(t, [][]byte{{'L'}}, f.opener.Port(1).GetWrites(), "byte written exactly once")
	assert.True(t, f.manager.Status().Connected)
	assert.Equal(t, 1, f.disc.Calls(), "port selection is sticky")
}

func TestSendReconnectFailure(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")
	require.True(t, f.manager.Connect())
	f.manager.Disconnect()
	f.opener.SetError(errors.New("no such file or directory"))

	assert.False(t, f.channel.Send(Like))

	assert.Equal(t, 2, f.opener.Calls(), "exactly one reconnect attempt")
	assert.False(t, f.manager.Status().Connected)
	assert.Empty(t, f.opener.Port(0).GetWrites())
}

func TestSendWithoutDeviceDoesNotWrite(t *testing.T) {
	f := newFixture(t, Config{}, "")

	assert.False(t, f.channel.Send(Like))
	assert.False(t, f.channel.Send(Skip))

	assert.Zero(t, f.opener.Calls())
	assert.Equal(t, 2, f.disc.Calls(), "discovery retried while no port is selected")
}

func TestSendUnknownCommand(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")

	assert.False(t, f.channel.Send(Command('X')))
	assert.Zero(t, f.opener.Calls())
}

func TestDispatchRejectsInvalidActions(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")

	for _, action := range []string{"", "love", "LIKES", "super-like", "l", "d"} {
		t.Run(action, func(t *testing.T) {
			sent, err := f.channel.Dispatch(action)
			assert.False(t, sent)
			require.ErrorIs(t, err, ErrInvalidAction)

			var invalid *InvalidActionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, action, invalid.Action)
		})
	}

	assert.Zero(t, f.opener.Calls(), "no port I/O for invalid actions")
	assert.Zero(t, f.disc.Calls())
}

func TestDispatchValidAction(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")

	sent, err := f.channel.Dispatch("  Match ")
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = f.channel.Dispatch("DISLIKE")
	require.NoError(t, err)
	assert.True(t, sent)

	assert.Equal(t, []byte("LD"), f.opener.Port(0).GetWrittenData())
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		action string
		want   Command
	}{
		{"like", Like},
		{"LIKE", Like},
		{"match", Like},
		{"Match", Like},
		{"skip", Skip},
		{"Skip", Skip},
		{"dislike", Skip},
		{" dislike\n", Skip},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.action)
		require.NoError(t, err, tt.action)
		assert.Equal(t, tt.want, got, tt.action)
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "like", Like.String())
	assert.Equal(t, "skip", Skip.String())
	assert.Equal(t, "Command(0x58)", Command('X').String())
}

func TestStatusIsIdempotent(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")
	require.True(t, f.manager.Connect())

	first := f.manager.Status()
	second := f.manager.Status()
	assert.Equal(t, first, second)
}

func TestStatusDoesNotBlockDuringSettle(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, Config{}, "/dev/ttyACM0", WithSleep(func(time.Duration) {
		close(entered)
		<-release
	}))

	done := make(chan bool)
	go func() { done <- f.manager.Connect() }()

	<-entered
	status := f.manager.Status()
	assert.Equal(t, StateConnecting, status.State)
	assert.False(t, status.Connected)
	assert.Equal(t, "/dev/ttyACM0", status.PortName())

	close(release)
	assert.True(t, <-done)
	assert.True(t, f.manager.Status().Connected)
}

func TestConcurrentSendsAreSerialized(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")
	require.True(t, f.manager.Connect())

	const n = 64
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := Like
			if i%2 == 1 {
				cmd = Skip
			}
			results <- f.channel.Send(cmd)
		}(i)
	}
	wg.Wait()
	close(results)

	for ok := range results {
		assert.True(t, ok)
	}

	port := f.opener.Port(0)
	writes := port.GetWrites()
	require.Len(t, writes, n)
	likes, skips := 0, 0
	for _, w := range writes {
		require.Len(t, w, 1)
		switch w[0] {
		case 'L':
			likes++
		case 'D':
			skips++
		}
	}
	assert.Equal(t, n/2, likes)
	assert.Equal(t, n/2, skips)
	assert.Zero(t, port.Overlaps(), "every write flushed before the next began")
	assert.Equal(t, 1, f.opener.Calls())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")

	f.manager.Disconnect()
	require.True(t, f.manager.Connect())
	f.manager.Disconnect()
	f.manager.Disconnect()
	f.manager.Close()
	f.manager.Close()

	port := f.opener.Port(0)
	assert.Equal(t, 1, port.Closes())
	assert.False(t, f.manager.Status().Connected)
	assert.Equal(t, StateDisconnected, f.manager.Status().State)
}

func TestCloseIsTerminal(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")
	require.True(t, f.manager.Start())

	f.manager.Close()

	assert.False(t, f.channel.Send(Like))
	assert.False(t, f.manager.EnsureConnected())
	assert.False(t, f.manager.Connect())

	assert.Equal(t, 1, f.opener.Calls(), "no reopen after close")
	assert.Empty(t, f.opener.Port(0).GetWrites())
	assert.Equal(t, 1, f.opener.Port(0).Closes())
	assert.Equal(t, StateDisconnected, f.manager.Status().State)
	assert.Equal(t, int64(0), f.manager.Stats().CommandsSent)
}

func TestCloseBeforeConnect(t *testing.T) {
	f := newFixture(t, Config{}, "/dev/ttyACM0")
	f.manager.Close()

	assert.False(t, f.channel.Send(Skip))
	assert.Zero(t, f.opener.Calls())
	assert.Zero(t, f.disc.Calls())
}

func TestReconnectLogging(t *testing.T) {
	var buf bytes.Buffer
	opener := &fakeOpener{}
	m := NewManager(Config{Port: "/dev/ttyACM0"}, nil, slog.New(slog.NewTextHandler(&buf, nil)),
		WithOpener(opener.Open),
		WithSleep(func(time.Duration) {}),
	)
	t.Cleanup(m.Close)
	c := NewChannel(m)

	require.True(t, c.Send(Like))
	assert.Contains(t, buf.String(), "Not connected yet, connecting")
	assert.NotContains(t, buf.String(), "Connection lost")

	opener.Port(0).SetWriteError(errors.New("unplugged"))
	require.False(t, c.Send(Like))
	buf.Reset()

	require.True(t, c.Send(Like))
	assert.Contains(t, buf.String(), "Connection lost, reconnecting")
	assert.NotContains(t, buf.String(), "Not connected yet")
}

func TestStartConnects(t *testing.T) {
	f := newFixture(t, Config{Port: "/dev/ttyUSB0", SettleDelay: 10 * time.Millisecond}, "")

	assert.True(t, f.manager.Start())
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, f.sleeps.delays)
	assert.Equal(t, int64(1), f.manager.Stats().Connects)
}

func TestStateHook(t *testing.T) {
	var transitions []Transition
	f := newFixture(t, Config{}, "/dev/ttyACM0", WithStateHook(func(tr Transition) {
		transitions = append(transitions, tr)
	}))

	require.True(t, f.manager.Connect())
	f.opener.Port(0).SetWriteError(errors.New("gone"))
	require.False(t, f.channel.Send(Like))

	require.Len(t, transitions, 3)
	assert.Equal(t, StateConnecting, transitions[0].To)
	assert.Equal(t, StateConnected, transitions[1].To)
	assert.Equal(t, StateConnected, transitions[2].From)
	assert.Equal(t, StateDisconnected, transitions[2].To)
	assert.Equal(t, "/dev/ttyACM0", transitions[2].Port)
	assert.EqualError(t, transitions[2].Err, "write: gone")
}
