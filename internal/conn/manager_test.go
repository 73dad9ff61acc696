package conn_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FarhanAli04/multi-sub000/internal/conn"
	"github.com/FarhanAli04/multi-sub000/pkg/config"
	"github.com/FarhanAli04/multi-sub000/pkg/protocol"
	"github.com/FarhanAli04/multi-sub000/pkg/session"
	"github.com/FarhanAli04/multi-sub000/pkg/transport"
)

// --- Test Suite Setup ---

func newTestLogger() *slog.Logger {
	// Discard logger output during tests by setting a high level
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

type fakeTransport struct {
	mu        sync.Mutex
	frames    [][]byte
	done      chan struct{}
	closeOnce sync.Once
	onClose   transport.CloseHandler
}

func (f *fakeTransport) Send(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return false
	default:
	}
	f.frames = append(f.frames, frame)
	return true
}

func (f *fakeTransport) Close(err error) {
	f.closeOnce.Do(func() {
		close(f.done)
		if f.onClose != nil {
			f.onClose(err)
		}
	})
}

func (f *fakeTransport) Done() <-chan struct{} { return f.done }

func (f *fakeTransport) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

type fakeDialer struct {
	mu    sync.Mutex
	calls int
	urls  []string
	fail  bool
	conns []*fakeTransport
}

func (d *fakeDialer) dial(_ context.Context, url string, _ transport.Config, _ transport.FrameHandler, onClose transport.CloseHandler, _ *slog.Logger) (transport.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.urls = append(d.urls, url)
	if d.fail {
		return nil, errors.New("connection refused")
	}
	ft := &fakeTransport{done: make(chan struct{}), onClose: onClose}
	d.conns = append(d.conns, ft)
	return ft, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) latest() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func testIdentity() session.Provider {
	return session.NewStaticProvider(session.Identity{UserID: "u-1", DisplayName: "Test User", Token: "opaque-token"})
}

func newTestManager(d *fakeDialer, delay time.Duration, maxAttempts int) *conn.Manager {
	return conn.NewManager(conn.Options{
		URL:      "wss://chat.example.com/ws",
		Identity: testIdentity(),
		Policy:   conn.NewPolicy(config.ReconnectConfig{Delay: delay, MaxAttempts: maxAttempts}),
		Dialer:   d.dial,
		Logger:   newTestLogger(),
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

// --- Lifecycle Tests ---

func TestConnectOpensTransport(t *testing.T) {
	d := &fakeDialer{}
	m := newTestManager(d, 10*time.Millisecond, 5)

	m.Connect()
	waitFor(t, time.Second, m.Connected)

	if got := d.callCount(); got != 1 {
		t.Errorf("Expected 1 dial, got %d", got)
	}
	if m.Attempt() != 0 {
		t.Errorf("Expected attempt counter 0 after open, got %d", m.Attempt())
	}
	if !strings.Contains(d.urls[0], "token=opaque-token") {
		t.Errorf("Expected credential embedded in connection URI, got %s", d.urls[0])
	}
}

func TestConnectIsNoOpWhileOpen(t *testing.T) {
	d := &fakeDialer{}
	m := newTestManager(d, 10*time.Millisecond, 5)

	m.Connect()
	waitFor(t, time.Second, m.Connected)

	m.Connect()
	m.Connect()
	time.Sleep(20 * time.Millisecond)
	if got := d.callCount(); got != 1 {
		t.Errorf("Expected connect to be a no-op while open, dial count %d", got)
	}
}

func TestConnectWithoutIdentity(t *testing.T) {
	d := &fakeDialer{}
	m := conn.NewManager(conn.Options{
		URL:      "wss://chat.example.com/ws",
		Identity: session.NewStaticProvider(session.Identity{}),
		Policy:   conn.NewPolicy(config.ReconnectConfig{Delay: 10 * time.Millisecond, MaxAttempts: 5}),
		Dialer:   d.dial,
		Logger:   newTestLogger(),
	})

	m.Connect()
	time.Sleep(20 * time.Millisecond)
	if d.callCount() != 0 {
		t.Error("Expected no dial without a usable identity")
	}
	if m.State() != conn.StateIdle {
		t.Errorf("Expected state idle, got %s", m.State())
	}
}

func TestSendWhileNotOpen(t *testing.T) {
	d := &fakeDialer{}
	m := newTestManager(d, 10*time.Millisecond, 5)

	if m.Send(protocol.NewSetPresence(true)) {
		t.Error("Expected Send to fail before connect")
	}

	m.Connect()
	waitFor(t, time.Second, m.Connected)
	ft := d.latest()

	m.Disconnect()
	if m.Send(protocol.NewSendMessage("c-1", "hello", "text")) {
		t.Error("Expected Send to fail after disconnect")
	}
	if ft.frameCount() != 0 {
		t.Errorf("Expected no frames on the transport, got %d", ft.frameCount())
	}
}

func TestSendWhileOpen(t *testing.T) {
	d := &fakeDialer{}
	m := newTestManager(d, 10*time.Millisecond, 5)

	m.Connect()
	waitFor(t, time.Second, m.Connected)

	if !m.Send(protocol.NewSendMessage("c-1", "hello", "text")) {
		t.Fatal("Expected Send to succeed while open")
	}
	if got := d.latest().frameCount(); got != 1 {
		t.Errorf("Expected 1 frame on the transport, got %d", got)
	}
}

// --- Retry Tests ---

func TestReconnectAfterUnexpectedClose(t *testing.T) {
	d := &fakeDialer{}
	m := newTestManager(d, 10*time.Millisecond, 5)

	m.Connect()
	waitFor(t, time.Second, m.Connected)

	d.latest().Close(errors.New("abrupt close"))
	waitFor(t, time.Second, func() bool { return d.callCount() == 2 && m.Connected() })

	if m.Attempt() != 0 {
		t.Errorf("Expected attempt counter reset after successful reopen, got %d", m.Attempt())
	}
}

func TestRetryExhaustion(t *testing.T) {
	d := &fakeDialer{fail: true}
	m := newTestManager(d, 5*time.Millisecond, 5)

	m.Connect()
	// 1 initial dial + 5 scheduled retries, then a persistent offline state.
	waitFor(t, 2*time.Second, m.Offline)

	if got := d.callCount(); got != 6 {
		t.Errorf("Expected 6 dials (1 initial + 5 retries), got %d", got)
	}
	if m.Attempt() > 5 {
		t.Errorf("Attempt counter exceeded max: %d", m.Attempt())
	}
	time.Sleep(50 * time.Millisecond)
	if got := d.callCount(); got != 6 {
		t.Errorf("Expected no further dials after exhaustion, got %d", got)
	}
	if m.State() != conn.StateClosed {
		t.Errorf("Expected terminal closed state, got %s", m.State())
	}
}

func TestDisconnectCancelsPendingRetry(t *testing.T) {
	d := &fakeDialer{fail: true}
	m := newTestManager(d, 50*time.Millisecond, 5)

	m.Connect()
	waitFor(t, time.Second, func() bool { return d.callCount() == 1 && m.State() == conn.StateClosed })

	m.Disconnect()
	time.Sleep(120 * time.Millisecond)
	if got := d.callCount(); got != 1 {
		t.Errorf("Expected retry to be cancelled by disconnect, dial count %d", got)
	}
	if m.Attempt() != 0 {
		t.Errorf("Expected attempt counter reset by disconnect, got %d", m.Attempt())
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	d := &fakeDialer{}
	m := newTestManager(d, 10*time.Millisecond, 5)

	m.Connect()
	waitFor(t, time.Second, m.Connected)

	m.Disconnect()
	m.Disconnect()
	if m.State() != conn.StateClosed {
		t.Errorf("Expected closed state, got %s", m.State())
	}
	time.Sleep(30 * time.Millisecond)
	if d.callCount() != 1 {
		t.Errorf("Expected no reconnect after disconnect, dial count %d", d.callCount())
	}
}

func TestStateNotifications(t *testing.T) {
	d := &fakeDialer{}
	var mu sync.Mutex
	var states []conn.State
	m := conn.NewManager(conn.Options{
		URL:      "wss://chat.example.com/ws",
		Identity: testIdentity(),
		Policy:   conn.NewPolicy(config.ReconnectConfig{Delay: 10 * time.Millisecond, MaxAttempts: 5}),
		Dialer:   d.dial,
		OnState: func(s conn.State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
		Logger: newTestLogger(),
	})

	m.Connect()
	waitFor(t, time.Second, m.Connected)
	m.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	want := []conn.State{conn.StateConnecting, conn.StateOpen, conn.StateClosed}
	if len(states) != len(want) {
		t.Fatalf("Expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("Expected states %v, got %v", want, states)
		}
	}
}
