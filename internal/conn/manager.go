package conn

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/FarhanAli04/multi-sub000/pkg/protocol"
	"github.com/FarhanAli04/multi-sub000/pkg/session"
	"github.com/FarhanAli04/multi-sub000/pkg/transport"
)

// State is the lifecycle position of the managed connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Dialer opens a transport. Swappable so the manager is testable without a
// listening server.
type Dialer func(ctx context.Context, url string, cfg transport.Config, onFrame transport.FrameHandler, onClose transport.CloseHandler, logger *slog.Logger) (transport.Transport, error)

type Options struct {
	URL       string
	Identity  session.Provider
	Policy    *Policy
	Transport transport.Config
	Dialer    Dialer // nil selects the websocket dialer
	OnFrame   transport.FrameHandler
	OnState   func(State)
	Logger    *slog.Logger
}

// Manager owns the lifecycle of one streaming connection: connect,
// authenticate, detect failure, reconnect with backoff. There is at most one
// active transport and at most one pending retry timer at any instant.
type Manager struct {
	mu        sync.Mutex
	state     State
	attempt   int
	lastErr   error
	retry     *time.Timer
	transport transport.Transport
	offline   bool // retries exhausted; cleared by Connect or Disconnect
	gen       uint64

	endpoint string
	identity session.Provider
	policy   *Policy
	tcfg     transport.Config
	dial     Dialer
	onFrame  transport.FrameHandler
	onState  func(State)
	logger   *slog.Logger
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		state:    StateIdle,
		endpoint: opts.URL,
		identity: opts.Identity,
		policy:   opts.Policy,
		tcfg:     opts.Transport,
		dial:     opts.Dialer,
		onFrame:  opts.OnFrame,
		onState:  opts.OnState,
		logger:   opts.Logger.With(slog.String("component", "connection_manager")),
	}
	if m.dial == nil {
		m.dial = func(ctx context.Context, url string, cfg transport.Config, onFrame transport.FrameHandler, onClose transport.CloseHandler, logger *slog.Logger) (transport.Transport, error) {
			c, err := transport.Dial(ctx, url, cfg, onFrame, onClose, logger)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	return m
}

// Connect opens a new transport with the current identity's credential
// embedded in the connection URI. It is a no-op while a connection attempt is
// in flight or the connection is already open, and while no usable identity
// is available. A pending retry timer is left alone; its eventual firing
// lands on the same guard.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateOpen {
		state := m.state
		m.mu.Unlock()
		m.logger.Debug("connect ignored", slog.String("state", state.String()))
		return
	}
	identity, ok := m.identity.Current()
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("connect skipped: no usable identity")
		return
	}
	m.offline = false
	m.state = StateConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.emit(StateConnecting)
	go m.establish(identity, gen)
}

func (m *Manager) establish(identity session.Identity, gen uint64) {
	onClose := func(cause error) { m.transportClosed(gen, cause) }
	t, err := m.dial(context.Background(), m.connectionURI(identity), m.tcfg, m.handleFrame, onClose, m.logger)

	m.mu.Lock()
	if gen != m.gen || m.state != StateConnecting {
		m.mu.Unlock()
		if err == nil {
			t.Close(errors.New("connection superseded"))
		}
		return
	}
	if err != nil {
		m.lastErr = err
		m.mu.Unlock()
		m.logger.Warn("dial failed", slog.Any("error", err))
		m.transportClosed(gen, err)
		return
	}
	m.transport = t
	m.state = StateOpen
	m.attempt = 0
	m.policy.Reset()
	m.mu.Unlock()

	m.logger.Info("connection open")
	m.emit(StateOpen)
}

// transportClosed is the single owner of the retry path. Transport errors do
// not schedule retries themselves; they surface here through the close
// callback, which avoids double-scheduling.
func (m *Manager) transportClosed(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen {
		// A newer connection superseded this one; nothing to do.
		m.mu.Unlock()
		return
	}
	if m.state == StateClosing || m.state == StateClosed {
		// Disconnect owns this transition.
		m.mu.Unlock()
		return
	}
	m.state = StateClosed
	m.transport = nil
	if cause != nil {
		m.lastErr = cause
	}

	if m.attempt >= m.policy.MaxAttempts {
		m.offline = true
		m.mu.Unlock()
		m.logger.Warn("reconnect attempts exhausted, staying offline",
			slog.Int("attempts", m.policy.MaxAttempts), slog.Any("lastError", cause))
		m.emit(StateClosed)
		return
	}

	m.attempt++
	attempt := m.attempt
	delay := m.policy.NextDelay()
	if m.retry != nil {
		// Invariant: at most one pending retry timer.
		m.retry.Stop()
	}
	m.retry = time.AfterFunc(delay, func() {
		m.mu.Lock()
		m.retry = nil
		stale := gen != m.gen
		m.mu.Unlock()
		if stale {
			return
		}
		m.Connect()
	})
	m.mu.Unlock()

	m.logger.Info("reconnect scheduled",
		slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.Any("cause", cause))
	m.emit(StateClosed)
}

// Disconnect cancels any pending retry, closes the transport if open and
// resets the attempt counter. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.attempt = 0
	m.offline = false
	m.gen++ // orphan any in-flight dial and the old transport's close callback
	t := m.transport
	m.transport = nil
	if m.state == StateConnecting || m.state == StateOpen {
		m.state = StateClosing
	}
	m.mu.Unlock()

	if t != nil {
		t.Close(nil)
		<-t.Done()
	}

	m.mu.Lock()
	alreadyClosed := m.state == StateClosed
	m.state = StateClosed
	m.mu.Unlock()
	if !alreadyClosed {
		m.emit(StateClosed)
	}
}

// Send serializes the command and writes it to the transport. It returns
// false, dropping the command, unless the connection is open.
func (m *Manager) Send(cmd protocol.Command) bool {
	m.mu.Lock()
	if m.state != StateOpen || m.transport == nil {
		state := m.state
		m.mu.Unlock()
		m.logger.Debug("command dropped: connection not open",
			slog.String("command", cmd.CommandType()), slog.String("state", state.String()))
		return false
	}
	t := m.transport
	m.mu.Unlock()

	frame, err := protocol.EncodeCommand(cmd)
	if err != nil {
		m.logger.Error("failed to encode command", slog.Any("error", err))
		return false
	}
	return t.Send(frame)
}

func (m *Manager) handleFrame(frame []byte) {
	if m.onFrame != nil {
		m.onFrame(frame)
	}
}

func (m *Manager) emit(s State) {
	if m.onState != nil {
		m.onState(s)
	}
}

// connectionURI embeds the credential in the handshake URL.
func (m *Manager) connectionURI(identity session.Identity) string {
	u, err := url.Parse(m.endpoint)
	if err != nil {
		return m.endpoint
	}
	q := u.Query()
	q.Set("token", identity.Token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected is the simplified boolean the UI binds to.
func (m *Manager) Connected() bool {
	return m.State() == StateOpen
}

// Offline reports that automatic retries are exhausted and the UI should
// show a persistent offline indicator.
func (m *Manager) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

func (m *Manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}
