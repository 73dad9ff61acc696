package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/FarhanAli04/multi-sub000/internal/conn"
	"github.com/FarhanAli04/multi-sub000/internal/dispatch"
	"github.com/FarhanAli04/multi-sub000/internal/track"
	"github.com/FarhanAli04/multi-sub000/internal/view"
	"github.com/FarhanAli04/multi-sub000/pkg/config"
	"github.com/FarhanAli04/multi-sub000/pkg/protocol"
	"github.com/FarhanAli04/multi-sub000/pkg/session"
	"github.com/FarhanAli04/multi-sub000/pkg/transport"
)

type Options struct {
	Logger   *slog.Logger
	Config   *config.Config
	Identity session.Provider
	History  view.HistoryService
	Dialer   conn.Dialer      // nil selects the websocket dialer
	OnState  func(conn.State) // optional UI notification hook
}

// Client assembles the realtime engine: connection manager, event
// dispatcher, conversation view and the presence/typing trackers. Each
// tracker owns a disjoint piece of state; the single transport handle is
// owned exclusively by the manager.
type Client struct {
	logger     *slog.Logger
	manager    *conn.Manager
	dispatcher *dispatch.Dispatcher
	view       *view.View
	presence   *track.PresenceTracker
	typing     *track.TypingTracker
	onState    func(conn.State)

	mu            sync.RWMutex
	sessionUserID string // server-confirmed id from connection_established
}

func New(opts Options) *Client {
	history := opts.History
	if history == nil {
		history = view.NoHistory{}
	}

	c := &Client{
		logger:  opts.Logger.With(slog.String("component", "chat_client")),
		onState: opts.OnState,
	}
	c.dispatcher = dispatch.New(opts.Logger)
	c.view = view.New(opts.Logger, history)
	c.presence = track.NewPresenceTracker(opts.Logger)
	c.manager = conn.NewManager(conn.Options{
		URL:      opts.Config.Server.URL,
		Identity: opts.Identity,
		Policy:   conn.NewPolicy(opts.Config.Reconnect),
		Transport: transport.Config{
			DialTimeout:  opts.Config.Transport.DialTimeout,
			ReadTimeout:  opts.Config.Transport.ReadTimeout,
			WriteTimeout: opts.Config.Transport.WriteTimeout,
		},
		Dialer:  opts.Dialer,
		OnFrame: func(frame []byte) { c.dispatcher.Dispatch(frame) },
		OnState: c.handleState,
		Logger:  opts.Logger,
	})
	c.typing = track.NewTypingTracker(opts.Logger, c.manager.Send, opts.Config.Typing.IdleTimeout)

	c.registerHandlers()
	return c
}

func (c *Client) registerHandlers() {
	c.dispatcher.Register(protocol.TypeConnectionEstablished, func(ev protocol.Event) {
		e := ev.(protocol.ConnectionEstablished)
		c.mu.Lock()
		c.sessionUserID = e.UserID
		c.mu.Unlock()
		c.logger.Info("session established", slog.String("userID", e.UserID))
	})
	c.dispatcher.Register(protocol.TypeMessage, func(ev protocol.Event) {
		c.view.OnMessage(ev.(protocol.MessageReceived))
	})
	c.dispatcher.Register(protocol.TypeTyping, func(ev protocol.Event) {
		c.typing.OnTyping(ev.(protocol.TypingChanged))
	})
	c.dispatcher.Register(protocol.TypeReadReceipt, func(ev protocol.Event) {
		c.view.OnReadReceipt(ev.(protocol.ReadReceipt))
	})
	c.dispatcher.Register(protocol.TypeUserStatus, func(ev protocol.Event) {
		c.presence.OnStatus(ev.(protocol.PresenceChanged))
	})
	c.dispatcher.Register(protocol.TypeError, func(ev protocol.Event) {
		e := ev.(protocol.ErrorEvent)
		c.logger.Warn("server reported error", slog.String("message", e.Message))
	})
}

func (c *Client) handleState(s conn.State) {
	if s == conn.StateOpen {
		// Ephemeral sets are per-connection; rebuild from scratch and let the
		// server rebroadcast. Then announce our own presence.
		c.presence.Reset()
		c.typing.Reset()
		c.manager.Send(protocol.NewSetPresence(true))
	}
	if c.onState != nil {
		c.onState(s)
	}
}

// Connect starts the connection lifecycle. Safe to call repeatedly.
func (c *Client) Connect() {
	c.manager.Connect()
}

// Disconnect announces going offline best-effort, then tears the connection
// down. Component teardown must call this so no retry loop outlives its UI.
func (c *Client) Disconnect() {
	c.manager.Send(protocol.NewSetPresence(false))
	c.manager.Disconnect()
}

func (c *Client) Connected() bool {
	return c.manager.Connected()
}

// Offline reports that automatic reconnects are exhausted.
func (c *Client) Offline() bool {
	return c.manager.Offline()
}

// SendMessage returns false when the connection is not open; the UI must
// keep send affordances blocked in that case.
func (c *Client) SendMessage(conversationID, content, messageType string) bool {
	if messageType == "" {
		messageType = "text"
	}
	ok := c.manager.Send(protocol.NewSendMessage(conversationID, content, messageType))
	if ok {
		c.typing.InputCleared(conversationID)
	}
	return ok
}

// MarkRead reports a message as read to the backend.
func (c *Client) MarkRead(messageID string) bool {
	return c.manager.Send(protocol.NewMarkRead(messageID))
}

// Keystroke records local typing in a conversation (debounced broadcast).
func (c *Client) Keystroke(conversationID string) {
	c.typing.Keystroke(conversationID)
}

// InputCleared ends the local typing burst immediately.
func (c *Client) InputCleared(conversationID string) {
	c.typing.InputCleared(conversationID)
}

func (c *Client) Refresh(ctx context.Context) error {
	return c.view.Refresh(ctx)
}

func (c *Client) Select(ctx context.Context, conversationID string) error {
	return c.view.Select(ctx, conversationID)
}

func (c *Client) Conversations() []view.Conversation {
	return c.view.Conversations()
}

func (c *Client) Transcript(conversationID string) []view.Message {
	return c.view.Transcript(conversationID)
}

func (c *Client) UnreadCount(conversationID string) int {
	return c.view.UnreadCount(conversationID)
}

func (c *Client) Online(userID string) bool {
	return c.presence.Online(userID)
}

func (c *Client) TypingIn(conversationID string) []string {
	return c.typing.TypingIn(conversationID)
}

// SessionUserID is the id the server confirmed on the current connection.
func (c *Client) SessionUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionUserID
}
