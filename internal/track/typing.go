package track

import (
	"log/slog"
	"sync"
	"time"

	"github.com/FarhanAli04/multi-sub000/pkg/protocol"
)

// SendFunc writes a command to the connection. It reports false when the
// connection is not open, in which case the signal is dropped, not queued;
// typing state is best-effort and ephemeral.
type SendFunc func(cmd protocol.Command) bool

// TypingTracker maintains per-conversation sets of remote users currently
// typing, and debounces the local user's own typing broadcast: one
// SetTyping(true) per continuous keystroke burst, one SetTyping(false) after
// the idle window or when the input empties.
type TypingTracker struct {
	logger *slog.Logger
	send   SendFunc
	idle   time.Duration

	mu             sync.Mutex
	byConversation map[string]map[string]struct{}
	burstConv      string // conversation of the current local burst, "" when idle
	burstTimer     *time.Timer
}

func NewTypingTracker(logger *slog.Logger, send SendFunc, idle time.Duration) *TypingTracker {
	return &TypingTracker{
		logger:         logger.With(slog.String("component", "typing_tracker")),
		send:           send,
		idle:           idle,
		byConversation: make(map[string]map[string]struct{}),
	}
}

// OnTyping folds in a remote typing event.
func (t *TypingTracker) OnTyping(ev protocol.TypingChanged) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.byConversation[ev.ConversationID]
	if !ok {
		if !ev.IsTyping {
			return
		}
		set = make(map[string]struct{})
		t.byConversation[ev.ConversationID] = set
	}
	if ev.IsTyping {
		set[ev.UserID] = struct{}{}
		return
	}
	delete(set, ev.UserID)
	if len(set) == 0 {
		delete(t.byConversation, ev.ConversationID)
	}
}

// IsTyping reports whether a remote user is typing in a conversation.
func (t *TypingTracker) IsTyping(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.byConversation[conversationID][userID]
	return ok
}

// TypingIn returns the user ids currently typing in a conversation.
func (t *TypingTracker) TypingIn(conversationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.byConversation[conversationID]))
	for id := range t.byConversation[conversationID] {
		out = append(out, id)
	}
	return out
}

// Keystroke records local typing activity. The first keystroke of a burst
// broadcasts SetTyping(true); every further keystroke only pushes the idle
// deadline. Switching conversations ends the previous burst first.
func (t *TypingTracker) Keystroke(conversationID string) {
	t.mu.Lock()
	if t.burstConv == conversationID && t.burstTimer != nil {
		t.burstTimer.Reset(t.idle)
		t.mu.Unlock()
		return
	}
	prev := t.burstConv
	if t.burstTimer != nil {
		t.burstTimer.Stop()
		t.burstTimer = nil
		t.burstConv = ""
	}
	t.mu.Unlock()

	if prev != "" {
		t.send(protocol.NewSetTyping(prev, false))
	}
	if !t.send(protocol.NewSetTyping(conversationID, true)) {
		// Connection not open; nothing went out, so no burst to close later.
		return
	}

	t.mu.Lock()
	t.burstConv = conversationID
	t.burstTimer = time.AfterFunc(t.idle, func() {
		t.endBurst(conversationID)
	})
	t.mu.Unlock()
}

// InputCleared ends the local burst immediately, e.g. when the compose box
// empties or the message is sent.
func (t *TypingTracker) InputCleared(conversationID string) {
	t.endBurst(conversationID)
}

func (t *TypingTracker) endBurst(conversationID string) {
	t.mu.Lock()
	if t.burstConv != conversationID {
		t.mu.Unlock()
		return
	}
	if t.burstTimer != nil {
		t.burstTimer.Stop()
	}
	t.burstTimer = nil
	t.burstConv = ""
	t.mu.Unlock()

	t.send(protocol.NewSetTyping(conversationID, false))
}

// Reset drops all remote typing state and abandons any local burst without
// broadcasting. Called on reconnect; the old connection is gone anyway.
func (t *TypingTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byConversation = make(map[string]map[string]struct{})
	if t.burstTimer != nil {
		t.burstTimer.Stop()
		t.burstTimer = nil
	}
	t.burstConv = ""
}
