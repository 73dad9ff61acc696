package track

import (
	"log/slog"
	"sync"

	"github.com/FarhanAli04/multi-sub000/pkg/protocol"
)

// ApplyPresence returns the online set after folding in one status event.
// The input set is never modified, which keeps the reducer trivially
// testable and membership snapshots stable while the UI iterates them.
func ApplyPresence(online map[string]struct{}, ev protocol.PresenceChanged) map[string]struct{} {
	next := make(map[string]struct{}, len(online)+1)
	for id := range online {
		next[id] = struct{}{}
	}
	if ev.IsOnline {
		next[ev.UserID] = struct{}{}
	} else {
		delete(next, ev.UserID)
	}
	return next
}

// PresenceTracker maintains the set of currently online user ids. The set is
// never persisted; it is rebuilt empty on every reconnect.
type PresenceTracker struct {
	logger *slog.Logger
	mu     sync.RWMutex
	online map[string]struct{}
}

func NewPresenceTracker(logger *slog.Logger) *PresenceTracker {
	return &PresenceTracker{
		logger: logger.With(slog.String("component", "presence_tracker")),
		online: make(map[string]struct{}),
	}
}

func (t *PresenceTracker) OnStatus(ev protocol.PresenceChanged) {
	t.mu.Lock()
	t.online = ApplyPresence(t.online, ev)
	t.mu.Unlock()
	t.logger.Debug("presence updated",
		slog.String("userID", ev.UserID), slog.Bool("online", ev.IsOnline))
}

func (t *PresenceTracker) Online(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[userID]
	return ok
}

func (t *PresenceTracker) OnlineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.online)
}

// Reset drops all membership. Called on reconnect; the server rebroadcasts.
func (t *PresenceTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.online = make(map[string]struct{})
}
