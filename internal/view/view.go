package view

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/FarhanAli04/multi-sub000/pkg/protocol"
)

// View reconciles pull (REST snapshots) and push (stream events) data into
// the conversation list and transcripts the UI renders.
type View struct {
	logger  *slog.Logger
	history HistoryService

	mu            sync.RWMutex
	conversations map[string]*Conversation
	transcripts   map[string][]Message
	selected      string
	epoch         int // bumped per Refresh; late snapshots are discarded
}

func New(logger *slog.Logger, history HistoryService) *View {
	return &View{
		logger:        logger.With(slog.String("component", "conversation_view")),
		history:       history,
		conversations: make(map[string]*Conversation),
		transcripts:   make(map[string][]Message),
	}
}

// Refresh pulls the conversation list from the REST collaborator and merges
// it into local state. The error is returned for an inline UI state; nothing
// retries automatically.
func (v *View) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.epoch++
	epoch := v.epoch
	v.mu.Unlock()

	snapshot, err := v.history.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if epoch != v.epoch {
		v.logger.Debug("discarding stale conversation snapshot", slog.Int("epoch", epoch))
		return nil
	}
	v.conversations = MergeSnapshot(v.conversations, snapshot)
	return nil
}

// Select makes a conversation current, optimistically zeroes its unread
// count and pulls its history. A response arriving after the user moved on
// is discarded.
func (v *View) Select(ctx context.Context, conversationID string) error {
	v.mu.Lock()
	v.selected = conversationID
	if c, ok := v.conversations[conversationID]; ok {
		c.UnreadCount = 0
	}
	v.mu.Unlock()

	messages, err := v.history.ListMessages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to load history for conversation %s: %w", conversationID, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected != conversationID {
		v.logger.Debug("discarding history for deselected conversation",
			slog.String("conversationID", conversationID))
		return nil
	}
	v.transcripts[conversationID] = messages
	return nil
}

// OnMessage folds one pushed message into the projection. Messages for the
// selected conversation land in the visible transcript with the unread count
// untouched; any other conversation gets its unread count bumped.
func (v *View) OnMessage(ev protocol.MessageReceived) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.conversations[ev.ConversationID]
	if !ok {
		// A thread the last snapshot has not seen yet.
		c = &Conversation{ID: ev.ConversationID, OtherUserID: ev.SenderID}
		v.conversations[ev.ConversationID] = c
	}
	c.LastMessage = ev.Content
	c.LastMessageAt = ev.CreatedAt
	if v.selected != ev.ConversationID {
		c.UnreadCount++
	}

	if _, loaded := v.transcripts[ev.ConversationID]; loaded || v.selected == ev.ConversationID {
		v.transcripts[ev.ConversationID] = append(v.transcripts[ev.ConversationID], Message{
			ID:             ev.ID,
			ConversationID: ev.ConversationID,
			SenderID:       ev.SenderID,
			Content:        ev.Content,
			MessageType:    ev.MessageType,
			CreatedAt:      ev.CreatedAt,
		})
	}
}

// OnReadReceipt marks the matching loaded message as read. Receipts for
// messages that are not loaded are a no-op; there is no backfill.
func (v *View) OnReadReceipt(ev protocol.ReadReceipt) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for conversationID, transcript := range v.transcripts {
		for i := range transcript {
			if transcript[i].ID == ev.MessageID {
				transcript[i].IsRead = true
				transcript[i].ReadAt = ev.ReadAt
				v.transcripts[conversationID] = transcript
				return
			}
		}
	}
}

// Transcript returns the conversation's messages ordered for rendering:
// by creation time, message id as tiebreak. Storage order stays arrival
// order; the transport is not trusted to deliver in order.
func (v *View) Transcript(conversationID string) []Message {
	v.mu.RLock()
	transcript := v.transcripts[conversationID]
	out := make([]Message, len(transcript))
	copy(out, transcript)
	v.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Conversations returns the list ordered by recency for the sidebar.
func (v *View) Conversations() []Conversation {
	v.mu.RLock()
	out := make([]Conversation, 0, len(v.conversations))
	for _, c := range v.conversations {
		out = append(out, *c)
	}
	v.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *View) Selected() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selected
}

func (v *View) UnreadCount(conversationID string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if c, ok := v.conversations[conversationID]; ok {
		return c.UnreadCount
	}
	return 0
}
