package view

import (
	"context"
	"time"
)

// Conversation is the client-side projection of one two-party thread,
// combining REST-fetched metadata with live updates.
type Conversation struct {
	ID            string
	OtherUserID   string
	OtherUserName string
	LastMessage   string
	LastMessageAt time.Time
	UnreadCount   int
}

// Message is one transcript entry. Append-only from the client's
// perspective.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	MessageType    string
	CreatedAt      time.Time
	IsRead         bool
	ReadAt         time.Time
}

// HistoryService is the REST collaborator. Fetch failures surface to the
// caller for an inline error state with manual retry; they are never retried
// automatically.
type HistoryService interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
}

// NoHistory is a HistoryService for contexts without a REST backend, such as
// the CLI probe.
type NoHistory struct{}

func (NoHistory) ListConversations(context.Context) ([]Conversation, error) {
	return nil, nil
}

func (NoHistory) ListMessages(context.Context, string) ([]Message, error) {
	return nil, nil
}
