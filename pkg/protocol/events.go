package protocol

import "time"

// Frame type discriminators. The server and client reuse the same names for
// the pairs that flow both ways (message, typing, read_receipt, user_status).
const (
	TypeConnectionEstablished = "connection_established"
	TypeMessage               = "message"
	TypeTyping                = "typing"
	TypeReadReceipt           = "read_receipt"
	TypeUserStatus            = "user_status"
	TypeError                 = "error"
)

// Event is an inbound frame decoded into its concrete type.
type Event interface {
	EventType() string
}

// ConnectionEstablished is the first frame after a successful handshake.
type ConnectionEstablished struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

func (ConnectionEstablished) EventType() string { return TypeConnectionEstablished }

// MessageReceived carries one chat message pushed by the server.
type MessageReceived struct {
	Type           string    `json:"type"`
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	CreatedAt      time.Time `json:"created_at"`
}

func (MessageReceived) EventType() string { return TypeMessage }

// TypingChanged signals that a remote user started or stopped composing.
type TypingChanged struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	IsTyping       bool   `json:"is_typing"`
}

func (TypingChanged) EventType() string { return TypeTyping }

// ReadReceipt marks a previously sent message as read by the other party.
type ReadReceipt struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id"`
	ReadAt    time.Time `json:"read_at"`
}

func (ReadReceipt) EventType() string { return TypeReadReceipt }

// PresenceChanged reports a user going online or offline.
type PresenceChanged struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

func (PresenceChanged) EventType() string { return TypeUserStatus }

// ErrorEvent is a server-side failure surfaced over the stream.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (ErrorEvent) EventType() string { return TypeError }
