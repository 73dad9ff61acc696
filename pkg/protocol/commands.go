package protocol

// Command is an outbound frame. Commands must only be written while the
// connection is open; the connection manager enforces that.
type Command interface {
	CommandType() string
}

type SendMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	MessageType    string `json:"message_type"`
}

func (SendMessage) CommandType() string { return TypeMessage }

type SetTyping struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

func (SetTyping) CommandType() string { return TypeTyping }

type MarkRead struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
}

func (MarkRead) CommandType() string { return TypeReadReceipt }

type SetPresence struct {
	Type     string `json:"type"`
	IsOnline bool   `json:"is_online"`
}

func (SetPresence) CommandType() string { return TypeUserStatus }

// Constructors fill in the type discriminator so callers cannot produce a
// frame the server would reject.

func NewSendMessage(conversationID, content, messageType string) SendMessage {
	return SendMessage{Type: TypeMessage, ConversationID: conversationID, Content: content, MessageType: messageType}
}

func NewSetTyping(conversationID string, isTyping bool) SetTyping {
	return SetTyping{Type: TypeTyping, ConversationID: conversationID, IsTyping: isTyping}
}

func NewMarkRead(messageID string) MarkRead {
	return MarkRead{Type: TypeReadReceipt, MessageID: messageID}
}

func NewSetPresence(isOnline bool) SetPresence {
	return SetPresence{Type: TypeUserStatus, IsOnline: isOnline}
}
