package chat

import (
	"encoding/json"
	"time"
)

// Client -> server events.
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventMarkMessagesRead  = "mark_messages_read"
)

// Server -> client events.
const (
	EventNewMessage        = "new_message"
	EventUserOnline        = "user_online"
	EventUserOffline       = "user_offline"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventMessagesRead      = "messages_read"
	EventError             = "error"
)

// Envelope is the frame exchanged over the websocket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func newEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// ---- inbound payloads ----

type roomPayload struct {
	ConversationID int64 `json:"conversationId"`
}

type markReadPayload struct {
	ConversationID int64   `json:"conversationId"`
	MessageIDs     []int64 `json:"messageIds"`
}

// ---- outbound payloads ----

type presencePayload struct {
	UserID   int64     `json:"userId"`
	Username string    `json:"username"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

type typingPayload struct {
	UserID         int64  `json:"userId"`
	Username       string `json:"username"`
	ConversationID int64  `json:"conversationId"`
}

type messagesReadPayload struct {
	UserID         int64   `json:"userId"`
	Username       string  `json:"username"`
	ConversationID int64   `json:"conversationId"`
	MessageIDs     []int64 `json:"messageIds"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// busEvent is what travels over the redis channel between instances. A zero
// Room means "every connected client"; ExceptUserID suppresses echo to the
// originating user.
type busEvent struct {
	Room         int64           `json:"room"`
	ExceptUserID int64           `json:"except,omitempty"`
	Event        string          `json:"event"`
	Data         json.RawMessage `json:"data"`
}
