package chat

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum frame size allowed from peer.
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub     *Hub
	service *Service
	conn    *websocket.Conn

	// Buffered channel of outbound frames. Send is never closed: the
	// connection's own goroutines keep writing to it until they observe
	// done, so closing it would race them.
	Send chan []byte

	// done is closed by the hub loop when it drops the client; it tells
	// WritePump to shut the connection down.
	done chan struct{}

	UserID       int64
	Username     string
	ProfileImage *string

	// initialRooms are the user's conversations at connect time; the hub
	// joins them on register. joined is maintained by the hub loop only.
	initialRooms []int64
	joined       map[int64]struct{}
}

// ReadPump pumps frames from the websocket connection to the hub/service.
// Store access happens here, on the connection's own goroutine, never
// inside the hub loop.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
		c.teardown()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error (user %d): %v", c.UserID, err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			c.sendError("Malformed event")
			continue
		}
		c.handleEvent(&env)
	}
}

// teardown mirrors the connect side effects: mark the user offline in the
// store and tell everyone else.
func (c *Client) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.service.SetOffline(ctx, c.UserID); err != nil {
		log.Printf("mark offline (user %d): %v", c.UserID, err)
	}
	c.hub.Publish(ctx, 0, c.UserID, EventUserOffline, presencePayload{
		UserID:   c.UserID,
		Username: c.Username,
		IsOnline: false,
		LastSeen: time.Now(),
	})
}

func (c *Client) handleEvent(env *Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch env.Event {
	case EventJoinConversation:
		var p roomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == 0 {
			c.sendError("Malformed event")
			return
		}
		c.hub.joinRoom <- roomChange{client: c, room: p.ConversationID}

	case EventLeaveConversation:
		var p roomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == 0 {
			c.sendError("Malformed event")
			return
		}
		c.hub.leaveRoom <- roomChange{client: c, room: p.ConversationID}

	case EventSendMessage:
		var req SendMessageRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.sendError("Malformed event")
			return
		}
		if errs := req.Validate(); errs != nil {
			c.sendError("Invalid message")
			return
		}

		msg, err := c.service.SendMessage(ctx, c.UserID, &req)
		if err != nil {
			if err == ErrNotParticipant || err == ErrConversationNotFound {
				c.sendError("Conversation not found or access denied")
			} else {
				log.Printf("send message (user %d): %v", c.UserID, err)
				c.sendError("Failed to send message")
			}
			return
		}

		// Everyone in the room gets the canonical persisted record, the
		// sender included.
		c.hub.Publish(ctx, req.ConversationID, 0, EventNewMessage,
			map[string]*Message{"message": msg})

	case EventTypingStart:
		var p roomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == 0 {
			return
		}
		c.hub.Publish(ctx, p.ConversationID, c.UserID, EventUserTyping, c.typingEvent(p.ConversationID))

	case EventTypingStop:
		var p roomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == 0 {
			return
		}
		c.hub.Publish(ctx, p.ConversationID, c.UserID, EventUserStoppedTyping, c.typingEvent(p.ConversationID))

	case EventMarkMessagesRead:
		var p markReadPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == 0 || len(p.MessageIDs) == 0 {
			return
		}
		if err := c.service.MarkMessagesRead(ctx, c.UserID, p.ConversationID, p.MessageIDs); err != nil {
			log.Printf("mark messages read (user %d): %v", c.UserID, err)
			return
		}
		c.hub.Publish(ctx, p.ConversationID, c.UserID, EventMessagesRead, messagesReadPayload{
			UserID:         c.UserID,
			Username:       c.Username,
			ConversationID: p.ConversationID,
			MessageIDs:     p.MessageIDs,
		})

	default:
		c.sendError("Unknown event")
	}
}

// typingEvent carries the same fields for typing_start and typing_stop so
// clients can attribute both without a lookup.
func (c *Client) typingEvent(conversationID int64) typingPayload {
	return typingPayload{
		UserID:         c.UserID,
		Username:       c.Username,
		ConversationID: conversationID,
	}
}

// sendError emits a scoped error event to this connection only.
func (c *Client) sendError(msg string) {
	frame, err := newEnvelope(EventError, errorPayload{Message: msg})
	if err != nil {
		return
	}
	select {
	case c.Send <- frame:
	default:
	}
}

// WritePump pumps frames from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// The hub dropped us.
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
