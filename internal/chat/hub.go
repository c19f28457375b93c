package chat

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// All instances share one redis channel; every published event carries its
// room so each hub can fan out to its own connections.
const busChannel = "socket-talk:events"

// SocketUser is one entry in the connected-users map. It is advisory only:
// conversation membership is always re-checked against the store, never
// against this map.
type SocketUser struct {
	Client       *Client
	Username     string
	ProfileImage *string
	LastSeen     time.Time
}

// Hub routes realtime events. Its maps are touched only by the Run
// goroutine, so they need no locking; everything else talks to the hub
// through channels or redis.
type Hub struct {
	clients map[*Client]bool

	// rooms maps conversation id -> connections currently joined.
	rooms map[int64]map[*Client]struct{}

	// connected holds at most one entry per user id. A newer connection
	// for the same user replaces the older entry.
	connected map[int64]*SocketUser

	Register   chan *Client
	Unregister chan *Client
	joinRoom   chan roomChange
	leaveRoom  chan roomChange
	broadcast  chan busEvent // from redis -> clients

	redis *redis.Client
}

type roomChange struct {
	client *Client
	room   int64
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[int64]map[*Client]struct{}),
		connected:  make(map[int64]*SocketUser),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		joinRoom:   make(chan roomChange),
		leaveRoom:  make(chan roomChange),
		broadcast:  make(chan busEvent, 64),
		redis:      redisClient,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.connected[client.UserID] = &SocketUser{
				Client:       client,
				Username:     client.Username,
				ProfileImage: client.ProfileImage,
				LastSeen:     time.Now(),
			}
			for _, room := range client.initialRooms {
				h.addToRoom(client, room)
			}

		case client := <-h.Unregister:
			h.removeClient(client)

		case change := <-h.joinRoom:
			if h.clients[change.client] {
				h.addToRoom(change.client, change.room)
			}

		case change := <-h.leaveRoom:
			h.removeFromRoom(change.client, change.room)

		case ev := <-h.broadcast:
			h.fanOut(ev)
		}
	}
}

// addToRoom is idempotent; joining an already-joined room is a no-op.
func (h *Hub) addToRoom(c *Client, room int64) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.joined[room] = struct{}{}
}

func (h *Hub) removeFromRoom(c *Client, room int64) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.joined, room)
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.joined {
		h.removeFromRoom(c, room)
	}
	// A replacement connection may already own the presence entry.
	if entry, ok := h.connected[c.UserID]; ok && entry.Client == c {
		delete(h.connected, c.UserID)
	}
	// Signal via done rather than closing Send: the connection goroutines
	// may still be writing error frames into Send.
	close(c.done)
}

func (h *Hub) fanOut(ev busEvent) {
	frame, err := json.Marshal(Envelope{Event: ev.Event, Data: ev.Data})
	if err != nil {
		log.Printf("hub: marshal %s event: %v", ev.Event, err)
		return
	}

	deliver := func(c *Client) {
		if ev.ExceptUserID != 0 && c.UserID == ev.ExceptUserID {
			return
		}
		select {
		case c.Send <- frame:
		default:
			// Slow consumer: drop the connection rather than block the hub.
			h.removeClient(c)
		}
	}

	if ev.Room == 0 {
		for c := range h.clients {
			deliver(c)
		}
		return
	}
	for c := range h.rooms[ev.Room] {
		deliver(c)
	}
}

// Publish puts an event on the shared redis channel. Room 0 targets every
// connected client; exceptUserID suppresses delivery to that user.
func (h *Hub) Publish(ctx context.Context, room, exceptUserID int64, event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("hub: marshal %s payload: %v", event, err)
		return
	}
	payload, err := json.Marshal(busEvent{
		Room:         room,
		ExceptUserID: exceptUserID,
		Event:        event,
		Data:         raw,
	})
	if err != nil {
		log.Printf("hub: marshal bus event: %v", err)
		return
	}
	if err := h.redis.Publish(ctx, busChannel, payload).Err(); err != nil {
		log.Printf("hub: redis publish %s: %v", event, err)
	}
}

// SubscribeToRedis listens for events from all instances (this one
// included) and hands them to the fan-out loop.
func (h *Hub) SubscribeToRedis() {
	pubsub := h.redis.Subscribe(context.Background(), busChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var ev busEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("hub: bad bus payload: %v", err)
			continue
		}
		h.broadcast <- ev
	}
}
