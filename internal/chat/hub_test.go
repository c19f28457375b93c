package chat

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(userID int64, username string) *Client {
	return &Client{
		Send:     make(chan []byte, 8),
		done:     make(chan struct{}),
		UserID:   userID,
		Username: username,
		joined:   make(map[int64]struct{}),
	}
}

func registerDirect(h *Hub, c *Client) {
	h.clients[c] = true
	h.connected[c.UserID] = &SocketUser{Client: c, Username: c.Username, LastSeen: time.Now()}
	for _, room := range c.initialRooms {
		h.addToRoom(c, room)
	}
}

func readFrame(t *testing.T, c *Client) *Envelope {
	t.Helper()
	select {
	case frame := <-c.Send:
		env := &Envelope{}
		if err := json.Unmarshal(frame, env); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return env
	default:
		t.Fatal("expected a frame, got none")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.Send:
		t.Fatalf("unexpected frame: %s", frame)
	default:
	}
}

func TestAddToRoomIdempotent(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient(1, "alice")
	registerDirect(h, c)

	h.addToRoom(c, 7)
	h.addToRoom(c, 7)

	if got := len(h.rooms[7]); got != 1 {
		t.Fatalf("room membership = %d, want 1", got)
	}
	if _, ok := c.joined[7]; !ok {
		t.Fatal("client joined set missing room 7")
	}
}

func TestFanOutRoomScopedWithSenderExclusion(t *testing.T) {
	h := NewHub(nil)
	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	carol := newTestClient(3, "carol")
	for _, c := range []*Client{alice, bob, carol} {
		registerDirect(h, c)
	}
	h.addToRoom(alice, 7)
	h.addToRoom(bob, 7)
	// carol is connected but not in room 7.

	data, _ := json.Marshal(typingPayload{UserID: 1, Username: "alice", ConversationID: 7})
	h.fanOut(busEvent{Room: 7, ExceptUserID: 1, Event: EventUserTyping, Data: data})

	env := readFrame(t, bob)
	if env.Event != EventUserTyping {
		t.Fatalf("event = %q, want %q", env.Event, EventUserTyping)
	}
	assertNoFrame(t, alice)
	assertNoFrame(t, carol)
}

func TestFanOutAllClientsIncludesSenderWhenNotExcluded(t *testing.T) {
	h := NewHub(nil)
	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	registerDirect(h, alice)
	registerDirect(h, bob)
	h.addToRoom(alice, 7)
	h.addToRoom(bob, 7)

	data, _ := json.Marshal(map[string]string{"hello": "world"})
	h.fanOut(busEvent{Room: 7, ExceptUserID: 0, Event: EventNewMessage, Data: data})

	if env := readFrame(t, alice); env.Event != EventNewMessage {
		t.Fatalf("event = %q, want %q", env.Event, EventNewMessage)
	}
	readFrame(t, bob)
}

func TestFanOutDropsSlowConsumer(t *testing.T) {
	h := NewHub(nil)
	slow := newTestClient(1, "alice")
	slow.Send = make(chan []byte) // unbuffered and never read
	registerDirect(h, slow)
	h.addToRoom(slow, 7)

	data, _ := json.Marshal(map[string]string{})
	h.fanOut(busEvent{Room: 7, Event: EventNewMessage, Data: data})

	if h.clients[slow] {
		t.Fatal("slow consumer still registered")
	}
	if _, ok := h.rooms[7]; ok {
		t.Fatal("empty room not pruned")
	}
	if _, ok := h.connected[1]; ok {
		t.Fatal("presence entry not cleared")
	}
}

func TestDroppedClientSurvivesLateErrorFrame(t *testing.T) {
	h := NewHub(nil)
	slow := newTestClient(1, "alice")
	slow.Send = make(chan []byte) // unbuffered and never read
	registerDirect(h, slow)
	h.addToRoom(slow, 7)

	data, _ := json.Marshal(map[string]string{})
	h.fanOut(busEvent{Room: 7, Event: EventNewMessage, Data: data})

	select {
	case <-slow.done:
	default:
		t.Fatal("dropped client not signalled via done")
	}

	// The connection's read goroutine may still emit an error frame after
	// the hub dropped the client; that must never panic the process.
	slow.sendError("Conversation not found or access denied")
}

func TestRemoveClientKeepsReplacementPresence(t *testing.T) {
	h := NewHub(nil)
	old := newTestClient(1, "alice")
	registerDirect(h, old)

	// A second connection for the same user replaces the presence entry.
	replacement := newTestClient(1, "alice")
	registerDirect(h, replacement)

	h.removeClient(old)

	entry, ok := h.connected[1]
	if !ok {
		t.Fatal("presence entry removed along with the stale connection")
	}
	if entry.Client != replacement {
		t.Fatal("presence entry does not point at the replacement connection")
	}
	if !h.clients[replacement] {
		t.Fatal("replacement connection dropped")
	}
}

func TestTypingEventCarriesUsername(t *testing.T) {
	c := newTestClient(1, "alice")

	p := c.typingEvent(7)
	if p.Username != "alice" || p.UserID != 1 || p.ConversationID != 7 {
		t.Fatalf("payload = %+v", p)
	}

	// Both typing events ship the same payload shape; username must not be
	// dropped during encoding.
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["username"] != "alice" {
		t.Fatalf("encoded payload missing username: %s", raw)
	}
}

func TestRemoveClientCleansRooms(t *testing.T) {
	h := NewHub(nil)
	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	registerDirect(h, alice)
	registerDirect(h, bob)
	h.addToRoom(alice, 7)
	h.addToRoom(bob, 7)
	h.addToRoom(alice, 9)

	h.removeClient(alice)

	if _, ok := h.rooms[7][alice]; ok {
		t.Fatal("removed client still in room 7")
	}
	if _, ok := h.rooms[9]; ok {
		t.Fatal("empty room 9 not pruned")
	}
	if _, ok := h.rooms[7][bob]; !ok {
		t.Fatal("unrelated member evicted")
	}
}
