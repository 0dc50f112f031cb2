package relay

import (
	"encoding/json"
	"testing"

	"github.com/ramu7700/secure-video-call/internal/signaling"
)

// newTestClient registers a client with the hub without a websocket
// connection; hub handlers never touch the connection directly.
func newTestClient(h *Hub, id string) *Client {
	c := &Client{
		Hub:  h,
		ID:   id,
		Send: make(chan *signaling.Message, 16),
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	return c
}

func recvMessage(t *testing.T, c *Client) *signaling.Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	default:
		t.Fatalf("client %s: no message queued", c.ID)
		return nil
	}
}

func expectNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("client %s: unexpected %q message", c.ID, msg.Type)
	default:
	}
}

func TestHubJoinNotifications(t *testing.T) {
	h := NewHub()
	x := newTestClient(h, "x")
	y := newTestClient(h, "y")
	z := newTestClient(h, "z")

	// First arrival: only the joiner hears about it.
	h.handleJoin(x, "1111111111")
	msg := recvMessage(t, x)
	if msg.Type != signaling.MessageTypeRoomJoined || msg.Occupancy != 1 {
		t.Fatalf("first join notification = %+v", msg)
	}
	expectNoMessage(t, y)

	// Second arrival: joiner gets roomJoined(2), the first occupant
	// gets userJoined(2) naming the newcomer.
	h.handleJoin(y, "1111111111")
	msg = recvMessage(t, y)
	if msg.Type != signaling.MessageTypeRoomJoined || msg.Occupancy != 2 {
		t.Fatalf("second join notification = %+v", msg)
	}
	msg = recvMessage(t, x)
	if msg.Type != signaling.MessageTypeUserJoined || msg.UserID != "y" || msg.Occupancy != 2 {
		t.Fatalf("peer notification = %+v", msg)
	}

	// Third arrival: rejected, nobody else hears about it.
	h.handleJoin(z, "1111111111")
	msg = recvMessage(t, z)
	if msg.Type != signaling.MessageTypeRoomFull {
		t.Fatalf("rejection notification = %+v", msg)
	}
	if z.Room != "" {
		t.Error("rejected client retained a room association")
	}
	expectNoMessage(t, x)
	expectNoMessage(t, y)
}

func TestHubLeaveNotifications(t *testing.T) {
	h := NewHub()
	x := newTestClient(h, "x")
	y := newTestClient(h, "y")

	h.handleJoin(x, "1111111111")
	h.handleJoin(y, "1111111111")
	recvMessage(t, x) // roomJoined
	recvMessage(t, x) // userJoined
	recvMessage(t, y) // roomJoined

	h.handleLeave(x)
	msg := recvMessage(t, y)
	if msg.Type != signaling.MessageTypeUserLeft || msg.UserID != "x" || msg.Occupancy != 1 {
		t.Fatalf("leave notification = %+v", msg)
	}
	if h.registry.Occupancy("1111111111") != 1 {
		t.Error("room not kept for remaining occupant")
	}

	// Last occupant leaving destroys the room, with nobody to notify.
	h.handleLeave(y)
	expectNoMessage(t, y)
	if h.registry.RoomCount() != 0 {
		t.Error("empty room not destroyed")
	}
}

func TestHubDisconnectActsAsLeave(t *testing.T) {
	h := NewHub()
	x := newTestClient(h, "x")
	y := newTestClient(h, "y")

	h.handleJoin(x, "1111111111")
	h.handleJoin(y, "1111111111")
	recvMessage(t, x)
	recvMessage(t, x)
	recvMessage(t, y)

	x.markClosed()
	h.unregister(x)

	msg := recvMessage(t, y)
	if msg.Type != signaling.MessageTypeUserLeft || msg.UserID != "x" {
		t.Fatalf("disconnect notification = %+v", msg)
	}
	if h.registry.Occupancy("1111111111") != 1 {
		t.Error("dead connection retained its room slot")
	}
}

func TestHubRelaysSignalsVerbatim(t *testing.T) {
	h := NewHub()
	x := newTestClient(h, "x")
	y := newTestClient(h, "y")

	h.handleJoin(x, "1111111111")
	h.handleJoin(y, "1111111111")
	recvMessage(t, x)
	recvMessage(t, x)
	recvMessage(t, y)

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0 opaque-to-the-relay"}`)
	h.handleSignal(y, &signaling.Message{
		Type:    signaling.MessageTypeOffer,
		Payload: payload,
	})

	msg := recvMessage(t, x)
	if msg.Type != signaling.MessageTypeOffer || msg.From != "y" {
		t.Fatalf("relayed message = %+v", msg)
	}
	if string(msg.Payload) != string(payload) {
		t.Errorf("payload altered in transit: %s", msg.Payload)
	}

	// Never echoed back to the sender.
	expectNoMessage(t, y)
}

func TestHubSignalOutsideRoomRejected(t *testing.T) {
	h := NewHub()
	x := newTestClient(h, "x")

	h.handleSignal(x, &signaling.Message{
		Type:    signaling.MessageTypeICECandidate,
		Payload: json.RawMessage(`{}`),
	})

	msg := recvMessage(t, x)
	if msg.Type != signaling.MessageTypeError {
		t.Fatalf("got %q, want error", msg.Type)
	}
}

func TestHubSignalNotDeliveredAcrossRooms(t *testing.T) {
	h := NewHub()
	x := newTestClient(h, "x")
	y := newTestClient(h, "y")

	h.handleJoin(x, "1111111111")
	h.handleJoin(y, "2222222222")
	recvMessage(t, x)
	recvMessage(t, y)

	h.handleSignal(x, &signaling.Message{
		Type:    signaling.MessageTypeOffer,
		Payload: json.RawMessage(`{}`),
	})

	expectNoMessage(t, y)
}
