package relay

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/ramu7700/secure-video-call/internal/signaling"
)

// Hub ties websocket clients to the room registry and relays
// negotiation messages between the two occupants of a room.
//
// Unlike the registry, the hub never looks inside a negotiation
// payload: offers, answers and ICE candidates are forwarded byte for
// byte to the other occupant, and to nobody else.
type Hub struct {
	registry *Registry

	mu      sync.Mutex
	clients map[string]*Client // occupant ID -> connection
}

// NewHub creates a hub backed by a fresh registry.
func NewHub() *Hub {
	return &Hub{
		registry: NewRegistry(),
		clients:  make(map[string]*Client),
	}
}

// Registry exposes the room registry for the stats endpoint.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Attach makes a newly connected client addressable by its ID.
func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	log.Printf("client connected: %s (%s)", c.ID, c.Conn.RemoteAddr())
}

// unregister handles a dropped connection. A disconnect with an active
// room association behaves exactly like an explicit leave: membership
// is released immediately so the slot is never retained by a dead
// connection.
func (h *Hub) unregister(c *Client) {
	h.handleLeave(c)

	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()

	close(c.Send)
	log.Printf("client disconnected: %s", c.ID)
}

func (h *Hub) lookup(id string) (*Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	return c, ok
}

// handleMessage dispatches one client message. It runs on the client's
// read goroutine; per-room serialization comes from the registry's
// per-room locks, so rooms do not contend with each other.
func (h *Hub) handleMessage(c *Client, msg *signaling.Message) {
	switch {
	case msg.Type == signaling.MessageTypeJoinRoom:
		h.handleJoin(c, msg.Room)

	case msg.Type == signaling.MessageTypeLeaveRoom:
		h.handleLeave(c)

	case signaling.IsNegotiation(msg.Type):
		h.handleSignal(c, msg)

	default:
		log.Printf("unknown message type %q from %s", msg.Type, c.ID)
	}
}

// handleJoin runs the join protocol:
//   - occupancy 1: only the joiner is told (no peer yet).
//   - occupancy 2: the joiner is told, and the pre-existing occupant is
//     separately told a peer arrived. The joiner, being the second
//     arrival, is the one that initiates negotiation.
//   - full room: only the joiner is told; nothing changes.
func (h *Hub) handleJoin(c *Client, roomID string) {
	if roomID == "" {
		c.sendError("room name required")
		return
	}
	if c.Room != "" && c.Room != roomID {
		// One room per connection. Moving rooms means leaving first.
		h.handleLeave(c)
	}

	res := h.registry.Join(roomID, c.ID)
	if !res.Accepted {
		log.Printf("join rejected (room full): %s", c.ID)
		c.trySend(&signaling.Message{Type: signaling.MessageTypeRoomFull})
		return
	}

	c.Room = roomID
	log.Printf("client %s joined a room (occupancy %d)", c.ID, res.Occupancy)

	c.trySend(&signaling.Message{
		Type:      signaling.MessageTypeRoomJoined,
		UserID:    c.ID,
		Occupancy: res.Occupancy,
	})

	for _, peerID := range res.Peers {
		if peer, ok := h.lookup(peerID); ok {
			peer.trySend(&signaling.Message{
				Type:      signaling.MessageTypeUserJoined,
				UserID:    c.ID,
				Occupancy: res.Occupancy,
			})
		}
	}
}

// handleLeave releases the client's room membership and notifies the
// remaining occupant, if any. Safe to call with no association.
func (h *Hub) handleLeave(c *Client) {
	roomID := c.Room
	if roomID == "" {
		return
	}
	c.Room = ""

	occupancy := h.registry.Leave(roomID, c.ID)
	if occupancy == 0 {
		log.Printf("room emptied and removed")
		return
	}

	for _, peerID := range h.registry.Occupants(roomID) {
		if peer, ok := h.lookup(peerID); ok {
			peer.trySend(&signaling.Message{
				Type:      signaling.MessageTypeUserLeft,
				UserID:    c.ID,
				Occupancy: occupancy,
			})
		}
	}
}

// handleSignal forwards a negotiation message to the other occupant of
// the sender's room. The payload is not inspected.
func (h *Hub) handleSignal(c *Client, msg *signaling.Message) {
	if c.Room == "" {
		c.sendError("join a room before signaling")
		return
	}

	out := &signaling.Message{
		Type:    msg.Type,
		From:    c.ID,
		Payload: msg.Payload,
	}

	for _, peerID := range h.registry.Occupants(c.Room) {
		if peerID == c.ID {
			continue
		}
		if peer, ok := h.lookup(peerID); ok {
			peer.trySend(out)
		}
	}
}

func (c *Client) sendError(text string) {
	payload, _ := json.Marshal(signaling.ErrorPayload{Error: text})
	c.trySend(&signaling.Message{
		Type:    signaling.MessageTypeError,
		Payload: payload,
	})
}
