package relay

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ramu7700/secure-video-call/internal/signaling"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers fit with room
	// to spare.
	maxMessageSize = 64 * 1024
)

// Client is a wrapper for a single websocket connection (one occupant).
type Client struct {
	// Hub is the hub that routes this client's messages.
	Hub *Hub

	// Conn is the websocket connection.
	Conn *websocket.Conn

	// ID is the server-assigned occupant identifier.
	ID string

	// Room is the room this client currently occupies, "" if none.
	// Only touched from the client's read goroutine.
	Room string

	// Send is the buffered channel of outbound messages, drained by
	// WritePump.
	Send chan *signaling.Message

	mu     sync.Mutex
	closed bool
}

// trySend queues a message for delivery without blocking. Messages to a
// client whose buffer is full or whose connection is gone are dropped;
// a stalled occupant must not block membership changes in its room.
func (c *Client) trySend(msg *signaling.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- msg:
	default:
		log.Printf("dropping message to slow client %s", c.ID)
	}
}

// markClosed stops further sends. The hub closes the Send channel
// afterwards, once no sender can race it.
func (c *Client) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// One ReadPump goroutine runs per connection, and all reads happen on
// it. Hub handlers are invoked inline, so one client's messages are
// processed in arrival order.
func (c *Client) ReadPump() {
	defer func() {
		c.markClosed()
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg signaling.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("read error from %s: %v", c.ID, err)
			}
			break
		}

		c.Hub.handleMessage(c, &msg)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// One WritePump goroutine runs per connection, and all writes happen on
// it.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				log.Printf("write error to %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
