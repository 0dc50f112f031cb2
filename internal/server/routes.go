package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ramu7700/secure-video-call/internal/relay"
	"github.com/ramu7700/secure-video-call/internal/signaling"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// The relay never sees media and the room name is the only
	// admission check, so cross-origin websocket upgrades are allowed.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns an http.HandlerFunc that upgrades the request to a
// websocket and hands the connection to the hub.
func ServeWs(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("failed to upgrade connection:", err)
			return
		}

		client := &relay.Client{
			Hub:  hub,
			Conn: conn,
			ID:   uuid.NewString(),
			Send: make(chan *signaling.Message, 256),
		}

		hub.Attach(client)

		go client.WritePump()
		go client.ReadPump()
	}
}

// HealthHandler reports process liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling relay is healthy."))
}

// Stats is the minimal operational status surface of the relay.
type Stats struct {
	Rooms int `json:"rooms"`
}

// StatsHandler returns the current room count as JSON.
func StatsHandler(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Stats{
			Rooms: hub.Registry().RoomCount(),
		})
	}
}
