package signaling

import "encoding/json"

// Message is the single wire format for all websocket traffic between a
// peer and the relay, in both directions. Negotiation payloads (SDP and
// ICE candidates) stay json.RawMessage end to end: the relay forwards
// them without ever decoding them.
type Message struct {
	Type      string          `json:"type"`
	Room      string          `json:"room,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	From      string          `json:"from,omitempty"`
	Occupancy int             `json:"occupancy,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Client-to-server message types.
const (
	MessageTypeJoinRoom  = "join-room"
	MessageTypeLeaveRoom = "leave-room"
)

// Negotiation message types, relayed verbatim between the two occupants
// of a room.
const (
	MessageTypeOffer        = "offer"
	MessageTypeAnswer       = "answer"
	MessageTypeICECandidate = "ice-candidate"
)

// Server-to-client membership notifications.
const (
	MessageTypeRoomJoined = "roomJoined"
	MessageTypeRoomFull   = "roomFull"
	MessageTypeUserJoined = "userJoined"
	MessageTypeUserLeft   = "userLeft"
	MessageTypeError      = "error"
)

// IsNegotiation reports whether t is one of the relayed negotiation
// message types.
func IsNegotiation(t string) bool {
	switch t {
	case MessageTypeOffer, MessageTypeAnswer, MessageTypeICECandidate:
		return true
	}
	return false
}

// ErrorPayload carries an error description from the relay.
type ErrorPayload struct {
	Error string `json:"error"`
}
