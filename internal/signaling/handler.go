package signaling

import "encoding/json"

// MemberEvent describes a membership change in the joined room.
type MemberEvent struct {
	UserID    string
	Occupancy int
}

// RemoteSignal is a negotiation message relayed from the room's other
// occupant. The payload stays opaque until the call layer decodes it.
type RemoteSignal struct {
	From    string
	Payload json.RawMessage
}

// Handler routes incoming relay messages to typed channels.
type Handler struct {
	client *Client

	RoomJoined chan MemberEvent
	RoomFull   chan struct{}
	UserJoined chan MemberEvent
	UserLeft   chan MemberEvent

	Offer     chan *RemoteSignal
	Answer    chan *RemoteSignal
	Candidate chan *RemoteSignal

	Error chan string

	// Closed is closed when the relay connection goes away.
	Closed chan struct{}
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		RoomJoined: make(chan MemberEvent, 1),
		RoomFull:   make(chan struct{}, 1),
		UserJoined: make(chan MemberEvent, 1),
		UserLeft:   make(chan MemberEvent, 1),
		Offer:      make(chan *RemoteSignal, 1),
		Answer:     make(chan *RemoteSignal, 1),
		Candidate:  make(chan *RemoteSignal, 32),
		Error:      make(chan string, 1),
		Closed:     make(chan struct{}),
	}
}

// Start begins listening to incoming messages and routing them. It
// returns when the connection closes.
//
// Every send is non-blocking: the buffers cover everything the relay
// can have in flight at once, and once the consumer is gone the
// routing loop must still drain the connection to its end rather than
// stall on a full channel.
func (h *Handler) Start() {
	defer close(h.Closed)

	for msg := range h.client.Incoming() {
		switch msg.Type {

		case MessageTypeRoomJoined:
			deliver(h.RoomJoined, MemberEvent{UserID: msg.UserID, Occupancy: msg.Occupancy})

		case MessageTypeRoomFull:
			deliver(h.RoomFull, struct{}{})

		case MessageTypeUserJoined:
			deliver(h.UserJoined, MemberEvent{UserID: msg.UserID, Occupancy: msg.Occupancy})

		case MessageTypeUserLeft:
			deliver(h.UserLeft, MemberEvent{UserID: msg.UserID, Occupancy: msg.Occupancy})

		case MessageTypeOffer:
			deliver(h.Offer, &RemoteSignal{From: msg.From, Payload: msg.Payload})

		case MessageTypeAnswer:
			deliver(h.Answer, &RemoteSignal{From: msg.From, Payload: msg.Payload})

		case MessageTypeICECandidate:
			deliver(h.Candidate, &RemoteSignal{From: msg.From, Payload: msg.Payload})

		case MessageTypeError:
			h.handleError(msg)

		default:
		}
	}
}

// deliver queues an event without blocking; overflow is dropped.
func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// handleError parses the error payload and forwards its text.
func (h *Handler) handleError(msg *Message) {
	var errPayload ErrorPayload
	if err := json.Unmarshal(msg.Payload, &errPayload); err != nil || errPayload.Error == "" {
		deliver(h.Error, "unknown error from relay")
		return
	}
	deliver(h.Error, errPayload.Error)
}
