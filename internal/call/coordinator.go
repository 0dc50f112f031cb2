package call

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/ramu7700/secure-video-call/internal/config"
	"github.com/ramu7700/secure-video-call/internal/crypto"
	"github.com/ramu7700/secure-video-call/internal/signaling"
)

// State is the coordinator's position in the call lifecycle.
type State int

const (
	// StateIdle: no call. Key material, capture and transport are all
	// released.
	StateIdle State = iota

	// StateConnecting: key derived, capture open, join submitted,
	// waiting for the relay's verdict.
	StateConnecting

	// StateWaiting: alone in the room, waiting for the other party.
	StateWaiting

	// StateInCall: negotiation started or completed; media may flow.
	StateInCall
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateWaiting:
		return "waiting"
	case StateInCall:
		return "in-call"
	default:
		return "unknown"
	}
}

// Role is a party's position in call negotiation.
type Role int

const (
	// RoleResponder arrived first and waits for the offer.
	RoleResponder Role = iota

	// RoleInitiator arrived second and sends the offer.
	RoleInitiator
)

// decideRole applies the tie-break rule to a roomJoined notification:
// the occupant whose own join raised occupancy to two initiates the
// negotiation. The rule is easy to invert by accident, so it lives in
// one place and is unit-tested.
func decideRole(occupancyAfterOwnJoin int) Role {
	if occupancyAfterOwnJoin == RoomCapacity {
		return RoleInitiator
	}
	return RoleResponder
}

// RoomCapacity mirrors the relay's two-party cap.
const RoomCapacity = 2

// Event reports a state transition to the UI.
type Event struct {
	State  State
	Reason string
}

// Coordinator drives one call end to end: it validates the PIN,
// derives the key, arms the frame ciphers, joins the room through the
// relay and runs the negotiation state machine until the call ends.
//
// The key and both ciphers exist only between Run starting a call and
// the teardown that ends it; the next call re-derives everything.
type Coordinator struct {
	cfg  *config.Config
	sink FrameSink

	mu     sync.Mutex
	state  State
	tx     *crypto.FrameCipher
	rx     *crypto.FrameCipher
	peer   *Peer
	selfID string

	// Final counters of the last call, kept after the ciphers are
	// discarded so the summary can still be rendered.
	lastTx crypto.FrameStats
	lastRx crypto.FrameStats

	// hangup is re-armed for every call so the coordinator stays
	// reusable: hanging up one call must not end the next.
	hangup chan struct{}
	hungup bool

	events chan Event
}

// NewCoordinator creates an idle coordinator. Decrypted remote frames
// are delivered to sink.
func NewCoordinator(cfg *config.Config, sink FrameSink) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		sink:   sink,
		state:  StateIdle,
		events: make(chan Event, 8),
	}
}

// Events returns state transition notifications for the UI.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns the frame counters of both cipher directions. After a
// call ends the final counters remain readable until the next call.
func (c *Coordinator) Stats() (tx, rx crypto.FrameStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil || c.rx == nil {
		return c.lastTx, c.lastRx
	}
	return c.tx.Stats(), c.rx.Stats()
}

// Hangup ends the current call from the local side. Safe to call at
// any time, from any goroutine; outside a call it does nothing.
func (c *Coordinator) Hangup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hangup == nil || c.hungup {
		return
	}
	c.hungup = true
	close(c.hangup)
}

// armHangup installs a fresh hang-up channel for the next call.
func (c *Coordinator) armHangup() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hangup = make(chan struct{})
	c.hungup = false
	return c.hangup
}

func (c *Coordinator) setState(s State, reason string) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	select {
	case c.events <- Event{State: s, Reason: reason}:
	default:
	}
}

// Run places or answers one call and blocks until it ends, one way or
// another. The secret must be exactly ten digits; a malformed secret
// is rejected before any side effect and the coordinator stays idle.
func (c *Coordinator) Run(ctx context.Context, secret string) error {
	if err := ValidateSecret(secret); err != nil {
		return err
	}
	if c.State() != StateIdle {
		return ErrCallInProgress
	}
	hangup := c.armHangup()

	// Key material first: both cipher directions are armed before the
	// transport or any track pump exists, so no frame can cross an
	// unkeyed engine.
	key := crypto.DeriveKey(secret)
	tx, err := crypto.NewFrameCipher(key)
	if err != nil {
		return NewError("arm send cipher", err)
	}
	rx, err := crypto.NewFrameCipher(key)
	if err != nil {
		return NewError("arm receive cipher", err)
	}

	capture, err := OpenCapture()
	if err != nil && !errors.Is(err, ErrCaptureUnsupported) {
		// No join was attempted, so there is nothing to roll back.
		return NewError("open media capture", err)
	}
	if capture == nil {
		capture = noCapture{}
	}

	client := signaling.NewClient(c.cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		capture.Close()
		return NewError("connect to relay", err)
	}
	handler := signaling.NewHandler(client)
	go handler.Start()

	c.mu.Lock()
	c.tx, c.rx = tx, rx
	c.mu.Unlock()

	c.setState(StateConnecting, "joining room")
	client.JoinRoom(secret)

	runErr := c.loop(ctx, hangup, client, handler, capture)
	c.teardown(secret, client, capture)
	return runErr
}

// loop is the per-call event loop. It owns all transitions out of
// connecting/waiting/in-call; teardown happens in Run once it returns.
func (c *Coordinator) loop(
	ctx context.Context,
	hangup <-chan struct{},
	client *signaling.Client,
	handler *signaling.Handler,
	capture Capture,
) error {
	peerEvents := make(chan peerEvent, 4)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-hangup:
			c.mu.Lock()
			peer := c.peer
			c.mu.Unlock()
			if peer != nil {
				peer.SendBye()
			}
			return nil

		case ev := <-handler.RoomJoined:
			c.mu.Lock()
			c.selfID = ev.UserID
			c.mu.Unlock()

			if decideRole(ev.Occupancy) == RoleInitiator {
				// Our own join completed the pair: we initiate.
				if err := c.startPeer(client, capture, peerEvents, RoleInitiator, nil); err != nil {
					return err
				}
			} else {
				c.setState(StateWaiting, "waiting for peer")
			}

		case ev := <-handler.UserJoined:
			// The other party arrived after us; their offer is next.
			slog.Debug("peer joined room", "occupancy", ev.Occupancy)

		case <-handler.RoomFull:
			return ErrRoomFull

		case sig := <-handler.Offer:
			var offer webrtc.SessionDescription
			if err := json.Unmarshal(sig.Payload, &offer); err != nil {
				slog.Debug("dropping malformed offer", "err", err)
				continue
			}
			if err := c.startPeer(client, capture, peerEvents, RoleResponder, &offer); err != nil {
				return err
			}

		case sig := <-handler.Answer:
			c.mu.Lock()
			peer := c.peer
			c.mu.Unlock()
			if peer == nil {
				slog.Debug("dropping answer without a connection")
				continue
			}
			var answer webrtc.SessionDescription
			if err := json.Unmarshal(sig.Payload, &answer); err != nil {
				slog.Debug("dropping malformed answer", "err", err)
				continue
			}
			if err := peer.HandleRemoteAnswer(answer); err != nil {
				return NewError("apply answer", err)
			}

		case sig := <-handler.Candidate:
			c.mu.Lock()
			peer := c.peer
			c.mu.Unlock()
			if peer == nil {
				// Candidates before a connection exists violate the
				// protocol; they are dropped, never buffered.
				slog.Debug("dropping candidate without a connection")
				continue
			}
			var candidate webrtc.ICECandidateInit
			if err := json.Unmarshal(sig.Payload, &candidate); err != nil {
				slog.Debug("dropping malformed candidate", "err", err)
				continue
			}
			if err := peer.AddCandidate(candidate); err != nil {
				slog.Debug("apply candidate failed", "err", err)
			}

		case ev := <-handler.UserLeft:
			slog.Debug("peer left room", "occupancy", ev.Occupancy)
			return nil

		case ev := <-peerEvents:
			if ev.err != nil {
				return NewError("media transport", ev.err)
			}
			// Remote hang-up via the control channel.
			return nil

		case errMsg := <-handler.Error:
			return WrapError("relay", ErrSignalingError, errMsg)

		case <-handler.Closed:
			return ErrSignalingClosed
		}
	}
}

// startPeer builds the transport for either role. The encryption is
// attached to outbound tracks before any description is exchanged;
// decryption attaches to inbound tracks as they arrive.
func (c *Coordinator) startPeer(
	client *signaling.Client,
	capture Capture,
	peerEvents chan peerEvent,
	role Role,
	remoteOffer *webrtc.SessionDescription,
) error {
	c.mu.Lock()
	if c.peer != nil {
		c.mu.Unlock()
		slog.Debug("ignoring renegotiation attempt")
		return nil
	}
	tx, rx := c.tx, c.rx
	c.mu.Unlock()

	peer, err := newPeer(c.cfg, tx, rx, c.sink, peerEvents)
	if err != nil {
		return NewError("create connection", err)
	}

	peer.OnCandidate(func(candidate webrtc.ICECandidateInit) {
		if err := client.SendSignal(signaling.MessageTypeICECandidate, candidate); err != nil {
			slog.Debug("send candidate failed", "err", err)
		}
	})

	if err := peer.AttachSources(capture.Sources()); err != nil {
		peer.Close()
		return NewError("attach media", err)
	}

	switch role {
	case RoleInitiator:
		if err := peer.CreateControlChannel(); err != nil {
			peer.Close()
			return NewError("create control channel", err)
		}
		offer, err := peer.CreateOffer()
		if err != nil {
			peer.Close()
			return NewError("create offer", err)
		}
		if err := client.SendSignal(signaling.MessageTypeOffer, offer); err != nil {
			peer.Close()
			return err
		}

	case RoleResponder:
		answer, err := peer.HandleRemoteOffer(*remoteOffer)
		if err != nil {
			peer.Close()
			return NewError("apply offer", err)
		}
		if err := client.SendSignal(signaling.MessageTypeAnswer, answer); err != nil {
			peer.Close()
			return err
		}
	}

	c.mu.Lock()
	c.peer = peer
	c.mu.Unlock()

	c.setState(StateInCall, "negotiating")
	return nil
}

// teardown returns the coordinator to idle: transport closed, capture
// stopped, room released, key material discarded. After this the
// departed party can neither send nor receive anything; a new call
// starts from scratch.
func (c *Coordinator) teardown(secret string, client *signaling.Client, capture Capture) {
	c.mu.Lock()
	peer := c.peer
	c.peer = nil
	if c.tx != nil {
		c.lastTx = c.tx.Stats()
	}
	if c.rx != nil {
		c.lastRx = c.rx.Stats()
	}
	c.tx = nil
	c.rx = nil
	c.mu.Unlock()

	if peer != nil {
		peer.Close()
	}
	capture.Close()
	c.sink.Close()

	client.LeaveRoom(secret)
	client.Close()

	c.setState(StateIdle, "call ended")
}

// noCapture is the capture used when no local device is available; the
// call proceeds receive-only.
type noCapture struct{}

func (noCapture) Sources() []FrameSource { return nil }
func (noCapture) Close()                 {}
