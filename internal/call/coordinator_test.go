package call

import (
	"testing"

	"github.com/ramu7700/secure-video-call/internal/config"
)

// The party whose own join fills the room sends the offer; the party
// who was already waiting answers. Both sides compute this from the
// occupancy reported for their own join, with no extra coordination.
func TestDecideRole(t *testing.T) {
	tests := []struct {
		name      string
		occupancy int
		want      Role
	}{
		{"first arrival waits", 1, RoleResponder},
		{"second arrival initiates", 2, RoleInitiator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decideRole(tt.occupancy); got != tt.want {
				t.Errorf("decideRole(%d) = %v, want %v", tt.occupancy, got, tt.want)
			}
		})
	}
}

// Exactly one of any occupancy pair may initiate.
func TestDecideRoleIsExclusive(t *testing.T) {
	first := decideRole(1)
	second := decideRole(2)
	if first == second {
		t.Fatalf("both arrivals got role %v", first)
	}
}

func TestCoordinatorStartsIdle(t *testing.T) {
	cfg, err := config.Load(config.Options{})
	if err != nil {
		t.Fatal(err)
	}

	c := NewCoordinator(cfg, &CountingSink{})
	if got := c.State(); got != StateIdle {
		t.Errorf("new coordinator state = %v, want %v", got, StateIdle)
	}

	tx, rx := c.Stats()
	if tx.Encrypted != 0 || rx.Decrypted != 0 || rx.Dropped != 0 {
		t.Errorf("idle coordinator reported non-zero stats: tx=%+v rx=%+v", tx, rx)
	}
}

func TestRunRejectsMalformedSecret(t *testing.T) {
	cfg, err := config.Load(config.Options{})
	if err != nil {
		t.Fatal(err)
	}

	c := NewCoordinator(cfg, &CountingSink{})
	if err := c.Run(t.Context(), "123"); err != ErrInvalidSecret {
		t.Fatalf("Run with short secret = %v, want ErrInvalidSecret", err)
	}
	if got := c.State(); got != StateIdle {
		t.Errorf("state after rejected secret = %v, want %v", got, StateIdle)
	}
}

// Hanging up one call must not end the next: the hang-up channel is
// re-armed for every call, and hanging up outside a call is a no-op.
func TestHangupIsPerCall(t *testing.T) {
	cfg, err := config.Load(config.Options{})
	if err != nil {
		t.Fatal(err)
	}

	c := NewCoordinator(cfg, &CountingSink{})
	c.Hangup() // before any call: nothing to hang up

	first := c.armHangup()
	c.Hangup()
	c.Hangup() // idempotent
	select {
	case <-first:
	default:
		t.Fatal("hang-up not signalled for the current call")
	}

	second := c.armHangup()
	select {
	case <-second:
		t.Fatal("previous hang-up leaked into the next call")
	default:
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateWaiting, "waiting"},
		{StateInCall, "in-call"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
