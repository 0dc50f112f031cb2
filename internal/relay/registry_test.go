package relay

import (
	"fmt"
	"sync"
	"testing"
)

func TestJoinLeaveSequence(t *testing.T) {
	r := NewRegistry()
	room := "1111111111"

	// Scenario A: first join on an empty room.
	res := r.Join(room, "x")
	if !res.Accepted || res.Occupancy != 1 || len(res.Peers) != 0 {
		t.Fatalf("first join = %+v, want accepted with occupancy 1 and no peers", res)
	}

	// Scenario B: second join fills the room and sees the first arrival.
	res = r.Join(room, "y")
	if !res.Accepted || res.Occupancy != 2 {
		t.Fatalf("second join = %+v, want accepted with occupancy 2", res)
	}
	if len(res.Peers) != 1 || res.Peers[0] != "x" {
		t.Fatalf("second join peers = %v, want [x]", res.Peers)
	}

	// Scenario C: third join is rejected, occupancy unchanged.
	res = r.Join(room, "z")
	if res.Accepted {
		t.Fatal("third join accepted into a full room")
	}
	if r.Occupancy(room) != 2 {
		t.Fatalf("occupancy after rejection = %d, want 2", r.Occupancy(room))
	}

	// Scenario D: one leave keeps the room alive.
	if n := r.Leave(room, "x"); n != 1 {
		t.Fatalf("occupancy after first leave = %d, want 1", n)
	}
	if r.RoomCount() != 1 {
		t.Fatal("room destroyed while still occupied")
	}

	// Scenario E: last leave destroys the room.
	if n := r.Leave(room, "y"); n != 0 {
		t.Fatalf("occupancy after last leave = %d, want 0", n)
	}
	if r.Occupancy(room) != 0 {
		t.Fatal("destroyed room still reports occupants")
	}
	if r.RoomCount() != 0 {
		t.Fatal("destroyed room still registered")
	}
}

func TestLeaveIdempotent(t *testing.T) {
	r := NewRegistry()

	if n := r.Leave("no-such-room", "x"); n != 0 {
		t.Fatalf("leave of unknown room = %d, want 0", n)
	}

	r.Join("room", "x")
	r.Join("room", "y")
	if n := r.Leave("room", "z"); n != 2 {
		t.Fatalf("leave of non-member = %d, want occupancy 2 unchanged", n)
	}
}

func TestJoinSameOccupantTwice(t *testing.T) {
	r := NewRegistry()

	r.Join("room", "x")
	res := r.Join("room", "x")
	if !res.Accepted || res.Occupancy != 1 {
		t.Fatalf("re-join = %+v, want accepted with occupancy 1", res)
	}
}

// Concurrent joins must never push a room above capacity, and exactly
// capacity joins must win.
func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	const attempts = 32

	r := NewRegistry()
	room := "2222222222"

	var wg sync.WaitGroup
	results := make([]JoinResult, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Join(room, fmt.Sprintf("occupant-%d", i))
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, res := range results {
		if res.Accepted {
			accepted++
			if res.Occupancy < 1 || res.Occupancy > RoomCapacity {
				t.Errorf("accepted join with occupancy %d", res.Occupancy)
			}
		}
	}
	if accepted != RoomCapacity {
		t.Errorf("accepted %d joins, want %d", accepted, RoomCapacity)
	}
	if n := r.Occupancy(room); n != RoomCapacity {
		t.Errorf("final occupancy = %d, want %d", n, RoomCapacity)
	}
}

// Join racing the destruction of an emptied room must land in a fresh
// room rather than a stale entry.
func TestJoinLeaveChurn(t *testing.T) {
	r := NewRegistry()
	room := "3333333333"

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("occupant-%d", i)
			for j := 0; j < 100; j++ {
				if res := r.Join(room, id); res.Accepted {
					r.Leave(room, id)
				}
			}
		}(i)
	}
	wg.Wait()

	if n := r.Occupancy(room); n != 0 {
		t.Errorf("occupancy after churn = %d, want 0", n)
	}
	if n := r.RoomCount(); n != 0 {
		t.Errorf("rooms after churn = %d, want 0", n)
	}
}

func TestRoomsAreIndependent(t *testing.T) {
	r := NewRegistry()

	r.Join("a", "x")
	r.Join("a", "y")
	r.Join("b", "z")

	if res := r.Join("b", "w"); !res.Accepted {
		t.Error("full room a blocked join on room b")
	}
	if r.Occupancy("a") != 2 || r.Occupancy("b") != 2 {
		t.Errorf("occupancies = %d/%d, want 2/2", r.Occupancy("a"), r.Occupancy("b"))
	}
	if r.RoomCount() != 2 {
		t.Errorf("room count = %d, want 2", r.RoomCount())
	}
}
