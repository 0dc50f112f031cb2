package relay

import "sync"

// RoomCapacity is the hard occupancy cap. A call is strictly
// one-to-one; a third join attempt is always rejected.
const RoomCapacity = 2

// JoinResult reports the outcome of a join attempt.
type JoinResult struct {
	// Accepted is false when the room was already full.
	Accepted bool

	// Occupancy is the room occupancy after the attempt. On rejection
	// it is the unchanged current occupancy.
	Occupancy int

	// Peers are the occupant IDs that were already in the room before
	// this join, in arrival order. Empty for the first arrival.
	Peers []string
}

// Registry tracks which occupants hold which room and enforces the
// two-party cap. Rooms exist only while occupied: the first join
// creates a room, the last leave removes it.
//
// All mutations of one room are serialized on that room's own lock, so
// two concurrent joins against a room at occupancy 1 can never both be
// accepted. Different rooms proceed fully in parallel.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	mu sync.Mutex

	// occupants in arrival order. At most RoomCapacity entries.
	occupants []string

	// gone marks a room that was emptied and unlinked from the map.
	// A joiner that raced the removal retries against a fresh room.
	gone bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Join adds occupantID to roomID unless the room is full. Joining a
// room the occupant is already in is reported as accepted with the
// occupancy unchanged.
func (r *Registry) Join(roomID, occupantID string) JoinResult {
	for {
		rm := r.getOrCreate(roomID)

		rm.mu.Lock()
		if rm.gone {
			rm.mu.Unlock()
			continue
		}

		for _, id := range rm.occupants {
			if id == occupantID {
				res := JoinResult{Accepted: true, Occupancy: len(rm.occupants)}
				rm.mu.Unlock()
				return res
			}
		}

		if len(rm.occupants) >= RoomCapacity {
			res := JoinResult{Accepted: false, Occupancy: len(rm.occupants)}
			rm.mu.Unlock()
			return res
		}

		peers := append([]string(nil), rm.occupants...)
		rm.occupants = append(rm.occupants, occupantID)
		res := JoinResult{Accepted: true, Occupancy: len(rm.occupants), Peers: peers}
		rm.mu.Unlock()
		return res
	}
}

// Leave removes occupantID from roomID and returns the new occupancy.
// It is idempotent: leaving a room the occupant is not in is a no-op.
// A room that reaches zero occupants is destroyed.
func (r *Registry) Leave(roomID, occupantID string) int {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return 0
	}

	rm.mu.Lock()
	for i, id := range rm.occupants {
		if id == occupantID {
			rm.occupants = append(rm.occupants[:i], rm.occupants[i+1:]...)
			break
		}
	}
	n := len(rm.occupants)
	if n == 0 {
		rm.gone = true
	}
	rm.mu.Unlock()

	if n == 0 {
		r.mu.Lock()
		if cur, ok := r.rooms[roomID]; ok && cur == rm {
			delete(r.rooms, roomID)
		}
		r.mu.Unlock()
	}
	return n
}

// Occupancy returns the current occupancy of roomID, 0 if the room
// does not exist.
func (r *Registry) Occupancy(roomID string) int {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return 0
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.occupants)
}

// Occupants returns a snapshot of the room's occupant IDs in arrival
// order.
func (r *Registry) Occupants(roomID string) []string {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return append([]string(nil), rm.occupants...)
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) getOrCreate(roomID string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{}
		r.rooms[roomID] = rm
	}
	return rm
}
