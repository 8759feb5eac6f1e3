package chat

import (
	"cmp"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// DefaultRoom is the room every new session joins.
const DefaultRoom = "main"

// RoomInfo is one row of a room listing.
type RoomInfo struct {
	Name    string
	Members int
}

// Rooms maps room names to live rooms. Rooms are created on first join and
// removed when their last member leaves.
type Rooms struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	capacity int
}

// NewRooms creates an empty registry whose rooms buffer capacity messages.
func NewRooms(capacity int) *Rooms {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Rooms{
		rooms:    make(map[string]*Room),
		capacity: capacity,
	}
}

// Join subscribes to the named room, creating it if it does not exist.
// The lookup runs under the read lock; creation re-checks under the write
// lock so two racing joiners end up in the same room.
func (r *Rooms) Join(name string) *Handle {
	r.mu.RLock()
	if room, ok := r.rooms[name]; ok {
		h := room.subscribe()
		r.mu.RUnlock()
		return h
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[name]
	if !ok {
		room = newRoom(name, r.capacity)
		r.rooms[name] = room
	}
	return room.subscribe()
}

// Leave drops h from its room and removes the room when h was its last
// member. The member count is read under the read lock with h still
// subscribed; removal happens afterwards under the write lock. A Join that
// lands between the two gets the doomed room and the next joiner creates a
// fresh one with the same name. Rooms recover from this on their own, so the
// window is left as is.
func (r *Rooms) Leave(h *Handle) {
	name := h.Name()

	r.mu.RLock()
	remove := false
	if room, ok := r.rooms[name]; ok && room == h.room {
		remove = room.Members() <= 1
	}
	r.mu.RUnlock()

	if remove {
		r.mu.Lock()
		// Only the room h belongs to may be removed, never a newer room
		// that reused its name.
		if r.rooms[name] == h.room {
			delete(r.rooms, name)
		}
		r.mu.Unlock()
	}

	h.Close()
}

// Change leaves prev and joins next. The returned handle may belong to a
// room created by this call.
func (r *Rooms) Change(prev *Handle, next string) *Handle {
	r.Leave(prev)
	return r.Join(next)
}

// Deliver publishes msg into an existing room without subscribing to it and
// reports whether the room existed. It never creates a room.
func (r *Rooms) Deliver(name, msg string) bool {
	r.mu.RLock()
	room, ok := r.rooms[name]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	room.Publish(msg)
	return true
}

// List returns a snapshot of live rooms ordered by member count, largest
// first, with ties broken by name.
func (r *Rooms) List() []RoomInfo {
	r.mu.RLock()
	list := lo.MapToSlice(r.rooms, func(name string, room *Room) RoomInfo {
		return RoomInfo{Name: name, Members: room.Members()}
	})
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b RoomInfo) int {
		if c := cmp.Compare(b.Members, a.Members); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return list
}

// Len returns the number of live rooms.
func (r *Rooms) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
