package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRooms_Join_Creates_Room_Lazily(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms(DefaultCapacity)

	// Given no room exists
	req.Empty(rooms.List())

	// When a session joins "lobby"
	h := rooms.Join("lobby")

	// Then "lobby" exists with one member
	req.Equal("lobby", h.Name())
	req.Equal([]RoomInfo{{Name: "lobby", Members: 1}}, rooms.List())
}

func TestRooms_Join_Reuses_Existing_Room(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms(DefaultCapacity)

	a := rooms.Join(DefaultRoom)
	b := rooms.Join(DefaultRoom)

	req.Same(a.Room(), b.Room())
	req.Equal(1, rooms.Len())
	req.Equal(2, a.Room().Members())
}

func TestRooms_Last_Leave_Removes_Room(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms(DefaultCapacity)
	a := rooms.Join(DefaultRoom)
	b := rooms.Join(DefaultRoom)

	// When one of two members leaves
	rooms.Leave(a)

	// Then the room survives with one member
	req.Equal([]RoomInfo{{Name: DefaultRoom, Members: 1}}, rooms.List())

	// When the last member leaves
	rooms.Leave(b)

	// Then the room is gone
	req.Empty(rooms.List())
}

func TestRooms_Leave_Twice_Is_Harmless(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms(DefaultCapacity)
	a := rooms.Join("solo")

	rooms.Leave(a)
	rooms.Leave(a)

	req.Zero(rooms.Len())
}

func TestRooms_Stale_Leave_Does_Not_Remove_Newer_Room(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms(DefaultCapacity)

	old := rooms.Join("lobby")
	rooms.Leave(old)
	fresh := rooms.Join("lobby")

	// When the stale handle leaves again
	rooms.Leave(old)

	// Then the room recreated under the same name is untouched
	req.Equal([]RoomInfo{{Name: "lobby", Members: 1}}, rooms.List())
	req.NotSame(old.Room(), fresh.Room())
}

func TestRooms_Change_Moves_Membership(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms(DefaultCapacity)
	a := rooms.Join(DefaultRoom)
	b := rooms.Join(DefaultRoom)

	a = rooms.Change(a, "lobby")

	req.Equal("lobby", a.Name())
	req.Equal([]RoomInfo{
		{Name: "lobby", Members: 1},
		{Name: DefaultRoom, Members: 1},
	}, rooms.List())

	rooms.Leave(b)
	req.Equal([]RoomInfo{{Name: "lobby", Members: 1}}, rooms.List())
}

func TestRooms_List_Order(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms(DefaultCapacity)

	rooms.Join("zeta")
	rooms.Join("alpha")
	rooms.Join("beta")
	rooms.Join("beta")
	rooms.Join("gamma")
	rooms.Join("gamma")
	rooms.Join("gamma")

	req.Equal([]RoomInfo{
		{Name: "gamma", Members: 3},
		{Name: "beta", Members: 2},
		{Name: "alpha", Members: 1},
		{Name: "zeta", Members: 1},
	}, rooms.List())
}

func TestRooms_Deliver_Only_To_Existing_Room(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms(DefaultCapacity)

	req.False(rooms.Deliver("ghost", "boo"))
	req.Zero(rooms.Len())

	h := rooms.Join("lobby")
	req.True(rooms.Deliver("lobby", "remote: hi"))

	msg, err := h.TryRecv()
	req.NoError(err)
	req.Equal("remote: hi", msg)
	req.Equal(1, h.Room().Members())
}

func TestRooms_Self_Echo(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms(DefaultCapacity)
	a := rooms.Join(DefaultRoom)
	b := rooms.Join(DefaultRoom)

	a.Publish("A: hi")

	for _, h := range []*Handle{a, b} {
		msg, err := h.TryRecv()
		req.NoError(err)
		req.Equal("A: hi", msg)
	}
}

func TestRooms_Concurrent_Join_Creates_Single_Room(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms(DefaultCapacity)
	const joiners = 64

	handles := make([]*Handle, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = rooms.Join("busy")
		}(i)
	}
	wg.Wait()

	req.Equal([]RoomInfo{{Name: "busy", Members: joiners}}, rooms.List())
	for _, h := range handles[1:] {
		req.Same(handles[0].Room(), h.Room())
	}

	for _, h := range handles {
		rooms.Leave(h)
	}
	req.Zero(rooms.Len())
}
