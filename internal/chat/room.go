package chat

import "context"

// Room is a named broadcast scope. Its member count is the number of
// receivers subscribed to its channel.
type Room struct {
	name string
	ch   *Channel
}

func newRoom(name string, capacity int) *Room {
	return &Room{name: name, ch: NewChannel(capacity)}
}

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// Members returns the number of live subscriptions.
func (r *Room) Members() int { return r.ch.ReceiverCount() }

// Publish sends msg to every member, the publisher included when subscribed.
func (r *Room) Publish(msg string) int { return r.ch.Publish(msg) }

func (r *Room) subscribe() *Handle {
	return &Handle{room: r, recv: r.ch.Subscribe()}
}

// Handle is one session's membership in a room: a subscription to the room
// channel plus the ability to publish into it.
type Handle struct {
	room *Room
	recv *Receiver
}

// Name returns the name of the room this handle belongs to.
func (h *Handle) Name() string { return h.room.name }

// Room returns the underlying room.
func (h *Handle) Room() *Room { return h.room }

// Publish sends msg to the room.
func (h *Handle) Publish(msg string) int { return h.room.Publish(msg) }

// Ready is closed when TryRecv has an outcome to report.
func (h *Handle) Ready() <-chan struct{} { return h.recv.Ready() }

// TryRecv returns the next broadcast outcome without blocking.
func (h *Handle) TryRecv() (string, error) { return h.recv.TryRecv() }

// Recv blocks until the next broadcast outcome or until ctx ends.
func (h *Handle) Recv(ctx context.Context) (string, error) { return h.recv.Recv(ctx) }

// Close drops the subscription. Safe to call more than once.
func (h *Handle) Close() { h.recv.Close() }
