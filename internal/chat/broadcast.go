// Package chat implements a bounded multi-subscriber broadcast channel with
// an independent read cursor per receiver and explicit lag reporting.
package chat

import (
	"context"
	"sync"
)

// DefaultCapacity is the number of messages a room channel retains.
const DefaultCapacity = 32

// Channel is a fixed-capacity ring buffer shared by many receivers. A publish
// never waits for receivers; a receiver that falls more than capacity messages
// behind loses the overwritten ones and is told how many on its next read.
type Channel struct {
	mu        sync.Mutex
	buf       []string
	head      uint64 // sequence number of the next write
	notify    chan struct{}
	receivers int
	closed    bool
}

// NewChannel creates a Channel retaining up to capacity messages.
// A non-positive capacity falls back to DefaultCapacity.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		buf:    make([]string, capacity),
		notify: make(chan struct{}),
	}
}

// Capacity returns the ring buffer size.
func (c *Channel) Capacity() int {
	return len(c.buf)
}

// Publish appends msg and wakes every waiting receiver. It returns the number
// of receivers subscribed at the time of the write. Publishing to a closed
// channel is a no-op that returns 0.
func (c *Channel) Publish(msg string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}

	c.buf[c.head%uint64(len(c.buf))] = msg
	c.head++

	close(c.notify)
	c.notify = make(chan struct{})
	return c.receivers
}

// Subscribe returns a receiver positioned at the current write sequence.
// Messages published earlier are not visible to it.
func (c *Channel) Subscribe() *Receiver {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.receivers++
	return &Receiver{ch: c, next: c.head}
}

// ReceiverCount reports how many receivers are currently subscribed.
func (c *Channel) ReceiverCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receivers
}

// Close stops the channel. Receivers drain what is still buffered and then
// observe ErrClosed.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.notify)
}

// oldest returns the sequence number of the oldest retained message.
func (c *Channel) oldest() uint64 {
	capacity := uint64(len(c.buf))
	if c.head <= capacity {
		return 0
	}
	return c.head - capacity
}

// Receiver is one subscriber's cursor into a Channel.
type Receiver struct {
	ch       *Channel
	next     uint64
	once     sync.Once
	detached bool
}

// TryRecv returns the next outcome without blocking: a message, a
// *LaggedError when the cursor was overrun, ErrClosed once the channel is
// closed and drained, or ErrEmpty when nothing new has been published.
func (r *Receiver) TryRecv() (string, error) {
	c := r.ch
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.detached {
		return "", ErrClosed
	}

	if oldest := c.oldest(); r.next < oldest {
		missed := oldest - r.next
		r.next = oldest
		return "", &LaggedError{Missed: missed}
	}

	if r.next == c.head {
		if c.closed {
			return "", ErrClosed
		}
		return "", ErrEmpty
	}

	msg := c.buf[r.next%uint64(len(c.buf))]
	r.next++
	return msg, nil
}

// Ready returns a channel that is closed as soon as TryRecv has something
// other than ErrEmpty to report.
func (r *Receiver) Ready() <-chan struct{} {
	c := r.ch
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.detached || c.closed || r.next != c.head {
		return closedSignal
	}
	return c.notify
}

// Recv blocks until an outcome other than ErrEmpty is available or ctx ends.
func (r *Receiver) Recv(ctx context.Context) (string, error) {
	for {
		msg, err := r.TryRecv()
		if err != ErrEmpty {
			return msg, err
		}
		select {
		case <-r.Ready():
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Close unsubscribes the receiver. It is safe to call more than once.
func (r *Receiver) Close() {
	r.once.Do(func() {
		c := r.ch
		c.mu.Lock()
		defer c.mu.Unlock()
		r.detached = true
		c.receivers--
	})
}

var closedSignal = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
