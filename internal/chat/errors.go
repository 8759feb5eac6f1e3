package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrEmpty is returned by TryRecv when nothing new has been published.
	ErrEmpty = errors.New("broadcast channel empty")
	// ErrClosed is returned once a channel is closed and drained, or after
	// the receiver has been closed.
	ErrClosed = errors.New("broadcast channel closed")
	// ErrNameTaken reports a rename target already claimed by another session.
	ErrNameTaken = errors.New("name already taken")
)

// LaggedError reports that a receiver fell behind and Missed messages were
// overwritten before it could read them.
type LaggedError struct {
	Missed uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("receiver lagged by %d messages", e.Missed)
}

// IsLagged reports whether err is a *LaggedError and returns it.
func IsLagged(err error) (*LaggedError, bool) {
	var lagged *LaggedError
	if errors.As(err, &lagged) {
		return lagged, true
	}
	return nil, false
}
