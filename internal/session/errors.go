package session

import "errors"

var (
	// ErrUsage matches every *UsageError.
	ErrUsage = errors.New("command usage")

	errQuit = errors.New("client quit")
)

// UsageError reports a command that was called without a valid argument.
// The session replies with the usage text and keeps running.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string { return "usage: " + e.Usage }

func (e *UsageError) Is(target error) bool { return target == ErrUsage }
