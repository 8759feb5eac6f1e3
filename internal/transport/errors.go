// Package transport frames client connections as sequences of UTF-8 text
// lines, over raw TCP streams or over WebSocket text frames.
package transport

import (
	"errors"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

var (
	// ErrInvalidUTF8 is returned when an inbound line is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("line is not valid UTF-8")
	// ErrLineTooLong is returned when an inbound line exceeds the limit.
	ErrLineTooLong = errors.New("line exceeds maximum length")
	// ErrClosed is returned by writes on a closed transport.
	ErrClosed = errors.New("transport closed")
)

// IsExpectedClose reports whether err is the ordinary result of a peer
// hanging up or of the connection being closed locally.
func IsExpectedClose(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, ErrClosed) {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}

// IsProtocolError reports whether err comes from malformed client input
// rather than from the connection itself.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrInvalidUTF8) || errors.Is(err, ErrLineTooLong)
}
