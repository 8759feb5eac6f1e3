package transport

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocket frames a WebSocket connection as lines: every inbound text frame
// is one line and every outbound line is sent as one text frame. Binary
// frames are ignored.
type WebSocket struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// NewWebSocket wraps conn and starts its keepalive pinger. Frames larger than
// maxLineLength bytes end the stream with ErrLineTooLong.
func NewWebSocket(conn *websocket.Conn, maxLineLength int) *WebSocket {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	conn.SetReadLimit(int64(maxLineLength))

	ws := &WebSocket{conn: conn, done: make(chan struct{})}
	ws.setupReadConnection()
	go ws.pingLoop()
	return ws
}

// setupReadConnection configures the read deadline and the pong handler that
// extends it.
func (w *WebSocket) setupReadConnection() {
	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// ReadLine returns the payload of the next text frame.
func (w *WebSocket) ReadLine() (string, error) {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				return "", ErrLineTooLong
			}
			return "", err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if !utf8.Valid(data) {
			return "", ErrInvalidUTF8
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

// WriteLine sends line as a single text frame.
func (w *WebSocket) WriteLine(line string) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

// pingLoop keeps the connection alive until Close is called. WriteControl may
// run concurrently with WriteMessage, so it does not take writeMu.
func (w *WebSocket) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Close sends a normal closure frame, best effort, and closes the connection.
func (w *WebSocket) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}

// RemoteAddr returns the peer address.
func (w *WebSocket) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}
