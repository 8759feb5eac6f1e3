package transport

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// DefaultMaxLineLength bounds a single inbound line in bytes.
	DefaultMaxLineLength = 4096
	writeWait            = 10 * time.Second
)

// Line frames a stream connection as newline-terminated UTF-8 lines.
// Reads must come from one goroutine; writes may come from any.
type Line struct {
	conn      net.Conn
	scanner   *bufio.Scanner
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// NewLine wraps conn. Lines longer than maxLineLength bytes end the stream
// with ErrLineTooLong.
func NewLine(conn net.Conn, maxLineLength int) *Line {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	scanner := bufio.NewScanner(conn)
	// Two extra bytes leave room for the CRLF terminator.
	scanner.Buffer(make([]byte, 0, 512), maxLineLength+2)

	return &Line{
		conn:    conn,
		scanner: scanner,
		closed:  make(chan struct{}),
	}
}

// ReadLine returns the next line without its terminator. It returns io.EOF
// once the peer closes the stream.
func (l *Line) ReadLine() (string, error) {
	if !l.scanner.Scan() {
		err := l.scanner.Err()
		switch {
		case err == nil:
			return "", io.EOF
		case errors.Is(err, bufio.ErrTooLong):
			return "", ErrLineTooLong
		default:
			return "", err
		}
	}

	line := strings.TrimSuffix(l.scanner.Text(), "\r")
	if !utf8.ValidString(line) {
		return "", ErrInvalidUTF8
	}
	return line, nil
}

// WriteLine sends line followed by a newline.
func (l *Line) WriteLine(line string) error {
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	_, err := io.WriteString(l.conn, line+"\n")
	return err
}

// Close closes the underlying connection. Later calls return the first
// call's result.
func (l *Line) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.closeErr = l.conn.Close()
	})
	return l.closeErr
}

// RemoteAddr returns the peer address.
func (l *Line) RemoteAddr() string {
	return l.conn.RemoteAddr().String()
}
