package transport

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// pipe returns a Line over one end of an in-memory connection and the raw
// peer end.
func pipe(t *testing.T, maxLineLength int) (*Line, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return NewLine(server, maxLineLength), client
}

func TestLine_ReadLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "LF terminated lines",
			input:    "hello\nworld\n",
			expected: []string{"hello", "world"},
		},
		{
			name:     "CRLF terminated lines",
			input:    "/join lobby\r\nhi there\r\n",
			expected: []string{"/join lobby", "hi there"},
		},
		{
			name:     "Final line without terminator",
			input:    "one\ntwo",
			expected: []string{"one", "two"},
		},
		{
			name:     "Multibyte UTF-8",
			input:    "un été à Paris\n",
			expected: []string{"un été à Paris"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			line, peer := pipe(t, 0)

			go func() {
				_, _ = io.WriteString(peer, tt.input)
				_ = peer.Close()
			}()

			for _, expected := range tt.expected {
				got, err := line.ReadLine()
				req.NoError(err)
				req.Equal(expected, got)
			}
			_, err := line.ReadLine()
			req.ErrorIs(err, io.EOF)
		})
	}
}

func TestLine_ReadLine_Invalid_UTF8(t *testing.T) {
	req := require.New(t)
	line, peer := pipe(t, 0)

	go func() {
		_, _ = peer.Write([]byte{'o', 'k', 0xff, 0xfe, '\n'})
	}()

	_, err := line.ReadLine()
	req.ErrorIs(err, ErrInvalidUTF8)
	req.True(IsProtocolError(err))
}

func TestLine_ReadLine_Too_Long(t *testing.T) {
	req := require.New(t)
	line, peer := pipe(t, 16)

	go func() {
		_, _ = io.WriteString(peer, strings.Repeat("x", 64)+"\n")
	}()

	_, err := line.ReadLine()
	req.ErrorIs(err, ErrLineTooLong)
	req.True(IsProtocolError(err))
}

func TestLine_ReadLine_At_Limit(t *testing.T) {
	req := require.New(t)
	line, peer := pipe(t, 8)

	go func() {
		_, _ = io.WriteString(peer, "12345678\r\n")
	}()

	got, err := line.ReadLine()
	req.NoError(err)
	req.Equal("12345678", got)
}

func TestLine_WriteLine_Appends_Terminator(t *testing.T) {
	req := require.New(t)
	line, peer := pipe(t, 0)

	go func() {
		_ = line.WriteLine("Rooms - main (2)")
	}()

	got, err := bufio.NewReader(peer).ReadString('\n')
	req.NoError(err)
	req.Equal("Rooms - main (2)\n", got)
}

func TestLine_Close_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	line, _ := pipe(t, 0)

	req.NoError(line.Close())
	req.NoError(line.Close())

	err := line.WriteLine("late")
	req.ErrorIs(err, ErrClosed)
	req.True(IsExpectedClose(err))

	_, err = line.ReadLine()
	req.Error(err)
	req.True(IsExpectedClose(err))
}
