package main

import (
	"bytes"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_Without_Colours(t *testing.T) {
	require.Equal(t, "A: hi", render("A: hi", false))
}

func TestRender_Highlights_Sender(t *testing.T) {
	req := require.New(t)

	chat := render("SwiftOtter: hello: there", true)
	req.Contains(chat, "SwiftOtter")
	req.True(strings.HasSuffix(chat, ": hello: there"))

	notice := render("SwiftOtter joined main", true)
	req.Contains(notice, "SwiftOtter joined main")
}

func TestPrintLines_Until_Server_Closes(t *testing.T) {
	req := require.New(t)
	server, client := net.Pipe()

	go func() {
		_, _ = server.Write([]byte("You are A\nA joined main\n"))
		_ = server.Close()
	}()

	var out bytes.Buffer
	req.NoError(printLines(client, &out, false))
	req.Equal("You are A\nA joined main\n", out.String())
}
