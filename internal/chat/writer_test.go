package chat

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_PreservesPostOrderAtAnyDepth(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	out := NewOutbox()
	// Queue a deep backlog before the writer starts so nothing is dropped.
	const n = 500
	for i := 0; i < n; i++ {
		require.True(t, out.Post("line "+strconv.Itoa(i)))
	}
	StartOutboundWriter(server, out, time.Second)

	reader := bufio.NewReader(client)
	for i := 0; i < n; i++ {
		require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "line "+strconv.Itoa(i)+"\r\n", line)

		// Interleave posts with reads.
		if i == n/2 {
			out.Post("tail")
		}
	}
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "tail", strings.TrimRight(line, "\r\n"))
}

func TestOutbox_CloseDrainsThenStops(t *testing.T) {
	out := NewOutbox()
	out.Post("a")
	out.Post("b")
	out.Close()
	assert.False(t, out.Post("c"))
	out.Close()

	line, ok := out.next()
	require.True(t, ok)
	assert.Equal(t, "a", line)
	line, ok = out.next()
	require.True(t, ok)
	assert.Equal(t, "b", line)
	_, ok = out.next()
	assert.False(t, ok)
}

func TestOutbox_WriteFailureClosesConn(t *testing.T) {
	server, client := net.Pipe()
	client.Close()

	out := NewOutbox()
	StartOutboundWriter(server, out, time.Second)
	out.Post("lost")

	// The writer closes server after the failed write; a further read on it
	// fails with ErrClosedPipe.
	require.Eventually(t, func() bool {
		_ = server.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		_, err := server.Read(make([]byte, 1))
		return errors.Is(err, io.ErrClosedPipe)
	}, 2*time.Second, 20*time.Millisecond)
}
