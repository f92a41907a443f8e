package chat

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andy6609/lobby-chat-server/internal/credential"
	"github.com/andy6609/lobby-chat-server/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestHub builds a hub that is driven directly through dispatch, without
// running its event loop.
func newTestHub(t *testing.T, st *store.Store) *Hub {
	t.Helper()
	h := NewHub(HubConfig{
		Users:       st,
		Messages:    st,
		Credentials: credential.NewBcrypt(bcrypt.MinCost),
	})
	t.Cleanup(h.cancel)
	return h
}

func newTestSession(login, peer string) *Session {
	return &Session{ID: "test-" + login, Login: login, Peer: peer, Out: NewOutbox()}
}

// drain returns every line currently queued on s.
func drain(s *Session) []string {
	var lines []string
	for s.Out.Len() > 0 {
		line, _ := s.Out.next()
		lines = append(lines, line)
	}
	return lines
}

func hasLine(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func linesWithPrefix(lines []string, prefix string) []string {
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}

// chatBody strips the "[timestamp] " prefix of a chat line.
func chatBody(t *testing.T, line string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(line, "["), "not a chat line: %q", line)
	i := strings.Index(line, "] ")
	require.Greater(t, i, 0, "not a chat line: %q", line)
	return line[i+2:]
}

func startTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st := openStore(t)
	hub := NewHub(HubConfig{
		Users:       st,
		Messages:    st,
		Credentials: credential.NewBcrypt(bcrypt.MinCost),
	})
	srv := NewServer(ServerConfig{Addr: "127.0.0.1:0", WriteTimeout: 5 * time.Second}, hub, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv, st
}

type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	c := &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
	c.waitFor("To login:")
	c.waitFor("=====")
	return c
}

func (c *testClient) send(line string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetWriteDeadline(time.Now().Add(5*time.Second)))
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

func (c *testClient) readLine() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	line, err := c.reader.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimRight(line, "\r\n")
}

// waitFor reads until a line starting with prefix arrives and returns it.
func (c *testClient) waitFor(prefix string) string {
	c.t.Helper()
	for {
		line := c.readLine()
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
}

// auth registers or logs in and consumes the lobby banner.
func (c *testClient) auth(verb, login, password string) {
	c.t.Helper()
	c.send(verb + " " + login + " " + password)
	line := c.waitFor("")
	require.True(c.t, strings.HasPrefix(line, "OK "), "auth reply: %q", line)
	c.waitFor("  LOGOUT")
	c.waitFor("=====")
}

// logout returns to Unauthenticated and consumes the welcome banner.
func (c *testClient) logout() {
	c.t.Helper()
	c.send("LOGOUT")
	c.waitFor("Server: Welcome to chat")
	c.waitFor("To login:")
	c.waitFor("=====")
}

// openChat enters a chat with peer and consumes the chat banner.
func (c *testClient) openChat(peer string) {
	c.t.Helper()
	c.send("CHAT " + peer)
	c.waitFor("Type /who")
	c.waitFor("-----")
}

// sync makes sure every earlier line has been dispatched by round-tripping
// a LIST from the lobby or a /who while chatting.
func (c *testClient) sync(probe, prefix string) string {
	c.t.Helper()
	c.send(probe)
	return c.waitFor(prefix)
}

func messagesBetween(t *testing.T, st *store.Store, a, b string) []store.Message {
	t.Helper()
	msgs, err := st.Between(context.Background(), a, b, 1000)
	require.NoError(t, err)
	return msgs
}
