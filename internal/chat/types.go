package chat

import (
	"context"
	"net"
	"time"

	"github.com/andy6609/lobby-chat-server/internal/store"
)

type State int

const (
	StateUnauthenticated State = iota
	StateLobby
	StateChatting
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLobby:
		return "lobby"
	case StateChatting:
		return "chatting"
	}
	return "unknown"
}

// Session is the server side of one connection. Login and Peer are owned by
// the hub goroutine; Peer is only ever set while Login is set.
type Session struct {
	ID     string
	Conn   net.Conn
	Login  string
	Peer   string
	Out    *Outbox
	remote string
}

func (s *Session) State() State {
	switch {
	case s.Login == "":
		return StateUnauthenticated
	case s.Peer == "":
		return StateLobby
	default:
		return StateChatting
	}
}

// post queues line for s and reports whether the outbox accepted it.
func (s *Session) post(line string) bool {
	return s.Out.Post(line)
}

type UserStore interface {
	CreateUser(ctx context.Context, login, passHash string) error
	FindUser(ctx context.Context, login string) (store.User, error)
}

type MessageStore interface {
	AppendMessage(ctx context.Context, sender, receiver, body string, ts time.Time) (int64, error)
	Undelivered(ctx context.Context, sender, receiver string) ([]store.Message, error)
	Between(ctx context.Context, a, b string, limit int) ([]store.Message, error)
	MarkDelivered(ctx context.Context, id int64) error
}

type Credentials interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type EventType int

const (
	EventConnect EventType = iota
	EventLine
	EventDisconnect
	EventStats
)

func (t EventType) String() string {
	switch t {
	case EventConnect:
		return "connect"
	case EventLine:
		return "line"
	case EventDisconnect:
		return "disconnect"
	case EventStats:
		return "stats"
	}
	return "unknown"
}

type Event struct {
	Type    EventType
	Session *Session
	Text    string
	Done    chan struct{} // closed once a line has been fully dispatched
	Stats   chan Stats
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Connections int      `json:"connections"`
	Online      []string `json:"online"`
}

var (
	ErrAlreadyOnline = errorString("already_online")
	ErrHubStopped    = errorString("hub_stopped")
)

type errorString string

func (e errorString) Error() string { return string(e) }
