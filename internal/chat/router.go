package chat

import (
	"context"
	"log/slog"
	"time"
)

const chatTimeLayout = "2006-01-02 15:04:05"

// FormatChatLine renders a chat message the way clients see it.
func FormatChatLine(ts time.Time, login, body string) string {
	return "[" + ts.Local().Format(chatTimeLayout) + "] " + login + ": " + body
}

// Router owns the store-and-forward policy. Every send is persisted; it is
// delivered live only when the receiver is online and facing the sender.
type Router struct {
	messages MessageStore
	presence *Presence
	now      func() time.Time
	logger   *slog.Logger
}

func NewRouter(messages MessageStore, presence *Presence, now func() time.Time, logger *slog.Logger) *Router {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		messages: messages,
		presence: presence,
		now:      now,
		logger:   logger,
	}
}

// Send routes body from a chatting session to its peer.
func (r *Router) Send(ctx context.Context, from *Session, body string) {
	receiver := from.Peer
	ts := r.now()

	id, err := r.messages.AppendMessage(ctx, from.Login, receiver, body, ts)
	if err != nil {
		r.logger.Error("persist message failed", "sender", from.Login, "receiver", receiver, "error", err)
		ChatMessagesTotal.WithLabelValues("failed").Inc()
	}

	peer, online := r.presence.Lookup(receiver)
	live := online && peer.Peer == from.Login && peer.post(FormatChatLine(ts, from.Login, body))
	if !live {
		if err == nil {
			ChatMessagesTotal.WithLabelValues("stored").Inc()
		}
		return
	}
	if err != nil {
		return
	}
	ChatMessagesTotal.WithLabelValues("live").Inc()
	if err := r.messages.MarkDelivered(ctx, id); err != nil {
		r.logger.Error("mark delivered failed", "id", id, "error", err)
	}
}

// ReplayBacklog flushes everything s.Peer sent to s while s was not facing
// them, oldest first, and marks each posted record delivered. It stops at
// the first line the outbox refuses and returns the number of lines posted.
func (r *Router) ReplayBacklog(ctx context.Context, s *Session) int {
	backlog, err := r.messages.Undelivered(ctx, s.Peer, s.Login)
	if err != nil {
		r.logger.Error("load backlog failed", "sender", s.Peer, "receiver", s.Login, "error", err)
		return 0
	}

	for i, m := range backlog {
		if !s.post(FormatChatLine(m.Timestamp, m.Sender, m.Body)) {
			return i
		}
		if err := r.messages.MarkDelivered(ctx, m.ID); err != nil {
			r.logger.Error("mark delivered failed", "id", m.ID, "error", err)
		}
	}
	return len(backlog)
}

// History posts the last n messages between s and its peer in either
// direction, oldest first. Posted records are marked delivered.
func (r *Router) History(ctx context.Context, s *Session, n int) int {
	history, err := r.messages.Between(ctx, s.Login, s.Peer, n)
	if err != nil {
		r.logger.Error("load history failed", "login", s.Login, "peer", s.Peer, "error", err)
		return 0
	}

	for i, m := range history {
		if !s.post(FormatChatLine(m.Timestamp, m.Sender, m.Body)) {
			return i
		}
		if m.Delivered {
			continue
		}
		if err := r.messages.MarkDelivered(ctx, m.ID); err != nil {
			r.logger.Error("mark delivered failed", "id", m.ID, "error", err)
		}
	}
	return len(history)
}
