package chat

import (
	"errors"
	"strconv"
	"strings"

	"github.com/andy6609/lobby-chat-server/internal/credential"
	"github.com/andy6609/lobby-chat-server/internal/store"
)

const maxLoginLength = 32

// command is one entry of a per-state dispatch table. args is the exact
// number of arguments after the verb.
type command struct {
	usage string
	args  int
	run   func(h *Hub, s *Session, args []string)
}

func commandTables() map[State]map[string]command {
	return map[State]map[string]command{
		StateUnauthenticated: {
			"REGISTER": {usage: "REGISTER <login> <password>", args: 2, run: (*Hub).register},
			"LOGIN":    {usage: "LOGIN <login> <password>", args: 2, run: (*Hub).login},
		},
		StateLobby: {
			"CHAT":   {usage: "CHAT <login>", args: 1, run: (*Hub).chat},
			"LIST":   {usage: "LIST", args: 0, run: (*Hub).list},
			"LOGOUT": {usage: "LOGOUT", args: 0, run: (*Hub).logout},
		},
		StateChatting: {
			"/exit":    {usage: "/exit", args: 0, run: (*Hub).exitChat},
			"/who":     {usage: "/who", args: 0, run: (*Hub).who},
			"/history": {usage: "/history <N>", args: 1, run: (*Hub).history},
		},
	}
}

// splitCommand splits on spaces, dropping the empty tokens that runs of
// spaces produce.
func splitCommand(line string) []string {
	var tokens []string
	for _, tok := range strings.Split(line, " ") {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// dispatch runs one inbound line against the table for the session's
// current state. While chatting, anything that is not a known slash
// command is a message body.
func (h *Hub) dispatch(s *Session, line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}

	state := s.State()
	tokens := splitCommand(line)
	cmd, ok := h.commands[state][tokens[0]]
	if !ok {
		if state == StateChatting {
			h.router.Send(h.ctx, s, line)
			return
		}
		s.post("ERROR Unknown command")
		return
	}
	if len(tokens)-1 != cmd.args {
		s.post("ERROR Usage: " + cmd.usage)
		return
	}
	cmd.run(h, s, tokens[1:])
}

func (h *Hub) register(s *Session, args []string) {
	login, password := args[0], args[1]
	if len(login) > maxLoginLength {
		s.post("ERROR Login must be at most " + strconv.Itoa(maxLoginLength) + " characters")
		return
	}

	hash, err := h.creds.Hash(password)
	if errors.Is(err, credential.ErrPasswordTooLong) {
		s.post("ERROR Password must be at most " + strconv.Itoa(credential.MaxPasswordLength) + " bytes")
		return
	}
	if err != nil {
		h.logger.Error("hash credential failed", "session", s.ID, "error", err)
		s.post("ERROR Internal error")
		return
	}

	err = h.users.CreateUser(h.ctx, login, hash)
	switch {
	case errors.Is(err, store.ErrDuplicateIdentity):
		s.post("ERROR User '" + login + "' already exists")
		return
	case err != nil:
		h.logger.Error("register failed", "session", s.ID, "login", login, "error", err)
		s.post("ERROR Internal error")
		return
	}

	h.logger.Info("user registered", "session", s.ID, "login", login)
	h.signIn(s, login, "OK Registered user '"+login+"'")
}

func (h *Hub) login(s *Session, args []string) {
	login, password := args[0], args[1]

	u, err := h.users.FindUser(h.ctx, login)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.post("ERROR No such user")
		return
	case err != nil:
		h.logger.Error("login lookup failed", "session", s.ID, "login", login, "error", err)
		s.post("ERROR Internal error")
		return
	}

	if !h.creds.Verify(u.PassHash, password) {
		s.post("ERROR Invalid password")
		return
	}

	h.signIn(s, login, "OK Logged in as '"+login+"'")
}

func (h *Hub) signIn(s *Session, login, reply string) {
	if err := h.presence.Register(login, s); err != nil {
		s.post("ERROR User '" + login + "' is already logged in")
		return
	}
	s.Login = login
	OnlineUsers.Set(float64(h.presence.Len()))

	h.logger.Info("user logged in", "session", s.ID, "login", login, "addr", s.remote)
	s.post(reply)
	postAll(s, lobbyBanner)
}

func (h *Hub) chat(s *Session, args []string) {
	peer := args[0]
	if peer == s.Login {
		s.post("ERROR Cannot chat with yourself")
		return
	}

	_, err := h.users.FindUser(h.ctx, peer)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.post("ERROR No such user")
		return
	case err != nil:
		h.logger.Error("chat lookup failed", "session", s.ID, "peer", peer, "error", err)
		s.post("ERROR Internal error")
		return
	}

	s.Peer = peer
	postAll(s, chatBanner(peer))
	h.router.ReplayBacklog(h.ctx, s)
}

func (h *Hub) list(s *Session, _ []string) {
	s.post(formatUsers(h.presence.List(s.Login)))
}

func formatUsers(names []string) string {
	if len(names) == 0 {
		return "USERS:"
	}
	return "USERS: " + strings.Join(names, " ")
}

func (h *Hub) logout(s *Session, _ []string) {
	h.presence.Deregister(s.Login, s)
	OnlineUsers.Set(float64(h.presence.Len()))
	h.logger.Info("user logged out", "session", s.ID, "login", s.Login)

	s.Peer = ""
	s.Login = ""
	postAll(s, welcomeBanner)
}

func (h *Hub) exitChat(s *Session, _ []string) {
	s.Peer = ""
	postAll(s, lobbyBanner)
}

func (h *Hub) who(s *Session, _ []string) {
	s.post("Chat with " + s.Peer)
}

func (h *Hub) history(s *Session, args []string) {
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		s.post("ERROR Usage: /history <N>")
		return
	}
	if h.router.History(h.ctx, s, n) == 0 {
		s.post("Server: no messages with " + s.Peer)
	}
}
