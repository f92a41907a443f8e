package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type HubConfig struct {
	Users       UserStore
	Messages    MessageStore
	Credentials Credentials
	Buffer      int
	Now         func() time.Time
	Logger      *slog.Logger
}

// Hub is the single goroutine that owns every session's protocol state, the
// presence registry and routing decisions. Readers hand it lines through
// Submit and never touch session state themselves.
type Hub struct {
	events   chan Event
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	users    UserStore
	creds    Credentials
	presence *Presence
	router   *Router
	commands map[State]map[string]command
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 128
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	presence := NewPresence()
	return &Hub{
		events:   make(chan Event, cfg.Buffer),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		users:    cfg.Users,
		creds:    cfg.Credentials,
		presence: presence,
		router:   NewRouter(cfg.Messages, presence, cfg.Now, logger),
		commands: commandTables(),
	}
}

// Submit hands ev to the hub. It reports false once the hub has stopped.
func (h *Hub) Submit(ev Event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.stopCh:
		return false
	}
}

// Stopped is closed when Stop is called.
func (h *Hub) Stopped() <-chan struct{} {
	return h.stopCh
}

// Stop signals the Run loop to exit. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// Wait blocks until the Run loop has completely finished.
func (h *Hub) Wait() {
	<-h.doneCh
}

// Stats asks the hub for a snapshot of connections and online identities.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.events <- Event{Type: EventStats, Stats: reply}:
	case <-h.stopCh:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-h.doneCh:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

func (h *Hub) Run() {
	defer close(h.doneCh)
	// Single-writer ownership: sessions, presence and every Session's
	// Login/Peer are only accessed in this goroutine.
	sessions := make(map[*Session]struct{})

	for {
		select {
		case ev := <-h.events:
			start := time.Now()

			switch ev.Type {
			case EventConnect:
				sessions[ev.Session] = struct{}{}
				ConnectedSessions.Set(float64(len(sessions)))
				postAll(ev.Session, welcomeBanner)
			case EventLine:
				h.dispatch(ev.Session, ev.Text)
				close(ev.Done)
			case EventDisconnect:
				h.handleDisconnect(sessions, ev.Session)
				ConnectedSessions.Set(float64(len(sessions)))
			case EventStats:
				ev.Stats <- Stats{Connections: len(sessions), Online: h.presence.List("")}
			}

			EventsTotal.WithLabelValues(ev.Type.String()).Inc()
			EventProcessingDuration.WithLabelValues(ev.Type.String()).Observe(time.Since(start).Seconds())
		case <-h.stopCh:
			h.cancel()
			for s := range sessions {
				s.Out.Close()
				_ = s.Conn.Close()
			}
			return
		}
	}
}

func (h *Hub) handleDisconnect(sessions map[*Session]struct{}, s *Session) {
	if _, ok := sessions[s]; !ok {
		return
	}
	delete(sessions, s)
	s.Out.Close()

	if s.Login == "" {
		h.logger.Info("client disconnected", "session", s.ID, "addr", s.remote)
		return
	}
	if h.presence.Deregister(s.Login, s) {
		OnlineUsers.Set(float64(h.presence.Len()))
	}
	h.logger.Info("user left", "session", s.ID, "login", s.Login, "addr", s.remote)
	s.Peer = ""
	s.Login = ""
}
