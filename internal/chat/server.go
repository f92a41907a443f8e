package chat

import (
	"log/slog"
	"net"
	"sync"
	"time"
)

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server accepts connections and hands each one to the hub as a Session.
type Server struct {
	cfg      ServerConfig
	logger   *slog.Logger
	hub      *Hub
	listener net.Listener
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewServer(cfg ServerConfig, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		hub:    hub,
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go s.hub.Run()
	s.wg.Add(1)
	go s.acceptLoop(ln)

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Addr is the bound listener address, useful when Addr was ":0".
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("shutting down")

		if s.listener != nil {
			s.listener.Close()
		}

		s.hub.Stop()
		s.hub.Wait()
		s.wg.Wait()

		s.logger.Info("shutdown complete")
	})
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			// listener closed: normal shutdown
			return
		}

		sess := NewSession(conn)
		s.logger.Info("client connected", "session", sess.ID, "addr", sess.remote)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			HandleSession(sess, s.hub, s.cfg.ReadTimeout, s.cfg.WriteTimeout)
		}()
	}
}
