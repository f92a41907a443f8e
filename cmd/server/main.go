package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/andy6609/lobby-chat-server/internal/admin"
	"github.com/andy6609/lobby-chat-server/internal/chat"
	"github.com/andy6609/lobby-chat-server/internal/config"
	"github.com/andy6609/lobby-chat-server/internal/credential"
	"github.com/andy6609/lobby-chat-server/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("chat-server", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to YAML config file")
	addr := flags.String("addr", "", "chat listen address (overrides config)")
	adminAddr := flags.String("admin-addr", "", "admin/metrics listen address, \"off\" to disable")
	dbPath := flags.String("db", "", "SQLite database path (overrides config)")
	logLevel := flags.String("log-level", "", "debug, info, warn or error (overrides config)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *adminAddr != "" {
		cfg.AdminAddr = *adminAddr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	hub := chat.NewHub(chat.HubConfig{
		Users:       st,
		Messages:    st,
		Credentials: credential.NewBcrypt(cfg.BcryptCost),
		Buffer:      cfg.EventBuffer,
		Logger:      logger,
	})
	srv := chat.NewServer(chat.ServerConfig{
		Addr:         cfg.Addr,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, hub, logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		return err
	}

	var adminSrv *http.Server
	if cfg.AdminAddr != "" && cfg.AdminAddr != "off" {
		adminSrv = admin.NewServer(cfg.AdminAddr, hub, logger)
		go func() {
			logger.Info("admin endpoint started", "addr", cfg.AdminAddr)
			if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin endpoint failed", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal", "signal", sig.String())

	if adminSrv != nil {
		_ = adminSrv.Close()
	}
	srv.Stop()
	return nil
}
