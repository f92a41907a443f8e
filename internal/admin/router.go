// Package admin serves the operator HTTP endpoints: health, Prometheus
// metrics and a live view of who is connected.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andy6609/lobby-chat-server/internal/chat"
)

type StatsSource interface {
	Stats(ctx context.Context) (chat.Stats, error)
}

func NewRouter(stats StatsSource, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		st, err := stats.Stats(ctx)
		if err != nil {
			logger.Warn("stats unavailable", "error", err)
			http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
			return
		}
		if st.Online == nil {
			st.Online = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			logger.Warn("write stats failed", "error", err)
		}
	})
	return r
}

// NewServer wraps the router in an http.Server listening on addr.
func NewServer(addr string, stats StatsSource, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(stats, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
