package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_sessions",
		Help: "Number of currently connected sessions",
	})

	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_online_users",
		Help: "Number of authenticated identities in the presence registry",
	})

	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_total",
		Help: "Total hub events processed by type",
	}, []string{"type"})

	ChatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Chat messages routed, by outcome (live, stored, failed)",
	}, []string{"outcome"})

	EventProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_event_processing_seconds",
		Help:    "Time to process each event type",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(ConnectedSessions)
	prometheus.MustRegister(OnlineUsers)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(ChatMessagesTotal)
	prometheus.MustRegister(EventProcessingDuration)
}
