package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the chat hub, registered on the default registry and
// exposed through promhttp at /metrics.
var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "slimechat",
		Name:      "connections_active",
		Help:      "Number of currently open websocket connections.",
	})

	UsersJoined = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "slimechat",
		Name:      "users_joined",
		Help:      "Number of connections with a registered session.",
	})

	MessagesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slimechat",
		Name:      "messages_accepted_total",
		Help:      "Messages that passed admission, were persisted and fanned out.",
	})

	MessagesRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slimechat",
		Name:      "messages_rate_limited_total",
		Help:      "Messages rejected by the sliding-window rate limiter.",
	})

	BroadcastsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slimechat",
		Name:      "broadcasts_dropped_total",
		Help:      "Per-recipient deliveries dropped because the client buffer was full.",
	})

	RetentionDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slimechat",
		Name:      "retention_deleted_total",
		Help:      "Messages purged by the retention service.",
	})
)
