package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcp_messages_sent_total",
			Help: "Messages persisted, by kind",
		},
		[]string{"kind"},
	)

	MessagesRedacted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vcp_messages_redacted_total",
			Help: "Messages delivered with redacted content",
		},
	)

	MessagesBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcp_messages_blocked_total",
			Help: "Messages rejected by the content filter, by category",
		},
		[]string{"category"},
	)

	LiveDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vcp_live_deliveries_total",
			Help: "Messages fanned out to at least one live connection",
		},
	)

	EmailsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vcp_notification_emails_total",
			Help: "Offline-notification emails handed to the notifier",
		},
	)

	EmailsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcp_notification_suppressed_total",
			Help: "Offline notifications skipped, by reason",
		},
		[]string{"reason"}, // "online", "preference", "window"
	)

	DigestRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vcp_digest_runs_total",
			Help: "Daily digest executions",
		},
	)

	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vcp_online_users",
			Help: "Users with at least one live connection",
		},
	)
)
