package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Feed metrics track poll passes and the entries they yield
var (
	// FeedPollsTotal counts poll passes by mode (cycle, oneshot, test) and status
	FeedPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_polls_total",
			Help: "Total number of feed poll passes",
		},
		[]string{"mode", "status"},
	)

	// FeedPollDuration measures fetch-and-dispatch time per pass
	FeedPollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_poll_duration_seconds",
			Help:    "Feed poll pass duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	// FeedEntriesTotal counts entries by outcome (new, duplicate)
	FeedEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_entries_total",
			Help: "Total number of feed entries examined",
		},
		[]string{"mode", "outcome"},
	)

	// CycleActive is 1 while the background polling loop runs
	CycleActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_cycle_active",
			Help: "1 if the polling cycle is running, 0 otherwise",
		},
	)
)

// Notification metrics track messages routed to channels
var (
	// NotificationsTotal counts notifications by channel and status (sent, failed, render_error)
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of keyword notifications",
		},
		[]string{"channel", "status"},
	)

	// MessageTruncationsTotal counts composed messages that needed shortening
	MessageTruncationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_truncations_total",
			Help: "Total number of notifications shortened to fit the IRC limit",
		},
		[]string{"stage"},
	)
)

// Control metrics track operator commands and reloads
var (
	// CommandsTotal counts handled commands by name and status
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands handled",
		},
		[]string{"command", "status"},
	)

	// ConfigReloadsTotal counts rehash attempts by status
	ConfigReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_config_reloads_total",
			Help: "Total number of configuration reloads",
		},
		[]string{"status"},
	)
)

// IRC metrics track protocol traffic
var (
	// IRCLinesTotal counts protocol lines by direction (in, out)
	IRCLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irc_lines_total",
			Help: "Total number of IRC protocol lines",
		},
		[]string{"direction"},
	)

	// IRCConnected is 1 once registration with the server has completed
	IRCConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "irc_connected",
			Help: "1 if the IRC session is registered, 0 otherwise",
		},
	)
)

// Resilience metrics
var (
	// CircuitBreakerState is 0 (closed), 1 (half-open) or 2 (open) per breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)
)
