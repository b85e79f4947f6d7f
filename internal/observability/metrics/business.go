package metrics

import "time"

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordFeedPoll records one poll pass.
func RecordFeedPoll(mode string, ok bool, duration time.Duration) {
	FeedPollsTotal.WithLabelValues(mode, status(ok)).Inc()
	FeedPollDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordFeedEntries records how many entries a pass saw as new or duplicate.
func RecordFeedEntries(mode string, fresh, duplicate int) {
	if fresh > 0 {
		FeedEntriesTotal.WithLabelValues(mode, "new").Add(float64(fresh))
	}
	if duplicate > 0 {
		FeedEntriesTotal.WithLabelValues(mode, "duplicate").Add(float64(duplicate))
	}
}

// SetCycleActive updates the polling cycle gauge.
func SetCycleActive(active bool) {
	if active {
		CycleActive.Set(1)
	} else {
		CycleActive.Set(0)
	}
}

// RecordNotification records the outcome of one keyword notification.
// Status is one of "sent", "failed" or "render_error".
func RecordNotification(channel, status string) {
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// RecordTruncation records that a notification was shortened at stage.
func RecordTruncation(stage string) {
	MessageTruncationsTotal.WithLabelValues(stage).Inc()
}

// RecordCommand records a handled bot command.
func RecordCommand(command string, ok bool) {
	CommandsTotal.WithLabelValues(command, status(ok)).Inc()
}

// RecordConfigReload records a rehash attempt.
func RecordConfigReload(ok bool) {
	ConfigReloadsTotal.WithLabelValues(status(ok)).Inc()
}

// RecordIRCLine records one protocol line in the given direction ("in" or "out").
func RecordIRCLine(direction string) {
	IRCLinesTotal.WithLabelValues(direction).Inc()
}

// SetIRCConnected updates the IRC registration gauge.
func SetIRCConnected(connected bool) {
	if connected {
		IRCConnected.Set(1)
	} else {
		IRCConnected.Set(0)
	}
}

// DeleteCircuitBreakerState drops the series of a discarded breaker.
func DeleteCircuitBreakerState(name string) {
	CircuitBreakerState.DeleteLabelValues(name)
}

// SetCircuitBreakerState records a breaker state as its gobreaker ordinal.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
