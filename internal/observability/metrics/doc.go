// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all bot metrics including:
//   - Feed poll metrics (passes, duration, entries)
//   - Notification metrics (sent, failed, truncated)
//   - Command and reload metrics
//   - IRC traffic metrics
//   - Circuit breaker state
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "ircfeed/internal/observability/metrics"
//
//	func pass(mode string) {
//	    start := time.Now()
//	    // ... fetch and dispatch ...
//	    metrics.RecordFeedPoll(mode, true, time.Since(start))
//	}
package metrics
