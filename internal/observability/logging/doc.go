// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the bot.
//
// Key features:
//   - JSON and text output formats
//   - Request ID propagation for bot commands
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "ircfeed/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("bot started", slog.String("version", "1.0"))
//	}
//
//	func handleCommand(ctx context.Context) {
//	    logger := logging.LoggerWithRequestID(ctx, slog.Default())
//	    logger.Info("processing command")
//	}
package logging
