package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ircfeed/internal/domain/entity"
	pkgconfig "ircfeed/internal/pkg/config"
)

// IRCConfig holds connection and identity settings for the IRC client.
type IRCConfig struct {
	Server        string
	Port          int
	UseTLS        bool
	TLSSkipVerify bool
	// Channel is the home channel: it receives status replies and is
	// joined in addition to the keyword table channels.
	Channel  string
	Nickname string
	Realname string
	// SendRate is the sustained outbound rate in lines per second.
	SendRate  float64
	SendBurst int
}

// Addr returns host:port.
func (c IRCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

// FeedConfig holds the initial poll settings.
type FeedConfig struct {
	URL      string
	Interval time.Duration
	// FetchTimeout bounds one feed request. Zero disables the timeout.
	FetchTimeout time.Duration
}

// BotConfig is the complete, validated process configuration.
type BotConfig struct {
	IRC          IRCConfig
	Feed         FeedConfig
	KeywordsFile string
	MetricsPort  int
	HealthPort   int

	// Warnings lists the fallbacks applied to optional settings.
	Warnings []string
}

// Defaults for optional settings.
const (
	DefaultIRCPort      = 6667
	DefaultSendRate     = 2.0
	DefaultSendBurst    = 5
	DefaultKeywordsFile = "keywords.json"
	DefaultMetricsPort  = 9090
	DefaultHealthPort   = 9091
)

// LoadBotConfig reads the configuration from the process environment.
//
// Required: IRC_SERVER, IRC_CHANNEL, IRC_NICKNAME, RSS_FEED,
// RSS_CHECK_INTERVAL. Missing or malformed required values are collected
// and returned together, wrapped in entity.ErrConfigLoad. Optional values
// fall back to their defaults with a logged warning.
func LoadBotConfig(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*BotConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &envLoader{logger: logger, metrics: metrics}

	cfg := &BotConfig{
		IRC: IRCConfig{
			Server:        l.required("IRC_SERVER", "irc_server"),
			Port:          track(l, "irc_port", pkgconfig.LoadEnvInt("IRC_PORT", DefaultIRCPort, pkgconfig.ValidatePort)),
			UseTLS:        track(l, "irc_use_ssl", pkgconfig.LoadEnvBool("IRC_USE_SSL", false)),
			TLSSkipVerify: track(l, "irc_tls_skip_verify", pkgconfig.LoadEnvBool("IRC_TLS_SKIP_VERIFY", false)),
			Channel:       l.required("IRC_CHANNEL", "irc_channel"),
			Nickname:      l.required("IRC_NICKNAME", "irc_nickname"),
			SendRate:      track(l, "irc_send_rate", pkgconfig.LoadEnvFloat("IRC_SEND_RATE", DefaultSendRate, pkgconfig.ValidatePositiveFloat)),
			SendBurst:     track(l, "irc_send_burst", pkgconfig.LoadEnvInt("IRC_SEND_BURST", DefaultSendBurst, validateBurst)),
		},
		Feed: FeedConfig{
			URL:          l.requiredValidated("RSS_FEED", "rss_feed", pkgconfig.ValidateFeedURL),
			Interval:     l.requiredDuration("RSS_CHECK_INTERVAL", "rss_check_interval", pkgconfig.ValidateWholeSeconds),
			FetchTimeout: track(l, "feed_fetch_timeout", pkgconfig.LoadEnvDuration("FEED_FETCH_TIMEOUT", 0, pkgconfig.ValidateNonNegativeDuration)),
		},
		KeywordsFile: pkgconfig.LoadEnvString("KEYWORDS_FILE", DefaultKeywordsFile),
		MetricsPort:  track(l, "metrics_port", pkgconfig.LoadEnvInt("METRICS_PORT", DefaultMetricsPort, pkgconfig.ValidatePort)),
		HealthPort:   track(l, "health_port", pkgconfig.LoadEnvInt("HEALTH_PORT", DefaultHealthPort, pkgconfig.ValidatePort)),
	}
	cfg.IRC.Realname = pkgconfig.LoadEnvString("IRC_REALNAME", cfg.IRC.Nickname)
	cfg.Warnings = l.warnings

	if metrics != nil {
		metrics.SetFallbackActive(len(l.warnings) > 0)
	}
	if len(l.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", entity.ErrConfigLoad, errors.Join(l.errs...))
	}
	if metrics != nil {
		metrics.RecordLoadTimestamp()
	}
	return cfg, nil
}

func validateBurst(v int) error {
	return pkgconfig.ValidateIntRange(v, 1, 100)
}

// envLoader collects errors and warnings while a BotConfig is assembled.
type envLoader struct {
	logger   *slog.Logger
	metrics  *pkgconfig.ConfigMetrics
	errs     []error
	warnings []string
}

func (l *envLoader) fail(field string, err error) {
	l.errs = append(l.errs, err)
	if l.metrics != nil {
		l.metrics.RecordValidationError(field)
	}
}

func (l *envLoader) required(envKey, field string) string {
	v, err := pkgconfig.RequireEnv(envKey)
	if err != nil {
		l.fail(field, err)
	}
	return v
}

func (l *envLoader) requiredValidated(envKey, field string, validate func(string) error) string {
	v := l.required(envKey, field)
	if v == "" {
		return ""
	}
	if err := validate(v); err != nil {
		l.fail(field, fmt.Errorf("%s: %w", envKey, err))
		return ""
	}
	return v
}

func (l *envLoader) requiredDuration(envKey, field string, validate func(time.Duration) error) time.Duration {
	d, err := pkgconfig.RequireEnvDuration(envKey, validate)
	if err != nil {
		l.fail(field, err)
	}
	return d
}

// track records fallbacks of an optional value and returns the value.
func track[T any](l *envLoader, field string, result pkgconfig.Result[T]) T {
	if result.FallbackApplied {
		if l.metrics != nil {
			l.metrics.RecordValidationError(field)
			l.metrics.RecordFallback(field)
		}
		for _, warning := range result.Warnings {
			l.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
		l.warnings = append(l.warnings, result.Warnings...)
	}
	return result.Value
}
