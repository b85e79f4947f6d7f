// Command bot runs the IRC feed bot: it polls one RSS/Atom feed, routes new
// entries to channels by keyword and answers operator commands.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ircfeed/internal/config"
	"ircfeed/internal/domain/entity"
	"ircfeed/internal/infra/irc"
	"ircfeed/internal/infra/keywords"
	"ircfeed/internal/infra/scraper"
	"ircfeed/internal/infra/sysinfo"
	"ircfeed/internal/infra/worker"
	"ircfeed/internal/observability/logging"
	pkgconfig "ircfeed/internal/pkg/config"
	"ircfeed/internal/usecase/dispatch"
	"ircfeed/internal/usecase/poll"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := initLogger()

	if err := run(logger); err != nil {
		logger.Error("bot stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("bot stopped")
}

func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

func run(logger *slog.Logger) error {
	source := config.NewEnvSource(logger, pkgconfig.NewConfigMetrics("bot"))
	cfg, err := source.Load()
	if err != nil {
		return err
	}
	// .env may set LOG_LEVEL / LOG_FORMAT.
	logger = initLogger()

	table, err := keywords.Load(cfg.KeywordsFile)
	if err != nil {
		return err
	}
	logger.Info("configuration loaded",
		slog.String("irc_server", cfg.IRC.Addr()),
		slog.Bool("irc_tls", cfg.IRC.UseTLS),
		slog.String("home_channel", cfg.IRC.Channel),
		slog.String("feed_url", cfg.Feed.URL),
		slog.Duration("interval", cfg.Feed.Interval),
		slog.Int("keyword_channels", table.Len()),
		slog.Int("warnings", len(cfg.Warnings)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := poll.NewSettings(cfg.Feed.URL, cfg.Feed.Interval)
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrConfigLoad, err)
	}
	routes := dispatch.NewRoutes(table)
	fetcher := scraper.NewRSSFetcher(createHTTPClient(), cfg.Feed.FetchTimeout)

	health := worker.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)

	client := irc.New(irc.Config{
		Addr:          cfg.IRC.Addr(),
		UseTLS:        cfg.IRC.UseTLS,
		TLSSkipVerify: cfg.IRC.TLSSkipVerify,
		Nickname:      cfg.IRC.Nickname,
		Realname:      cfg.IRC.Realname,
		HomeChannel:   cfg.IRC.Channel,
		SendRate:      cfg.IRC.SendRate,
		SendBurst:     cfg.IRC.SendBurst,
	}, logger)
	client.JoinChannels = func() []string { return routes.Table().Channels() }
	client.OnRegistered = func() { health.SetReady(true) }

	health.AddCheck("irc", func() error {
		if !client.Registered() {
			return irc.ErrNotConnected
		}
		return nil
	})
	health.AddCheck("feed", func() error {
		feedURL, _ := settings.Feed()
		return fetcher.Check(feedURL)
	})

	poller := poll.NewPoller(fetcher, client, routes, settings, logger)

	var monitor dispatch.SystemMonitor
	if sampler, err := sysinfo.NewSampler(); err != nil {
		logger.Warn("system metrics unavailable, !status will report so", slog.Any("error", err))
	} else {
		monitor = sampler
	}

	controller := dispatch.NewController(dispatch.Deps{
		Poller:      poller,
		Sender:      client,
		Joiner:      client,
		Monitor:     monitor,
		Routes:      routes,
		Settings:    settings,
		Source:      source,
		LoadTable:   keywords.Load,
		HomeChannel: cfg.IRC.Channel,
		Logger:      logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer health.SetReady(false)
		return client.Run(gctx)
	})
	g.Go(func() error {
		return controller.Run(gctx, client.Messages())
	})
	g.Go(func() error {
		return ignoreClosed(startMetricsServer(gctx, logger, cfg.MetricsPort))
	})
	g.Go(func() error {
		return ignoreClosed(health.Start(gctx))
	})

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := poller.Shutdown(shutdownCtx); serr != nil {
		logger.Error("failed to stop feed cycle", slog.Any("error", serr))
	}

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Info("shutdown signal received")
		return nil
	}
	return err
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// createHTTPClient has no overall timeout; FEED_FETCH_TIMEOUT bounds fetches.
func createHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12, // Enforce TLS 1.2+
			},
		},
	}
}
