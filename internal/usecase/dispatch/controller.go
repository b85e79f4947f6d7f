// Package dispatch turns bot commands into poller and configuration
// operations and owns the state they share: the keyword table and the feed
// settings.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ircfeed/internal/config"
	"ircfeed/internal/domain/entity"
	"ircfeed/internal/observability/logging"
	"ircfeed/internal/observability/metrics"
	"ircfeed/internal/usecase/poll"
	"ircfeed/internal/usecase/render"
)

// maxErrorRunes caps error text in replies.
const maxErrorRunes = 300

// Replies.
const (
	UsageParse   = "Usage: !parse <feed url>"
	UsageFeed    = "Usage: !feed <feed url> <interval>"
	UsageTestRSS = "Usage: !testrss <feed url>"

	MsgReloaded     = "Configuration and modules reloaded successfully."
	MsgNotCycling   = "Feed is not cycling."
	MsgCycleStopped = "Stopped cycling feed."
	MsgNoChannels   = "No channels configured, nothing to cycle."
)

// Poller is the subset of poll.Poller the controller drives.
type Poller interface {
	StartCycle(ctx context.Context) error
	StopCycle() bool
	OneShotParse(ctx context.Context, feedURL string) (int, error)
	TestFeed(ctx context.Context, feedURL, target string) error
}

// Joiner joins channels on the transport.
type Joiner interface {
	Join(ctx context.Context, channels ...string) error
}

// SystemMonitor reports host utilisation in percent.
type SystemMonitor interface {
	Usage(ctx context.Context) (cpu, memory float64, err error)
}

// TableLoader reads a keyword table from a file.
type TableLoader func(path string) (*entity.KeywordTable, error)

// Deps are the controller's collaborators. Joiner and Monitor are optional.
type Deps struct {
	Poller      Poller
	Sender      poll.Sender
	Joiner      Joiner
	Monitor     SystemMonitor
	Routes      *Routes
	Settings    *poll.Settings
	Source      config.Source
	LoadTable   TableLoader
	HomeChannel string
	Logger      *slog.Logger
}

// Controller handles bot commands.
type Controller struct {
	poller   Poller
	sender   poll.Sender
	joiner   Joiner
	monitor  SystemMonitor
	routes   *Routes
	settings *poll.Settings
	source   config.Source
	load     TableLoader
	logger   *slog.Logger

	// reloadMu serializes Reload. homeMu guards home.
	reloadMu sync.Mutex
	homeMu   sync.RWMutex
	home     string
}

// NewController wires a controller.
func NewController(d Deps) *Controller {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		poller:   d.Poller,
		sender:   d.Sender,
		joiner:   d.Joiner,
		monitor:  d.Monitor,
		routes:   d.Routes,
		settings: d.Settings,
		source:   d.Source,
		load:     d.LoadTable,
		logger:   logger,
		home:     d.HomeChannel,
	}
}

// HomeChannel returns the channel that receives status replies.
func (c *Controller) HomeChannel() string {
	c.homeMu.RLock()
	defer c.homeMu.RUnlock()
	return c.home
}

// Run handles messages until msgs is closed or ctx is done. Commands run
// one at a time; a long command delays the next one.
func (c *Controller) Run(ctx context.Context, msgs <-chan entity.InboundMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			c.Handle(ctx, m)
		}
	}
}

type command struct {
	name string
	run  func(c *Controller, ctx context.Context, m entity.InboundMessage, text string) error
}

// Commands are matched by prefix in this order: "!parsefoo x" runs !parse.
var commands = []command{
	{"!parse", (*Controller).cmdParse},
	{"!cycle", (*Controller).cmdCycle},
	{"!feed", (*Controller).cmdFeed},
	{"!status", (*Controller).cmdStatus},
	{"!rehash", (*Controller).cmdRehash},
	{"!testrss", (*Controller).cmdTestRSS},
	{"!stop", (*Controller).cmdStop},
}

// Handle runs the command in m, if any. Errors are reported to the
// requesting context and logged; Handle never fails the caller.
func (c *Controller) Handle(ctx context.Context, m entity.InboundMessage) {
	text := m.Text
	if !strings.HasPrefix(text, "!") {
		return
	}

	var cmd *command
	for i := range commands {
		if strings.HasPrefix(text, commands[i].name) {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		return
	}

	ctx = logging.WithRequestID(ctx, uuid.NewString())
	logger := logging.LoggerWithRequestID(ctx, c.logger).With(
		slog.String("command", cmd.name),
		slog.String("sender", m.Sender),
		slog.String("target", m.Target))
	ctx = logging.WithLogger(ctx, logger)
	logger.Debug("received command", slog.String("text", text))

	start := time.Now()
	err := cmd.run(c, ctx, m, text)
	metrics.RecordCommand(cmd.name, err == nil)
	if err != nil {
		logger.Error("command failed", slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		return
	}
	logger.Info("command completed", slog.Duration("duration", time.Since(start)))
}

func (c *Controller) reply(ctx context.Context, target, text string) error {
	if err := c.sender.Send(ctx, target, text); err != nil {
		return fmt.Errorf("reply to %s: %w", target, err)
	}
	return nil
}

// usage replies with a usage line and returns ErrCommandFormat so the
// command is counted as failed.
func (c *Controller) usage(ctx context.Context, m entity.InboundMessage, text string) error {
	if err := c.reply(ctx, m.ReplyTarget(), text); err != nil {
		return err
	}
	return entity.ErrCommandFormat
}

func (c *Controller) cmdParse(ctx context.Context, m entity.InboundMessage, text string) error {
	args := splitFields(text, 1)
	if len(args) != 2 {
		return c.usage(ctx, m, UsageParse)
	}
	feedURL := args[1]

	logging.FromContext(ctx).Info("parsing feed once", slog.String("url", feedURL))
	n, err := c.poller.OneShotParse(ctx, feedURL)
	if err != nil {
		_ = c.reply(ctx, m.ReplyTarget(), "Failed to parse feed: "+feedURL)
		return err
	}
	logging.FromContext(ctx).Info("one-shot parse finished", slog.String("url", feedURL), slog.Int("sent", n))
	return nil
}

func (c *Controller) cmdCycle(ctx context.Context, m entity.InboundMessage, _ string) error {
	err := c.poller.StartCycle(ctx)
	if errors.Is(err, entity.ErrEmptyKeywordTable) {
		_ = c.reply(ctx, m.ReplyTarget(), MsgNoChannels)
	}
	return err
}

func (c *Controller) cmdStop(ctx context.Context, m entity.InboundMessage, _ string) error {
	if !c.poller.StopCycle() {
		return c.reply(ctx, m.ReplyTarget(), MsgNotCycling)
	}
	return c.reply(ctx, c.HomeChannel(), MsgCycleStopped)
}

func (c *Controller) cmdFeed(ctx context.Context, m entity.InboundMessage, text string) error {
	args := splitFields(text, 2)
	if len(args) != 3 {
		return c.usage(ctx, m, UsageFeed)
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(args[2]))
	if err != nil || seconds <= 0 {
		return c.usage(ctx, m, UsageFeed)
	}
	if err := c.UpdateFeed(args[1], time.Duration(seconds)*time.Second); err != nil {
		return c.usage(ctx, m, UsageFeed)
	}
	return c.reply(ctx, c.HomeChannel(),
		fmt.Sprintf("Feed updated. Now cycling %s every %d seconds.", args[1], seconds))
}

func (c *Controller) cmdStatus(ctx context.Context, _ entity.InboundMessage, _ string) error {
	status, err := c.Status(ctx)
	if err != nil {
		_ = c.reply(ctx, c.HomeChannel(), "Status unavailable.")
		return err
	}
	return c.reply(ctx, c.HomeChannel(), status)
}

func (c *Controller) cmdRehash(ctx context.Context, _ entity.InboundMessage, _ string) error {
	logging.FromContext(ctx).Info("rehashing configuration and modules")
	err := c.Reload(ctx)
	if err != nil {
		_ = c.reply(ctx, c.HomeChannel(), "Failed to rehash: "+shortError(err))
		return err
	}
	return c.reply(ctx, c.HomeChannel(), MsgReloaded)
}

func (c *Controller) cmdTestRSS(ctx context.Context, m entity.InboundMessage, text string) error {
	args := splitFields(text, 1)
	if len(args) != 2 {
		return c.usage(ctx, m, UsageTestRSS)
	}
	logging.FromContext(ctx).Info("testing feed", slog.String("url", args[1]))
	if err := c.poller.TestFeed(ctx, args[1], m.ReplyTarget()); err != nil {
		_ = c.reply(ctx, m.ReplyTarget(), "Failed to fetch feed: "+args[1])
		return err
	}
	return nil
}

// UpdateFeed changes the feed URL and interval. A running cycle picks the
// change up on its next pass.
func (c *Controller) UpdateFeed(feedURL string, interval time.Duration) error {
	if err := c.settings.Update(feedURL, interval); err != nil {
		return err
	}
	c.logger.Info("feed updated", slog.String("url", feedURL), slog.Duration("interval", interval))
	return nil
}

// Reload re-reads the configuration source and the keyword file. Nothing
// changes unless both succeed. A running cycle keeps running with the new
// table and settings. Newly listed channels are joined.
func (c *Controller) Reload(ctx context.Context) (err error) {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()
	defer func() { metrics.RecordConfigReload(err == nil) }()

	cfg, err := c.source.Load()
	if err != nil {
		return err
	}
	table, err := c.load(cfg.KeywordsFile)
	if err != nil {
		return err
	}
	if err := c.settings.Update(cfg.Feed.URL, cfg.Feed.Interval); err != nil {
		return err
	}

	previous := c.routes.Table()
	c.routes.Swap(table)
	c.homeMu.Lock()
	c.home = cfg.IRC.Channel
	c.homeMu.Unlock()

	c.logger.Info("configuration reloaded",
		slog.Int("channels", table.Len()),
		slog.String("feed", cfg.Feed.URL),
		slog.Duration("interval", cfg.Feed.Interval))

	if joined := newChannels(previous, table, cfg.IRC.Channel); len(joined) > 0 && c.joiner != nil {
		if err := c.joiner.Join(ctx, joined...); err != nil {
			// the swap stands; the channels can be joined on the next rehash
			c.logger.Warn("failed to join new channels", slog.Any("channels", joined), slog.Any("error", err))
		}
	}
	return nil
}

func newChannels(prev, next *entity.KeywordTable, home string) []string {
	known := make(map[string]struct{})
	for _, ch := range prev.Channels() {
		known[strings.ToLower(ch)] = struct{}{}
	}
	var out []string
	for _, ch := range append([]string{home}, next.Channels()...) {
		key := strings.ToLower(ch)
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		out = append(out, ch)
	}
	return out
}

// Status formats host utilisation and the feed settings.
func (c *Controller) Status(ctx context.Context) (string, error) {
	if c.monitor == nil {
		return "", errors.New("no system monitor configured")
	}
	cpu, mem, err := c.monitor.Usage(ctx)
	if err != nil {
		return "", fmt.Errorf("sample system usage: %w", err)
	}
	feedURL, interval := c.settings.Feed()
	return fmt.Sprintf("Status: CPU %.1f%%, RAM %.1f%%, Feed: %s, Interval: %ds",
		cpu, mem, feedURL, int(interval/time.Second)), nil
}

// shortError flattens err to one line that fits in a reply.
func shortError(err error) string {
	msg := strings.Join(strings.Fields(strings.ReplaceAll(err.Error(), "\n", "; ")), " ")
	return render.FitRunes(msg, maxErrorRunes)
}
