package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ircfeed/internal/domain/entity"
	"ircfeed/internal/observability/metrics"
	"ircfeed/internal/observability/tracing"
	"ircfeed/internal/usecase/render"
	"ircfeed/internal/usecase/route"
)

// Replies sent to the first configured channel by StartCycle.
const (
	MsgCycleStarted   = "Cycling current feed."
	MsgAlreadyCycling = "Feed is already cycling."
)

// testFieldLimit caps each value printed by TestFeed.
const testFieldLimit = 300

// Poll modes, used as metric labels.
const (
	modeCycle   = "cycle"
	modeOneShot = "oneshot"
	modeTest    = "test"
)

// FeedFetcher is an interface for fetching RSS/Atom feeds from a URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]entity.FeedEntry, error)
}

// Sender delivers one line of text to a channel or nick.
// Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, target, text string) error
}

// RouterSource hands out the router for the current keyword table.
// The returned router must not change during a pass.
type RouterSource interface {
	Router() *route.Router
}

// Poller runs the polling cycle and the one-shot feed operations.
type Poller struct {
	fetcher  FeedFetcher
	sender   Sender
	routes   RouterSource
	settings *Settings
	logger   *slog.Logger

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}

	activeLoops  atomic.Int32
	loopsStarted atomic.Int64

	// after is swapped in tests to drive the loop without real sleeps.
	after func(time.Duration) <-chan time.Time
	now   func() time.Time
}

// NewPoller creates a Poller. A nil logger uses slog.Default().
func NewPoller(fetcher FeedFetcher, sender Sender, routes RouterSource, settings *Settings, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		fetcher:  fetcher,
		sender:   sender,
		routes:   routes,
		settings: settings,
		logger:   logger,
		after:    time.After,
		now:      time.Now,
	}
}

// Active reports whether a cycle is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// ActiveLoops returns the number of live background loops (0 or 1).
func (p *Poller) ActiveLoops() int {
	return int(p.activeLoops.Load())
}

// LoopsStarted returns how many background loops were ever spawned.
func (p *Poller) LoopsStarted() int64 {
	return p.loopsStarted.Load()
}

// StartCycle starts the background polling loop and acknowledges on the
// first configured channel. If a cycle is already running it only replies
// MsgAlreadyCycling. The loop lives until StopCycle or until ctx is done.
func (p *Poller) StartCycle(ctx context.Context) error {
	ack, err := p.routes.Router().Table().FirstChannel()
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return p.sender.Send(ctx, ack, MsgAlreadyCycling)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.active = true
	p.cancel = cancel
	p.done = done
	p.activeLoops.Add(1)
	p.loopsStarted.Add(1)
	go p.run(loopCtx, done)
	p.mu.Unlock()

	feedURL, interval := p.settings.Feed()
	metrics.SetCycleActive(true)
	p.logger.Info("started cycling feed",
		slog.String("url", feedURL),
		slog.Duration("interval", interval))

	return p.sender.Send(ctx, ack, MsgCycleStarted)
}

// StopCycle cancels the running cycle and waits for its loop to exit.
// It returns false when no cycle was running.
func (p *Poller) StopCycle() bool {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return false
	}
	p.active = false
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	cancel()
	<-done
	metrics.SetCycleActive(false)
	p.logger.Info("stopped cycling feed")
	return true
}

// Shutdown stops the cycle, giving up waiting when ctx expires.
func (p *Poller) Shutdown(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		p.StopCycle()
		close(stopped)
	}()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("poller shutdown: %w", ctx.Err())
	}
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.activeLoops.Add(-1)
	defer p.release(done)

	seen := make(map[string]struct{})
	for {
		feedURL, _ := p.settings.Feed()
		if _, err := p.pass(ctx, modeCycle, feedURL, seen); err != nil {
			p.logger.Warn("feed poll failed",
				slog.String("url", feedURL),
				slog.Any("error", err))
		}

		_, interval := p.settings.Feed()
		now := p.now()
		select {
		case <-ctx.Done():
			return
		case <-p.after(nextWait(now, interval)):
		}
	}
}

// nextWait returns the delay until the next pass: the first whole-second
// tick of the cron schedule that is at least interval away from now.
func nextWait(now time.Time, interval time.Duration) time.Duration {
	next := cron.Every(interval).Next(now)
	for next.Sub(now) < interval {
		next = next.Add(time.Second)
	}
	return next.Sub(now)
}

// release clears the active flag when the loop ends on its own, e.g. when
// the parent context is canceled. StopCycle has already cleared it otherwise.
func (p *Poller) release(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return
	}
	p.cancel()
	p.active = false
	p.cancel, p.done = nil, nil
	metrics.SetCycleActive(false)
}

// OneShotParse fetches feedURL once and notifies on every matching entry,
// deduplicating only within this call. It returns the number of
// notifications sent.
func (p *Poller) OneShotParse(ctx context.Context, feedURL string) (int, error) {
	return p.pass(ctx, modeOneShot, feedURL, make(map[string]struct{}))
}

// TestFeed fetches feedURL once and reports the fields of its first entry
// to target, one line per field.
func (p *Poller) TestFeed(ctx context.Context, feedURL, target string) error {
	ctx, span := tracing.GetTracer().Start(ctx, "poll.test_feed")
	defer span.End()
	span.SetAttributes(attribute.String("feed.url", feedURL))

	start := p.now()
	entries, err := p.fetcher.Fetch(ctx, feedURL)
	metrics.RecordFeedPoll(modeTest, err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return err
	}

	if len(entries) == 0 {
		return p.sender.Send(ctx, target, "No entries found in feed: "+feedURL)
	}

	for _, field := range entries[0].Fields() {
		line := field.Name + ": " + render.FitRunes(field.Value, testFieldLimit)
		if err := p.sender.Send(ctx, target, line); err != nil {
			return err
		}
	}
	return nil
}

// pass runs one fetch and dispatches unseen entries. seen is updated in place.
func (p *Poller) pass(ctx context.Context, mode, feedURL string, seen map[string]struct{}) (int, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "poll.pass")
	defer span.End()
	span.SetAttributes(
		attribute.String("poll.mode", mode),
		attribute.String("feed.url", feedURL))

	start := p.now()
	p.logger.Debug("checking feed", slog.String("url", feedURL), slog.String("mode", mode))

	entries, err := p.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		metrics.RecordFeedPoll(mode, false, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if !errors.Is(err, entity.ErrFeedFetch) {
			err = fmt.Errorf("%w: %w", entity.ErrFeedFetch, err)
		}
		return 0, err
	}

	router := p.routes.Router()
	sent, fresh, dup := 0, 0, 0
	for _, e := range entries {
		if _, ok := seen[e.ID]; ok {
			dup++
			continue
		}
		seen[e.ID] = struct{}{}
		fresh++
		if p.processEntry(ctx, router, e) {
			sent++
		}
	}

	metrics.RecordFeedPoll(mode, true, time.Since(start))
	metrics.RecordFeedEntries(mode, fresh, dup)
	span.SetAttributes(
		attribute.Int("poll.entries", len(entries)),
		attribute.Int("poll.new", fresh),
		attribute.Int("poll.sent", sent))
	return sent, nil
}

// processEntry notifies the first matching channel, if any. It reports
// whether a message was sent.
func (p *Poller) processEntry(ctx context.Context, router *route.Router, e entity.FeedEntry) bool {
	m, ok := router.Match(e.Title)
	if !ok {
		return false
	}

	msg, err := render.Compose(m.Rule.Template, render.Fields{
		Title:       e.Title,
		Link:        e.Link,
		Description: e.Description,
		Summary:     e.Summary,
		Keyword:     m.Keyword,
	}, m.Channel)
	if err != nil {
		metrics.RecordNotification(m.Channel, "render_error")
		p.logger.Error("failed to render notification",
			slog.String("channel", m.Channel),
			slog.String("entry_id", e.ID),
			slog.Any("error", err))
		return false
	}
	if msg.Stage != render.StageNone {
		metrics.RecordTruncation(msg.Stage.String())
	}

	p.logger.Info("posting to channel",
		slog.String("channel", m.Channel),
		slog.String("keyword", m.Keyword),
		slog.String("message", msg.Text))
	if err := p.sender.Send(ctx, m.Channel, msg.Text); err != nil {
		metrics.RecordNotification(m.Channel, "failed")
		p.logger.Error("failed to send notification",
			slog.String("channel", m.Channel),
			slog.Any("error", err))
		return false
	}
	metrics.RecordNotification(m.Channel, "sent")
	return true
}
