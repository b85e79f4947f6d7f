package poll

import (
	"context"
	"sync"
	"testing"
	"time"

	"ircfeed/internal/domain/entity"
	"ircfeed/internal/usecase/route"
)

type fetchResult struct {
	entries []entity.FeedEntry
	err     error
}

// fakeFetcher returns queued results in order, repeating the last one.
type fakeFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	urls    []string
	calls   chan string
}

func newFakeFetcher(results ...fetchResult) *fakeFetcher {
	return &fakeFetcher{results: results, calls: make(chan string, 64)}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]entity.FeedEntry, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	var r fetchResult
	if len(f.results) > 0 {
		r = f.results[0]
		if len(f.results) > 1 {
			f.results = f.results[1:]
		}
	}
	f.mu.Unlock()
	f.calls <- url
	return r.entries, r.err
}

func (f *fakeFetcher) URLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func (f *fakeFetcher) waitCalls(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for fetch call %d", i+1)
		}
	}
}

type sentLine struct {
	Target string
	Text   string
}

type fakeSender struct {
	mu    sync.Mutex
	lines []sentLine
	err   error
}

func (s *fakeSender) Send(_ context.Context, target, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lines = append(s.lines, sentLine{Target: target, Text: text})
	return nil
}

func (s *fakeSender) Lines() []sentLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentLine(nil), s.lines...)
}

type staticRoutes struct{ router *route.Router }

func (s staticRoutes) Router() *route.Router { return s.router }

func mustTable(t *testing.T, rules ...entity.ChannelRule) *entity.KeywordTable {
	t.Helper()
	table, err := entity.NewKeywordTable(rules...)
	if err != nil {
		t.Fatalf("NewKeywordTable() error = %v", err)
	}
	return table
}

func mustRule(t *testing.T, channel string, keywords ...string) entity.ChannelRule {
	t.Helper()
	r, err := entity.NewChannelRule(channel, keywords, nil)
	if err != nil {
		t.Fatalf("NewChannelRule() error = %v", err)
	}
	return r
}

// manualClock hands the loop a channel the test fires by hand.
type manualClock struct {
	mu    sync.Mutex
	waits []time.Duration
	ticks chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{ticks: make(chan time.Time)}
}

func (c *manualClock) after(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()
	return c.ticks
}

func (c *manualClock) tick(t *testing.T) {
	t.Helper()
	select {
	case c.ticks <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("loop never waited for the next tick")
	}
}

func (c *manualClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

type harness struct {
	poller  *Poller
	fetcher *fakeFetcher
	sender  *fakeSender
	clock   *manualClock
}

func newHarness(t *testing.T, table *entity.KeywordTable, results ...fetchResult) *harness {
	t.Helper()
	settings, err := NewSettings("http://feed.test/rss", time.Minute)
	if err != nil {
		t.Fatalf("NewSettings() error = %v", err)
	}
	h := &harness{
		fetcher: newFakeFetcher(results...),
		sender:  &fakeSender{},
		clock:   newManualClock(),
	}
	h.poller = NewPoller(h.fetcher, h.sender, staticRoutes{router: route.New(table)}, settings, nil)
	h.poller.after = h.clock.after
	t.Cleanup(func() { h.poller.StopCycle() })
	return h
}
