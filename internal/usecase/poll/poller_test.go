package poll

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ircfeed/internal/domain/entity"
)

func entry(id, title string) entity.FeedEntry {
	return entity.FeedEntry{
		ID:          id,
		Title:       title,
		Link:        "http://x/" + id,
		Description: entity.MissingDescription,
	}
}

func TestStartCycle_DoubleStart(t *testing.T) {
	table := mustTable(t, mustRule(t, "#news", "rust"), mustRule(t, "#misc", "go"))
	h := newHarness(t, table, fetchResult{})

	require.NoError(t, h.poller.StartCycle(context.Background()))
	require.NoError(t, h.poller.StartCycle(context.Background()))

	want := []sentLine{
		{Target: "#news", Text: MsgCycleStarted},
		{Target: "#news", Text: MsgAlreadyCycling},
	}
	if diff := cmp.Diff(want, h.sender.Lines()); diff != "" {
		t.Errorf("sent lines mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, h.poller.ActiveLoops())
	assert.Equal(t, int64(1), h.poller.LoopsStarted())
	assert.True(t, h.poller.Active())

	assert.True(t, h.poller.StopCycle())
	assert.Equal(t, 0, h.poller.ActiveLoops())
	assert.False(t, h.poller.Active())
	assert.False(t, h.poller.StopCycle(), "second stop should be a no-op")
}

func TestStartCycle_EmptyTable(t *testing.T) {
	h := newHarness(t, nil)

	err := h.poller.StartCycle(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrEmptyKeywordTable))
	assert.True(t, errors.Is(err, entity.ErrConfigLoad))
	assert.Equal(t, int64(0), h.poller.LoopsStarted())
	assert.Empty(t, h.sender.Lines())
}

func TestCycle_NoDuplicateWithinCycle(t *testing.T) {
	table := mustTable(t, mustRule(t, "#news", "rust"))
	entries := []entity.FeedEntry{entry("1", "Rust 2.0 released"), entry("2", "Rust tips")}
	h := newHarness(t, table,
		fetchResult{entries: entries},
		fetchResult{entries: append(entries, entry("3", "More rust"))})

	require.NoError(t, h.poller.StartCycle(context.Background()))
	h.fetcher.waitCalls(t, 1)
	h.clock.tick(t)
	h.fetcher.waitCalls(t, 1)
	// the third wait proves the second pass finished
	h.clock.tick(t)
	h.fetcher.waitCalls(t, 1)
	h.poller.StopCycle()

	var got []string
	for _, l := range h.sender.Lines() {
		if l.Target == "#news" && strings.Contains(l.Text, "Triggered by") {
			got = append(got, l.Text)
		}
	}
	want := []string{
		"Rust 2.0 released - http://x/1 (Triggered by: 'rust')",
		"Rust tips - http://x/2 (Triggered by: 'rust')",
		"More rust - http://x/3 (Triggered by: 'rust')",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestCycle_RestartResetsSeenSet(t *testing.T) {
	table := mustTable(t, mustRule(t, "#news", "rust"))
	h := newHarness(t, table, fetchResult{entries: []entity.FeedEntry{entry("1", "Rust 2.0 released")}})

	require.NoError(t, h.poller.StartCycle(context.Background()))
	h.fetcher.waitCalls(t, 1)
	h.clock.tick(t)
	h.fetcher.waitCalls(t, 1)
	require.True(t, h.poller.StopCycle())

	require.NoError(t, h.poller.StartCycle(context.Background()))
	h.fetcher.waitCalls(t, 1)
	h.clock.tick(t)
	h.fetcher.waitCalls(t, 1)
	require.True(t, h.poller.StopCycle())

	count := 0
	for _, l := range h.sender.Lines() {
		if strings.HasPrefix(l.Text, "Rust 2.0 released") {
			count++
		}
	}
	assert.Equal(t, 2, count, "each cycle notifies once")
	assert.Equal(t, int64(2), h.poller.LoopsStarted())
}

func TestCycle_FetchErrorContinues(t *testing.T) {
	table := mustTable(t, mustRule(t, "#news", "rust"))
	h := newHarness(t, table,
		fetchResult{err: errors.New("connection refused")},
		fetchResult{entries: []entity.FeedEntry{entry("1", "Rust 2.0 released")}})

	require.NoError(t, h.poller.StartCycle(context.Background()))
	h.fetcher.waitCalls(t, 1)
	h.clock.tick(t)
	h.fetcher.waitCalls(t, 1)
	h.clock.tick(t)
	h.fetcher.waitCalls(t, 1)
	h.poller.StopCycle()

	lines := h.sender.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Rust 2.0 released - http://x/1 (Triggered by: 'rust')", lines[1].Text)
}

func TestCycle_ReadsSettingsEachPass(t *testing.T) {
	table := mustTable(t, mustRule(t, "#news", "rust"))
	h := newHarness(t, table, fetchResult{})
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 500_000_000, time.UTC)
	h.poller.now = func() time.Time { return fixed }

	require.NoError(t, h.poller.StartCycle(context.Background()))
	h.fetcher.waitCalls(t, 1)
	require.NoError(t, h.poller.settings.Update("http://other.test/atom", 2*time.Minute))
	h.clock.tick(t)
	h.fetcher.waitCalls(t, 1)
	h.clock.tick(t)
	h.fetcher.waitCalls(t, 1)
	h.poller.StopCycle()

	urls := h.fetcher.URLs()
	require.Len(t, urls, 3)
	assert.Equal(t, "http://feed.test/rss", urls[0])
	assert.Equal(t, "http://other.test/atom", urls[1])

	// the wait covers the full interval, then rounds up to the next whole second
	waits := h.clock.Waits()
	require.GreaterOrEqual(t, len(waits), 2)
	assert.Equal(t, 2*time.Minute+500*time.Millisecond, waits[1])
}

func TestNextWait(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		now      time.Time
		interval time.Duration
		want     time.Duration
	}{
		{name: "on a second boundary", now: base, interval: time.Minute, want: time.Minute},
		{name: "mid second", now: base.Add(250 * time.Millisecond), interval: time.Minute, want: time.Minute + 750*time.Millisecond},
		{name: "just after a boundary", now: base.Add(time.Nanosecond), interval: 5 * time.Second, want: 6*time.Second - time.Nanosecond},
		{name: "one second", now: base.Add(900 * time.Millisecond), interval: time.Second, want: 1100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextWait(tt.now, tt.interval)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, tt.interval, "a pass must never come early")
		})
	}
}

func TestCycle_StopDuringWait(t *testing.T) {
	table := mustTable(t, mustRule(t, "#news", "rust"))
	h := newHarness(t, table, fetchResult{})

	require.NoError(t, h.poller.StartCycle(context.Background()))
	h.fetcher.waitCalls(t, 1)

	done := make(chan bool)
	go func() { done <- h.poller.StopCycle() }()
	select {
	case stopped := <-done:
		assert.True(t, stopped)
	case <-time.After(2 * time.Second):
		t.Fatal("StopCycle did not return")
	}
	assert.Equal(t, 0, h.poller.ActiveLoops())
}

func TestCycle_ParentContextCancel(t *testing.T) {
	table := mustTable(t, mustRule(t, "#news", "rust"))
	h := newHarness(t, table, fetchResult{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.poller.StartCycle(ctx))
	h.fetcher.waitCalls(t, 1)
	cancel()

	require.Eventually(t, func() bool { return h.poller.ActiveLoops() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, h.poller.Active())
	assert.False(t, h.poller.StopCycle())
}

func TestShutdown(t *testing.T) {
	table := mustTable(t, mustRule(t, "#news", "rust"))
	h := newHarness(t, table, fetchResult{})

	require.NoError(t, h.poller.StartCycle(context.Background()))
	h.fetcher.waitCalls(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.poller.Shutdown(ctx))
	assert.False(t, h.poller.Active())

	// idle shutdown is fine too
	require.NoError(t, h.poller.Shutdown(ctx))
}

func TestOneShotParse(t *testing.T) {
	table := mustTable(t,
		mustRule(t, "#news", "rust"),
		mustRule(t, "#misc", "release"))

	tests := []struct {
		name    string
		entries []entity.FeedEntry
		want    []sentLine
	}{
		{
			name:    "first channel wins",
			entries: []entity.FeedEntry{entry("1", "Rust 2.0 released")},
			want: []sentLine{
				{Target: "#news", Text: "Rust 2.0 released - http://x/1 (Triggered by: 'rust')"},
			},
		},
		{
			name:    "second channel",
			entries: []entity.FeedEntry{entry("1", "Go release notes")},
			want: []sentLine{
				{Target: "#misc", Text: "Go release notes - http://x/1 (Triggered by: 'release')"},
			},
		},
		{
			name:    "duplicate ids in one feed notify once",
			entries: []entity.FeedEntry{entry("1", "rust"), entry("1", "rust again")},
			want: []sentLine{
				{Target: "#news", Text: "rust - http://x/1 (Triggered by: 'rust')"},
			},
		},
		{
			name:    "no match",
			entries: []entity.FeedEntry{entry("1", "Weather today")},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, table, fetchResult{entries: tt.entries})

			n, err := h.poller.OneShotParse(context.Background(), "http://feed.test/one")
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)
			if diff := cmp.Diff(tt.want, h.sender.Lines()); diff != "" {
				t.Errorf("sent lines mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, []string{"http://feed.test/one"}, h.fetcher.URLs())
			assert.False(t, h.poller.Active(), "one-shot must not start a cycle")
		})
	}
}

func TestOneShotParse_RepeatedCallsAreIndependent(t *testing.T) {
	table := mustTable(t, mustRule(t, "#news", "rust"))
	h := newHarness(t, table, fetchResult{entries: []entity.FeedEntry{entry("1", "rust")}})

	for i := 0; i < 2; i++ {
		n, err := h.poller.OneShotParse(context.Background(), "http://feed.test/one")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	assert.Len(t, h.sender.Lines(), 2)
}

func TestOneShotParse_FetchError(t *testing.T) {
	table := mustTable(t, mustRule(t, "#news", "rust"))
	h := newHarness(t, table, fetchResult{err: errors.New("boom")})

	_, err := h.poller.OneShotParse(context.Background(), "http://feed.test/one")
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrFeedFetch))
	assert.Empty(t, h.sender.Lines())
}

func TestOneShotParse_RenderErrorSkipsEntry(t *testing.T) {
	bad := entity.ChannelRule{Channel: "#news", Keywords: []string{"rust"}, Template: "{title} {nope}"}
	table := mustTable(t, bad)
	h := newHarness(t, table, fetchResult{entries: []entity.FeedEntry{entry("1", "rust")}})

	n, err := h.poller.OneShotParse(context.Background(), "http://feed.test/one")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, h.sender.Lines())
}

func TestOneShotParse_LongMessageFitsLimit(t *testing.T) {
	tmpl := "{title} {description}"
	r, err := entity.NewChannelRule("#news", []string{"rust"}, &tmpl)
	require.NoError(t, err)
	table := mustTable(t, r)

	e := entry("1", "Rust 2.0 released")
	e.Description = strings.Repeat("d", 800)
	h := newHarness(t, table, fetchResult{entries: []entity.FeedEntry{e}})

	_, err = h.poller.OneShotParse(context.Background(), "http://feed.test/one")
	require.NoError(t, err)
	lines := h.sender.Lines()
	require.Len(t, lines, 1)
	assert.LessOrEqual(t, len([]rune(lines[0].Text))+len("#news")+20, 512)
	assert.Contains(t, lines[0].Text, "...")
}

func TestTestFeed(t *testing.T) {
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	long := strings.Repeat("a", 400)

	tests := []struct {
		name    string
		entries []entity.FeedEntry
		want    []sentLine
	}{
		{
			name: "empty feed",
			want: []sentLine{{Target: "#ops", Text: "No entries found in feed: http://feed.test/t"}},
		},
		{
			name: "first entry fields",
			entries: []entity.FeedEntry{
				{ID: "g1", Title: "Hello", Link: "http://x", Published: &published},
				{ID: "g2", Title: "Ignored"},
			},
			want: []sentLine{
				{Target: "#ops", Text: "id: g1"},
				{Target: "#ops", Text: "title: Hello"},
				{Target: "#ops", Text: "link: http://x"},
				{Target: "#ops", Text: "published: " + published.Format(time.RFC1123Z)},
			},
		},
		{
			name:    "long values are capped at 300",
			entries: []entity.FeedEntry{{ID: "g1", Summary: long}},
			want: []sentLine{
				{Target: "#ops", Text: "id: g1"},
				{Target: "#ops", Text: "summary: " + strings.Repeat("a", 297) + "..."},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, mustTable(t, mustRule(t, "#news", "rust")), fetchResult{entries: tt.entries})

			require.NoError(t, h.poller.TestFeed(context.Background(), "http://feed.test/t", "#ops"))
			if diff := cmp.Diff(tt.want, h.sender.Lines()); diff != "" {
				t.Errorf("sent lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTestFeed_FetchError(t *testing.T) {
	h := newHarness(t, nil, fetchResult{err: errors.New("dns failure")})

	err := h.poller.TestFeed(context.Background(), "http://feed.test/t", "#ops")
	require.Error(t, err)
	assert.Empty(t, h.sender.Lines())
}

func TestNewSettings_Validation(t *testing.T) {
	_, err := NewSettings("", time.Minute)
	assert.True(t, errors.Is(err, entity.ErrConfigLoad))

	_, err = NewSettings("http://x", 0)
	assert.True(t, errors.Is(err, entity.ErrConfigLoad))

	s, err := NewSettings("http://x", 30*time.Second)
	require.NoError(t, err)
	url, interval := s.Feed()
	assert.Equal(t, "http://x", url)
	assert.Equal(t, 30*time.Second, interval)

	for _, bad := range []string{"notaurl", "ftp://example.com/rss", "http://"} {
		err = s.Update(bad, time.Minute)
		assert.True(t, errors.Is(err, entity.ErrConfigLoad), "Update(%q) error = %v", bad, err)
	}
	url, _ = s.Feed()
	assert.Equal(t, "http://x", url, "rejected updates must not change the settings")
}
