// Package scraper provides the RSS/Atom feed fetcher used by the poller.
// It uses the gofeed library to parse feed content behind a circuit breaker.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ircfeed/internal/domain/entity"
	"ircfeed/internal/resilience/circuitbreaker"
	"ircfeed/internal/usecase/render"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// DefaultUserAgent identifies the bot to feed servers.
const DefaultUserAgent = "ircfeed-bot"

// maxBreakers caps the number of per-URL breakers kept at once.
const maxBreakers = 64

// RSSFetcher implements poll.FeedFetcher using the gofeed library.
// Each feed URL has its own circuit breaker, so a failing URL never blocks
// another one. There is no retry.
type RSSFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// NewRSSFetcher creates a new RSSFetcher with the given HTTP client.
// A positive timeout bounds each fetch; zero leaves fetches unbounded.
func NewRSSFetcher(client *http.Client, timeout time.Duration) *RSSFetcher {
	return &RSSFetcher{
		client:    client,
		timeout:   timeout,
		userAgent: DefaultUserAgent,
		breakers:  make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// breaker returns the breaker for feedURL, creating it on first use. When
// the cap is reached a closed breaker is discarded first.
func (f *RSSFetcher) breaker(feedURL string) *circuitbreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := f.breakers[feedURL]; ok {
		return cb
	}
	if len(f.breakers) >= maxBreakers {
		f.evictLocked()
	}

	cfg := circuitbreaker.FeedFetchConfig()
	cfg.Name = cfg.Name + ":" + feedURL
	cb := circuitbreaker.New(cfg)
	f.breakers[feedURL] = cb
	return cb
}

func (f *RSSFetcher) evictLocked() {
	victim := ""
	for u, cb := range f.breakers {
		victim = u
		if !cb.IsOpen() {
			break
		}
	}
	if cb, ok := f.breakers[victim]; ok {
		cb.Release()
		delete(f.breakers, victim)
	}
}

func (f *RSSFetcher) trackedBreakers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.breakers)
}

// Fetch retrieves and parses an RSS/Atom feed from the given URL.
// Entries are returned in the order the feed lists them. Every failure
// wraps entity.ErrFeedFetch.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string) ([]entity.FeedEntry, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cb := f.breaker(feedURL)
	entries, err := circuitbreaker.Do(cb, func() ([]entity.FeedEntry, error) {
		return f.doFetch(ctx, feedURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("feed fetch circuit breaker open, request rejected",
				slog.String("service", "feed-fetch"),
				slog.String("url", feedURL),
				slog.String("state", cb.State().String()))
		}
		return nil, fmt.Errorf("%w: %s: %w", entity.ErrFeedFetch, feedURL, err)
	}

	return entries, nil
}

// Check reports an error while the breaker for feedURL is open. A URL that
// was never fetched is healthy.
func (f *RSSFetcher) Check(feedURL string) error {
	f.mu.Lock()
	cb, ok := f.breakers[feedURL]
	f.mu.Unlock()
	if ok && cb.IsOpen() {
		return fmt.Errorf("%w: circuit breaker %s is open", entity.ErrFeedFetch, cb.Name())
	}
	return nil
}

// doFetch performs the actual feed fetch without the circuit breaker.
func (f *RSSFetcher) doFetch(ctx context.Context, feedURL string) ([]entity.FeedEntry, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = f.userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}
	return EntriesFromFeed(feed), nil
}

// EntriesFromFeed converts parsed gofeed items to feed entries.
func EntriesFromFeed(feed *gofeed.Feed) []entity.FeedEntry {
	if feed == nil {
		return nil
	}
	entries := make([]entity.FeedEntry, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		entries = append(entries, entryFromItem(it))
	}
	return entries
}

func entryFromItem(it *gofeed.Item) entity.FeedEntry {
	description := render.CleanHTML(it.Description)
	content := render.CleanHTML(it.Content)

	e := entity.FeedEntry{
		ID:          it.GUID,
		Title:       it.Title,
		Link:        it.Link,
		Description: description,
		Summary:     description,
		Content:     content,
		Categories:  it.Categories,
		Published:   it.PublishedParsed,
		Updated:     it.UpdatedParsed,
	}

	// Without a GUID, fall back to the link, then the title.
	if e.ID == "" {
		e.ID = it.Link
	}
	if e.ID == "" {
		e.ID = it.Title
	}
	if e.Description == "" {
		e.Description = entity.MissingDescription
	}
	if e.Summary == "" {
		e.Summary = content
	}
	if it.Author != nil {
		e.Author = it.Author.Name
	}
	return e
}
