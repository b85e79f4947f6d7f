// Package resilience provides fault isolation for the bot's outbound calls.
//
// The circuitbreaker subpackage wraps github.com/sony/gobreaker. It fails
// fast while a feed is persistently unreachable; it never retries.
//
//	cb := circuitbreaker.New(circuitbreaker.FeedFetchConfig())
//	entries, err := circuitbreaker.Do(cb, func() ([]entity.FeedEntry, error) {
//	    return fetch(ctx, url)
//	})
package resilience
