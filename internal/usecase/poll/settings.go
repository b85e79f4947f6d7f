package poll

import (
	"fmt"
	"sync"
	"time"

	"ircfeed/internal/domain/entity"
	pkgconfig "ircfeed/internal/pkg/config"
)

// Settings holds the feed URL and poll interval. The poller reads them at
// the top of every pass, so updates apply without restarting a cycle.
type Settings struct {
	mu       sync.RWMutex
	feedURL  string
	interval time.Duration
}

// NewSettings validates and returns poll settings.
func NewSettings(feedURL string, interval time.Duration) (*Settings, error) {
	s := &Settings{}
	if err := s.Update(feedURL, interval); err != nil {
		return nil, err
	}
	return s, nil
}

// Feed returns the current feed URL and interval.
func (s *Settings) Feed() (string, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feedURL, s.interval
}

// Update replaces the feed URL and interval. The URL must be an absolute
// http or https URL.
func (s *Settings) Update(feedURL string, interval time.Duration) error {
	if feedURL == "" {
		return &entity.ValidationError{Field: "feed_url", Message: "feed URL is required"}
	}
	if err := pkgconfig.ValidateFeedURL(feedURL); err != nil {
		return &entity.ValidationError{Field: "feed_url", Message: err.Error()}
	}
	if interval < time.Second {
		return &entity.ValidationError{Field: "interval", Message: fmt.Sprintf("interval must be at least 1s, got %v", interval)}
	}
	s.mu.Lock()
	s.feedURL = feedURL
	s.interval = interval
	s.mu.Unlock()
	return nil
}
