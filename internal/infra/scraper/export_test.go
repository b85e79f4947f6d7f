package scraper

// TrackedBreakers returns how many per-URL breakers the fetcher holds.
func TrackedBreakers(f *RSSFetcher) int { return f.trackedBreakers() }

const MaxBreakers = maxBreakers
