// Package poll implements the feed polling cycle and the one-shot feed
// commands.
//
// A Poller owns at most one background loop. Each pass fetches the current
// feed URL, skips entries whose ID was already seen during the cycle, routes
// the rest through the keyword router and sends the composed message for
// the first matching channel. The seen set lives as long as one cycle and is
// reset whenever a cycle starts.
package poll
