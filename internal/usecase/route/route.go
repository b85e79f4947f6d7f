// Package route maps feed entry titles to the destination channel whose
// keyword list matches first.
package route

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"ircfeed/internal/domain/entity"
)

// Match is the result of routing one title.
type Match struct {
	Channel string
	Keyword string
	Rule    entity.ChannelRule
}

// Router finds the first (channel, keyword) pair whose keyword occurs in a
// title, case-insensitively. Channels are tried in table order and keywords
// in list order; only the first hit is reported.
//
// Candidate keywords are collected in a single Aho-Corasick pass and then
// resolved in table order, which gives the same answer as testing every
// keyword in turn.
type Router struct {
	mu      sync.Mutex // the matcher keeps per-call scratch state
	matcher *ahocorasick.Matcher
	table   *entity.KeywordTable
	lowered []string       // dictionary, one entry per distinct lowered keyword
	dict    map[string]int // lowered keyword -> dictionary index
}

// New builds a router over table. A nil or empty table never matches.
func New(table *entity.KeywordTable) *Router {
	r := &Router{
		table: table,
		dict:  make(map[string]int),
	}
	for _, rule := range table.Rules() {
		for _, kw := range rule.Keywords {
			lk := strings.ToLower(kw)
			if _, ok := r.dict[lk]; ok {
				continue
			}
			r.dict[lk] = len(r.lowered)
			r.lowered = append(r.lowered, lk)
		}
	}
	if len(r.lowered) > 0 {
		r.matcher = ahocorasick.NewStringMatcher(r.lowered)
	}
	return r
}

// Table returns the keyword table the router was built from.
func (r *Router) Table() *entity.KeywordTable {
	return r.table
}

// Match returns the first matching rule for title.
func (r *Router) Match(title string) (Match, bool) {
	if r.matcher == nil {
		return Match{}, false
	}

	r.mu.Lock()
	hits := r.matcher.Match([]byte(strings.ToLower(title)))
	r.mu.Unlock()
	if len(hits) == 0 {
		return Match{}, false
	}

	found := make(map[int]struct{}, len(hits))
	for _, h := range hits {
		found[h] = struct{}{}
	}

	for _, rule := range r.table.Rules() {
		for _, kw := range rule.Keywords {
			if _, ok := found[r.dict[strings.ToLower(kw)]]; ok {
				return Match{Channel: rule.Channel, Keyword: kw, Rule: rule}, true
			}
		}
	}
	return Match{}, false
}
