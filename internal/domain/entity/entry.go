package entity

import (
	"strings"
	"time"
)

// MissingDescription is substituted when an entry has no description.
const MissingDescription = "No description available."

// FeedEntry is one item from a parsed feed. It only lives for the duration
// of a single poll pass.
type FeedEntry struct {
	ID          string
	Title       string
	Link        string
	Description string
	Summary     string

	// Informational fields, reported by the feed test command.
	Content    string
	Author     string
	Categories []string
	Published  *time.Time
	Updated    *time.Time
}

// EntryField is a named, stringified field of an entry.
type EntryField struct {
	Name  string
	Value string
}

// Fields returns the non-empty fields of the entry in a fixed order.
func (e FeedEntry) Fields() []EntryField {
	var out []EntryField
	add := func(name, value string) {
		if value != "" {
			out = append(out, EntryField{Name: name, Value: value})
		}
	}
	add("id", e.ID)
	add("title", e.Title)
	add("link", e.Link)
	add("description", e.Description)
	add("summary", e.Summary)
	add("content", e.Content)
	add("author", e.Author)
	if len(e.Categories) > 0 {
		add("categories", strings.Join(e.Categories, ", "))
	}
	if e.Published != nil {
		add("published", e.Published.Format(time.RFC1123Z))
	}
	if e.Updated != nil {
		add("updated", e.Updated.Format(time.RFC1123Z))
	}
	return out
}
