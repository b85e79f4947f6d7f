package entity

import (
	"fmt"
	"strings"
)

// DefaultMessageTemplate is used when a channel rule has no template.
const DefaultMessageTemplate = "{title} - {link}"

// ChannelRule binds an ordered keyword list and a message template to one
// destination channel.
type ChannelRule struct {
	Channel  string
	Keywords []string
	Template string
}

// NewChannelRule builds a rule, applying the default template when tmpl is nil.
func NewChannelRule(channel string, keywords []string, tmpl *string) (ChannelRule, error) {
	r := ChannelRule{
		Channel:  channel,
		Keywords: append([]string(nil), keywords...),
		Template: DefaultMessageTemplate,
	}
	if tmpl != nil {
		r.Template = *tmpl
	}
	if err := r.Validate(); err != nil {
		return ChannelRule{}, err
	}
	return r, nil
}

// Validate checks that the rule has a channel name and at least one
// non-empty keyword.
func (r ChannelRule) Validate() error {
	if strings.TrimSpace(r.Channel) == "" {
		return &ValidationError{Field: "channel", Message: "channel name is required"}
	}
	if len(r.Keywords) == 0 {
		return &ValidationError{Field: "keywords", Message: fmt.Sprintf("channel %s has no keywords", r.Channel)}
	}
	for i, kw := range r.Keywords {
		if kw == "" {
			return &ValidationError{Field: "keywords", Message: fmt.Sprintf("channel %s keyword %d is empty", r.Channel, i)}
		}
	}
	return nil
}

// KeywordTable is an ordered, immutable mapping from channel name to rule.
// Iteration order is the order in which channels were declared.
type KeywordTable struct {
	rules []ChannelRule
	index map[string]int
}

// NewKeywordTable builds a table from rules in declaration order.
// Duplicate channel names are rejected.
func NewKeywordTable(rules ...ChannelRule) (*KeywordTable, error) {
	t := &KeywordTable{
		rules: make([]ChannelRule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.index[r.Channel]; dup {
			return nil, &ValidationError{Field: "channel", Message: fmt.Sprintf("duplicate channel %s", r.Channel)}
		}
		t.index[r.Channel] = len(t.rules)
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// Len returns the number of channels.
func (t *KeywordTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Rules returns a copy of the rules in declaration order.
func (t *KeywordTable) Rules() []ChannelRule {
	if t == nil {
		return nil
	}
	return append([]ChannelRule(nil), t.rules...)
}

// Channels returns the channel names in declaration order.
func (t *KeywordTable) Channels() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.rules))
	for i, r := range t.rules {
		out[i] = r.Channel
	}
	return out
}

// Rule looks up the rule for a channel.
func (t *KeywordTable) Rule(channel string) (ChannelRule, bool) {
	if t == nil {
		return ChannelRule{}, false
	}
	i, ok := t.index[channel]
	if !ok {
		return ChannelRule{}, false
	}
	return t.rules[i], true
}

// FirstChannel returns the channel declared first.
func (t *KeywordTable) FirstChannel() (string, error) {
	if t.Len() == 0 {
		return "", ErrEmptyKeywordTable
	}
	return t.rules[0].Channel, nil
}
