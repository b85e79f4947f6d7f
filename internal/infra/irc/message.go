package irc

import (
	"errors"
	"strings"
)

// ErrEmptyLine is returned by ParseLine for blank input.
var ErrEmptyLine = errors.New("irc: empty line")

// Message is one parsed protocol line. IRCv3 tags are discarded.
type Message struct {
	Prefix  string
	Command string
	Params  []string
}

// ParseLine parses a line without its trailing CRLF.
func ParseLine(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.HasPrefix(line, "@") {
		if i := strings.IndexByte(line, ' '); i >= 0 {
			line = strings.TrimLeft(line[i+1:], " ")
		} else {
			line = ""
		}
	}
	if line == "" {
		return Message{}, ErrEmptyLine
	}

	var m Message
	if line[0] == ':' {
		i := strings.IndexByte(line, ' ')
		if i < 0 {
			return Message{}, ErrEmptyLine
		}
		m.Prefix = line[1:i]
		line = strings.TrimLeft(line[i+1:], " ")
	}

	for line != "" {
		if line[0] == ':' {
			m.Params = append(m.Params, line[1:])
			break
		}
		var field string
		if i := strings.IndexByte(line, ' '); i >= 0 {
			field, line = line[:i], strings.TrimLeft(line[i+1:], " ")
		} else {
			field, line = line, ""
		}
		if m.Command == "" {
			m.Command = strings.ToUpper(field)
		} else {
			m.Params = append(m.Params, field)
		}
	}
	if m.Command == "" {
		return Message{}, ErrEmptyLine
	}
	return m, nil
}

// Nick returns the nickname part of a "nick!user@host" prefix.
func (m Message) Nick() string {
	if i := strings.IndexAny(m.Prefix, "!@"); i >= 0 {
		return m.Prefix[:i]
	}
	return m.Prefix
}

// Param returns the i-th parameter or "".
func (m Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// sanitize flattens text to a single line.
func sanitize(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}
