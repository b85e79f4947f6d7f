package render

import (
	"fmt"
	"strings"
)

// Fields holds the values substituted into a message template.
type Fields struct {
	Title       string
	Link        string
	Description string
	Summary     string
	Keyword     string
}

func (f Fields) lookup(name string) (string, bool) {
	switch name {
	case "title":
		return f.Title, true
	case "link":
		return f.Link, true
	case "description":
		return f.Description, true
	case "summary":
		return f.Summary, true
	case "keyword":
		return f.Keyword, true
	}
	return "", false
}

// Render substitutes fields into tmpl.
func Render(tmpl string, f Fields) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl) + len(f.Title) + len(f.Link))
	err := walk(tmpl, func(literal string) {
		b.WriteString(literal)
	}, func(name string) error {
		v, ok := f.lookup(name)
		if !ok {
			return fmt.Errorf("%w: {%s}", ErrMissingPlaceholder, name)
		}
		b.WriteString(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// Validate reports whether tmpl would render with the recognized fields.
func Validate(tmpl string) error {
	_, err := Render(tmpl, Fields{})
	return err
}

// walk splits tmpl into literal runs and placeholder names.
func walk(tmpl string, literal func(string), placeholder func(string) error) error {
	start := 0
	for i := 0; i < len(tmpl); i++ {
		switch tmpl[i] {
		case '{':
			literal(tmpl[start:i])
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				literal("{")
				i++
				start = i + 1
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformedTemplate, i)
			}
			name := tmpl[i+1 : i+1+end]
			if strings.ContainsAny(name, "{:!") {
				return fmt.Errorf("%w: unsupported placeholder {%s}", ErrMalformedTemplate, name)
			}
			if err := placeholder(name); err != nil {
				return err
			}
			i += end + 1
			start = i + 1
		case '}':
			literal(tmpl[start:i])
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				literal("}")
				i++
				start = i + 1
				continue
			}
			return fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		}
	}
	literal(tmpl[start:])
	return nil
}
