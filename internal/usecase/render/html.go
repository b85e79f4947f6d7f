package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML returns the text content of an HTML fragment with all markup
// removed. Input that fails to parse is returned unchanged.
func CleanHTML(raw string) string {
	if raw == "" || !strings.ContainsAny(raw, "<&") {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return doc.Text()
}
