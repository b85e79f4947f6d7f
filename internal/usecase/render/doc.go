// Package render builds IRC notification lines from per-channel message
// templates.
//
// Templates use brace placeholders ({title}, {link}, {description},
// {summary}, {keyword}); "{{" and "}}" produce literal braces. Compose
// appends the trigger suffix and keeps the final line within the IRC
// message limit using a two-stage policy: first shorten the description
// (or the summary), then hard-cut the whole line.
package render
