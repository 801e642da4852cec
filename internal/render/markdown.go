// Package render converts backend-produced markdown into HTML for the view
// payloads. Summaries and chat replies come back as markdown-ish text.
package render

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
)

// ToHTML renders markdown to HTML. If conversion fails the text is returned
// escaped, so the view always gets something safe to embed.
func ToHTML(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "<p>" + html.EscapeString(md) + "</p>"
	}
	return buf.String()
}
