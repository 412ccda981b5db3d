package upsell

import (
	"html"
	"strings"
)

// Segment is a run of message text, emphasised or not.
type Segment struct {
	Text string `json:"text"`
	Bold bool   `json:"bold"`
}

// ParseMessage splits a message on its **bold** markers. An unmatched
// trailing marker is kept as literal text.
func ParseMessage(msg string) []Segment {
	var segments []Segment
	rest := msg
	for {
		open := strings.Index(rest, "**")
		if open < 0 {
			break
		}
		closing := strings.Index(rest[open+2:], "**")
		if closing < 0 {
			break
		}
		if open > 0 {
			segments = append(segments, Segment{Text: rest[:open]})
		}
		if bold := rest[open+2 : open+2+closing]; bold != "" {
			segments = append(segments, Segment{Text: bold, Bold: true})
		}
		rest = rest[open+2+closing+2:]
	}
	if rest != "" {
		segments = append(segments, Segment{Text: rest})
	}
	return segments
}

// PlainText drops the markup.
func PlainText(msg string) string {
	var b strings.Builder
	for _, s := range ParseMessage(msg) {
		b.WriteString(s.Text)
	}
	return b.String()
}

// RenderHTML escapes the message and wraps bold runs in <strong>.
func RenderHTML(msg string) string {
	var b strings.Builder
	for _, s := range ParseMessage(msg) {
		if s.Bold {
			b.WriteString("<strong>")
			b.WriteString(html.EscapeString(s.Text))
			b.WriteString("</strong>")
			continue
		}
		b.WriteString(html.EscapeString(s.Text))
	}
	return b.String()
}
