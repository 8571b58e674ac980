// Package htmlstrip reduces HTML email bodies to plain text.
package htmlstrip

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// skipped elements contribute no text.
var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "head": true, "title": true,
}

// block elements are separated from their neighbours by a single space.
var block = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "td": true,
	"th": true, "table": true, "blockquote": true, "pre": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// String returns the visible text of an HTML document with whitespace collapsed.
func String(s string) string {
	text, _ := Text(strings.NewReader(s))
	return text
}

// Text tokenizes r and returns its visible text. Image alt text is kept.
func Text(r io.Reader) (string, error) {
	var w textWriter
	z := html.NewTokenizer(r)
	depth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && err != io.EOF {
				return w.String(), err
			}
			return w.String(), nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if skipped[tag] {
				if tt == html.StartTagToken {
					depth++
				}
				continue
			}
			if block[tag] {
				w.space()
			}
			if tag == "img" && hasAttr {
				for {
					key, val, more := z.TagAttr()
					if string(key) == "alt" {
						w.write(string(val))
					}
					if !more {
						break
					}
				}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipped[tag] && depth > 0 {
				depth--
			}
			if block[tag] {
				w.space()
			}

		case html.TextToken:
			if depth == 0 {
				w.write(string(z.Text()))
			}
		}
	}
}

// textWriter collapses runs of whitespace into single spaces.
type textWriter struct {
	sb      strings.Builder
	pending bool
}

func (w *textWriter) space() {
	if w.sb.Len() > 0 {
		w.pending = true
	}
}

func (w *textWriter) write(s string) {
	if s == "" {
		return
	}
	if isSpace(rune(s[0])) {
		w.space()
	}
	for i, f := range strings.FieldsFunc(s, isSpace) {
		if w.pending || i > 0 {
			w.sb.WriteByte(' ')
		}
		w.sb.WriteString(f)
		w.pending = false
	}
	if isSpace(rune(s[len(s)-1])) {
		w.space()
	}
}

func (w *textWriter) String() string {
	return w.sb.String()
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}
