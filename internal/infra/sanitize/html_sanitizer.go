// Package sanitize strips markup from free-text input.
package sanitize

import (
	"strings"
	"unicode"

	"arena/internal/domain/service"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements whose text content is dropped together with the tags.
var discardContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Textarea: true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Title:    true,
}

type htmlSanitizer struct{}

// NewHTMLSanitizer returns a sanitizer that removes every tag, comment and
// doctype and keeps text content.
func NewHTMLSanitizer() service.Sanitizer {
	return htmlSanitizer{}
}

// Sanitize strips markup and escapes what remains, for text that may be
// rendered.
func (htmlSanitizer) Sanitize(input string) string {
	return html.EscapeString(stripMarkup(input))
}

// SanitizeEmail strips markup without escaping: ' and & are valid in the
// local part and must be stored as typed.
func (htmlSanitizer) SanitizeEmail(input string) string {
	return stripMarkup(input)
}

// stripMarkup returns the unescaped text content of input.
func stripMarkup(input string) string {
	if input == "" {
		return ""
	}

	var (
		b     strings.Builder
		depth int
	)

	tokenizer := html.NewTokenizer(strings.NewReader(input))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF or malformed tail; either way we are done
			return stripControl(b.String())

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if discardContent[atom.Lookup(name)] {
				depth++
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if discardContent[atom.Lookup(name)] && depth > 0 {
				depth--
			}

		case html.TextToken:
			if depth == 0 {
				b.Write(tokenizer.Text())
			}

		case html.SelfClosingTagToken, html.CommentToken, html.DoctypeToken:
		}
	}
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}

		return r
	}, s)
}
