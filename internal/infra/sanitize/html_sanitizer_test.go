package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text", input: "alice", want: "alice"},
		{name: "email", input: "Alice@Example.com", want: "Alice@Example.com"},
		{name: "empty", input: "", want: ""},
		{name: "bold tag", input: "<b>alice</b>", want: "alice"},
		{name: "script dropped", input: "bob<script>alert(1)</script>", want: "bob"},
		{name: "nested discard", input: "<style>p{}</style><p>carol</p>", want: "carol"},
		{name: "attributes", input: `<img src=x onerror="alert(1)">dave`, want: "dave"},
		{name: "comment", input: "eve<!-- hidden -->", want: "eve"},
		{name: "entities stay escaped", input: "a&amp;b", want: "a&amp;b"},
		{name: "bare ampersand escaped", input: "a&b", want: "a&amp;b"},
		{name: "control characters", input: "fr\x00ank\n", want: "frank"},
		{name: "unclosed tag", input: "grace<b", want: "grace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizer.Sanitize(tt.input))
		})
	}
}

func TestHTMLSanitizer_SanitizeEmail(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "alice@example.com", want: "alice@example.com"},
		{name: "apostrophe", input: "o'brien@example.com", want: "o'brien@example.com"},
		{name: "ampersand", input: "tom&jerry@example.com", want: "tom&jerry@example.com"},
		{name: "markup stripped", input: "<b>eve</b>@example.com", want: "eve@example.com"},
		{name: "control characters", input: "bob@example.com\r\n", want: "bob@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizer.SanitizeEmail(tt.input))
		})
	}

	assert.Equal(t, "o&#39;brien", sanitizer.Sanitize("o'brien"))
}
