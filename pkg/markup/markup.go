// Package markup parses and renders the inline color-span syntax used by the
// log panel: ":red[some text]". Anything that is not a well-formed span with a
// known color name is plain text.
package markup

import (
	"strings"
)

// Colors lists the recognized span color names.
var Colors = []string{"red", "green", "blue", "orange", "violet", "gray", "grey"}

// Span is a run of text with an optional color. Color is empty for plain text.
type Span struct {
	Color string
	Text  string
}

// Renderer turns markup into output for one kind of display.
type Renderer interface {
	Render(markup string) string
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(markup string) string

// Render calls f(markup).
func (f RendererFunc) Render(markup string) string { return f(markup) }

// Plain renders markup as bare text with every span unwrapped.
var Plain Renderer = RendererFunc(func(s string) string {
	var sb strings.Builder
	for _, sp := range Parse(s) {
		sb.WriteString(sp.Text)
	}
	return sb.String()
})

// Parse splits s into spans. Adjacent plain text is merged.
func Parse(s string) []Span {
	var spans []Span
	var plain strings.Builder

	emitPlain := func() {
		if plain.Len() > 0 {
			spans = append(spans, Span{Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(s); {
		if s[i] == ':' {
			if color, text, n, ok := spanAt(s[i:]); ok {
				emitPlain()
				spans = append(spans, Span{Color: color, Text: text})
				i += n
				continue
			}
		}
		plain.WriteByte(s[i])
		i++
	}
	emitPlain()
	return spans
}

// spanAt reports whether s starts with ":name[text]" for a known name.
// n is the number of bytes consumed.
func spanAt(s string) (color, text string, n int, ok bool) {
	open := strings.IndexByte(s, '[')
	if open < 2 {
		return "", "", 0, false
	}
	name := s[1:open]
	if !isColor(name) {
		return "", "", 0, false
	}
	end := strings.IndexByte(s[open+1:], ']')
	if end < 0 {
		return "", "", 0, false
	}
	text = s[open+1 : open+1+end]
	return name, text, open + 1 + end + 1, true
}

func isColor(name string) bool {
	for _, c := range Colors {
		if c == name {
			return true
		}
	}
	return false
}
