package markup

import (
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme maps span color names to terminal colors.
type Theme struct {
	Name   string
	Colors map[string]lipgloss.Color
}

// DefaultTheme returns the vibrant 256-color palette.
func DefaultTheme() Theme {
	return Theme{
		Name: "default",
		Colors: map[string]lipgloss.Color{
			"red":    lipgloss.Color("196"),
			"green":  lipgloss.Color("34"),
			"blue":   lipgloss.Color("39"),
			"orange": lipgloss.Color("214"),
			"violet": lipgloss.Color("141"),
			"gray":   lipgloss.Color("242"),
			"grey":   lipgloss.Color("242"),
		},
	}
}

// OrcaTheme returns a muted palette.
func OrcaTheme() Theme {
	return Theme{
		Name: "orca",
		Colors: map[string]lipgloss.Color{
			"red":    lipgloss.Color("167"),
			"green":  lipgloss.Color("108"),
			"blue":   lipgloss.Color("75"),
			"orange": lipgloss.Color("179"),
			"violet": lipgloss.Color("140"),
			"gray":   lipgloss.Color("245"),
			"grey":   lipgloss.Color("245"),
		},
	}
}

// MonoTheme returns a theme with no colors.
func MonoTheme() Theme {
	return Theme{Name: "mono"}
}

// ThemeByName returns a theme by name, defaulting to DefaultTheme.
func ThemeByName(name string) Theme {
	switch name {
	case "orca":
		return OrcaTheme()
	case "mono":
		return MonoTheme()
	default:
		return DefaultTheme()
	}
}

// ANSI returns a renderer that styles spans with the theme's terminal colors.
// Spans whose color the theme does not define render as plain text.
func ANSI(theme Theme) Renderer {
	styles := make(map[string]lipgloss.Style, len(theme.Colors))
	for name, c := range theme.Colors {
		styles[name] = lipgloss.NewStyle().Foreground(c)
	}
	return RendererFunc(func(s string) string {
		var sb strings.Builder
		for _, sp := range Parse(s) {
			if st, ok := styles[sp.Color]; ok {
				sb.WriteString(st.Render(sp.Text))
				continue
			}
			sb.WriteString(sp.Text)
		}
		return sb.String()
	})
}

// htmlColors are the CSS colors used by the HTML renderer.
var htmlColors = map[string]string{
	"red":    "#ff2b2b",
	"green":  "#21c354",
	"blue":   "#1c83e1",
	"orange": "#ffa421",
	"violet": "#803df5",
	"gray":   "#808495",
	"grey":   "#808495",
}

// HTML renders spans as <span style="color:..."> elements. All text is escaped.
var HTML Renderer = RendererFunc(func(s string) string {
	var sb strings.Builder
	for _, sp := range Parse(s) {
		text := html.EscapeString(sp.Text)
		if c, ok := htmlColors[sp.Color]; ok {
			sb.WriteString(`<span style="color:`)
			sb.WriteString(c)
			sb.WriteString(`">`)
			sb.WriteString(text)
			sb.WriteString(`</span>`)
			continue
		}
		sb.WriteString(text)
	}
	return sb.String()
})
