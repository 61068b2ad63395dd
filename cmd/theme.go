package cmd

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors used by status output.
type Theme struct {
	Primary   lipgloss.Color // title
	Error     lipgloss.Color // unreachable, failed
	Warning   lipgloss.Color // degraded
	Success   lipgloss.Color // reachable
	Text      lipgloss.Color
	TextMuted lipgloss.Color // labels, hints
	Border    lipgloss.Color
}

// DarkTheme is the default, matching OpenCode's color scheme.
func DarkTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#fab283"),
		Error:     lipgloss.Color("#e06c75"),
		Warning:   lipgloss.Color("#f5a742"),
		Success:   lipgloss.Color("#7fd88f"),
		Text:      lipgloss.Color("#eeeeee"),
		TextMuted: lipgloss.Color("#808080"),
		Border:    lipgloss.Color("#484848"),
	}
}

// LightTheme is for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#b35c00"),
		Error:     lipgloss.Color("#cf222e"),
		Warning:   lipgloss.Color("#bf8700"),
		Success:   lipgloss.Color("#116329"),
		Text:      lipgloss.Color("#1f2328"),
		TextMuted: lipgloss.Color("#656d76"),
		Border:    lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	text  lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
	box   lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		label: lipgloss.NewStyle().Foreground(t.TextMuted).Width(10),
		text:  lipgloss.NewStyle().Foreground(t.Text),
		ok:    lipgloss.NewStyle().Foreground(t.Success),
		warn:  lipgloss.NewStyle().Foreground(t.Warning),
		err:   lipgloss.NewStyle().Foreground(t.Error),
		box:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1),
	}
}
