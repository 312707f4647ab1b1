package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the title line of terminal summaries.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// PanelStyle wraps a summary block.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// LabelStyle is used for field names in key/value lines.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(14)

// ValueStyle is used for field values.
var ValueStyle = lipgloss.NewStyle().
	Bold(true)

// HelpStyle is used for hints and troubleshooting text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// OKStyle, WarnStyle and ErrorStyle mark the result of a check or run.
var (
	OKStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	WarnStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorOrange)
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
)

// FolderStyle labels a folder name.
var FolderStyle = lipgloss.NewStyle().
	Foreground(ColorGreen)

var keywordColors = []lipgloss.AdaptiveColor{
	ColorMagenta, ColorBlue, ColorYellow, ColorOrange, ColorRed,
}

// KeywordStyle returns the style of the i-th keyword. Colors repeat after
// the palette is exhausted.
func KeywordStyle(i int) lipgloss.Style {
	if i < 0 {
		i = -i
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(keywordColors[i%len(keywordColors)])
}
