package meter

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/oszuidwest/diario-bordo/internal/audio"
)

// Band colors follow the web meter.
var (
	ColorSafe    = lipgloss.Color("#10B981") // Emerald
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorDanger  = lipgloss.Color("#EF4444") // Red
	ColorMuted   = lipgloss.Color("#6B7280") // Gray
	ColorDimmed  = lipgloss.Color("#374151") // Dark Gray
	ColorText    = lipgloss.Color("#F8FAFC") // Slate 50
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	UnlitStyle = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	ClipStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Background(ColorDanger).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorDanger)

	FrameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)
)

// zoneStyles maps bar zones to their lit style.
var zoneStyles = map[audio.Zone]lipgloss.Style{
	audio.ZoneSafe:    lipgloss.NewStyle().Foreground(ColorSafe),
	audio.ZoneWarning: lipgloss.NewStyle().Foreground(ColorWarning),
	audio.ZoneDanger:  lipgloss.NewStyle().Foreground(ColorDanger),
}

// ZoneStyle returns the lit style of a zone.
func ZoneStyle(z audio.Zone) lipgloss.Style {
	if s, ok := zoneStyles[z]; ok {
		return s
	}
	return zoneStyles[audio.ZoneSafe]
}
