package output

import "github.com/charmbracelet/lipgloss"

// Color palette. A single lime accent keeps the CLI distinctive without
// turning into a rainbow.
const (
	ColorLime     = "154" // Primary accent, bright lime green
	ColorWhite    = "255" // Headers, important text
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Separators
	ColorRed      = "196" // Errors
	ColorYellow   = "220" // Warnings
)

// Styles holds the text styles used by the CLI writer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
	Score   lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
	}
}

// NoColorStyles returns unstyled components for plain output.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
