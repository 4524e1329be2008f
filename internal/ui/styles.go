package ui

import "github.com/charmbracelet/lipgloss"

// Palette, as ANSI 256 colour codes.
const (
	ColorAccent    = "39"  // headers, progress and the active stage
	ColorAccentDim = "31"  // completed stages
	ColorGray      = "245" // labels
	ColorDarkGray  = "238" // borders and pending stages
	ColorRed       = "196"
	ColorYellow    = "220"
	ColorHighlight = "226" // matched terms in snippets
)

// Styles holds all UI styles for terminal rendering.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Active  lipgloss.Style
	Border  lipgloss.Style
	Speed   lipgloss.Style
	Label   lipgloss.Style
	// Match renders a highlighted term inside a snippet.
	Match lipgloss.Style
}

// DefaultStyles returns the coloured styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentDim)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Border:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Speed:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Match:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorHighlight)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		Success: plain,
		Warning: plain,
		Error:   plain,
		Dim:     plain,
		Active:  plain,
		Border:  plain,
		Speed:   plain,
		Label:   plain,
		Match:   plain,
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
