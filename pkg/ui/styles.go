package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Color palette
var (
	// Brand colors
	Primary   = lipgloss.Color("#2E86DE") // Blue - defensive
	Secondary = lipgloss.Color("#00D4AA") // Teal

	// Status colors
	Success = lipgloss.Color("#00D26A") // Bright green
	Warning = lipgloss.Color("#FFB800") // Amber
	Error   = lipgloss.Color("#FF3838") // Red
	Muted   = lipgloss.Color("#6B7280") // Gray

	// Event colors
	Defended = lipgloss.Color("#00D26A") // Green - the target pushed back
	Served   = lipgloss.Color("#FAFAFA") // White
	Degraded = lipgloss.Color("#FF6B6B") // Red/Orange
	Rejected = lipgloss.Color("#FFD93D") // Yellow
	Failed   = lipgloss.Color("#B07CFF") // Violet
)

// Pre-configured styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true).
			MarginTop(1)

	ConfigLabelStyle = lipgloss.NewStyle().
				Foreground(Muted).
				Width(16)

	ConfigValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA"))

	StatLabelStyle = lipgloss.NewStyle().
			Foreground(Muted)

	StatValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	BracketStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ProtectedStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	VulnerableStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	URLStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)
)

// EventStyle returns the style for a classified event name such as
// "RATE_LIMIT" or "ALLOWED".
func EventStyle(event string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch event {
	case "RATE_LIMIT", "WAF_BLOCK", "TIMEOUT":
		return base.Foreground(Defended)
	case "ALLOWED":
		return base.Foreground(Served)
	case "SERVER_ERROR":
		return base.Foreground(Degraded)
	case "CLIENT_ERROR":
		return base.Foreground(Rejected)
	case "ERROR":
		return base.Foreground(Failed)
	default:
		return base.Foreground(Muted)
	}
}

// ScoreStyle colors a 0-100 risk score. Higher means more defences were
// observed.
func ScoreStyle(score int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch {
	case score >= 70:
		return base.Foreground(Success)
	case score >= 40:
		return base.Foreground(Warning)
	default:
		return base.Foreground(Error)
	}
}

// EventLabel turns an event name into display text: "RATE_LIMIT" becomes
// "Rate Limit". A Caser is stateful, so each call builds its own.
func EventLabel(event string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(event), "_", " "))
}
