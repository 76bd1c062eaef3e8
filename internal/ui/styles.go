// Package ui renders the agent in a plain line-oriented terminal: reading
// input, streaming model output, showing tool calls as they arrive and
// asking for approval.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed     = lipgloss.Color("#E06C75")
	colorGreen   = lipgloss.Color("#98C379")
	colorYellow  = lipgloss.Color("#E5C07B")
	colorBlue    = lipgloss.Color("#61AFEF")
	colorMagenta = lipgloss.Color("#C678DD")
	colorCyan    = lipgloss.Color("#56B6C2")
	colorMuted   = lipgloss.Color("#636B78")
	colorBorder  = lipgloss.Color("#3F4451")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMagenta).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	reasoningStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	toolNameStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	successStyle = lipgloss.NewStyle().Foreground(colorGreen)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)

	diffAddStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	diffDelStyle  = lipgloss.NewStyle().Foreground(colorRed)
	diffHunkStyle = lipgloss.NewStyle().Foreground(colorCyan)
)

// Warn styles a warning line.
func Warn(s string) string { return warnStyle.Render(s) }

// Error styles an error line.
func Error(s string) string { return errorStyle.Render(s) }

// Success styles a confirmation line.
func Success(s string) string { return successStyle.Render(s) }

// Muted styles secondary text.
func Muted(s string) string { return mutedStyle.Render(s) }

// Heading styles a section title.
func Heading(s string) string { return labelStyle.Render(s) }
