// Package color holds the ANSI palette used by CLI output.
package color

import "github.com/charmbracelet/lipgloss"

// New initializes a lipgloss.Color from a string value.
func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

var (
	Red    = New("1")
	Green  = New("2")
	Yellow = New("3")
	Blue   = New("4")
	Purple = New("5")
	Cyan   = New("6")
)

var (
	HiRed    = New("9")
	HiPurple = New("13")
	HiCyan   = New("14")
)

// Gray is used for secondary details.
var Gray = New("#808080")

// ForStatus maps an advisory session status to its display color.
func ForStatus(status string) lipgloss.Color {
	switch status {
	case "synced":
		return Green
	case "idle":
		return Blue
	case "no_log":
		return Yellow
	case "error":
		return Red
	default:
		return Gray
	}
}
