// Package render holds the shared symbols, colors and banners used by the console
// and batch output.
package render

import (
	"github.com/atinylittleshell/mia/internal/session"
	"github.com/charmbracelet/lipgloss"
)

const (
	ColorCyan   = lipgloss.Color("12") // Script output
	ColorYellow = lipgloss.Color("11") // Confirmation prompt, paused
	ColorGreen  = lipgloss.Color("10") // Completed, connected
	ColorRed    = lipgloss.Color("9")  // Errors, disconnected
	ColorGray   = lipgloss.Color("8")  // Dim/secondary
)

const (
	SymbolRun     = "▶" // Exchange in flight
	SymbolPaused  = "⏸" // Paused with lines remaining
	SymbolConfirm = "?" // Awaiting confirmation
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolSystem  = "→" // System message
)

var (
	HeaderStyle  = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)
	OutputStyle  = lipgloss.NewStyle().Foreground(ColorCyan)
	PromptStyle  = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	PausedStyle  = lipgloss.NewStyle().Foreground(ColorYellow)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorRed)
	DimStyle     = lipgloss.NewStyle().Foreground(ColorGray)

	// ConfirmBoxStyle frames the confirmation question.
	ConfirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorYellow).
			Padding(0, 1)
)

// ModeSymbol returns the styled status symbol for a session mode.
func ModeSymbol(mode session.Mode) string {
	switch mode {
	case session.ModeBusy:
		return PausedStyle.Render(SymbolRun)
	case session.ModePaused:
		return PausedStyle.Render(SymbolPaused)
	case session.ModeAwaitingConfirmation:
		return PromptStyle.Render(SymbolConfirm)
	default:
		return SuccessStyle.Render(SymbolSuccess)
	}
}

// ModeLabel is the human-readable status line for a session mode.
func ModeLabel(mode session.Mode) string {
	switch mode {
	case session.ModeBusy:
		return "running"
	case session.ModePaused:
		return "paused"
	case session.ModeAwaitingConfirmation:
		return "waiting for confirmation"
	default:
		return "ready"
	}
}
