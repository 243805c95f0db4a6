// Package tui provides Bubble Tea TUI components for the docqa CLI.
//
// TUI rules:
//   - TUI is opt-in only (--tui flag)
//   - Upload shows live progress; documents and history views are read-only
//   - TUI uses same data payloads as non-TUI rendering
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/docqa/types"
)

// Palette. Adaptive colors keep text readable on light terminals.
var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"}
	colorOK      = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	colorPending = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	colorBad     = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorText    = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
)

// stageColors gives each processing stage its own hue on the progress line.
var stageColors = map[types.Stage]lipgloss.AdaptiveColor{
	types.StageParsing:   colorInfo,
	types.StageChunking:  colorAccent,
	types.StageEmbedding: colorPending,
	types.StageStoring:   colorOK,
}

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	LabelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(16)
	ValueStyle = lipgloss.NewStyle().Foreground(colorText)
	HelpStyle  = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)

	SuccessStyle = lipgloss.NewStyle().Foreground(colorOK)
	WarningStyle = lipgloss.NewStyle().Foreground(colorPending)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorBad)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(1, 2)

	// Stat boxes on the history stats view.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorInfo).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)
	StatLabelStyle = lipgloss.NewStyle().Foreground(colorMuted).Align(lipgloss.Center)
	StatValueStyle = lipgloss.NewStyle().Bold(true).Foreground(colorText).Align(lipgloss.Center)

	// SpinnerStyle colors the upload spinner.
	SpinnerStyle = lipgloss.NewStyle().Foreground(colorAccent)
)

// StageStyle returns the style for a processing stage.
func StageStyle(stage types.Stage) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	if c, found := stageColors[stage]; found {
		return style.Foreground(c)
	}
	return style.Foreground(colorText)
}

// StateStyle returns the style for an outcome, failure kind or document
// status.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case string(types.OutcomeCompleted), string(types.UploadStatusReady):
		return SuccessStyle
	case "in_progress", string(types.UploadStatusProcessing):
		return WarningStyle
	case string(types.OutcomeFailed), string(types.UploadStatusError),
		"rejected", "transport", "canceled", "server":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
