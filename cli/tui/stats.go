package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/docqa/lode"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewHistoryStats:
		content = m.renderStatsHistory()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsHistory() string {
	data, ok := m.data.(*lode.ReportStats)
	if !ok {
		return "Invalid data type for stats_history"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Upload History"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Uploads", data.Total, colorInfo),
		m.renderStatBox("Completed", data.Completed, colorOK),
		m.renderStatBox("Failed", data.Failed, colorBad),
		m.renderStatBox("Pages", data.Pages, colorAccent),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Chunks:"),
		ValueStyle.Render(fmt.Sprintf("%d", data.Chunks))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Uploaded:"),
		ValueStyle.Render(FormatBytes(data.BytesUploaded))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Avg Duration:"),
		ValueStyle.Render(fmt.Sprintf("%dms", data.AvgDurationMs))))

	if len(data.ByFailure) > 0 {
		kinds := make([]string, 0, len(data.ByFailure))
		for k := range data.ByFailure {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Failures"))
		b.WriteString("\n")
		for _, k := range kinds {
			b.WriteString(fmt.Sprintf("  • %s %s\n",
				StateStyle(k).Render(k),
				ValueStyle.Render(fmt.Sprintf("%d", data.ByFailure[k]))))
		}
	}

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int, color lipgloss.TerminalColor) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
