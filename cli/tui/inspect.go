package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/docqa/lode"
	"github.com/pithecene-io/docqa/types"
)

const timeLayout = "2006-01-02 15:04:05"

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewDocument:
		content = m.renderInspectDocument()
	case ViewReport:
		content = m.renderInspectReport()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectDocument() string {
	data, ok := m.data.(*types.Document)
	if !ok {
		return "Invalid data type for inspect_document"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Document Details"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"ID", data.ID},
		{"Filename", data.Filename},
		{"Status", string(data.UploadStatus)},
		{"Size", FormatBytes(data.FileSize)},
		{"Pages", fmt.Sprintf("%d", data.PageCount)},
	}
	if !data.CreatedAt.IsZero() {
		rows = append(rows, []string{"Created At", data.CreatedAt.Format(timeLayout)})
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := row[1]
		if row[0] == "Status" {
			value = StateStyle(value).Render(value)
		} else {
			value = ValueStyle.Render(value)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", label, value))
	}

	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderInspectReport() string {
	data, ok := m.data.(*lode.UploadReport)
	if !ok {
		return "Invalid data type for inspect_report"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Upload Report"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Session:"),
		ValueStyle.Render(data.SessionID)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("File:"),
		ValueStyle.Render(fmt.Sprintf("%s (%s)", data.Filename, FormatBytes(data.FileSize)))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Outcome:"),
		StateStyle(data.Outcome).Render(data.Outcome)))

	if data.Failure != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Failure:"),
			StateStyle(data.Failure).Render(data.Failure)))
	}
	if data.Message != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Message:"),
			ValueStyle.Render(data.Message)))
	}
	if data.DocumentID != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Document:"),
			ValueStyle.Render(fmt.Sprintf("%s (%d pages, %d chunks)", data.DocumentID, data.PageCount, data.ChunkCount))))
	}
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Completed At:"),
		ValueStyle.Render(data.CompletedAt.Format(timeLayout))))

	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("Stream"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("  Bytes:"),
		ValueStyle.Render(fmt.Sprintf("%d in %d reads", data.BytesRead, data.ChunksRead))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("  Events:"),
		ValueStyle.Render(fmt.Sprintf("%d (%d malformed)", data.Events, data.Malformed))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("  Last Stage:"),
		ValueStyle.Render(fmt.Sprintf("%s %d%%", data.LastStage, data.LastPercent))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("  Duration:"),
		ValueStyle.Render(fmt.Sprintf("%dms", data.DurationMs))))

	return BoxStyle.Render(b.String())
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}

// FormatBytes renders n as a human readable size.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
