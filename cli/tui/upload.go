package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/docqa/types"
)

const maxBarWidth = 60

// ProgressMsg carries a progress update into the upload view.
type ProgressMsg types.ProgressState

// OutcomeMsg carries the terminal outcome into the upload view.
type OutcomeMsg struct {
	Outcome *types.UploadOutcome
}

// finishedMsg ends the view when the upload returns without an outcome.
type finishedMsg struct{}

// UploadModel is a Bubble Tea model showing live progress of one upload.
type UploadModel struct {
	filename string
	state    types.ProgressState
	outcome  *types.UploadOutcome
	bar      progress.Model
	spinner  spinner.Model
	cancel   context.CancelFunc
	width    int
	quitting bool
}

// NewUploadModel creates an upload view. cancel is called when the user
// quits before the outcome arrives; it may be nil.
func NewUploadModel(filename string, cancel context.CancelFunc) UploadModel {
	return UploadModel{
		filename: filename,
		state:    types.InitialProgress(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
		cancel:   cancel,
	}
}

// Init implements tea.Model.
func (m UploadModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-10, 10), maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case ProgressMsg:
		if m.outcome == nil {
			m.state = types.ProgressState(msg)
		}
		return m, nil

	case OutcomeMsg:
		m.outcome = msg.Outcome
		return m, tea.Quit

	case finishedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m UploadModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Uploading " + m.filename))
	b.WriteString("\n")

	switch {
	case m.outcome != nil && m.outcome.IsCompleted():
		doc := m.outcome.Document
		b.WriteString(SuccessStyle.Render("✓ Upload complete"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Document:"), ValueStyle.Render(doc.ID)))
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Pages:"), ValueStyle.Render(fmt.Sprintf("%d", doc.PageCount))))
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Chunks:"), ValueStyle.Render(fmt.Sprintf("%d", doc.ChunkCount))))

	case m.outcome != nil:
		b.WriteString(ErrorStyle.Render("✗ Upload failed: " + m.outcome.Message))
		b.WriteString("\n")

	case m.quitting:
		b.WriteString(WarningStyle.Render("Upload canceled"))
		b.WriteString("\n")

	default:
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			m.spinner.View(),
			StageStyle(m.state.Stage).Render(string(m.state.Stage)),
			ValueStyle.Render(fmt.Sprintf("%3d%%", m.state.Percent))))
		b.WriteString(m.bar.ViewAs(m.state.Fraction()))
		b.WriteString("\n")
		b.WriteString(LabelStyle.UnsetWidth().Render(m.state.Message))
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("Press q or Ctrl+C to cancel"))
	}

	return b.String()
}

// Outcome returns the outcome shown by the view, or nil.
func (m UploadModel) Outcome() *types.UploadOutcome {
	return m.outcome
}

// ProgramObserver forwards session updates to a running program.
// It satisfies upload.Observer.
type ProgramObserver struct {
	program *tea.Program
}

// NewProgramObserver creates an observer sending to p.
func NewProgramObserver(p *tea.Program) *ProgramObserver {
	return &ProgramObserver{program: p}
}

// OnProgress sends a ProgressMsg.
func (o *ProgramObserver) OnProgress(state types.ProgressState) {
	o.program.Send(ProgressMsg(state))
}

// OnOutcome sends an OutcomeMsg.
func (o *ProgramObserver) OnOutcome(outcome *types.UploadOutcome) {
	o.program.Send(OutcomeMsg{Outcome: outcome})
}

// RunUpload shows live progress while fn runs. fn receives a context that is
// canceled when the user quits, and an observer to pass to the upload.
// The view is drawn on stderr so stdout stays free for results.
func RunUpload(ctx context.Context, filename string, fn func(ctx context.Context, observer *ProgramObserver)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewUploadModel(filename, cancel), tea.WithOutput(os.Stderr))
	observer := NewProgramObserver(p)

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx, observer)
		p.Send(finishedMsg{})
	}()

	_, err := p.Run()
	cancel()
	<-done
	return err
}

// RenderUploadStatic renders the upload view once without a program.
func RenderUploadStatic(filename string, state types.ProgressState, outcome *types.UploadOutcome) string {
	model := NewUploadModel(filename, nil)
	model.state = state
	model.outcome = outcome
	return lipgloss.NewStyle().Padding(0, 1).Render(model.View())
}
