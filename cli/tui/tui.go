package tui

import (
	"fmt"
	"slices"
	"sort"

	"github.com/charmbracelet/bubbles/key"
)

// Read-only view types.
const (
	ViewDocument     = "inspect_document"
	ViewReport       = "inspect_report"
	ViewHistoryStats = "stats_history"
)

// views maps each read-only view to the program that shows it.
var views = map[string]func(viewType string, data any) error{
	ViewDocument:     RunInspectTUI,
	ViewReport:       RunInspectTUI,
	ViewHistoryStats: RunStatsTUI,
}

// Run starts the read-only TUI for viewType.
func Run(viewType string, data any) error {
	run, found := views[viewType]
	if !found {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	return run(viewType, data)
}

// IsTUISupported reports whether viewType has a read-only TUI.
// Live upload progress is started with RunUpload instead.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns the read-only view types, sorted.
func SupportedTUIViews() []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q/esc", "quit"),
	),
}
