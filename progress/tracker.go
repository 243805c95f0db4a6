// Package progress interprets upload stream events as progress updates and a
// single terminal outcome.
//
// The Tracker is a three-phase state machine:
//
//	in_progress(ProgressState) -> completed(DocumentMetadata) | failed(message)
//
// No transition leaves a terminal phase. Events that arrive after the outcome
// is fixed are reported as AfterTerminal and change nothing.
package progress

import (
	"github.com/pithecene-io/docqa/types"
)

// Phase is the state machine phase.
type Phase string

// Phase values.
const (
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Transition is the effect of one Handle or Fail call.
type Transition int

// Transition values.
const (
	// Ignored means the event matched no known shape.
	Ignored Transition = iota
	// Progressed means the progress state was overwritten.
	Progressed
	// Completed means the upload completed; the outcome is now fixed.
	Completed
	// Failed means the upload failed; the outcome is now fixed.
	Failed
	// AfterTerminal means the outcome was already fixed; nothing changed.
	AfterTerminal
)

// String returns the transition name.
func (t Transition) String() string {
	switch t {
	case Progressed:
		return "progressed"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case AfterTerminal:
		return "after_terminal"
	default:
		return "ignored"
	}
}

// IsTerminal reports whether the transition fixed the outcome.
func (t Transition) IsTerminal() bool {
	return t == Completed || t == Failed
}

// State is a point-in-time view of a Tracker.
type State struct {
	Phase Phase `json:"phase"`
	// Progress is the latest in-flight status. It is the zero value once the
	// phase is terminal: the outcome replaces it.
	Progress types.ProgressState `json:"progress"`
	// Outcome is set once the phase is terminal.
	Outcome *types.UploadOutcome `json:"outcome,omitempty"`
}

// Tracker holds the progress state of one upload session.
// It is not safe for concurrent use; each session owns its own Tracker.
type Tracker struct {
	phase    Phase
	progress types.ProgressState
	outcome  *types.UploadOutcome
}

// NewTracker creates a tracker in the initial in-progress state.
func NewTracker() *Tracker {
	return &Tracker{
		phase:    PhaseInProgress,
		progress: types.InitialProgress(),
	}
}

// Handle applies one event.
func (t *Tracker) Handle(ev types.StreamEvent) Transition {
	if t.phase.IsTerminal() {
		return AfterTerminal
	}

	f := topLevelFields(ev.Payload)
	switch classify(ev, f) {
	case KindCompletion:
		t.finish(PhaseCompleted, types.Completed(decodeDocument(ev.Payload, f)))
		return Completed

	case KindError:
		t.finish(PhaseFailed, types.Failed(decodeErrorMessage(ev.Payload)))
		return Failed

	case KindProgress:
		t.progress = decodeProgress(ev.Payload, t.progress)
		return Progressed

	default:
		return Ignored
	}
}

// Fail fixes a failed outcome from outside the stream (transport errors,
// cancellation, premature end of stream). It is a no-op once terminal.
func (t *Tracker) Fail(message string) Transition {
	if t.phase.IsTerminal() {
		return AfterTerminal
	}
	t.finish(PhaseFailed, types.Failed(message))
	return Failed
}

func (t *Tracker) finish(phase Phase, outcome *types.UploadOutcome) {
	t.phase = phase
	t.outcome = outcome
	t.progress = types.ProgressState{}
}

// Phase returns the current phase.
func (t *Tracker) Phase() Phase {
	return t.phase
}

// Progress returns the latest progress state.
func (t *Tracker) Progress() types.ProgressState {
	return t.progress
}

// Outcome returns the terminal outcome, or nil while in progress.
func (t *Tracker) Outcome() *types.UploadOutcome {
	return t.outcome
}

// State returns a snapshot of the tracker.
func (t *Tracker) State() State {
	return State{
		Phase:    t.phase,
		Progress: t.progress,
		Outcome:  t.outcome,
	}
}
