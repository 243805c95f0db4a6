package progress

import (
	"encoding/json"
	"testing"

	"github.com/pithecene-io/docqa/types"
)

func event(name, payload string) types.StreamEvent {
	return types.StreamEvent{Name: name, Payload: json.RawMessage(payload)}
}

func TestTracker_InitialState(t *testing.T) {
	tr := NewTracker()
	s := tr.State()
	if s.Phase != PhaseInProgress {
		t.Errorf("Phase = %q, want in_progress", s.Phase)
	}
	if s.Progress != types.InitialProgress() {
		t.Errorf("Progress = %+v, want initial", s.Progress)
	}
	if s.Outcome != nil {
		t.Errorf("Outcome = %+v, want nil", s.Outcome)
	}
}

func TestTracker_ProgressEvent(t *testing.T) {
	tr := NewTracker()
	got := tr.Handle(event("progress", `{"stage":"chunking","percent":40,"message":"Chunking text"}`))
	if got != Progressed {
		t.Fatalf("Handle() = %v, want progressed", got)
	}

	want := types.ProgressState{Stage: types.StageChunking, Percent: 40, Message: "Chunking text"}
	if tr.Progress() != want {
		t.Errorf("Progress() = %+v, want %+v", tr.Progress(), want)
	}
}

func TestTracker_CompletionByDocumentID(t *testing.T) {
	tr := NewTracker()
	got := tr.Handle(event("", `{"document_id":"abc123","filename":"x.pdf","file_size":1024,"page_count":3}`))
	if got != Completed {
		t.Fatalf("Handle() = %v, want completed", got)
	}

	o := tr.Outcome()
	if !o.IsCompleted() {
		t.Fatalf("Outcome = %+v, want completed", o)
	}
	want := types.DocumentMetadata{ID: "abc123", Filename: "x.pdf", FileSize: 1024, PageCount: 3}
	if *o.Document != want {
		t.Errorf("Document = %+v, want %+v", *o.Document, want)
	}
	if tr.Phase() != PhaseCompleted {
		t.Errorf("Phase = %q, want completed", tr.Phase())
	}
	if tr.Progress() != (types.ProgressState{}) {
		t.Errorf("Progress() = %+v, want cleared after completion", tr.Progress())
	}
}

func TestTracker_DocumentIDWinsOverEventName(t *testing.T) {
	names := []string{"", "progress", "error", "message", "whatever"}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			tr := NewTracker()
			got := tr.Handle(event(name, `{"document_id":"d1","percent":50,"message":"m"}`))
			if got != Completed {
				t.Errorf("Handle() = %v, want completed", got)
			}
		})
	}
}

func TestTracker_CompleteEventWithoutDocumentID(t *testing.T) {
	tr := NewTracker()
	got := tr.Handle(event("complete", `{"filename":"x.pdf","page_count":2,"chunk_count":9}`))
	if got != Completed {
		t.Fatalf("Handle() = %v, want completed", got)
	}
	doc := tr.Outcome().Document
	if doc.ID != "" || doc.Filename != "x.pdf" || doc.PageCount != 2 || doc.ChunkCount != 9 {
		t.Errorf("Document = %+v", *doc)
	}
}

func TestTracker_CompletionLenientTypes(t *testing.T) {
	tr := NewTracker()
	tr.Handle(event("complete", `{"document_id":42,"filename":"x.pdf","file_size":"big","page_count":3}`))

	doc := tr.Outcome().Document
	if doc.ID != "42" {
		t.Errorf("ID = %q, want 42", doc.ID)
	}
	if doc.FileSize != 0 {
		t.Errorf("FileSize = %d, want 0 for non-numeric value", doc.FileSize)
	}
	if doc.PageCount != 3 || doc.Filename != "x.pdf" {
		t.Errorf("Document = %+v", *doc)
	}
}

func TestTracker_FalsyDocumentIDIsNotCompletion(t *testing.T) {
	payloads := []string{
		`{"document_id":""}`,
		`{"document_id":0}`,
		`{"document_id":false}`,
		`{"document_id":null}`,
	}
	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			tr := NewTracker()
			if got := tr.Handle(event("", payload)); got != Ignored {
				t.Errorf("Handle() = %v, want ignored", got)
			}
			if tr.Phase() != PhaseInProgress || tr.Outcome() != nil {
				t.Errorf("State = %+v, want in progress", tr.State())
			}
		})
	}
}

func TestTracker_TruthyDocumentIDShapes(t *testing.T) {
	payloads := map[string]string{
		`{"document_id":"x"}`:     "x",
		`{"document_id":7}`:       "7",
		`{"document_id":true}`:    "true",
		`{"document_id":{"a":1}}`: `{"a":1}`,
	}
	for payload, wantID := range payloads {
		t.Run(payload, func(t *testing.T) {
			tr := NewTracker()
			if got := tr.Handle(event("", payload)); got != Completed {
				t.Fatalf("Handle() = %v, want completed", got)
			}
			if id := tr.Outcome().Document.ID; id != wantID {
				t.Errorf("ID = %q, want %q", id, wantID)
			}
		})
	}
}

func TestTracker_ErrorEvent(t *testing.T) {
	tr := NewTracker()
	got := tr.Handle(event("error", `{"message":"file too large"}`))
	if got != Failed {
		t.Fatalf("Handle() = %v, want failed", got)
	}
	o := tr.Outcome()
	if o.Status != types.OutcomeFailed || o.Message != "file too large" {
		t.Errorf("Outcome = %+v", o)
	}
}

func TestTracker_ErrorWithoutMessage(t *testing.T) {
	tr := NewTracker()
	tr.Handle(event("error", `{}`))
	if msg := tr.Outcome().Message; msg != types.UnknownErrorMessage {
		t.Errorf("Message = %q, want %q", msg, types.UnknownErrorMessage)
	}
}

func TestTracker_ErrorBeatsProgress(t *testing.T) {
	tr := NewTracker()
	if got := tr.Handle(event("error", `{"message":"x","percent":10}`)); got != Failed {
		t.Errorf("Handle() = %v, want failed", got)
	}
}

func TestTracker_IgnoredShapes(t *testing.T) {
	payloads := []struct {
		name    string
		event   string
		payload string
	}{
		{"no fields", "progress", `{}`},
		{"string percent", "progress", `{"percent":"40"}`},
		{"null percent", "progress", `{"percent":null}`},
		{"null document id", "", `{"document_id":null}`},
		{"not an object", "", `42`},
		{"array", "progress", `[1,2]`},
		{"unrelated", "heartbeat", `{"ts":123}`},
	}

	for _, tt := range payloads {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			if got := tr.Handle(event(tt.event, tt.payload)); got != Ignored {
				t.Errorf("Handle() = %v, want ignored", got)
			}
			if tr.Progress() != types.InitialProgress() {
				t.Errorf("Progress() changed to %+v", tr.Progress())
			}
		})
	}
}

func TestTracker_PercentClampedAndRounded(t *testing.T) {
	tests := []struct {
		payload string
		want    int
	}{
		{`{"percent":-3}`, 0},
		{`{"percent":12.6}`, 13},
		{`{"percent":250}`, 100},
	}

	for _, tt := range tests {
		tr := NewTracker()
		tr.Handle(event("progress", tt.payload))
		if got := tr.Progress().Percent; got != tt.want {
			t.Errorf("%s: Percent = %d, want %d", tt.payload, got, tt.want)
		}
	}
}

func TestTracker_UnknownStageKeepsPrevious(t *testing.T) {
	tr := NewTracker()
	tr.Handle(event("progress", `{"stage":"embedding","percent":50,"message":"a"}`))
	tr.Handle(event("progress", `{"stage":"uploading","percent":60,"message":"b"}`))

	want := types.ProgressState{Stage: types.StageEmbedding, Percent: 60, Message: "b"}
	if tr.Progress() != want {
		t.Errorf("Progress() = %+v, want %+v", tr.Progress(), want)
	}
}

func TestTracker_TerminalIsFinal(t *testing.T) {
	tr := NewTracker()
	tr.Handle(event("error", `{"message":"first"}`))

	later := []types.StreamEvent{
		event("progress", `{"stage":"storing","percent":92,"message":"late"}`),
		event("complete", `{"document_id":"abc"}`),
		event("error", `{"message":"second"}`),
	}
	for _, ev := range later {
		if got := tr.Handle(ev); got != AfterTerminal {
			t.Errorf("Handle(%s) = %v, want after_terminal", ev.Payload, got)
		}
	}
	if got := tr.Fail("transport"); got != AfterTerminal {
		t.Errorf("Fail() = %v, want after_terminal", got)
	}

	if tr.Outcome().Message != "first" {
		t.Errorf("Outcome().Message = %q, want first", tr.Outcome().Message)
	}
	if tr.Progress() != (types.ProgressState{}) {
		t.Errorf("Progress() = %+v, want frozen zero value", tr.Progress())
	}
}

func TestTracker_Fail(t *testing.T) {
	tr := NewTracker()
	tr.Handle(event("progress", `{"stage":"parsing","percent":10,"message":"x"}`))

	if got := tr.Fail(""); got != Failed {
		t.Fatalf("Fail() = %v, want failed", got)
	}
	if tr.Outcome().Message != types.UnknownErrorMessage {
		t.Errorf("Message = %q", tr.Outcome().Message)
	}
	if !tr.Phase().IsTerminal() {
		t.Error("phase must be terminal after Fail")
	}
}

func TestClassify_Priority(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		payload string
		want    Kind
	}{
		{"complete name", "complete", `{}`, KindCompletion},
		{"document id", "", `{"document_id":"a"}`, KindCompletion},
		{"document id beats error", "error", `{"document_id":"a","message":"m"}`, KindCompletion},
		{"empty document id", "error", `{"document_id":"","message":"m"}`, KindError},
		{"zero document id", "", `{"document_id":0,"percent":5}`, KindProgress},
		{"empty document id on complete", "complete", `{"document_id":""}`, KindCompletion},
		{"error name", "error", `{"percent":3}`, KindError},
		{"percent", "", `{"percent":3}`, KindProgress},
		{"negative percent", "", `{"percent":-1}`, KindProgress},
		{"unknown", "", `{"other":1}`, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := event(tt.event, tt.payload)
			got := classify(ev, topLevelFields(ev.Payload))
			if got != tt.want {
				t.Errorf("classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransition_String(t *testing.T) {
	tests := map[Transition]string{
		Ignored:       "ignored",
		Progressed:    "progressed",
		Completed:     "completed",
		Failed:        "failed",
		AfterTerminal: "after_terminal",
	}
	for tr, want := range tests {
		if tr.String() != want {
			t.Errorf("%d.String() = %q, want %q", tr, tr.String(), want)
		}
		if tr.IsTerminal() != (tr == Completed || tr == Failed) {
			t.Errorf("%v.IsTerminal() = %v", tr, tr.IsTerminal())
		}
	}
}
