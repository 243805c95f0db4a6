package types //nolint:revive // types is a valid package name

import (
	"testing"
)

func TestStreamEvent_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "message"},
		{EventNameProgress, "progress"},
		{EventNameComplete, "complete"},
		{EventNameError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := StreamEvent{Name: tt.name}.DisplayName()
			if got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStage_IsValid(t *testing.T) {
	tests := []struct {
		stage Stage
		want  bool
	}{
		{StageParsing, true},
		{StageChunking, true},
		{StageEmbedding, true},
		{StageStoring, true},
		{"uploading", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			if got := tt.stage.IsValid(); got != tt.want {
				t.Errorf("Stage(%q).IsValid() = %v, want %v", tt.stage, got, tt.want)
			}
		})
	}
}

func TestProgressState_Fraction(t *testing.T) {
	tests := []struct {
		percent int
		want    float64
	}{
		{-5, 0},
		{0, 0},
		{40, 0.4},
		{100, 1},
		{140, 1},
	}

	for _, tt := range tests {
		got := ProgressState{Percent: tt.percent}.Fraction()
		if got != tt.want {
			t.Errorf("Fraction() for %d = %v, want %v", tt.percent, got, tt.want)
		}
	}
}

func TestInitialProgress(t *testing.T) {
	p := InitialProgress()
	if p.Stage != StageParsing || p.Percent != 0 || p.Message != "Starting upload..." {
		t.Errorf("InitialProgress() = %+v", p)
	}
}

func TestFailed_EmptyMessage(t *testing.T) {
	o := Failed("")
	if o.Status != OutcomeFailed {
		t.Errorf("Status = %q, want %q", o.Status, OutcomeFailed)
	}
	if o.Message != UnknownErrorMessage {
		t.Errorf("Message = %q, want %q", o.Message, UnknownErrorMessage)
	}
	if o.IsCompleted() {
		t.Error("failed outcome must not report completed")
	}
}

func TestCompleted(t *testing.T) {
	o := Completed(DocumentMetadata{ID: "abc123"})
	if !o.IsCompleted() {
		t.Fatal("IsCompleted() = false, want true")
	}
	if o.Document.ID != "abc123" {
		t.Errorf("Document.ID = %q, want abc123", o.Document.ID)
	}

	var nilOutcome *UploadOutcome
	if nilOutcome.IsCompleted() {
		t.Error("nil outcome must not report completed")
	}
}
