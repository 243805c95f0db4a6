package main

import (
	"errors"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/docqa/upload"
)

func TestExitErrHandler_NilError(_ *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "completed no message",
			err:      cli.Exit("", upload.ExitCodeCompleted),
			wantCode: 0,
		},
		{
			name:     "server error with message",
			err:      cli.Exit("Failed to parse PDF", upload.ExitCodeFailed),
			wantCode: 1,
			wantMsg:  "Failed to parse PDF",
		},
		{
			name:     "transport no message",
			err:      cli.Exit("", upload.ExitCodeTransport),
			wantCode: 2,
		},
		{
			name:     "invalid input",
			err:      cli.Exit("file not found: a.pdf", upload.ExitCodeInvalidInput),
			wantCode: 3,
			wantMsg:  "file not found: a.pdf",
		},
		{
			name:     "wrapped exit coder",
			err:      errors.Join(errors.New("context"), cli.Exit("inner error", 42)),
			wantCode: 42,
			wantMsg:  "inner error",
		},
		{
			name:     "regular error",
			err:      errors.New("boom"),
			wantCode: 1,
			wantMsg:  "Error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := exitStatus(tt.err)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if msg != tt.wantMsg {
				t.Errorf("msg = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}
