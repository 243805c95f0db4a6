package sse

import (
	"encoding/json"
	"strings"

	"github.com/pithecene-io/docqa/types"
)

// Line prefixes recognized by the Assembler.
const (
	EventPrefix = "event: "
	DataPrefix  = "data: "
)

// Assembler groups lines into events.
//
// Framing is one data line per event: an "event:" line names the block in
// progress, and the next data line carrying valid JSON emits the event and
// resets the name. A data line with invalid JSON is dropped and the block
// stays open with its name. All other lines (blank lines, ":" comments, "id:",
// "retry:") are ignored.
//
// The current name survives across Feed calls, so an event split by a chunk
// boundary keeps its name.
type Assembler struct {
	name string
}

// NewAssembler creates an assembler with no event in progress.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Accept processes one line.
//
// Returns:
//   - (event, nil) when the line completes an event
//   - (nil, nil) when the line produced no event
//   - (nil, *FrameError) when a data line was dropped as malformed
func (a *Assembler) Accept(line string) (*types.StreamEvent, error) {
	switch {
	case strings.HasPrefix(line, EventPrefix):
		a.name = strings.TrimSpace(line[len(EventPrefix):])
		return nil, nil

	case strings.HasPrefix(line, DataPrefix):
		var payload json.RawMessage
		if err := json.Unmarshal([]byte(line[len(DataPrefix):]), &payload); err != nil {
			return nil, &FrameError{
				Kind: FrameErrorMalformed,
				Line: line,
				Err:  err,
			}
		}
		ev := &types.StreamEvent{Name: a.name, Payload: payload}
		a.name = ""
		return ev, nil

	default:
		return nil, nil
	}
}

// Pending returns the name of the event block in progress, if any.
func (a *Assembler) Pending() string {
	return a.name
}
