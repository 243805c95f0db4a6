package sse

import "fmt"

// FrameErrorKind classifies line decoding errors.
type FrameErrorKind int

const (
	// FrameErrorMalformed indicates a data line whose payload is not valid JSON.
	FrameErrorMalformed FrameErrorKind = iota
)

// FrameError describes a line that could not be turned into an event.
type FrameError struct {
	Kind FrameErrorKind
	// Line is the offending line, without its terminator.
	Line string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed data line: %v", e.Err)
	}
	return "malformed data line"
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
