package sse

import (
	"errors"

	"github.com/pithecene-io/docqa/types"
)

// Stats counts what a Decoder has seen.
type Stats struct {
	// Lines is the number of complete lines split from the stream.
	Lines int64 `json:"lines"`
	// Events is the number of events assembled.
	Events int64 `json:"events"`
	// Malformed is the number of data lines dropped for invalid JSON.
	Malformed int64 `json:"malformed"`
	// DiscardedBytes is the size of unterminated text dropped at Close.
	DiscardedBytes int64 `json:"discarded_bytes"`
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMalformedHandler registers fn to be called for every dropped data line.
func WithMalformedHandler(fn func(*FrameError)) Option {
	return func(d *Decoder) {
		d.onMalformed = fn
	}
}

// Decoder turns the byte chunks of one upload stream into events.
// Each upload session must own its own Decoder.
type Decoder struct {
	splitter    *Splitter
	assembler   *Assembler
	onMalformed func(*FrameError)
	stats       Stats
}

// NewDecoder creates a decoder for a new stream.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		splitter:  NewSplitter(),
		assembler: NewAssembler(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed decodes one chunk and returns the events it completes, in order.
// Malformed data lines are skipped; decoding always continues.
func (d *Decoder) Feed(chunk []byte) []types.StreamEvent {
	var events []types.StreamEvent
	for _, line := range d.splitter.Feed(chunk) {
		d.stats.Lines++

		ev, err := d.assembler.Accept(line)
		if err != nil {
			var frameErr *FrameError
			if errors.As(err, &frameErr) {
				d.stats.Malformed++
				if d.onMalformed != nil {
					d.onMalformed(frameErr)
				}
			}
			continue
		}
		if ev != nil {
			d.stats.Events++
			events = append(events, *ev)
		}
	}
	return events
}

// Close ends the stream and returns the unterminated text that was dropped.
func (d *Decoder) Close() string {
	rest := d.splitter.Flush()
	d.stats.DiscardedBytes += int64(len(rest))
	return rest
}

// Buffered returns the number of bytes held for a line with no terminator yet.
func (d *Decoder) Buffered() int {
	return d.splitter.Buffered()
}

// PendingEvent returns the name of an event whose data line has not arrived.
func (d *Decoder) PendingEvent() string {
	return d.assembler.Pending()
}

// Stats returns the counters accumulated so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}
