// Package sse decodes the line-oriented event stream returned by the upload
// endpoint.
//
// The stream is UTF-8 text made of "event: <name>" and "data: <json>" lines.
// Decoding happens in two steps: a Splitter turns arbitrary byte chunks into
// complete lines, and an Assembler turns lines into events. Decoder combines
// both for a single upload session.
package sse

import (
	"bytes"
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeBufferSize is the scratch size used for each UTF-8 transform step.
const decodeBufferSize = 4096

// byteOrderMark is U+FEFF as decoded text.
var byteOrderMark = []byte("\uFEFF")

// Splitter turns a chunked byte stream into complete lines.
//
// Text after the last '\n' is kept until a later chunk terminates it. Bytes of
// a multi-byte character cut by a chunk boundary are held undecoded until the
// rest arrives. Invalid UTF-8 is replaced with U+FFFD. A byte order mark at
// the very start of the stream is dropped.
//
// A Splitter belongs to one stream and is not safe for concurrent use.
type Splitter struct {
	decoder transform.Transformer
	scratch []byte
	// pending holds bytes not yet decoded (an incomplete UTF-8 sequence).
	pending []byte
	// text holds decoded text that has no terminator yet.
	text []byte
	// started is set once the first decoded text has been checked for a
	// byte order mark.
	started bool
}

// NewSplitter creates a splitter with an empty buffer.
func NewSplitter() *Splitter {
	return &Splitter{
		decoder: unicode.UTF8.NewDecoder(),
		scratch: make([]byte, decodeBufferSize),
	}
}

// Feed appends chunk to the buffer and returns every line it completes.
// Lines are returned without the '\n' terminator; a '\r' right before the
// terminator is removed as well.
func (s *Splitter) Feed(chunk []byte) []string {
	s.pending = append(s.pending, chunk...)
	s.decode(false)
	s.stripByteOrderMark()
	return s.takeLines()
}

// Flush ends the stream. It decodes any held bytes, clears the buffer and
// returns the unterminated remainder.
//
// The remainder is never emitted as a line: a line only counts once its
// terminator has arrived. Callers may log or count what was discarded.
func (s *Splitter) Flush() string {
	s.decode(true)
	s.stripByteOrderMark()
	rest := string(s.text)
	s.text = s.text[:0]
	s.pending = s.pending[:0]
	s.started = false
	s.decoder.Reset()
	return rest
}

// Buffered returns the number of bytes held for the next Feed.
func (s *Splitter) Buffered() int {
	return len(s.text) + len(s.pending)
}

// decode moves as many pending bytes as possible into text.
func (s *Splitter) decode(atEOF bool) {
	for len(s.pending) > 0 {
		nDst, nSrc, err := s.decoder.Transform(s.scratch, s.pending, atEOF)
		s.text = append(s.text, s.scratch[:nDst]...)
		s.pending = append(s.pending[:0], s.pending[nSrc:]...)

		if errors.Is(err, transform.ErrShortDst) && (nSrc > 0 || nDst > 0) {
			continue
		}
		// nil, or ErrShortSrc: the tail is an incomplete sequence kept for
		// the next chunk.
		return
	}
}

// stripByteOrderMark drops a leading U+FEFF from the first decoded text.
// The decoder holds a partial mark as an incomplete sequence, so text never
// starts with only part of one.
func (s *Splitter) stripByteOrderMark() {
	if s.started || len(s.text) == 0 {
		return
	}
	s.started = true
	if bytes.HasPrefix(s.text, byteOrderMark) {
		n := copy(s.text, s.text[len(byteOrderMark):])
		s.text = s.text[:n]
	}
}

// takeLines removes complete lines from text.
func (s *Splitter) takeLines() []string {
	var lines []string
	consumed := 0
	for {
		i := bytes.IndexByte(s.text[consumed:], '\n')
		if i < 0 {
			break
		}
		line := s.text[consumed : consumed+i]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		lines = append(lines, string(line))
		consumed += i + 1
	}
	if consumed > 0 {
		n := copy(s.text, s.text[consumed:])
		s.text = s.text[:n]
	}
	return lines
}
