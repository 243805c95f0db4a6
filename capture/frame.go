// Package capture records the raw transport chunks of an upload stream.
//
// A capture file is a sequence of length-prefixed msgpack frames: one header
// record followed by one chunk record per transport read, in order. Chunk
// boundaries are preserved exactly so a stream can be replayed through a
// fresh decoder with the same partitioning, or re-partitioned at will.
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// Record type discriminants.
const (
	HeaderType = "header"
	ChunkType  = "chunk"
)

// FormatVersion is written into every header.
const FormatVersion = 1

// HeaderRecord opens a capture file.
type HeaderRecord struct {
	Type      string `msgpack:"type"`
	Version   int    `msgpack:"version"`
	SessionID string `msgpack:"session_id"`
	Filename  string `msgpack:"filename"`
	// StartedAt is Unix milliseconds.
	StartedAt int64 `msgpack:"started_at"`
}

// ChunkRecord is one transport read.
type ChunkRecord struct {
	Type string `msgpack:"type"`
	// Seq starts at 1 and increments by one per chunk.
	Seq int64 `msgpack:"seq"`
	// ElapsedMs is the time since the capture started.
	ElapsedMs int64  `msgpack:"elapsed_ms"`
	Data      []byte `msgpack:"data"`
}

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack or record error.
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether reading cannot continue past this error.
// Partial and oversized frames lose framing; a decode error does not.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// EncodeFrame marshals a record and prepends its length.
func EncodeFrame(record any) ([]byte, error) {
	payload, err := msgpack.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	frame := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[LengthPrefixSize:], payload)
	return frame, nil
}

// FrameReader reads length-prefixed frames from a stream.
type FrameReader struct {
	reader io.Reader
}

// NewFrameReader creates a frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{reader: r}
}

// ReadFrame reads a single frame and returns its msgpack payload.
//
// Errors:
//   - io.EOF: stream ended cleanly between frames
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit
func (d *FrameReader) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

type recordTypeHeader struct {
	Type string `msgpack:"type"`
}

// DecodeRecord decodes a payload into *HeaderRecord or *ChunkRecord,
// discriminating on the type field.
func DecodeRecord(payload []byte) (any, error) {
	var head recordTypeHeader
	if err := msgpack.Unmarshal(payload, &head); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to read record type", Err: err}
	}

	switch head.Type {
	case HeaderType:
		var h HeaderRecord
		if err := msgpack.Unmarshal(payload, &h); err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode header", Err: err}
		}
		return &h, nil
	case ChunkType:
		return DecodeChunk(payload)
	default:
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unknown record type %q", head.Type),
		}
	}
}

// DecodeChunk decodes a chunk record payload.
func DecodeChunk(payload []byte) (*ChunkRecord, error) {
	var c ChunkRecord
	if err := msgpack.Unmarshal(payload, &c); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode chunk", Err: err}
	}
	if c.Type != ChunkType {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("record type %q is not a chunk", c.Type)}
	}
	if c.Seq < 1 {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("invalid chunk seq %d", c.Seq)}
	}
	return &c, nil
}
