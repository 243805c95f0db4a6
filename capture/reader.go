package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/docqa/iox"
)

// Capture is a fully loaded capture file.
type Capture struct {
	Header HeaderRecord
	Chunks [][]byte
}

// Size returns the total number of recorded bytes.
func (c *Capture) Size() int64 {
	var n int64
	for _, chunk := range c.Chunks {
		n += int64(len(chunk))
	}
	return n
}

// Read decodes a capture stream. The first record must be a header and
// chunk sequence numbers must be contiguous from 1.
func Read(r io.Reader) (*Capture, error) {
	fr := NewFrameReader(r)

	payload, err := fr.ReadFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FrameError{Kind: FrameErrorPartial, Msg: "capture is empty"}
		}
		return nil, err
	}
	rec, err := DecodeRecord(payload)
	if err != nil {
		return nil, err
	}
	header, ok := rec.(*HeaderRecord)
	if !ok {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "capture does not start with a header"}
	}
	if header.Version != FormatVersion {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unsupported capture version %d", header.Version),
		}
	}

	c := &Capture{Header: *header}
	for {
		payload, err := fr.ReadFrame()
		if errors.Is(err, io.EOF) {
			return c, nil
		}
		if err != nil {
			return nil, err
		}
		chunk, err := DecodeChunk(payload)
		if err != nil {
			return nil, err
		}
		if want := int64(len(c.Chunks)) + 1; chunk.Seq != want {
			return nil, &FrameError{
				Kind: FrameErrorDecode,
				Msg:  fmt.Sprintf("chunk seq %d out of order, expected %d", chunk.Seq, want),
			}
		}
		c.Chunks = append(c.Chunks, chunk.Data)
	}
}

// Load reads a capture file.
func Load(path string) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	defer iox.DiscardClose(f)

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read capture %s: %w", path, err)
	}
	return c, nil
}

// Reader returns a reader over the recorded bytes.
//
// With chunkSize <= 0 every Read returns at most one recorded chunk, so a
// consumer with a large enough buffer sees the original boundaries. With
// chunkSize > 0 the bytes are re-partitioned into chunks of that size.
func (c *Capture) Reader(ctx context.Context, chunkSize int) io.Reader {
	chunks := append([][]byte(nil), c.Chunks...)
	if chunkSize > 0 {
		chunks = repartition(c.Chunks, chunkSize)
	}
	return &chunkReader{ctx: ctx, chunks: chunks}
}

// Replay loads the capture at path and returns a reader that replays it.
func Replay(ctx context.Context, path string, chunkSize int) (io.Reader, *Capture, error) {
	c, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	return c.Reader(ctx, chunkSize), c, nil
}

func repartition(chunks [][]byte, size int) [][]byte {
	var all []byte
	for _, chunk := range chunks {
		all = append(all, chunk...)
	}
	out := make([][]byte, 0, len(all)/size+1)
	for len(all) > 0 {
		n := min(size, len(all))
		out = append(out, all[:n])
		all = all[n:]
	}
	return out
}

// chunkReader yields one chunk per Read. A chunk larger than the caller's
// buffer is split across Reads.
type chunkReader struct {
	ctx    context.Context
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	for len(r.chunks) > 0 && len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	return n, nil
}
