package capture

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Writer appends records to a capture stream.
// Writer is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	start  time.Time
	seq    int64
	now    func() time.Time
}

// NewWriter writes the header to w and returns a Writer for chunks.
// The header's Type, Version and StartedAt are filled in.
func NewWriter(w io.Writer, header HeaderRecord) (*Writer, error) {
	cw := &Writer{
		w:   bufio.NewWriter(w),
		now: time.Now,
	}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	cw.start = cw.now()

	header.Type = HeaderType
	header.Version = FormatVersion
	header.StartedAt = cw.start.UnixMilli()
	if err := cw.writeRecord(header); err != nil {
		return nil, fmt.Errorf("write capture header: %w", err)
	}
	return cw, nil
}

// Create creates the capture file at path, including parent directories.
func Create(path string, header HeaderRecord) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create capture directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	w, err := NewWriter(f, header)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// WriteChunk records one transport read. data is copied.
func (w *Writer) WriteChunk(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	return w.writeRecord(ChunkRecord{
		Type:      ChunkType,
		Seq:       w.seq,
		ElapsedMs: w.now().Sub(w.start).Milliseconds(),
		Data:      data,
	})
}

// Chunks returns the number of chunks written.
func (w *Writer) Chunks() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

func (w *Writer) writeRecord(record any) error {
	frame, err := EncodeFrame(record)
	if err != nil {
		return err
	}
	_, err = w.w.Write(frame)
	return err
}

// Close flushes buffered frames and closes the underlying writer if it is
// an io.Closer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Tee is a reader that records every chunk it reads.
type Tee struct {
	r   io.Reader
	w   *Writer
	err error
}

// TeeReader returns a reader that records each read from r as a chunk.
// A capture write error stops recording but never fails the read; it is
// reported by Err.
func TeeReader(r io.Reader, w *Writer) *Tee {
	return &Tee{r: r, w: w}
}

// Read implements io.Reader.
func (t *Tee) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 && t.err == nil {
		t.err = t.w.WriteChunk(p[:n])
	}
	return n, err
}

// Err returns the first capture write error.
func (t *Tee) Err() error {
	return t.err
}
