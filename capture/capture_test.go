package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func writeCapture(t *testing.T, chunks ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, HeaderRecord{SessionID: "sess-1", Filename: "paper.pdf"})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	for _, c := range chunks {
		if err := w.WriteChunk([]byte(c)); err != nil {
			t.Fatalf("WriteChunk() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestRoundTrip_PreservesChunkBoundaries(t *testing.T) {
	chunks := []string{"event: prog", "ress\ndata: {\"percent\": 1", "0}\n", ""}
	c, err := Read(bytes.NewReader(writeCapture(t, chunks...)))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if c.Header.SessionID != "sess-1" || c.Header.Filename != "paper.pdf" {
		t.Errorf("header = %+v", c.Header)
	}
	if c.Header.Version != FormatVersion || c.Header.Type != HeaderType {
		t.Errorf("header type/version = %q/%d", c.Header.Type, c.Header.Version)
	}
	if len(c.Chunks) != len(chunks) {
		t.Fatalf("len(Chunks) = %d, want %d", len(c.Chunks), len(chunks))
	}
	for i, want := range chunks {
		if string(c.Chunks[i]) != want {
			t.Errorf("chunk %d = %q, want %q", i, c.Chunks[i], want)
		}
	}
	if c.Size() != int64(len(strings.Join(chunks, ""))) {
		t.Errorf("Size() = %d", c.Size())
	}
}

func TestReader_ReplaysOriginalBoundaries(t *testing.T) {
	c := &Capture{Chunks: [][]byte{[]byte("abc"), []byte("de"), []byte("fghij")}}
	r := c.Reader(t.Context(), 0)

	buf := make([]byte, 64)
	var got []string
	for {
		n, err := r.Read(buf)
		if n > 0 {
			got = append(got, string(buf[:n]))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
	}
	want := []string{"abc", "de", "fghij"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("reads = %q, want %q", got, want)
	}

	// The capture itself is untouched and can be replayed again.
	again, _ := io.ReadAll(c.Reader(t.Context(), 0))
	if string(again) != "abcdefghij" {
		t.Errorf("second replay = %q", again)
	}
}

func TestReader_Repartitions(t *testing.T) {
	c := &Capture{Chunks: [][]byte{[]byte("abc"), []byte("de"), []byte("fghij")}}
	r := c.Reader(t.Context(), 4)

	buf := make([]byte, 64)
	var got []string
	for {
		n, err := r.Read(buf)
		if n > 0 {
			got = append(got, string(buf[:n]))
		}
		if err != nil {
			break
		}
	}
	want := []string{"abcd", "efgh", "ij"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("reads = %q, want %q", got, want)
	}
}

func TestReader_SmallBufferSplitsChunk(t *testing.T) {
	c := &Capture{Chunks: [][]byte{[]byte("abcdef")}}
	got, err := io.ReadAll(io.LimitReader(c.Reader(t.Context(), 0), 100))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "abcdef" {
		t.Errorf("got %q", got)
	}
}

func TestReader_ContextCanceled(t *testing.T) {
	c := &Capture{Chunks: [][]byte{[]byte("abc")}}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := c.Reader(ctx, 0).Read(make([]byte, 8)); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

func TestRead_Errors(t *testing.T) {
	valid := writeCapture(t, "one", "two")

	chunkOnly, _ := EncodeFrame(ChunkRecord{Type: ChunkType, Seq: 1, Data: []byte("x")})
	header, _ := EncodeFrame(HeaderRecord{Type: HeaderType, Version: FormatVersion})
	badSeq, _ := EncodeFrame(ChunkRecord{Type: ChunkType, Seq: 2, Data: []byte("x")})
	badVersion, _ := EncodeFrame(HeaderRecord{Type: HeaderType, Version: 99})

	tooLarge := make([]byte, LengthPrefixSize)
	binary.BigEndian.PutUint32(tooLarge, MaxPayloadSize+1)

	tests := []struct {
		name     string
		data     []byte
		wantKind FrameErrorKind
	}{
		{"empty", nil, FrameErrorPartial},
		{"truncated payload", valid[:len(valid)-2], FrameErrorPartial},
		{"truncated prefix", append(append([]byte{}, valid...), 0, 0), FrameErrorPartial},
		{"too large", tooLarge, FrameErrorTooLarge},
		{"chunk before header", chunkOnly, FrameErrorDecode},
		{"seq gap", append(append([]byte{}, header...), badSeq...), FrameErrorDecode},
		{"unsupported version", badVersion, FrameErrorDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			var frameErr *FrameError
			if !errors.As(err, &frameErr) {
				t.Fatalf("Read() error = %v, want *FrameError", err)
			}
			if frameErr.Kind != tt.wantKind {
				t.Errorf("Kind = %d, want %d (%v)", frameErr.Kind, tt.wantKind, err)
			}
		})
	}
}

func TestDecodeRecord_UnknownType(t *testing.T) {
	payload, err := msgpack.Marshal(map[string]any{"type": "footer"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = DecodeRecord(payload)
	if err == nil || IsFatalFrameError(err) {
		t.Errorf("DecodeRecord() error = %v, want non-fatal decode error", err)
	}
}

func TestFrameError_IsFatal(t *testing.T) {
	tests := []struct {
		kind FrameErrorKind
		want bool
	}{
		{FrameErrorPartial, true},
		{FrameErrorTooLarge, true},
		{FrameErrorDecode, false},
	}
	for _, tt := range tests {
		if got := (&FrameError{Kind: tt.kind}).IsFatal(); got != tt.want {
			t.Errorf("IsFatal(%d) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestTeeReader_RecordsEachRead(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, HeaderRecord{SessionID: "s"})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	src := &chunkReader{ctx: t.Context(), chunks: [][]byte{[]byte("hello "), []byte("world")}}
	tee := TeeReader(src, w)
	got, err := io.ReadAll(tee)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("passthrough = %q", got)
	}
	if tee.Err() != nil {
		t.Errorf("Err() = %v", tee.Err())
	}
	if w.Chunks() != 2 {
		t.Errorf("Chunks() = %d, want 2", w.Chunks())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	c, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(c.Chunks) != 2 || string(c.Chunks[0]) != "hello " || string(c.Chunks[1]) != "world" {
		t.Errorf("chunks = %q", c.Chunks)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestTeeReader_CaptureErrorDoesNotFailRead(t *testing.T) {
	// Header is buffered, so NewWriter succeeds; chunk frames overflow the
	// buffer and surface the write error.
	w, err := NewWriter(failingWriter{}, HeaderRecord{})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	big := bytes.Repeat([]byte("x"), 8192)
	tee := TeeReader(bytes.NewReader(big), w)

	got, err := io.ReadAll(tee)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != len(big) {
		t.Errorf("read %d bytes, want %d", len(got), len(big))
	}
	if tee.Err() == nil {
		t.Error("Err() = nil, want capture write error")
	}
}

func TestCreateAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "upload.capture")
	w, err := Create(path, HeaderRecord{SessionID: "sess-9", Filename: "x.pdf"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.WriteChunk([]byte("data: {}\n")); err != nil {
		t.Fatalf("WriteChunk() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r, c, err := Replay(t.Context(), path, 0)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if c.Header.SessionID != "sess-9" {
		t.Errorf("SessionID = %q", c.Header.SessionID)
	}
	got, _ := io.ReadAll(r)
	if string(got) != "data: {}\n" {
		t.Errorf("replayed %q", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Load(missing) expected error")
	}
}
