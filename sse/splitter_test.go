package sse

import (
	"reflect"
	"testing"
)

func TestSplitter_CompleteLines(t *testing.T) {
	s := NewSplitter()
	got := s.Feed([]byte("event: progress\ndata: {}\n"))
	want := []string{"event: progress", "data: {}"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Feed() = %q, want %q", got, want)
	}
	if s.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", s.Buffered())
	}
}

func TestSplitter_PartialLineCarriedOver(t *testing.T) {
	s := NewSplitter()

	if got := s.Feed([]byte("data: {\"perc")); len(got) != 0 {
		t.Fatalf("first Feed() = %q, want no lines", got)
	}
	if s.Buffered() != len("data: {\"perc") {
		t.Errorf("Buffered() = %d, want %d", s.Buffered(), len("data: {\"perc"))
	}

	got := s.Feed([]byte("ent\":5}\nevent: "))
	want := []string{`data: {"percent":5}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("second Feed() = %q, want %q", got, want)
	}

	got = s.Feed([]byte("error\n"))
	want = []string{"event: error"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("third Feed() = %q, want %q", got, want)
	}
}

func TestSplitter_StripsCarriageReturn(t *testing.T) {
	s := NewSplitter()
	got := s.Feed([]byte("event: progress\r\ndata: {}\r\n\r\n"))
	want := []string{"event: progress", "data: {}", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Feed() = %q, want %q", got, want)
	}
}

func TestSplitter_CarriageReturnSplitFromNewline(t *testing.T) {
	s := NewSplitter()
	if got := s.Feed([]byte("data: {}\r")); len(got) != 0 {
		t.Fatalf("Feed() = %q, want no lines", got)
	}
	got := s.Feed([]byte("\n"))
	want := []string{"data: {}"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Feed() = %q, want %q", got, want)
	}
}

func TestSplitter_MultiByteSplitAcrossChunks(t *testing.T) {
	tests := []struct {
		name string
		char string
	}{
		{"two byte", "é"},
		{"three byte", "€"},
		{"four byte", "📄"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := []byte(tt.char)
			for cut := 1; cut < len(encoded); cut++ {
				s := NewSplitter()
				first := append([]byte("msg "), encoded[:cut]...)
				second := append(append([]byte{}, encoded[cut:]...), '\n')

				if got := s.Feed(first); len(got) != 0 {
					t.Fatalf("cut %d: first Feed() = %q, want no lines", cut, got)
				}
				got := s.Feed(second)
				want := []string{"msg " + tt.char}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("cut %d: Feed() = %q, want %q", cut, got, want)
				}
			}
		})
	}
}

func TestSplitter_InvalidBytesReplaced(t *testing.T) {
	s := NewSplitter()
	got := s.Feed([]byte{'a', 0xff, 'b', '\n'})
	want := []string{"a�b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Feed() = %q, want %q", got, want)
	}
}

func TestSplitter_LargeChunk(t *testing.T) {
	// Larger than the transform scratch buffer.
	line := make([]byte, decodeBufferSize*3)
	for i := range line {
		line[i] = 'x'
	}
	s := NewSplitter()
	got := s.Feed(append(line, '\n'))
	if len(got) != 1 || len(got[0]) != len(line) {
		t.Fatalf("Feed() returned %d lines, first len %d", len(got), len(got[0]))
	}
}

func TestSplitter_FlushDiscardsUnterminated(t *testing.T) {
	s := NewSplitter()
	if got := s.Feed([]byte(`data: {"document_id":"abc"}`)); len(got) != 0 {
		t.Fatalf("Feed() = %q, want no lines", got)
	}

	rest := s.Flush()
	if rest != `data: {"document_id":"abc"}` {
		t.Errorf("Flush() = %q", rest)
	}
	if s.Buffered() != 0 {
		t.Errorf("Buffered() after Flush = %d, want 0", s.Buffered())
	}
	if got := s.Feed([]byte("next\n")); !reflect.DeepEqual(got, []string{"next"}) {
		t.Errorf("Feed() after Flush = %q, want [next]", got)
	}
}

func TestSplitter_FlushIncompleteSequence(t *testing.T) {
	s := NewSplitter()
	s.Feed([]byte{'a', 'b', 0xC3})
	if rest := s.Flush(); rest != "ab�" {
		t.Errorf("Flush() = %q, want %q", rest, "ab�")
	}
}

func TestSplitter_FlushEmpty(t *testing.T) {
	s := NewSplitter()
	s.Feed([]byte("done\n"))
	if rest := s.Flush(); rest != "" {
		t.Errorf("Flush() = %q, want empty", rest)
	}
}

func TestSplitter_LeadingByteOrderMark(t *testing.T) {
	stream := []byte("\xEF\xBB\xBFdata: {\"document_id\":\"abc123\"}\n")

	s := NewSplitter()
	var got []string
	for i := range stream {
		got = append(got, s.Feed(stream[i:i+1])...)
	}

	want := []string{`data: {"document_id":"abc123"}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestSplitter_ByteOrderMarkOnlyAtStart(t *testing.T) {
	s := NewSplitter()
	got := s.Feed([]byte("\xEF\xBB\xBFa\n\xEF\xBB\xBFb\n"))

	want := []string{"a", "\uFEFFb"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Feed() = %q, want %q", got, want)
	}
}

func TestSplitter_ShortFirstChunk(t *testing.T) {
	s := NewSplitter()
	if got := s.Feed([]byte("\n")); !reflect.DeepEqual(got, []string{""}) {
		t.Errorf("Feed() = %q, want one empty line", got)
	}
	if got := s.Feed([]byte("\xEF\xBB\xBFx\n")); !reflect.DeepEqual(got, []string{"\uFEFFx"}) {
		t.Errorf("Feed() = %q, want mark kept after first line", got)
	}
}

func TestSplitter_FlushPartialByteOrderMark(t *testing.T) {
	s := NewSplitter()
	s.Feed([]byte{0xEF, 0xBB})
	if s.Buffered() != 2 {
		t.Errorf("Buffered() = %d, want 2", s.Buffered())
	}
	if rest := s.Flush(); rest != "�" {
		t.Errorf("Flush() = %q, want %q", rest, "�")
	}

	// A flushed splitter checks the next stream's first bytes again.
	got := s.Feed([]byte("\xEF\xBB\xBFdata: {}\n"))
	if !reflect.DeepEqual(got, []string{"data: {}"}) {
		t.Errorf("Feed() after Flush = %q", got)
	}
}
