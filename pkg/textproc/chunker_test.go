package textproc

import (
	"errors"
	"strings"
	"testing"
)

func TestChunkCoversTextExactly(t *testing.T) {
	cases := []struct {
		length, window, overlap int
	}{
		{1000, 500, 50},
		{500, 500, 50},
		{1350, 500, 50},
		{7, 3, 1},
		{30, 10, 0},
	}
	for _, tc := range cases {
		text := strings.Repeat("abcdefghij", (tc.length+9)/10)[:tc.length]
		chunks, err := Chunk(text, tc.window, tc.overlap)
		if err != nil {
			t.Fatalf("Chunk(len=%d, %d, %d): %v", tc.length, tc.window, tc.overlap, err)
		}

		step := tc.window - tc.overlap
		wantCount := 1
		if tc.length > tc.overlap {
			wantCount = (tc.length - tc.overlap + step - 1) / step
		}
		if len(chunks) != wantCount {
			t.Fatalf("len=%d window=%d overlap=%d: got %d chunks, want %d",
				tc.length, tc.window, tc.overlap, len(chunks), wantCount)
		}

		// Reassembling with the overlap removed must give back the input.
		var b strings.Builder
		for i, c := range chunks {
			if c.Index != i {
				t.Fatalf("chunk %d has index %d", i, c.Index)
			}
			if c.Start != i*step {
				t.Fatalf("chunk %d starts at %d, want %d", i, c.Start, i*step)
			}
			part := []rune(c.Content)
			if i == 0 {
				b.WriteString(c.Content)
			} else {
				b.WriteString(string(part[tc.overlap:]))
			}
		}
		if b.String() != text {
			t.Fatalf("len=%d window=%d overlap=%d: reassembled text differs", tc.length, tc.window, tc.overlap)
		}
		if last := chunks[len(chunks)-1]; last.End != tc.length {
			t.Fatalf("last chunk ends at %d, want %d", last.End, tc.length)
		}
	}
}

func TestChunkEmptyText(t *testing.T) {
	chunks, err := Chunk("", 500, 50)
	if err != nil {
		t.Fatalf("Chunk on empty text: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestChunkShortTextSingleWindow(t *testing.T) {
	chunks, err := Chunk("hello", 500, 50)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Content != "hello" || chunks[0].Start != 0 || chunks[0].End != 5 {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestChunkRejectsBadConfig(t *testing.T) {
	for _, tc := range []struct{ window, overlap int }{
		{0, 0},
		{-1, 0},
		{10, 10},
		{10, 20},
		{10, -1},
	} {
		if _, err := Chunk("some text", tc.window, tc.overlap); !errors.Is(err, ErrInvalidChunkConfig) {
			t.Fatalf("Chunk(window=%d, overlap=%d) err = %v, want ErrInvalidChunkConfig", tc.window, tc.overlap, err)
		}
	}
}

func TestChunkMultibyteRunes(t *testing.T) {
	text := strings.Repeat("学", 12)
	chunks, err := Chunk(text, 5, 1)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if chunks[0].Content != strings.Repeat("学", 5) {
		t.Fatalf("first chunk = %q", chunks[0].Content)
	}
	if last := chunks[len(chunks)-1]; last.End != 12 {
		t.Fatalf("last chunk ends at %d, want 12", last.End)
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("  Title\x00\t\nLine   one\r\n\r\nSecond ")
	want := "Title Line one Second"
	if got != want {
		t.Fatalf("Normalize() = %q, want %q", got, want)
	}
	if Normalize("   \n\t ") != "" {
		t.Fatalf("expected empty result for whitespace-only input")
	}
}
