package indexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/tanya/internal/errdefs"
)

func reconstruct(chunks []string, overlap int) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		b.WriteString(string([]rune(c)[overlap:]))
	}
	return b.String()
}

func mustSplitter(t *testing.T, size, overlap int) *Splitter {
	t.Helper()
	s, err := NewSplitter(size, overlap)
	if err != nil {
		t.Fatalf("NewSplitter(%d, %d): %v", size, overlap, err)
	}
	return s
}

func TestSplit_threeDocumentScenario(t *testing.T) {
	text := strings.Repeat("A", 1000) + strings.Repeat("B", 1000) + strings.Repeat("C", 400)
	chunks := mustSplitter(t, 1000, 200).Split(text)
	want := []string{
		strings.Repeat("A", 1000),
		strings.Repeat("A", 200) + strings.Repeat("B", 800),
		strings.Repeat("B", 400) + strings.Repeat("C", 400),
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: got %d runes starting %q", i, len(chunks[i]), chunks[i][:10])
		}
	}
}

func TestSplit_overlapAndReconstruction(t *testing.T) {
	texts := map[string]string{
		"no breaks":   strings.Repeat("abcdefghij", 250),
		"line breaks": strings.Repeat("a short line of text\n", 120),
		"multibyte":   strings.Repeat("héllo wörld ünïcode ", 90),
		"mixed":       "Title\n\n" + strings.Repeat("word ", 300) + "\nEnd.\n" + strings.Repeat("x", 1500),
	}
	for name, text := range texts {
		for _, cfg := range [][2]int{{1000, 200}, {100, 0}, {50, 49}, {7, 3}} {
			size, overlap := cfg[0], cfg[1]
			chunks := mustSplitter(t, size, overlap).Split(text)
			if got := reconstruct(chunks, overlap); got != text {
				t.Errorf("%s %v: reconstruction differs (len %d vs %d)", name, cfg, len(got), len(text))
			}
			for i, c := range chunks {
				if n := len([]rune(c)); n > size {
					t.Errorf("%s %v: chunk %d has %d runes", name, cfg, i, n)
				}
				if i == 0 {
					continue
				}
				prev := []rune(chunks[i-1])
				if string(prev[len(prev)-overlap:]) != string([]rune(c)[:overlap]) {
					t.Errorf("%s %v: chunks %d and %d do not share %d runes", name, cfg, i-1, i, overlap)
				}
			}
		}
	}
}

func TestSplit_prefersLineBreaks(t *testing.T) {
	text := strings.Repeat("x", 60) + "\n" + strings.Repeat("y", 60)
	chunks := mustSplitter(t, 100, 10).Split(text)
	if chunks[0] != strings.Repeat("x", 60)+"\n" {
		t.Errorf("first chunk should end at the line break, got %d runes", len(chunks[0]))
	}
	if chunks[1] != strings.Repeat("x", 9)+"\n"+strings.Repeat("y", 60) {
		t.Errorf("second chunk: %q", chunks[1])
	}
}

func TestSplit_ignoresBreakInsideOverlap(t *testing.T) {
	// A break within the first overlap runes would stall progress; it must be skipped.
	text := "ab\n" + strings.Repeat("z", 30)
	chunks := mustSplitter(t, 10, 5).Split(text)
	if chunks[0] != "ab\nzzzzzzz" {
		t.Errorf("got %q", chunks[0])
	}
}

func TestSplit_edgeCases(t *testing.T) {
	s := mustSplitter(t, 1000, 200)
	if got := s.Split(""); len(got) != 0 {
		t.Errorf("empty text should give no chunks, got %v", got)
	}
	short := "a short text"
	if got := s.Split(short); len(got) != 1 || got[0] != short {
		t.Errorf("short text: %q", got)
	}
	exact := strings.Repeat("q", 1000)
	if got := s.Split(exact); len(got) != 1 {
		t.Errorf("text of exactly chunk_size should be one chunk, got %d", len(got))
	}
}

func TestNewSplitter_invalid(t *testing.T) {
	for _, cfg := range [][2]int{{200, 200}, {100, 300}, {0, 0}, {-1, 0}, {10, -1}} {
		_, err := NewSplitter(cfg[0], cfg[1])
		var cerr *errdefs.ConfigurationError
		if !errors.As(err, &cerr) {
			t.Errorf("NewSplitter(%d, %d): expected ConfigurationError, got %v", cfg[0], cfg[1], err)
		}
	}
}

func TestSplitter_Chunks(t *testing.T) {
	s := mustSplitter(t, 4, 1)
	chunks := s.Chunks("batch", "abcdefghij")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Position != i {
			t.Errorf("chunk %d Position=%d", i, ch.Position)
		}
	}
	if chunks[1].ID != "batch_1" || chunks[1].Text != "defg" {
		t.Errorf("chunk 1: %+v", chunks[1])
	}
	if s.Chunks("batch", "") != nil {
		t.Error("empty text should return nil")
	}
}

func TestPreprocess(t *testing.T) {
	if Preprocess("  a  b \n\t c ") != "a b c" {
		t.Error("expected trimmed and collapsed spaces")
	}
}

func TestHasText(t *testing.T) {
	if HasText(" \n\t ") || HasText("") {
		t.Error("whitespace is not text")
	}
	if !HasText("  x ") {
		t.Error("expected text")
	}
}
