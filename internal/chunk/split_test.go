package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\t"} {
		if got := Split(input, DefaultTargetSize, DefaultOverlap); len(got) != 0 {
			t.Errorf("Split(%q) = %v, want empty", input, got)
		}
	}
}

func TestSplit_ShortCircuit(t *testing.T) {
	text := "a single short paragraph that fits in one chunk"
	got := Split(text, DefaultTargetSize, DefaultOverlap)

	if len(got) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", len(got))
	}
	if got[0] != text {
		t.Errorf("short input must be returned unchanged: got %q", got[0])
	}
}

func TestSplit_HardCutWithOverlap(t *testing.T) {
	// 2500 uniform runes with no natural boundaries: expect hard cuts at
	// 1000, then windows restarting 180 runes back. 0..1000, 820..1820,
	// 1640..2500 → exactly 3 chunks.
	text := strings.Repeat("abcde", 500)
	got := Split(text, 1000, 180)

	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	for i, c := range got {
		if c == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if !strings.Contains(text, c) {
			t.Errorf("chunk %d is not a substring of the input", i)
		}
	}

	// Concatenating the non-overlapping tails reconstructs the input.
	rebuilt := got[0] + got[1][180:] + got[2][180:]
	if rebuilt != text {
		t.Errorf("overlap-aware concatenation did not reconstruct input: %d vs %d runes",
			len(rebuilt), len(text))
	}
}

func TestSplit_PrefersParagraphBreak(t *testing.T) {
	text := strings.Repeat("a", 500) + "\n\n" + strings.Repeat("b", 800)
	got := Split(text, 1000, 180)

	if len(got) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(got))
	}
	if got[0] != strings.Repeat("a", 500) {
		t.Errorf("first chunk should end at the paragraph break, got %d runes ending %q",
			len(got[0]), got[0][len(got[0])-10:])
	}
}

func TestSplit_PrefersSentenceEnd(t *testing.T) {
	text := strings.Repeat("x", 300) + ". " + strings.Repeat("y", 900)
	got := Split(text, 1000, 180)

	if len(got) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(got))
	}
	want := strings.Repeat("x", 300) + "."
	if got[0] != want {
		t.Errorf("first chunk should end after the period: got %d runes", len(got[0]))
	}
}

func TestSplit_BoundaryTooEarlyIsIgnored(t *testing.T) {
	// A break before the boundary floor (rune 200) must not be used.
	text := strings.Repeat("a", 100) + "\n\n" + strings.Repeat("b", 1200)
	got := Split(text, 1000, 0)

	if len(got[0]) <= 200 {
		t.Errorf("early break was taken: first chunk only %d runes", len(got[0]))
	}
}

func TestSplit_OverlapGEQTargetTerminates(t *testing.T) {
	text := strings.Repeat("z", 1000)

	for _, overlap := range []int{100, 150, 9999} {
		got := Split(text, 100, overlap)
		if len(got) != 10 {
			t.Errorf("overlap=%d: expected 10 chunks, got %d", overlap, len(got))
		}
		if strings.Join(got, "") != text {
			t.Errorf("overlap=%d: chunks should tile the input when overlap is dropped", overlap)
		}
	}
}

func TestSplit_RuneSafe(t *testing.T) {
	text := strings.Repeat("記憶術は強力な学習手段である", 120)
	got := Split(text, 500, 50)

	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	for i, c := range got {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d contains invalid UTF-8", i)
		}
	}
}

func TestSplit_TrimsWhitespace(t *testing.T) {
	text := "  leading and trailing  "
	got := Split(text, 5, 0)

	for i, c := range got {
		if c != strings.TrimSpace(c) {
			t.Errorf("chunk %d not trimmed: %q", i, c)
		}
	}
}
