package chunk

import "strings"

// Default splitting parameters. Sized so a chunk stays comfortably inside the
// embedder's token budget while keeping enough context to retrieve on.
const (
	DefaultTargetSize = 1000
	DefaultOverlap    = 180

	// boundaryFloor is the minimum position (in runes) within a window at
	// which a natural break is accepted. Breaks earlier than this would
	// produce tiny chunks and stall forward progress.
	boundaryFloor = 200
)

// Split cuts text into overlapping segments of at most target runes,
// preferring to end each segment at a paragraph break or sentence end when
// one exists late enough in the window. Each subsequent window starts
// overlap runes before the previous cut. Segments are trimmed and empty
// segments dropped. Split terminates for every input, including
// overlap >= target.
//
// Text of length <= target is returned as a single segment, unchanged.
func Split(text string, target, overlap int) []string {
	if target <= 0 {
		target = DefaultTargetSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= target {
		return []string{text}
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + target
		if end >= len(runes) {
			out = appendSegment(out, runes[start:])
			break
		}

		cut := boundaryCut(runes[start:end])
		chunkEnd := start + cut
		out = appendSegment(out, runes[start:chunkEnd])

		next := chunkEnd - overlap
		if next <= start {
			// The overlap would swallow this window's advance; drop it for
			// this step so the scan always moves forward.
			next = chunkEnd
		}
		start = next
	}
	return out
}

// boundaryCut returns the cut position for a full window, preferring the
// rightmost paragraph break or sentence-ending period+space after
// boundaryFloor. The search only looks backward within the window, never
// re-extends it, so callers are guaranteed forward progress.
func boundaryCut(window []rune) int {
	for i := len(window) - 2; i > boundaryFloor; i-- {
		if window[i] == '\n' && window[i+1] == '\n' {
			return i
		}
		if window[i] == '.' && window[i+1] == ' ' {
			return i + 1
		}
	}
	return len(window)
}

func appendSegment(out []string, runes []rune) []string {
	s := strings.TrimSpace(string(runes))
	if s == "" {
		return out
	}
	return append(out, s)
}
