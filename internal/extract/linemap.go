package extract

import "sort"

// LineMap maps byte offsets to 1-based line numbers via a precomputed
// newline index.
type LineMap struct {
	newlines []int
}

// NewLineMap indexes the newline positions of src once.
func NewLineMap(src []byte) *LineMap {
	var nl []int
	for i, b := range src {
		if b == '\n' {
			nl = append(nl, i)
		}
	}
	return &LineMap{newlines: nl}
}

// Line returns the 1-based line number containing the byte offset: one more
// than the count of newlines strictly before it.
func (m *LineMap) Line(offset int) int {
	n := sort.SearchInts(m.newlines, offset)
	if n < 0 {
		n = 0
	}
	return n + 1
}

// EndLine returns the line of the last byte of the half-open range
// [startByte, endByte). Backing off one byte keeps a chunk that ends exactly
// on a newline from reporting a phantom extra line.
func (m *LineMap) EndLine(startByte, endByte int) int {
	last := endByte - 1
	if last < startByte {
		last = startByte
	}
	return m.Line(last)
}
