// Package chunker splits document text into overlapping, size-bounded
// segments suitable for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/foliobot/folio/internal/config"
)

// Chunker splits text into chunks of at most Size runes, with consecutive
// chunks overlapping by Overlap runes. Windows are shrunk backward to the
// last sentence terminator or newline where one exists, so chunks stay
// sentence-aligned when possible.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Overlap must be smaller than size or the window
// could fail to advance; that is a fatal configuration error, not something
// to paper over at split time.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", config.ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d with chunk size %d", config.ErrInvalidChunking, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split produces an ordered sequence of non-empty chunks covering text.
// Empty input yields a nil slice.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	length := len(runes)

	var chunks []string
	start := 0
	for start < length {
		end := start + c.size
		if end > length {
			end = length
		} else if end < length {
			// Shrink to just past the last sentence boundary inside
			// the window, if there is one after the window start.
			if bp := lastBoundary(runes[start:end]); bp > 0 {
				end = start + bp + 1
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - c.overlap
		if next <= start {
			// A shrunken window can make end-overlap fall at or before
			// start; jump past the window instead of looping forever.
			next = end
		}
		start = next
	}
	return chunks
}

// lastBoundary returns the index of the last '.' or '\n' in window,
// or -1 if none exists.
func lastBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '\n' {
			return i
		}
	}
	return -1
}
