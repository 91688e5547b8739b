// Package segment splits extracted document text into overlapping word windows.
package segment

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultWindowSize is the number of words per chunk.
	DefaultWindowSize = 500

	// DefaultOverlap is the number of words shared by consecutive chunks.
	DefaultOverlap = 50
)

// ErrInvalidWindow is returned when the window configuration cannot make progress.
var ErrInvalidWindow = errors.New("invalid segment window")

// Segmenter splits text using a fixed window size and overlap.
type Segmenter struct {
	windowSize int
	overlap    int
}

// NewSegmenter validates the window configuration once so Split cannot fail on it later.
// Zero values select DefaultWindowSize and DefaultOverlap.
func NewSegmenter(windowSize, overlap int) (*Segmenter, error) {
	if windowSize == 0 && overlap == 0 {
		windowSize, overlap = DefaultWindowSize, DefaultOverlap
	}
	if err := validate(windowSize, overlap); err != nil {
		return nil, err
	}
	return &Segmenter{windowSize: windowSize, overlap: overlap}, nil
}

// WindowSize returns the configured number of words per chunk.
func (s *Segmenter) WindowSize() int { return s.windowSize }

// Overlap returns the configured number of shared words between chunks.
func (s *Segmenter) Overlap() int { return s.overlap }

// Split segments text with the configured window.
func (s *Segmenter) Split(text string) []string {
	chunks, _ := Segment(text, s.windowSize, s.overlap)
	return chunks
}

// Segment tokenizes text on whitespace and emits windows of windowSize words,
// advancing the window start by windowSize-overlap words. A window is emitted for
// every start position inside the text, so W words yield ceil(W/stride) chunks and
// the trailing chunks may be shorter than windowSize.
// Empty text yields no chunks.
func Segment(text string, windowSize, overlap int) ([]string, error) {
	if err := validate(windowSize, overlap); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	stride := windowSize - overlap
	chunks := make([]string, 0, (len(words)+stride-1)/stride)
	for start := 0; start < len(words); start += stride {
		end := min(start+windowSize, len(words))
		chunk := strings.TrimSpace(strings.Join(words[start:end], " "))
		if chunk == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

func validate(windowSize, overlap int) error {
	if windowSize <= 0 {
		return fmt.Errorf("%w: window size %d must be positive", ErrInvalidWindow, windowSize)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidWindow, overlap)
	}
	if overlap >= windowSize {
		return fmt.Errorf("%w: overlap %d must be smaller than window size %d", ErrInvalidWindow, overlap, windowSize)
	}
	return nil
}
