package segment

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// numberedWords returns "w1 w2 ... wn".
func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i+1)
	}
	return strings.Join(words, " ")
}

func TestSegment_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t \r\n"} {
		chunks, err := Segment(text, DefaultWindowSize, DefaultOverlap)
		require.NoError(t, err)
		assert.Empty(t, chunks, "text %q should produce no chunks", text)
	}
}

func TestSegment_SixHundredWords(t *testing.T) {
	chunks, err := Segment(numberedWords(600), 500, 50)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])

	assert.Len(t, first, 500)
	assert.Equal(t, "w1", first[0])
	assert.Equal(t, "w500", first[499])

	assert.Len(t, second, 150)
	assert.Equal(t, "w451", second[0])
	assert.Equal(t, "w600", second[149])
}

func TestSegment_ChunkCountAndOverlap(t *testing.T) {
	for _, w := range []int{1, 49, 450, 451, 500, 899, 900, 901, 2000, 4321} {
		t.Run(fmt.Sprintf("%d words", w), func(t *testing.T) {
			chunks, err := Segment(numberedWords(w), 500, 50)
			require.NoError(t, err)

			expected := (w + 449) / 450
			assert.Len(t, chunks, expected)

			for i, chunk := range chunks {
				words := strings.Fields(chunk)
				assert.LessOrEqual(t, len(words), 500)
				assert.Equal(t, fmt.Sprintf("w%d", i*450+1), words[0], "chunk %d start", i)

				if i+1 < len(chunks)-1 {
					next := strings.Fields(chunks[i+1])
					assert.Equal(t, words[len(words)-50:], next[:50], "chunk %d overlap", i)
				}
			}
		})
	}
}

func TestSegment_NormalizesWhitespace(t *testing.T) {
	chunks, err := Segment("  alpha\tbeta\n\n gamma   delta  ", 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha beta gamma", "gamma delta"}, chunks)
}

func TestSegment_Deterministic(t *testing.T) {
	text := numberedWords(1234)
	a, err := Segment(text, 100, 10)
	require.NoError(t, err)
	b, err := Segment(text, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSegment_InvalidWindow(t *testing.T) {
	cases := []struct {
		window, overlap int
	}{
		{0, 0},
		{-1, 0},
		{10, -1},
		{10, 10},
		{10, 11},
	}
	for _, tc := range cases {
		_, err := Segment("some text", tc.window, tc.overlap)
		assert.ErrorIs(t, err, ErrInvalidWindow, "window=%d overlap=%d", tc.window, tc.overlap)
	}
}

func TestNewSegmenter(t *testing.T) {
	s, err := NewSegmenter(0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindowSize, s.WindowSize())
	assert.Equal(t, DefaultOverlap, s.Overlap())

	s, err = NewSegmenter(4, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b c d", "d e"}, s.Split("a b c d e"))

	_, err = NewSegmenter(5, 5)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}
