package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry()

	for _, name := range []string{"character", "sentence", "semantic", "token", "markdown", "html", "code"} {
		t.Run(name, func(t *testing.T) {
			c, err := registry.Resolve(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())
		})
	}

	_, err := registry.Resolve("fixed-width")
	assert.Error(t, err)
}

func TestCharacterChunkerWindowAndOverlap(t *testing.T) {
	c := NewCharacterChunker()

	text := strings.Repeat("abcdefghij", 10) // 100 runes
	pieces, err := c.Split(text, Options{ChunkSize: 40, ChunkOverlap: 10})
	require.NoError(t, err)
	require.NotEmpty(t, pieces)

	// Step is size - overlap, so windows start every 30 runes.
	assert.Equal(t, 0, pieces[0].StartOffset)
	assert.Equal(t, 40, pieces[0].EndOffset)
	if len(pieces) > 1 {
		assert.Equal(t, 30, pieces[1].StartOffset)
	}
	for _, p := range pieces {
		assert.LessOrEqual(t, p.EndOffset-p.StartOffset, 40)
		assert.NotEmpty(t, p.Text)
	}
}

func TestCharacterChunkerEmptyInput(t *testing.T) {
	c := NewCharacterChunker()

	pieces, err := c.Split("   \n\t  ", Options{ChunkSize: 100})
	require.NoError(t, err)
	assert.Empty(t, pieces)
}

func TestCharacterChunkerShortInputSinglePiece(t *testing.T) {
	c := NewCharacterChunker()

	pieces, err := c.Split("tiny", Options{ChunkSize: 500, ChunkOverlap: 50})
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, "tiny", pieces[0].Text)
	assert.Equal(t, 1, pieces[0].TokenCount)
}

func TestSentenceChunkerKeepsSentencesIntact(t *testing.T) {
	c := NewSentenceChunker()

	text := "First sentence here. Second one follows. Third keeps going. Fourth ends it."
	pieces, err := c.Split(text, Options{ChunkSize: 45, ChunkOverlap: 0})
	require.NoError(t, err)
	require.NotEmpty(t, pieces)

	for _, p := range pieces {
		// Every piece ends on a sentence boundary.
		assert.True(t, strings.HasSuffix(p.Text, "."), "piece %q should end with a period", p.Text)
	}
}

func TestSentenceChunkerOversizedSentence(t *testing.T) {
	c := NewSentenceChunker()

	long := strings.Repeat("word ", 100) + "end."
	pieces, err := c.Split(long, Options{ChunkSize: 50, ChunkOverlap: 10})
	require.NoError(t, err)
	// A single sentence longer than the chunk size still yields a piece.
	require.NotEmpty(t, pieces)
}

func TestSplitSentences(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  int
	}{
		{name: "simple", input: "One. Two. Three.", want: 3},
		{name: "question and exclamation", input: "Really? Yes! Fine.", want: 3},
		{name: "no terminator", input: "trailing fragment without period", want: 1},
		{name: "ellipsis collapses", input: "Wait... done.", want: 2},
		{name: "empty", input: "", want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, splitSentences(tc.input), tc.want)
		})
	}
}

func TestSemanticChunkerNonEmpty(t *testing.T) {
	c := NewSemanticChunker()

	text := "Paragraph one with some content.\n\nParagraph two with other content.\n\nParagraph three."
	pieces, err := c.Split(text, Options{ChunkSize: 60, ChunkOverlap: 10})
	require.NoError(t, err)
	require.NotEmpty(t, pieces)
	for _, p := range pieces {
		assert.NotEmpty(t, p.Text)
		assert.GreaterOrEqual(t, p.EndOffset, p.StartOffset)
	}
}

func TestOptionsNormalized(t *testing.T) {
	o := Options{ChunkSize: 0, ChunkOverlap: -5}.normalized()
	assert.Equal(t, 800, o.ChunkSize)
	assert.Equal(t, 0, o.ChunkOverlap)

	o = Options{ChunkSize: 100, ChunkOverlap: 150}.normalized()
	assert.Equal(t, 25, o.ChunkOverlap)
}

func TestLocatePiecesOffsets(t *testing.T) {
	source := "alpha beta gamma delta"
	pieces := locatePieces(source, []string{"alpha beta", "gamma delta"})
	require.Len(t, pieces, 2)
	assert.Equal(t, 0, pieces[0].StartOffset)
	assert.Equal(t, 10, pieces[0].EndOffset)
	assert.Equal(t, 11, pieces[1].StartOffset)
	assert.Equal(t, 22, pieces[1].EndOffset)
}
