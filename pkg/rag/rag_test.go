package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBm25RerankerPrefersLexicalMatch(t *testing.T) {
	r := NewBm25Reranker()

	docId := uuid.New()
	results := []Result{
		{Text: "completely unrelated content about gardening tips", Score: 0.9, DocumentId: docId},
		{Text: "the quarterly revenue report shows strong growth", Score: 0.8, DocumentId: docId},
		{Text: "another note on gardening and flowers", Score: 0.7, DocumentId: docId},
	}

	reranked, err := r.Rerank(context.Background(), "quarterly revenue report", results)
	require.NoError(t, err)
	require.Len(t, reranked, 3)
	assert.Contains(t, reranked[0].Text, "quarterly revenue")
}

func TestBm25RerankerEmptyInput(t *testing.T) {
	r := NewBm25Reranker()
	reranked, err := r.Rerank(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Empty(t, reranked)
}

func TestRrfRerankerFusesRankings(t *testing.T) {
	r := NewRrfReranker()

	idA, idB := uuid.New(), uuid.New()
	results := []Result{
		{Text: "exact match for the search query terms", Score: 0.5, ChunkId: &idA},
		{Text: "nothing in common here at all", Score: 0.9, ChunkId: &idB},
	}

	reranked, err := r.Rerank(context.Background(), "search query terms", results)
	require.NoError(t, err)
	require.Len(t, reranked, 2)
	// First in both the similarity and lexical rankings wins the fusion.
	assert.Equal(t, idA, *reranked[0].ChunkId)
}

func TestContextBuilderDedupAndCap(t *testing.T) {
	b := NewContextBuilder(200)

	docId := uuid.New()
	chunk1, chunk2 := uuid.New(), uuid.New()
	results := []Result{
		{Text: "The mitochondria is the powerhouse of the cell", Score: 0.9, DocumentId: docId, ChunkId: &chunk1},
		{Text: "The mitochondria is the powerhouse of the cell", Score: 0.85, DocumentId: docId, ChunkId: &chunk2},
		{Text: "Ribosomes synthesize proteins from amino acids", Score: 0.8, DocumentId: docId},
	}

	block := b.Build(results)
	// The byte-identical second snippet folds away.
	assert.Len(t, block.Provenance, 2)
	assert.Equal(t, 1, strings.Count(block.Text, "mitochondria"))
	assert.Contains(t, block.Text, "Ribosomes")
}

func TestContextBuilderSizeCap(t *testing.T) {
	b := NewContextBuilder(60)

	docId := uuid.New()
	results := []Result{
		{Text: strings.Repeat("alpha ", 8), Score: 0.9, DocumentId: docId},
		{Text: strings.Repeat("bravo ", 8), Score: 0.8, DocumentId: docId},
		{Text: strings.Repeat("carol ", 8), Score: 0.7, DocumentId: docId},
	}

	block := b.Build(results)
	assert.LessOrEqual(t, len(block.Text), 60)
	assert.NotEmpty(t, block.Provenance)
	assert.Less(t, len(block.Provenance), 3)
}

func TestContextBuilderEmpty(t *testing.T) {
	b := NewContextBuilder(0)
	block := b.Build(nil)
	assert.Empty(t, block.Text)
	assert.Empty(t, block.Provenance)
}

func TestQueryTermsFiltering(t *testing.T) {
	terms := queryTerms("What is the capital of France and when was it founded?")
	assert.Contains(t, terms, "capital")
	assert.Contains(t, terms, "france")
	assert.Contains(t, terms, "founded")
	assert.NotContains(t, terms, "the")
	assert.NotContains(t, terms, "what")
	assert.NotContains(t, terms, "is")
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "42"}, tokenize("Hello, World! 42"))
}

func TestIsNearDuplicate(t *testing.T) {
	kept := [][]string{tokenize("the quick brown fox jumps over the lazy dog")}

	assert.True(t, isNearDuplicate(tokenize("the quick brown fox jumps over the lazy dog"), kept, 0.9))
	assert.False(t, isNearDuplicate(tokenize("an entirely different sentence altogether"), kept, 0.9))
	assert.True(t, isNearDuplicate(nil, kept, 0.9))
}
