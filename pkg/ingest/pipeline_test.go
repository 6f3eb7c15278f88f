package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rag-workspace-be/internal/entity"
)

func TestChunkingForVectorModeUsesConfiguredStrategy(t *testing.T) {
	p := &Pipeline{}

	name, opts := p.chunkingFor(&entity.RagConfig{
		Mode: entity.RagModeVector,
		Vector: entity.VectorParams{
			Chunker:      "markdown",
			ChunkSize:    600,
			ChunkOverlap: 60,
		},
	})

	assert.Equal(t, "markdown", name)
	assert.Equal(t, 600, opts.ChunkSize)
	assert.Equal(t, 60, opts.ChunkOverlap)
}

func TestChunkingForGraphModeSplitsOnSentences(t *testing.T) {
	p := &Pipeline{}

	name, opts := p.chunkingFor(&entity.RagConfig{Mode: entity.RagModeGraph})

	assert.Equal(t, "sentence", name)
	assert.Zero(t, opts.ChunkSize)
	assert.Zero(t, opts.ChunkOverlap)
}
