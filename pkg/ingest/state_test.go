package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-workspace-be/internal/entity"
)

func TestTransitionHappyPath(t *testing.T) {
	sequence := []string{
		entity.DocumentStatusPending,
		entity.DocumentStatusParsing,
		entity.DocumentStatusChunking,
		entity.DocumentStatusEmbedding,
		entity.DocumentStatusIndexing,
		entity.DocumentStatusReady,
	}

	for i := 1; i < len(sequence); i++ {
		next, err := Transition(sequence[i-1], sequence[i])
		require.NoError(t, err, "%s -> %s", sequence[i-1], sequence[i])
		assert.Equal(t, sequence[i], next)
	}
}

func TestTransitionGraphModeSkipsEmbedding(t *testing.T) {
	_, err := Transition(entity.DocumentStatusChunking, entity.DocumentStatusIndexing)
	assert.NoError(t, err)
}

func TestTransitionFailedFromAnyNonTerminal(t *testing.T) {
	for _, from := range []string{
		entity.DocumentStatusPending,
		entity.DocumentStatusParsing,
		entity.DocumentStatusChunking,
		entity.DocumentStatusEmbedding,
		entity.DocumentStatusIndexing,
	} {
		t.Run(from, func(t *testing.T) {
			assert.True(t, CanTransition(from, entity.DocumentStatusFailed))
		})
	}
}

func TestTransitionNoBackwardEdges(t *testing.T) {
	testCases := []struct {
		from string
		to   string
	}{
		{entity.DocumentStatusReady, entity.DocumentStatusPending},
		{entity.DocumentStatusReady, entity.DocumentStatusParsing},
		{entity.DocumentStatusFailed, entity.DocumentStatusParsing},
		{entity.DocumentStatusFailed, entity.DocumentStatusReady},
		{entity.DocumentStatusChunking, entity.DocumentStatusParsing},
		{entity.DocumentStatusDeleted, entity.DocumentStatusPending},
		{entity.DocumentStatusDeleted, entity.DocumentStatusDeleting},
	}

	for _, tc := range testCases {
		t.Run(tc.from+"_to_"+tc.to, func(t *testing.T) {
			assert.False(t, CanTransition(tc.from, tc.to))
			_, err := Transition(tc.from, tc.to)
			assert.Error(t, err)
		})
	}
}

func TestTransitionDeletingFromAnyState(t *testing.T) {
	for _, from := range []string{
		entity.DocumentStatusPending,
		entity.DocumentStatusParsing,
		entity.DocumentStatusChunking,
		entity.DocumentStatusEmbedding,
		entity.DocumentStatusIndexing,
		entity.DocumentStatusReady,
		entity.DocumentStatusFailed,
	} {
		t.Run(from, func(t *testing.T) {
			assert.True(t, CanTransition(from, entity.DocumentStatusDeleting))
		})
	}
	assert.True(t, CanTransition(entity.DocumentStatusDeleting, entity.DocumentStatusDeleted))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(entity.DocumentStatusReady))
	assert.True(t, IsTerminal(entity.DocumentStatusFailed))
	assert.True(t, IsTerminal(entity.DocumentStatusDeleted))
	assert.False(t, IsTerminal(entity.DocumentStatusPending))
	assert.False(t, IsTerminal(entity.DocumentStatusDeleting))
}
