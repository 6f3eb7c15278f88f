package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalLabel(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "Marie Curie", want: "marie curie"},
		{name: "collapses whitespace", input: "  Marie   Curie ", want: "marie curie"},
		{name: "tabs and newlines", input: "Marie\t\nCurie", want: "marie curie"},
		{name: "already canonical", input: "radium", want: "radium"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanonicalLabel(tc.input))
		})
	}
}

func TestPatternEntityExtractor(t *testing.T) {
	e := NewPatternEntityExtractor()

	text := "The scientist Marie Curie worked in Paris. Her research on Radium changed physics."
	entities, err := e.Extract(context.Background(), text)
	require.NoError(t, err)

	labels := make(map[string]bool)
	for _, ent := range entities {
		labels[CanonicalLabel(ent.Label)] = true
	}
	assert.True(t, labels["marie curie"])
	assert.True(t, labels["paris"])
	assert.True(t, labels["radium"])
}

func TestCooccurrenceRelationExtractor(t *testing.T) {
	e := NewCooccurrenceRelationExtractor()

	entities := []Entity{
		{Label: "Marie Curie"},
		{Label: "Radium"},
		{Label: "Warsaw"},
	}
	text := "Marie Curie discovered Radium. Marie Curie studied Radium for years. Warsaw is elsewhere."

	triples, err := e.Extract(context.Background(), text, entities)
	require.NoError(t, err)
	require.NotEmpty(t, triples)

	var found *Triple
	for i := range triples {
		if CanonicalLabel(triples[i].Subject) == "marie curie" && CanonicalLabel(triples[i].Object) == "radium" {
			found = &triples[i]
		}
	}
	require.NotNil(t, found, "expected a marie curie / radium triple")
	assert.Equal(t, "related_to", found.Relation)
	// Two co-occurring sentences weigh more than one.
	assert.Greater(t, found.Weight, 0.5)
}

func TestCooccurrenceNeedsTwoEntities(t *testing.T) {
	e := NewCooccurrenceRelationExtractor()
	triples, err := e.Extract(context.Background(), "text", []Entity{{Label: "Solo"}})
	require.NoError(t, err)
	assert.Empty(t, triples)
}

func TestConnectedComponentsClusterer(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	edges := []ClusterEdge{
		{Source: ids[0], Target: ids[1]},
		{Source: ids[2], Target: ids[3]},
	}

	c := NewConnectedComponentsClusterer()
	assignment := c.Cluster(ids, edges, 0, 0)

	assert.Equal(t, assignment[ids[0]], assignment[ids[1]])
	assert.Equal(t, assignment[ids[2]], assignment[ids[3]])
	assert.NotEqual(t, assignment[ids[0]], assignment[ids[2]])
}

func TestConnectedComponentsMaxSizeSplit(t *testing.T) {
	ids := make([]uuid.UUID, 5)
	var edges []ClusterEdge
	for i := range ids {
		ids[i] = uuid.New()
		if i > 0 {
			edges = append(edges, ClusterEdge{Source: ids[i-1], Target: ids[i]})
		}
	}

	c := NewConnectedComponentsClusterer()
	assignment := c.Cluster(ids, edges, 0, 2)

	sizes := make(map[int]int)
	for _, cluster := range assignment {
		sizes[cluster]++
	}
	for cluster, size := range sizes {
		assert.LessOrEqual(t, size, 2, "cluster %d exceeds max size", cluster)
	}
}

func TestLabelPropagationFindsCommunities(t *testing.T) {
	// Two triangles joined by a single bridge edge.
	ids := make([]uuid.UUID, 6)
	for i := range ids {
		ids[i] = uuid.New()
	}
	edges := []ClusterEdge{
		{Source: ids[0], Target: ids[1]},
		{Source: ids[1], Target: ids[2]},
		{Source: ids[2], Target: ids[0]},
		{Source: ids[3], Target: ids[4]},
		{Source: ids[4], Target: ids[5]},
		{Source: ids[5], Target: ids[3]},
		{Source: ids[2], Target: ids[3]},
	}

	c := NewLabelPropagationClusterer()
	assignment := c.Cluster(ids, edges, 0, 0)

	for _, id := range ids {
		assert.NotZero(t, assignment[id])
	}
	assert.Equal(t, assignment[ids[0]], assignment[ids[1]])
	assert.Equal(t, assignment[ids[3]], assignment[ids[4]])
}

func TestLabelPropagationDeterministic(t *testing.T) {
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		ids[i] = uuid.New()
	}
	var edges []ClusterEdge
	for i := 1; i < len(ids); i++ {
		edges = append(edges, ClusterEdge{Source: ids[i-1], Target: ids[i]})
	}

	c := NewLabelPropagationClusterer()
	first := c.Cluster(ids, edges, 0, 0)
	second := c.Cluster(ids, edges, 0, 0)
	assert.Equal(t, first, second)
}

type stubEntityExtractor struct {
	failOn map[int]bool
	calls  int
}

func (s *stubEntityExtractor) Name() string        { return "stub" }
func (s *stubEntityExtractor) Description() string { return "stub" }

func (s *stubEntityExtractor) Extract(ctx context.Context, text string) ([]Entity, error) {
	idx := s.calls
	s.calls++
	if s.failOn[idx] {
		return nil, errors.New("extractor boom")
	}
	return []Entity{{Label: "Alpha"}, {Label: "Beta"}}, nil
}

type stubRelationExtractor struct{}

func (s *stubRelationExtractor) Name() string        { return "stub" }
func (s *stubRelationExtractor) Description() string { return "stub" }

func (s *stubRelationExtractor) Extract(ctx context.Context, text string, entities []Entity) ([]Triple, error) {
	return []Triple{{Subject: "Alpha", Relation: "knows", Object: "Beta", Weight: 0.9}}, nil
}

func TestCollectorBestEffort(t *testing.T) {
	entities := &stubEntityExtractor{failOn: map[int]bool{1: true}}
	collector := NewCollector(entities, &stubRelationExtractor{}, nil)

	result, err := collector.Collect(context.Background(), []string{"chunk a", "chunk b", "chunk c"})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalChunks)
	assert.Equal(t, 1, result.FailedChunks)
	require.Len(t, result.Nodes, 2)
	require.Len(t, result.Edges, 1)
	assert.Equal(t, "alpha", result.Edges[0].SubjectCanonical)
	assert.Equal(t, "beta", result.Edges[0].ObjectCanonical)
}

func TestCollectorAllChunksFail(t *testing.T) {
	entities := &stubEntityExtractor{failOn: map[int]bool{0: true, 1: true}}
	collector := NewCollector(entities, &stubRelationExtractor{}, nil)

	_, err := collector.Collect(context.Background(), []string{"chunk a", "chunk b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 chunks")
}

func TestCollectorMergesDuplicateNodes(t *testing.T) {
	entities := &stubEntityExtractor{}
	collector := NewCollector(entities, &stubRelationExtractor{}, nil)

	result, err := collector.Collect(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	// The same two entities extracted from both chunks collapse into two nodes.
	assert.Len(t, result.Nodes, 2)
	assert.Len(t, result.Edges, 1)
}

func TestExtractJsonArray(t *testing.T) {
	assert.Equal(t, `[{"label":"x"}]`, extractJsonArray("Here you go:\n```json\n[{\"label\":\"x\"}]\n```"))
	assert.Equal(t, "[]", extractJsonArray("no array at all"))
}
