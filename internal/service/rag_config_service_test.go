package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/pkg/chunker"
	"rag-workspace-be/pkg/embedding"
	"rag-workspace-be/pkg/graph"
	"rag-workspace-be/pkg/parser"
	"rag-workspace-be/pkg/rag"
)

type stubEmbedder struct{}

func (stubEmbedder) Name() string        { return "stub" }
func (stubEmbedder) Description() string { return "Fixed one-dimensional vectors" }
func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) { return []float32{1}, nil }
func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}
func (stubEmbedder) Dimensions() int { return 1 }

func newTestConfigService() *ragConfigService {
	embedders := embedding.NewRegistry()
	embedders.Register(stubEmbedder{})

	rerankers := rag.NewRerankerRegistry()
	rerankers.Register(rag.NewBm25Reranker())

	graphReg := graph.NewRegistry()
	graphReg.RegisterEntityExtractor(graph.NewPatternEntityExtractor())
	graphReg.RegisterRelationExtractor(graph.NewCooccurrenceRelationExtractor())
	graphReg.RegisterClusterer(graph.NewLabelPropagationClusterer())
	graphReg.RegisterClusterer(graph.NewConnectedComponentsClusterer())

	return &ragConfigService{
		parsers:         parser.NewRegistry(),
		chunkers:        chunker.NewRegistry(),
		embedders:       embedders,
		rerankers:       rerankers,
		graphReg:        graphReg,
		defaultEmbedder: "stub",
	}
}

func validVectorRequest() *dto.CreateRagConfigRequest {
	return &dto.CreateRagConfigRequest{
		Mode: entity.RagModeVector,
		Vector: &dto.VectorParamsPayload{
			Chunker:      "sentence",
			ChunkSize:    500,
			ChunkOverlap: 50,
			Embedder:     "stub",
			TopK:         5,
		},
	}
}

func validGraphRequest() *dto.CreateRagConfigRequest {
	return &dto.CreateRagConfigRequest{
		Mode: entity.RagModeGraph,
		Graph: &dto.GraphParamsPayload{
			EntityExtractor:   "pattern",
			RelationExtractor: "cooccurrence",
			Clustering:        "label_propagation",
			MaxHops:           2,
			MinClusterSize:    2,
			MaxClusterSize:    40,
		},
	}
}

func TestBuildConfigValidVector(t *testing.T) {
	svc := newTestConfigService()

	config, err := svc.buildConfig(validVectorRequest())
	require.NoError(t, err)
	assert.Equal(t, entity.RagModeVector, config.Mode)
	assert.Equal(t, "sentence", config.Vector.Chunker)
	assert.Equal(t, 500, config.Vector.ChunkSize)
}

func TestBuildConfigFillsDefaults(t *testing.T) {
	svc := newTestConfigService()

	req := validVectorRequest()
	req.Vector.ChunkSize = 0
	req.Vector.TopK = 0

	config, err := svc.buildConfig(req)
	require.NoError(t, err)
	assert.Equal(t, defaultChunkSize, config.Vector.ChunkSize)
	assert.Equal(t, defaultTopK, config.Vector.TopK)

	graphReq := validGraphRequest()
	graphReq.Graph.MaxHops = 0
	graphReq.Graph.MinClusterSize = 0
	graphReq.Graph.MaxClusterSize = 0

	config, err = svc.buildConfig(graphReq)
	require.NoError(t, err)
	assert.Equal(t, defaultMaxHops, config.Graph.MaxHops)
	assert.Equal(t, defaultMinCluster, config.Graph.MinClusterSize)
	assert.Equal(t, defaultMaxCluster, config.Graph.MaxClusterSize)
}

func TestBuildConfigOmittedEmbedderUsesDeploymentDefault(t *testing.T) {
	svc := newTestConfigService()

	req := validVectorRequest()
	req.Vector.Embedder = ""

	config, err := svc.buildConfig(req)
	require.NoError(t, err)
	assert.Equal(t, "stub", config.Vector.Embedder)

	// An unregistered deployment default still fails validation.
	svc.defaultEmbedder = "missing"
	_, err = svc.buildConfig(req)
	var invalid *apperror.InvalidConfigError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "vector.embedder", invalid.Field)
}

func TestBuildConfigRejectsInvalid(t *testing.T) {
	svc := newTestConfigService()

	testCases := []struct {
		name    string
		mutate  func(req *dto.CreateRagConfigRequest)
		request *dto.CreateRagConfigRequest
		field   string
	}{
		{
			name:    "unknown chunker",
			request: validVectorRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Vector.Chunker = "telepathic" },
			field:   "vector.chunker",
		},
		{
			name:    "unknown embedder",
			request: validVectorRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Vector.Embedder = "nope" },
			field:   "vector.embedder",
		},
		{
			name:    "unknown reranker",
			request: validVectorRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Vector.Reranker = "nope" },
			field:   "vector.reranker",
		},
		{
			name:    "chunk size too small",
			request: validVectorRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Vector.ChunkSize = 10 },
			field:   "vector.chunk_size",
		},
		{
			name:    "overlap not below chunk size",
			request: validVectorRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Vector.ChunkOverlap = 500 },
			field:   "vector.chunk_overlap",
		},
		{
			name:    "negative overlap",
			request: validVectorRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Vector.ChunkOverlap = -1 },
			field:   "vector.chunk_overlap",
		},
		{
			name:    "top_k beyond bound",
			request: validVectorRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Vector.TopK = 500 },
			field:   "vector.top_k",
		},
		{
			name:    "graph params in vector mode",
			request: validVectorRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Graph = validGraphRequest().Graph },
			field:   "graph",
		},
		{
			name:    "missing vector params",
			request: validVectorRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Vector = nil },
			field:   "vector",
		},
		{
			name:    "unknown entity extractor",
			request: validGraphRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Graph.EntityExtractor = "psychic" },
			field:   "graph.entity_extractor",
		},
		{
			name:    "unknown clustering strategy",
			request: validGraphRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Graph.Clustering = "vibes" },
			field:   "graph.clustering",
		},
		{
			name:    "max hops beyond bound",
			request: validGraphRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Graph.MaxHops = 99 },
			field:   "graph.max_hops",
		},
		{
			name:    "max cluster below min cluster",
			request: validGraphRequest(),
			mutate: func(r *dto.CreateRagConfigRequest) {
				r.Graph.MinClusterSize = 10
				r.Graph.MaxClusterSize = 3
			},
			field: "graph.max_cluster_size",
		},
		{
			name:    "vector params in graph mode",
			request: validGraphRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Vector = validVectorRequest().Vector },
			field:   "vector",
		},
		{
			name:    "unknown mode",
			request: validVectorRequest(),
			mutate:  func(r *dto.CreateRagConfigRequest) { r.Mode = "hybrid" },
			field:   "mode",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.mutate(tc.request)

			_, err := svc.buildConfig(tc.request)
			require.Error(t, err)

			var invalid *apperror.InvalidConfigError
			require.True(t, errors.As(err, &invalid), "expected InvalidConfigError, got %v", err)
			assert.Equal(t, tc.field, invalid.Field)
		})
	}
}

func TestListOptionsDescribesEveryStrategy(t *testing.T) {
	svc := newTestConfigService()

	opts := svc.ListOptions(context.Background())

	groups := map[string][]dto.RagOption{
		"modes":               opts.Modes,
		"chunkers":            opts.Chunkers,
		"embedders":           opts.Embedders,
		"rerankers":           opts.Rerankers,
		"entity_extractors":   opts.EntityExtractors,
		"relation_extractors": opts.RelationExtractors,
		"clusterers":          opts.Clusterers,
		"content_types":       opts.ContentTypes,
	}
	for name, group := range groups {
		require.NotEmpty(t, group, name)
		for _, opt := range group {
			assert.NotEmpty(t, opt.Id, name)
			assert.NotEmpty(t, opt.Description, "%s option %q has no description", name, opt.Id)
		}
	}

	ids := func(group []dto.RagOption) []string {
		out := make([]string, len(group))
		for i, opt := range group {
			out[i] = opt.Id
		}
		return out
	}
	assert.Contains(t, ids(opts.Chunkers), "sentence")
	assert.Contains(t, ids(opts.Embedders), "stub")
	assert.Contains(t, ids(opts.Clusterers), "label_propagation")
	assert.Contains(t, ids(opts.ContentTypes), "application/pdf")
}

func TestUpdateAlwaysImmutable(t *testing.T) {
	svc := newTestConfigService()

	err := svc.Update(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrConfigImmutable)
}
