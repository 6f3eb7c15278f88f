package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/repository/specification"
	"rag-workspace-be/internal/repository/unitofwork"
	"rag-workspace-be/pkg/chunker"
	"rag-workspace-be/pkg/embedding"
	"rag-workspace-be/pkg/graph"
	"rag-workspace-be/pkg/parser"
	"rag-workspace-be/pkg/rag"
)

// Validation bounds. Defaults apply when a knob is zero.
const (
	defaultChunkSize  = 800
	minChunkSize      = 100
	maxChunkSize      = 8000
	defaultTopK       = 5
	maxTopK           = 50
	defaultMaxHops    = 2
	maxMaxHops        = 5
	defaultMinCluster = 2
	defaultMaxCluster = 50
)

type IRagConfigService interface {
	Create(ctx context.Context, req *dto.CreateRagConfigRequest) (*dto.RagConfigResponse, error)
	Get(ctx context.Context, workspaceId uuid.UUID) (*dto.RagConfigResponse, error)
	// Update always fails: a config cannot change after creation.
	Update(ctx context.Context, workspaceId uuid.UUID) error
	ListOptions(ctx context.Context) *dto.RagOptionsResponse
}

type ragConfigService struct {
	uowFactory unitofwork.RepositoryFactory
	parsers    *parser.Registry
	chunkers   *chunker.Registry
	embedders  *embedding.Registry
	rerankers  *rag.RerankerRegistry
	graphReg   *graph.Registry
	// defaultEmbedder fills in when a vector config omits the embedder.
	defaultEmbedder string
}

func NewRagConfigService(
	uowFactory unitofwork.RepositoryFactory,
	parsers *parser.Registry,
	chunkers *chunker.Registry,
	embedders *embedding.Registry,
	rerankers *rag.RerankerRegistry,
	graphReg *graph.Registry,
	defaultEmbedder string,
) IRagConfigService {
	return &ragConfigService{
		uowFactory:      uowFactory,
		parsers:         parsers,
		chunkers:        chunkers,
		embedders:       embedders,
		rerankers:       rerankers,
		graphReg:        graphReg,
		defaultEmbedder: defaultEmbedder,
	}
}

func (s *ragConfigService) Create(ctx context.Context, req *dto.CreateRagConfigRequest) (*dto.RagConfigResponse, error) {
	config, err := s.buildConfig(req)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	existing, err := uow.RagConfigRepository().FindOne(ctx, specification.ByWorkspaceID{WorkspaceID: req.WorkspaceId})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrConfigImmutable
	}

	if err := uow.RagConfigRepository().Create(ctx, config); err != nil {
		return nil, err
	}
	return toRagConfigResponse(config), nil
}

// buildConfig validates the request against the registries and bounds and
// materializes the entity with defaults filled in.
func (s *ragConfigService) buildConfig(req *dto.CreateRagConfigRequest) (*entity.RagConfig, error) {
	config := &entity.RagConfig{
		Id:          uuid.New(),
		WorkspaceId: req.WorkspaceId,
		Mode:        req.Mode,
		CreatedAt:   time.Now(),
	}

	switch req.Mode {
	case entity.RagModeVector:
		if req.Graph != nil {
			return nil, apperror.InvalidConfig("graph", "graph params are not allowed in vector mode")
		}
		if req.Vector == nil {
			return nil, apperror.InvalidConfig("vector", "vector params are required in vector mode")
		}
		params, err := s.validateVectorParams(req.Vector)
		if err != nil {
			return nil, err
		}
		config.Vector = *params

	case entity.RagModeGraph:
		if req.Vector != nil {
			return nil, apperror.InvalidConfig("vector", "vector params are not allowed in graph mode")
		}
		if req.Graph == nil {
			return nil, apperror.InvalidConfig("graph", "graph params are required in graph mode")
		}
		params, err := s.validateGraphParams(req.Graph)
		if err != nil {
			return nil, err
		}
		config.Graph = *params

	default:
		return nil, apperror.InvalidConfig("mode", "must be one of: vector, graph")
	}

	return config, nil
}

func (s *ragConfigService) validateVectorParams(p *dto.VectorParamsPayload) (*entity.VectorParams, error) {
	if _, err := s.chunkers.Resolve(p.Chunker); err != nil {
		return nil, apperror.InvalidConfig("vector.chunker", fmt.Sprintf("unknown chunker %q", p.Chunker))
	}
	embedder := p.Embedder
	if embedder == "" {
		embedder = s.defaultEmbedder
	}
	if _, err := s.embedders.Resolve(embedder); err != nil {
		return nil, apperror.InvalidConfig("vector.embedder", fmt.Sprintf("unknown embedder %q", embedder))
	}
	if p.Reranker != "" {
		if _, err := s.rerankers.Resolve(p.Reranker); err != nil {
			return nil, apperror.InvalidConfig("vector.reranker", fmt.Sprintf("unknown reranker %q", p.Reranker))
		}
	}

	chunkSize := p.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	if chunkSize < minChunkSize || chunkSize > maxChunkSize {
		return nil, apperror.InvalidConfig("vector.chunk_size", fmt.Sprintf("must be between %d and %d", minChunkSize, maxChunkSize))
	}
	if p.ChunkOverlap < 0 {
		return nil, apperror.InvalidConfig("vector.chunk_overlap", "must not be negative")
	}
	if p.ChunkOverlap >= chunkSize {
		return nil, apperror.InvalidConfig("vector.chunk_overlap", "must be smaller than chunk_size")
	}

	topK := p.TopK
	if topK == 0 {
		topK = defaultTopK
	}
	if topK < 1 || topK > maxTopK {
		return nil, apperror.InvalidConfig("vector.top_k", fmt.Sprintf("must be between 1 and %d", maxTopK))
	}

	return &entity.VectorParams{
		Chunker:      p.Chunker,
		ChunkSize:    chunkSize,
		ChunkOverlap: p.ChunkOverlap,
		Embedder:     embedder,
		TopK:         topK,
		Reranker:     p.Reranker,
	}, nil
}

func (s *ragConfigService) validateGraphParams(p *dto.GraphParamsPayload) (*entity.GraphParams, error) {
	if _, err := s.graphReg.ResolveEntityExtractor(p.EntityExtractor); err != nil {
		return nil, apperror.InvalidConfig("graph.entity_extractor", fmt.Sprintf("unknown entity extractor %q", p.EntityExtractor))
	}
	if _, err := s.graphReg.ResolveRelationExtractor(p.RelationExtractor); err != nil {
		return nil, apperror.InvalidConfig("graph.relation_extractor", fmt.Sprintf("unknown relation extractor %q", p.RelationExtractor))
	}
	if _, err := s.graphReg.ResolveClusterer(p.Clustering); err != nil {
		return nil, apperror.InvalidConfig("graph.clustering", fmt.Sprintf("unknown clustering strategy %q", p.Clustering))
	}

	maxHops := p.MaxHops
	if maxHops == 0 {
		maxHops = defaultMaxHops
	}
	if maxHops < 1 || maxHops > maxMaxHops {
		return nil, apperror.InvalidConfig("graph.max_hops", fmt.Sprintf("must be between 1 and %d", maxMaxHops))
	}

	minCluster := p.MinClusterSize
	if minCluster == 0 {
		minCluster = defaultMinCluster
	}
	maxCluster := p.MaxClusterSize
	if maxCluster == 0 {
		maxCluster = defaultMaxCluster
	}
	if minCluster < 1 {
		return nil, apperror.InvalidConfig("graph.min_cluster_size", "must be at least 1")
	}
	if maxCluster < minCluster {
		return nil, apperror.InvalidConfig("graph.max_cluster_size", "must not be smaller than min_cluster_size")
	}

	return &entity.GraphParams{
		EntityExtractor:   p.EntityExtractor,
		RelationExtractor: p.RelationExtractor,
		Clustering:        p.Clustering,
		MaxHops:           maxHops,
		MinClusterSize:    minCluster,
		MaxClusterSize:    maxCluster,
	}, nil
}

func (s *ragConfigService) Get(ctx context.Context, workspaceId uuid.UUID) (*dto.RagConfigResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	config, err := uow.RagConfigRepository().FindOne(ctx, specification.ByWorkspaceID{WorkspaceID: workspaceId})
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, apperror.ErrNotFound
	}
	return toRagConfigResponse(config), nil
}

func (s *ragConfigService) Update(ctx context.Context, workspaceId uuid.UUID) error {
	return apperror.ErrConfigImmutable
}

func (s *ragConfigService) ListOptions(ctx context.Context) *dto.RagOptionsResponse {
	return &dto.RagOptionsResponse{
		Modes: []dto.RagOption{
			{Id: entity.RagModeVector, Description: "Embedding similarity retrieval over chunks"},
			{Id: entity.RagModeGraph, Description: "Entity graph traversal retrieval"},
		},
		Chunkers:           chunkerOptions(s.chunkers.Options()),
		Embedders:          embedderOptions(s.embedders.Options()),
		Rerankers:          rerankerOptions(s.rerankers.Options()),
		EntityExtractors:   graphOptions(s.graphReg.EntityExtractorOptions()),
		RelationExtractors: graphOptions(s.graphReg.RelationExtractorOptions()),
		Clusterers:         graphOptions(s.graphReg.ClustererOptions()),
		ContentTypes:       parserOptions(s.parsers.Options()),
	}
}

func chunkerOptions(opts []chunker.Option) []dto.RagOption {
	out := make([]dto.RagOption, len(opts))
	for i, o := range opts {
		out[i] = dto.RagOption{Id: o.Name, Description: o.Description}
	}
	return out
}

func embedderOptions(opts []embedding.Option) []dto.RagOption {
	out := make([]dto.RagOption, len(opts))
	for i, o := range opts {
		out[i] = dto.RagOption{Id: o.Name, Description: o.Description}
	}
	return out
}

func rerankerOptions(opts []rag.RerankerOption) []dto.RagOption {
	out := make([]dto.RagOption, len(opts))
	for i, o := range opts {
		out[i] = dto.RagOption{Id: o.Name, Description: o.Description}
	}
	return out
}

func graphOptions(opts []graph.Option) []dto.RagOption {
	out := make([]dto.RagOption, len(opts))
	for i, o := range opts {
		out[i] = dto.RagOption{Id: o.Name, Description: o.Description}
	}
	return out
}

func parserOptions(opts []parser.Option) []dto.RagOption {
	out := make([]dto.RagOption, len(opts))
	for i, o := range opts {
		out[i] = dto.RagOption{Id: o.Name, Description: o.Description}
	}
	return out
}

func toRagConfigResponse(config *entity.RagConfig) *dto.RagConfigResponse {
	resp := &dto.RagConfigResponse{
		Id:          config.Id,
		WorkspaceId: config.WorkspaceId,
		Mode:        config.Mode,
		CreatedAt:   config.CreatedAt,
	}
	switch config.Mode {
	case entity.RagModeVector:
		resp.Vector = &dto.VectorParamsPayload{
			Chunker:      config.Vector.Chunker,
			ChunkSize:    config.Vector.ChunkSize,
			ChunkOverlap: config.Vector.ChunkOverlap,
			Embedder:     config.Vector.Embedder,
			TopK:         config.Vector.TopK,
			Reranker:     config.Vector.Reranker,
		}
	case entity.RagModeGraph:
		resp.Graph = &dto.GraphParamsPayload{
			EntityExtractor:   config.Graph.EntityExtractor,
			RelationExtractor: config.Graph.RelationExtractor,
			Clustering:        config.Graph.Clustering,
			MaxHops:           config.Graph.MaxHops,
			MinClusterSize:    config.Graph.MinClusterSize,
			MaxClusterSize:    config.Graph.MaxClusterSize,
		}
	}
	return resp
}
