package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/pkg/chunker"
	"rag-workspace-be/pkg/embedding"
	"rag-workspace-be/pkg/graph"
	"rag-workspace-be/pkg/graphstore"
	"rag-workspace-be/pkg/parser"
	"rag-workspace-be/pkg/vectorstore"
)

var (
	errNoText     = errors.New("no extractable text")
	errZeroChunks = errors.New("chunker produced no chunks for non-empty text")
)

// Job is one document run through the pipeline.
type Job struct {
	DocumentId  uuid.UUID
	WorkspaceId uuid.UUID
	ContentType string
	Raw         []byte
}

// Hooks let the caller persist and broadcast per-stage progress. OnStatus is
// called before each stage starts; OnChunks persists chunk rows after the
// chunking stage.
type Hooks struct {
	OnStatus func(ctx context.Context, status string) error
	OnChunks func(ctx context.Context, chunks []*entity.Chunk) error
	OnError  func(chunkIndex int, err error)
}

// RunResult reports what a completed run produced.
type RunResult struct {
	ChunkCount int
	NodeCount  int
	EdgeCount  int
}

// Pipeline executes the ingestion stages for one document. Stages for a
// single document run strictly sequentially; the caller enforces one active
// run per document id.
type Pipeline struct {
	parsers       *parser.Registry
	chunkers      *chunker.Registry
	embedders     *embedding.Registry
	graphRegistry *graph.Registry
	vectors       vectorstore.Store
	graphs        *graphstore.Store

	embedRetries int
	retryBackoff time.Duration
	embedBatch   int
}

func NewPipeline(parsers *parser.Registry, chunkers *chunker.Registry, embedders *embedding.Registry, graphRegistry *graph.Registry, vectors vectorstore.Store, graphs *graphstore.Store) *Pipeline {
	return &Pipeline{
		parsers:       parsers,
		chunkers:      chunkers,
		embedders:     embedders,
		graphRegistry: graphRegistry,
		vectors:       vectors,
		graphs:        graphs,
		embedRetries:  3,
		retryBackoff:  2 * time.Second,
		embedBatch:    16,
	}
}

func (p *Pipeline) Run(ctx context.Context, job Job, config *entity.RagConfig, hooks Hooks) (*RunResult, error) {
	text, err := p.parse(ctx, job, hooks)
	if err != nil {
		return nil, err
	}

	chunks, err := p.chunk(ctx, job, config, text, hooks)
	if err != nil {
		return nil, err
	}

	result := &RunResult{ChunkCount: len(chunks)}

	if config.Mode == entity.RagModeGraph {
		if err := p.buildGraph(ctx, job, config, chunks, hooks, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := p.embed(ctx, job, config, chunks, hooks); err != nil {
		return nil, err
	}
	if err := p.index(ctx, job, chunks, hooks); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) parse(ctx context.Context, job Job, hooks Hooks) (string, error) {
	if err := hooks.OnStatus(ctx, entity.DocumentStatusParsing); err != nil {
		return "", err
	}

	docParser, err := p.parsers.Resolve(job.ContentType)
	if err != nil {
		return "", apperror.ParseError(err)
	}
	text, err := docParser.Parse(job.Raw)
	if err != nil {
		return "", apperror.ParseError(err)
	}
	if text == "" {
		return "", apperror.ParseError(errNoText)
	}
	return text, nil
}

func (p *Pipeline) chunk(ctx context.Context, job Job, config *entity.RagConfig, text string, hooks Hooks) ([]*entity.Chunk, error) {
	if err := hooks.OnStatus(ctx, entity.DocumentStatusChunking); err != nil {
		return nil, err
	}

	strategy, opts := p.chunkingFor(config)
	ch, err := p.chunkers.Resolve(strategy)
	if err != nil {
		return nil, apperror.ChunkError(err)
	}
	pieces, err := ch.Split(text, opts)
	if err != nil {
		return nil, apperror.ChunkError(err)
	}
	if len(pieces) == 0 {
		// Non-empty text must produce at least one chunk.
		return nil, apperror.ChunkError(errZeroChunks)
	}

	chunks := make([]*entity.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &entity.Chunk{
			Id:         uuid.New(),
			DocumentId: job.DocumentId,
			Ordinal:    i,
			Text:       piece.Text,
			Metadata: entity.ChunkMetadata{
				TokenCount:  piece.TokenCount,
				StartOffset: piece.StartOffset,
				EndOffset:   piece.EndOffset,
			},
		}
	}

	if hooks.OnChunks != nil {
		if err := hooks.OnChunks(ctx, chunks); err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

// chunkingFor picks the strategy and knobs. Graph mode has no chunker
// parameters of its own, so it splits on sentences at default window and
// overlap; the extractors work sentence by sentence.
func (p *Pipeline) chunkingFor(config *entity.RagConfig) (string, chunker.Options) {
	if config.Mode == entity.RagModeVector {
		return config.Vector.Chunker, chunker.Options{
			ChunkSize:    config.Vector.ChunkSize,
			ChunkOverlap: config.Vector.ChunkOverlap,
		}
	}
	return "sentence", chunker.Options{}
}

func (p *Pipeline) embed(ctx context.Context, job Job, config *entity.RagConfig, chunks []*entity.Chunk, hooks Hooks) error {
	if err := hooks.OnStatus(ctx, entity.DocumentStatusEmbedding); err != nil {
		return err
	}

	embedder, err := p.embedders.Resolve(config.Vector.Embedder)
	if err != nil {
		return apperror.EmbedError(err)
	}

	for start := 0; start < len(chunks); start += p.embedBatch {
		end := start + p.embedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := p.embedWithRetry(ctx, embedder, texts)
		if err != nil {
			return apperror.EmbedError(err)
		}
		for i, vec := range vectors {
			batch[i].Embedding = vec
		}
	}
	return nil
}

// embedWithRetry retries transient provider failures with linear backoff.
// Context cancellation is never retried.
func (p *Pipeline) embedWithRetry(ctx context.Context, embedder embedding.Provider, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < p.embedRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * p.retryBackoff):
			}
		}
		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, lastErr
}

func (p *Pipeline) index(ctx context.Context, job Job, chunks []*entity.Chunk, hooks Hooks) error {
	if err := hooks.OnStatus(ctx, entity.DocumentStatusIndexing); err != nil {
		return err
	}

	dims := 0
	if len(chunks) > 0 {
		dims = len(chunks[0].Embedding)
	}
	if err := p.vectors.EnsureWorkspace(ctx, job.WorkspaceId, dims); err != nil {
		return apperror.IndexError(err)
	}
	if err := p.vectors.Upsert(ctx, job.WorkspaceId, chunks); err != nil {
		return apperror.IndexError(err)
	}
	return nil
}

func (p *Pipeline) buildGraph(ctx context.Context, job Job, config *entity.RagConfig, chunks []*entity.Chunk, hooks Hooks, result *RunResult) error {
	if err := hooks.OnStatus(ctx, entity.DocumentStatusIndexing); err != nil {
		return err
	}

	entityExtractor, err := p.graphRegistry.ResolveEntityExtractor(config.Graph.EntityExtractor)
	if err != nil {
		return apperror.GraphError(err)
	}
	relationExtractor, err := p.graphRegistry.ResolveRelationExtractor(config.Graph.RelationExtractor)
	if err != nil {
		return apperror.GraphError(err)
	}
	clusterer, err := p.graphRegistry.ResolveClusterer(config.Graph.Clustering)
	if err != nil {
		return apperror.GraphError(err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	collector := graph.NewCollector(entityExtractor, relationExtractor, hooks.OnError)
	extraction, err := collector.Collect(ctx, texts)
	if err != nil {
		return apperror.GraphError(err)
	}

	// Persist nodes first so edges can reference their ids.
	nodeIds := make(map[string]uuid.UUID, len(extraction.Nodes))
	for _, candidate := range extraction.Nodes {
		node := &entity.GraphNode{
			Id:             uuid.New(),
			WorkspaceId:    job.WorkspaceId,
			CanonicalLabel: candidate.CanonicalLabel,
			Label:          candidate.Label,
			Type:           candidate.Type,
			DocumentIds:    []uuid.UUID{job.DocumentId},
		}
		if err := p.graphs.UpsertNode(ctx, node); err != nil {
			return apperror.GraphError(err)
		}
		nodeIds[candidate.CanonicalLabel] = node.Id
	}

	for _, candidate := range extraction.Edges {
		sourceId, okS := nodeIds[candidate.SubjectCanonical]
		targetId, okT := nodeIds[candidate.ObjectCanonical]
		if !okS || !okT {
			continue
		}
		edge := &entity.GraphEdge{
			Id:           uuid.New(),
			WorkspaceId:  job.WorkspaceId,
			SourceNodeId: sourceId,
			TargetNodeId: targetId,
			Relation:     candidate.Relation,
			Weight:       candidate.Weight,
			DocumentIds:  []uuid.UUID{job.DocumentId},
		}
		if err := p.graphs.UpsertEdge(ctx, edge); err != nil {
			return apperror.GraphError(err)
		}
	}

	result.NodeCount = len(extraction.Nodes)
	result.EdgeCount = len(extraction.Edges)

	// Recluster over the whole workspace graph; new nodes shift communities.
	nodes, edges, err := p.graphs.WorkspaceGraph(ctx, job.WorkspaceId)
	if err != nil {
		return apperror.GraphError(err)
	}
	allIds := make([]uuid.UUID, len(nodes))
	for i, n := range nodes {
		allIds[i] = n.Id
	}
	clusterEdges := make([]graph.ClusterEdge, len(edges))
	for i, e := range edges {
		clusterEdges[i] = graph.ClusterEdge{Source: e.SourceNodeId, Target: e.TargetNodeId, Weight: e.Weight}
	}
	assignment := clusterer.Cluster(allIds, clusterEdges, config.Graph.MinClusterSize, config.Graph.MaxClusterSize)
	if err := p.graphs.TagClusters(ctx, assignment); err != nil {
		return apperror.GraphError(err)
	}
	return nil
}
