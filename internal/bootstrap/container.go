package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gorm.io/gorm"

	"rag-workspace-be/internal/cache"
	"rag-workspace-be/internal/config"
	"rag-workspace-be/internal/controller"
	"rag-workspace-be/internal/pkg/logger"
	"rag-workspace-be/internal/repository/contract"
	"rag-workspace-be/internal/repository/implementation"
	"rag-workspace-be/internal/repository/memory"
	"rag-workspace-be/internal/repository/unitofwork"
	"rag-workspace-be/internal/service"
	"rag-workspace-be/pkg/chunker"
	"rag-workspace-be/pkg/database"
	"rag-workspace-be/pkg/embedding"
	"rag-workspace-be/pkg/graph"
	"rag-workspace-be/pkg/graphstore"
	"rag-workspace-be/pkg/ingest"
	"rag-workspace-be/pkg/llm"
	llmollama "rag-workspace-be/pkg/llm/ollama"
	llmopenai "rag-workspace-be/pkg/llm/openai"
	pkgNats "rag-workspace-be/pkg/nats"
	"rag-workspace-be/pkg/parser"
	"rag-workspace-be/pkg/rag"
	pkgRedis "rag-workspace-be/pkg/redis"
	"rag-workspace-be/pkg/vectorstore"
)

// Container wires every dependency once at startup.
type Container struct {
	Cfg    *config.Config
	DB     *gorm.DB
	Logger logger.ILogger

	IngestWorker service.IIngestWorkerService

	HealthController    controller.IHealthController
	WorkspaceController controller.IWorkspaceController
	RagConfigController controller.IRagConfigController
	DocumentController  controller.IDocumentController
	ChatController      controller.IChatController

	natsPublisher *pkgNats.Publisher
}

func NewContainer(cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	db, err := database.NewGormDB(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)

	// NATS is the event sink; the app runs without it, just silently.
	var eventPublisher pkgNats.EventPublisher = pkgNats.NopPublisher{}
	var natsPublisher *pkgNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPublisher, err = pkgNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS: %v", err)
		} else {
			eventPublisher = natsPublisher
		}
	}

	var historyCache *cache.HistoryCache
	redisCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := pkgRedis.New(redisCtx, cfg.App.RedisAddr, cfg.App.RedisPassword, cfg.App.RedisDB)
	cancel()
	if err != nil {
		log.Printf("[WARN] Failed to connect to Redis, chat history cache disabled: %v", err)
	} else {
		historyCache = cache.NewHistoryCache(rdb, time.Duration(cfg.Retrieval.HistoryTTLSec)*time.Second)
	}

	llmProvider := buildLLMProvider(cfg)
	embedders := buildEmbedderRegistry(cfg)
	parsers := parser.NewRegistry()
	chunkers := chunker.NewRegistry()

	graphReg := graph.NewRegistry()
	graphReg.RegisterEntityExtractor(graph.NewPatternEntityExtractor())
	graphReg.RegisterEntityExtractor(graph.NewLlmEntityExtractor(llmProvider))
	graphReg.RegisterRelationExtractor(graph.NewCooccurrenceRelationExtractor())
	graphReg.RegisterRelationExtractor(graph.NewLlmRelationExtractor(llmProvider))
	graphReg.RegisterClusterer(graph.NewConnectedComponentsClusterer())
	graphReg.RegisterClusterer(graph.NewLabelPropagationClusterer())

	rerankers := rag.NewRerankerRegistry()
	rerankers.Register(rag.NewBm25Reranker())
	rerankers.Register(rag.NewRrfReranker())
	rerankers.Register(rag.NewCrossReranker(llmProvider))

	chunkRepo := implementation.NewChunkRepository(db)
	vectors := buildVectorStore(cfg, chunkRepo)

	graphs := graphstore.NewStore(
		implementation.NewGraphNodeRepository(db),
		implementation.NewGraphEdgeRepository(db),
	)

	pipeline := ingest.NewPipeline(parsers, chunkers, embedders, graphReg, vectors, graphs)
	engine := rag.NewEngine(
		embedders,
		rerankers,
		vectors,
		graphs,
		cfg.Retrieval.MaxContextChars,
		cfg.Retrieval.MinRelevance,
		cfg.Retrieval.GraphNodeBound,
	)

	liveState := memory.NewLiveStateRepository()

	publisherService := service.NewPublisherService(cfg.Queue.IngestTopic, pubSub)
	ragConfigService := service.NewRagConfigService(uowFactory, parsers, chunkers, embedders, rerankers, graphReg, cfg.Ai.EmbeddingProvider)
	workspaceService := service.NewWorkspaceService(uowFactory, ragConfigService, vectors, graphs, eventPublisher)
	documentService := service.NewDocumentService(uowFactory, publisherService, eventPublisher, vectors, graphs, sysLogger)
	ingestWorker := service.NewIngestWorkerService(pubSub, cfg.Queue.IngestTopic, uowFactory, pipeline, liveState, eventPublisher, sysLogger)
	chatService := service.NewChatService(uowFactory, engine, llmProvider, liveState, historyCache, eventPublisher, sysLogger)

	return &Container{
		Cfg:    cfg,
		DB:     db,
		Logger: sysLogger,

		IngestWorker: ingestWorker,

		HealthController:    controller.NewHealthController(),
		WorkspaceController: controller.NewWorkspaceController(workspaceService),
		RagConfigController: controller.NewRagConfigController(ragConfigService),
		DocumentController:  controller.NewDocumentController(documentService),
		ChatController:      controller.NewChatController(chatService),

		natsPublisher: natsPublisher,
	}
}

func buildLLMProvider(cfg *config.Config) llm.Provider {
	switch cfg.Ai.LLMProvider {
	case "openai":
		return llmopenai.NewOpenAiProvider(cfg.Ai.OpenAIAPIKey, cfg.Ai.OpenAIBaseURL, cfg.Ai.LLMModel)
	default:
		return llmollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel)
	}
}

// buildEmbedderRegistry registers every reachable embedding backend; a config
// names the one its workspace ingests and queries with.
func buildEmbedderRegistry(cfg *config.Config) *embedding.Registry {
	registry := embedding.NewRegistry()
	registry.Register(embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaEmbedModel, cfg.Ai.OllamaEmbedDims))
	if cfg.Ai.OpenAIAPIKey != "" {
		registry.Register(embedding.NewOpenAiProvider(cfg.Ai.OpenAIAPIKey, cfg.Ai.OpenAIBaseURL, cfg.Ai.OpenAIEmbedModel, 1536))
	}
	return registry
}

// buildVectorStore picks the index backend. Qdrant falls back to pgvector
// when its gRPC endpoint cannot be dialed.
func buildVectorStore(cfg *config.Config, chunks contract.ChunkRepository) vectorstore.Store {
	if cfg.Retrieval.VectorStore == "qdrant" {
		conn, err := grpc.NewClient(cfg.Retrieval.QdrantAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Printf("[WARN] Failed to dial qdrant at %s, falling back to pgvector: %v", cfg.Retrieval.QdrantAddr, err)
		} else {
			return vectorstore.NewQdrantStore(conn)
		}
	}
	return vectorstore.NewPgVectorStore(chunks)
}

func (c *Container) Shutdown() {
	if c.natsPublisher != nil {
		c.natsPublisher.Close()
	}
}
