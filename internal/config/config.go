package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Queue     QueueConfig
	Retrieval RetrievalConfig
	Ai        AIConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
}

type DatabaseConfig struct {
	Connection string
}

type QueueConfig struct {
	IngestTopic string
}

type RetrievalConfig struct {
	// VectorStore selects the index backend: "pgvector" or "qdrant".
	VectorStore     string
	QdrantAddr      string
	MinRelevance    float64
	MaxContextChars int
	GraphNodeBound  int
	HistoryTTLSec   int
}

type AIConfig struct {
	// LLMProvider and EmbeddingProvider select backends: "ollama" or "openai".
	LLMProvider       string
	LLMModel          string
	EmbeddingProvider string
	OllamaBaseURL     string
	OllamaEmbedModel  string
	OllamaEmbedDims   int
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIEmbedModel  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:      getEnv("REDIS_PASSWORD", ""),
			RedisDB:            getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Queue: QueueConfig{
			IngestTopic: getEnv("INGEST_DOCUMENT_TOPIC_NAME", "INGEST_DOCUMENT"),
		},
		Retrieval: RetrievalConfig{
			VectorStore:     getEnv("VECTOR_STORE", "pgvector"),
			QdrantAddr:      getEnv("QDRANT_ADDR", "localhost:6334"),
			MinRelevance:    getEnvAsFloat("RAG_MIN_RELEVANCE", 0.35),
			MaxContextChars: getEnvAsInt("RAG_MAX_CONTEXT_CHARS", 8000),
			GraphNodeBound:  getEnvAsInt("RAG_GRAPH_NODE_BOUND", 200),
			HistoryTTLSec:   getEnvAsInt("CHAT_HISTORY_TTL_SECONDS", 300),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbedModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaEmbedDims:   getEnvAsInt("OLLAMA_EMBEDDING_DIMENSIONS", 768),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			OpenAIEmbedModel:  getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
