package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Rag      RAGConfig
	Jobs     JobConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	UploadDir          string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "gemini"
	EmbeddingDim      int
	OllamaBaseURL     string
	OllamaEmbedModel  string
	GeminiApiKey      string
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string
	EmbedTimeout      time.Duration
	GenerateTimeout   time.Duration
}

type RAGConfig struct {
	CollectionName  string
	DistanceMetric  string // "cosine", "dot" or "euclidean"
	ChunkSize       int
	ChunkOverlap    int
	DefaultTopK     int
	MaxContextChars int
	MaxAnswerTokens int
	Temperature     float64
	ScoreFloor      float64 // 0 disables the usability floor
}

type JobConfig struct {
	IngestTopic      string
	QueryTopic       string
	StepMaxRetries   int
	EmbedMaxInFlight int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingDim:      getEnvAsInt("EMBEDDING_DIM", 768),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbedModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiApiKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			EmbedTimeout:      getEnvAsDuration("EMBED_TIMEOUT", 30*time.Second),
			GenerateTimeout:   getEnvAsDuration("GENERATE_TIMEOUT", 120*time.Second),
		},
		Rag: RAGConfig{
			CollectionName:  getEnv("RAG_COLLECTION", "docs"),
			DistanceMetric:  getEnv("RAG_DISTANCE_METRIC", "cosine"),
			ChunkSize:       getEnvAsInt("RAG_CHUNK_SIZE", 1000),
			ChunkOverlap:    getEnvAsInt("RAG_CHUNK_OVERLAP", 200),
			DefaultTopK:     getEnvAsInt("RAG_TOP_K", 5),
			MaxContextChars: getEnvAsInt("RAG_MAX_CONTEXT_CHARS", 8000),
			MaxAnswerTokens: getEnvAsInt("RAG_MAX_ANSWER_TOKENS", 1024),
			Temperature:     getEnvAsFloat("RAG_TEMPERATURE", 0.2),
			ScoreFloor:      getEnvAsFloat("RAG_SCORE_FLOOR", 0),
		},
		Jobs: JobConfig{
			IngestTopic:      getEnv("INGEST_TOPIC_NAME", "RAG_INGEST_DOCUMENT"),
			QueryTopic:       getEnv("QUERY_TOPIC_NAME", "RAG_ANSWER_QUESTION"),
			StepMaxRetries:   getEnvAsInt("JOB_STEP_MAX_RETRIES", 3),
			EmbedMaxInFlight: getEnvAsInt("EMBED_MAX_IN_FLIGHT", 4),
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
