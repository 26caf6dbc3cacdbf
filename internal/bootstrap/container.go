package bootstrap

import (
	"context"
	"log"
	"os"

	"doc-qa-be/internal/config"
	"doc-qa-be/internal/controller"
	"doc-qa-be/internal/pkg/logger"
	"doc-qa-be/internal/repository/implementation"
	"doc-qa-be/internal/repository/memory"
	"doc-qa-be/internal/service"
	"doc-qa-be/pkg/embedding"
	"doc-qa-be/pkg/events"
	"doc-qa-be/pkg/extractor"
	"doc-qa-be/pkg/llm/factory"
	"doc-qa-be/pkg/rag/ingest"
	"doc-qa-be/pkg/rag/prompt"
	"doc-qa-be/pkg/rag/query"

	pktNats "doc-qa-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	RagController controller.IRagController

	// Background Services (Exposed for main.go to run)
	WorkerService service.IWorkerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	workerLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaEmbedModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbedModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiApiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	}
	if natsSub != nil {
		// Terminal failures land in the ops log even when nobody polls the job
		err := natsSub.Subscribe("events.JOB_FAILED", "docqa-job-failures", func(ctx context.Context, event events.Event) error {
			sysLogger.Warn("job_events", "job failed", event.Payload())
			return nil
		})
		if err != nil {
			log.Printf("[WARN] Failed to subscribe to job failure events: %v", err)
		}
	}

	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	if err := os.MkdirAll(cfg.App.UploadDir, 0o755); err != nil {
		log.Printf("[WARN] Failed to create upload dir %s: %v", cfg.App.UploadDir, err)
	}

	// 5. Repositories
	vectorStore := implementation.NewPgVectorStore(db)
	jobRepository := implementation.NewJobRepository(db)
	resultCache := memory.NewResultCache(rdb)

	// 6. Pipelines
	chunkExtractor := extractor.NewChunkExtractor(cfg.Rag.ChunkSize, cfg.Rag.ChunkOverlap)
	batchEmbedder := embedding.NewBatchEmbedder(
		embeddingProvider,
		cfg.Ai.EmbeddingDim,
		cfg.Jobs.EmbedMaxInFlight,
		cfg.Jobs.StepMaxRetries,
		cfg.Ai.EmbedTimeout,
	)

	ingestPipeline := ingest.NewPipeline(
		chunkExtractor,
		batchEmbedder,
		vectorStore,
		cfg.Rag.CollectionName,
		cfg.Rag.DistanceMetric,
	)

	contextBuilder := prompt.NewContextBuilder(cfg.Rag.MaxContextChars)
	queryPipeline := query.NewPipeline(
		batchEmbedder,
		vectorStore,
		llmProvider,
		contextBuilder,
		cfg.Rag.CollectionName,
		cfg.Rag.DefaultTopK,
		cfg.Rag.ScoreFloor,
		cfg.Rag.Temperature,
		cfg.Rag.MaxAnswerTokens,
		cfg.Ai.GenerateTimeout,
	)

	// 7. Services
	publisherService := service.NewPublisherService(pubSub)
	jobService := service.NewJobService(
		jobRepository,
		publisherService,
		resultCache,
		sysLogger,
		cfg.Jobs.IngestTopic,
		cfg.Jobs.QueryTopic,
	)
	workerService := service.NewWorkerService(
		pubSub,
		jobRepository,
		ingestPipeline,
		queryPipeline,
		resultCache,
		publisherService,
		natsPub,
		workerLogger,
		cfg.Jobs.IngestTopic,
		cfg.Jobs.QueryTopic,
		cfg.Jobs.StepMaxRetries,
	)

	// 8. Controllers
	return &Container{
		RagController: controller.NewRagController(jobService, cfg.App.UploadDir),
		WorkerService: workerService,
	}
}
