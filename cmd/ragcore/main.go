package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/ragcore/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/memory"
	"github.com/custodia-labs/ragcore/internal/adapters/driven/postgres"
	redisqueue "github.com/custodia-labs/ragcore/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/ragcore/internal/adapters/driven/redis"
	"github.com/custodia-labs/ragcore/internal/adapters/driving/http"
	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
	"github.com/custodia-labs/ragcore/internal/core/services"
	"github.com/custodia-labs/ragcore/internal/postprocessors"
	"github.com/custodia-labs/ragcore/internal/runtime"
	"github.com/custodia-labs/ragcore/internal/worker"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

// defaultEmbeddingDimensions is used when no embedding backend is
// configured at startup; the in-memory index needs a fixed size.
const defaultEmbeddingDimensions = 768

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	log.Printf("ragcore %s starting in %s mode", version, mode)

	// Configuration from environment
	port := getEnvInt("PORT", 8080)
	databaseURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Document store (PostgreSQL if configured, otherwise in-memory) =====
	var documentStore driven.DocumentStore
	var dbPinger http.Pinger
	if databaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		dbConfig := postgres.Config{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300)) * time.Second,
			ConnMaxIdleTime: time.Duration(getEnvInt("DB_CONN_MAX_IDLE_SEC", 60)) * time.Second,
		}
		db, err := postgres.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Initialize schema (idempotent)
		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("PostgreSQL connected and schema initialized")

		store := postgres.NewDocumentStore(db)
		documentStore = store
		dbPinger = store
	} else {
		documentStore = memory.NewDocumentStore()
		log.Println("Using in-memory document store")
	}

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if redisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== Task queue and document lock (Redis if available) =====
	var taskQueue driven.TaskQueue
	var documentLock driven.DistributedLock
	var redisPinger http.Pinger
	if redisClient != nil {
		var err error
		taskQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
		lock := redisadapter.NewLock(redisClient)
		documentLock = lock
		redisPinger = lock
		log.Println("Using Redis task queue and lock")
	} else {
		taskQueue = memory.NewTaskQueue()
		documentLock = memory.NewLock()
		log.Println("Using in-memory task queue and lock")
	}

	// ===== AI backends =====
	runtimeConfig := domain.NewRuntimeConfig()
	runtimeServices := runtime.NewServices(runtimeConfig)
	defer runtimeServices.Close()

	aiFactory := ai.NewFactory()

	embeddingSettings := &domain.EmbeddingSettings{
		Provider: domain.AIProvider(getEnv("EMBEDDING_PROVIDER", "")),
		Model:    getEnv("EMBEDDING_MODEL", ""),
		APIKey:   getEnv("EMBEDDING_API_KEY", ""),
		BaseURL:  getEnv("EMBEDDING_BASE_URL", ""),
	}
	embedder, err := aiFactory.CreateEmbeddingService(embeddingSettings)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	if embedder != nil {
		if err := runtimeServices.ValidateAndSetEmbedding(ctx, embedder); err != nil {
			log.Printf("Warning: embedding backend unreachable: %v (ingestion and retrieval will fail until it recovers)", err)
		}
	}

	generationSettings := &domain.GenerationSettings{
		Provider: domain.AIProvider(getEnv("GENERATION_PROVIDER", "")),
		Model:    getEnv("GENERATION_MODEL", ""),
		APIKey:   getEnv("GENERATION_API_KEY", ""),
		BaseURL:  getEnv("GENERATION_BASE_URL", ""),
	}
	generator, err := aiFactory.CreateGenerationService(generationSettings)
	if err != nil {
		log.Fatalf("Failed to create generation service: %v", err)
	}
	if generator != nil {
		if err := runtimeServices.ValidateAndSetGeneration(ctx, generator); err != nil {
			log.Printf("Warning: generation backend unreachable: %v (queries will fail until it recovers)", err)
		}
	}

	embedModel, genModel := runtimeConfig.Models()
	log.Printf("Runtime config: embedding=%t (%s), generation=%t (%s)",
		runtimeConfig.EmbeddingAvailable(), embedModel,
		runtimeConfig.GenerationAvailable(), genModel)

	// ===== Vector index =====
	dimensions := getEnvInt("INDEX_DIMENSIONS", defaultEmbeddingDimensions)
	if svc := runtimeServices.EmbeddingService(); svc != nil {
		dimensions = svc.Dimensions()
	}
	vectorIndex := memory.NewVectorIndex(dimensions)
	log.Printf("Vector index initialized (%d dimensions)", dimensions)

	// ===== Chunking pipeline =====
	chunkConfig := postprocessors.ChunkConfig{
		ChunkSize:          getEnvInt("CHUNK_SIZE", 1000),
		Overlap:            getEnvInt("CHUNK_OVERLAP", 200),
		PreserveSentences:  getEnvBool("CHUNK_PRESERVE_SENTENCES", true),
		PreserveParagraphs: getEnvBool("CHUNK_PRESERVE_PARAGRAPHS", true),
		MinChunkLength:     getEnvInt("MIN_CHUNK_LENGTH", 50),
	}
	pipeline, err := postprocessors.BuildPipeline(chunkConfig)
	if err != nil {
		log.Fatalf("Invalid chunking configuration: %v", err)
	}

	// ===== Services (core business logic) =====
	retriever := services.NewRetriever(vectorIndex, documentStore, runtimeServices)
	assembler := services.NewPromptAssembler(getEnvInt("MAX_CONTEXT_CHARS", services.DefaultMaxContextChars))

	documentService := services.NewDocumentService(documentStore, vectorIndex, slog.Default())
	queryService := services.NewQueryService(services.QueryServiceConfig{
		Retriever:       retriever,
		Assembler:       assembler,
		Services:        runtimeServices,
		Logger:          slog.Default(),
		AllowUngrounded: getEnvBool("ALLOW_UNGROUNDED", false),
		MinScore:        getEnvFloat("MIN_SCORE", 0),
	})
	ingestOrchestrator := services.NewIngestOrchestrator(services.IngestOrchestratorConfig{
		DocumentStore:    documentStore,
		Index:            vectorIndex,
		Pipeline:         pipeline,
		Lock:             documentLock,
		Queue:            taskQueue,
		Services:         runtimeServices,
		Logger:           slog.Default(),
		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 16),
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 4),
	})

	switch mode {
	case "api":
		// API-only mode: HTTP server, no worker
		runAPI(port, ingestOrchestrator, queryService, documentService, runtimeConfig, dbPinger, redisPinger)

	case "worker":
		// Worker-only mode: task processing, no HTTP server
		runWorkerMode(ctx, taskQueue, ingestOrchestrator)

	case "all":
		// Combined mode: run both API and worker
		go runWorkerMode(ctx, taskQueue, ingestOrchestrator)
		runAPI(port, ingestOrchestrator, queryService, documentService, runtimeConfig, dbPinger, redisPinger)

	default:
		log.Fatalf("Unknown mode: %s (use: api, worker, or all)", mode)
	}
}

func runAPI(
	port int,
	ingestService driving.IngestService,
	queryService driving.QueryService,
	documentService driving.DocumentService,
	runtimeConfig *domain.RuntimeConfig,
	dbPinger http.Pinger,
	redisPinger http.Pinger,
) {
	cfg := http.Config{
		Host:    "0.0.0.0",
		Port:    port,
		Version: version,
	}

	server := http.NewServer(
		cfg,
		ingestService,
		queryService,
		documentService,
		runtimeConfig,
		dbPinger,
		redisPinger,
	)

	log.Printf("API server starting on :%d", port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runWorkerMode starts the ingestion worker and blocks until ctx is
// cancelled.
func runWorkerMode(
	ctx context.Context,
	taskQueue driven.TaskQueue,
	orchestrator *services.IngestOrchestrator,
) {
	log.Println("Starting worker mode...")

	w := worker.New(worker.Config{
		TaskQueue:      taskQueue,
		Orchestrator:   orchestrator,
		Logger:         slog.Default(),
		Concurrency:    getEnvInt("WORKER_CONCURRENCY", 2),
		DequeueTimeout: getEnvInt("WORKER_DEQUEUE_TIMEOUT", 5),
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	log.Println("Worker started, processing ingest tasks...")

	// Wait for context cancellation
	<-ctx.Done()

	// Graceful shutdown
	log.Println("Stopping worker...")
	w.Stop()
	log.Println("Worker stopped")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
