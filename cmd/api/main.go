package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/internal/api/handlers"
	rediscache "github.com/knowledge-gate/backend/internal/cache/redis"
	"github.com/knowledge-gate/backend/internal/embedding"
	"github.com/knowledge-gate/backend/internal/events"
	"github.com/knowledge-gate/backend/internal/knowledge"
	"github.com/knowledge-gate/backend/internal/metrics"
	"github.com/knowledge-gate/backend/internal/middleware/ratelimit"
	"github.com/knowledge-gate/backend/internal/middleware/security"
	"github.com/knowledge-gate/backend/internal/middleware/validation"
	"github.com/knowledge-gate/backend/internal/pending"
	"github.com/knowledge-gate/backend/internal/pipeline"
	"github.com/knowledge-gate/backend/internal/storage/sqlite"
	"github.com/knowledge-gate/backend/internal/vector/milvus"
	"github.com/knowledge-gate/backend/pkg/config"
	appLogger "github.com/knowledge-gate/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Knowledge Gate API Server")

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	if err := milvusClient.EnsureCollection(context.Background()); err != nil {
		appLogger.Fatal("Failed to ensure collection", zap.Error(err))
	}

	var embeddingCache embedding.Cache
	if cfg.Redis.Enabled {
		redisClient, err := rediscache.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			embeddingCache = redisClient
		}
	}

	embedder := embedding.NewClient(
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		time.Duration(cfg.Embedding.TimeoutSec)*time.Second,
		embeddingCache,
		time.Duration(cfg.Redis.CacheTTL)*time.Second,
	)

	kb := knowledge.NewBase(milvusClient, embedder, cfg.Quality.DuplicateSimilarity)

	pendingStore := pending.NewStore(time.Duration(cfg.Pending.TTLMinutes) * time.Minute)
	sweeper := pending.NewSweeper(pendingStore, time.Duration(cfg.Pending.CleanupIntervalSeconds)*time.Second)
	sweeper.Start()

	bus := events.NewBus()
	pipe := pipeline.New(&cfg.Quality, kb, pendingStore, sqliteClient, bus)

	metrics.Register()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	rateLimiter := ratelimit.New(ratelimit.Config{
		Logger: appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()
	app.Use(rateLimiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxContentBytes: cfg.Server.BodyLimit,
		Logger:          appLogger.GetLogger(),
	}))

	submissionHandler := handlers.NewSubmissionHandler(pipe)
	searchHandler := handlers.NewSearchHandler(kb)
	decisionsHandler := handlers.NewDecisionsHandler(sqliteClient)
	eventsHandler := handlers.NewEventsHandler(bus)

	api := app.Group("/api/v1")

	api.Post("/submissions", submissionHandler.HandleSubmit)
	api.Get("/pending", submissionHandler.ListPending)
	api.Post("/pending/:id/confirm", submissionHandler.HandleConfirm)

	api.Post("/search", searchHandler.HandleSearch)
	api.Get("/entries/:id", searchHandler.GetEntry)
	api.Delete("/entries/:id", searchHandler.DeleteEntry)
	api.Get("/context", searchHandler.GetFileContext)

	api.Get("/decisions", decisionsHandler.ListDecisions)

	api.Get("/events", websocket.New(eventsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	sweeper.Stop()
	appLogger.Info("Server stopped")
}
