package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-sync-service/awsutil"
	"catalog-sync-service/controllers"
	"catalog-sync-service/credentials"
	"catalog-sync-service/database"
	"catalog-sync-service/kafka"
	"catalog-sync-service/repository"
	"catalog-sync-service/routes"
	"catalog-sync-service/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	// --- 1. Infrastructure ---

	if err := database.ConnectWithConfig(cfg.MongoURL, cfg.MongoDB); err != nil {
		zap.L().Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := database.EnsureIndexes(bootstrapCtx, database.DB); err != nil {
		zap.L().Fatal("Failed to ensure indexes", zap.Error(err))
	}
	bootstrapCancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zap.L().Warn("Failed to parse REDIS_URL, falling back to default", zap.Error(err))
		redisOpts = &redis.Options{Addr: "redis:6379", DB: 0}
	}
	rdb := redis.NewClient(redisOpts)

	// --- 2. Dependency Injection (Wiring the layers together) ---

	runRepo := repository.NewRunRepository(database.DB)
	productRepo := repository.NewProductRepository(database.DB)
	linkRepo := repository.NewLinkRepository(database.DB)
	integrationRepo := repository.NewIntegrationRepository(database.DB)

	var resolver credentials.Resolver
	if cfg.UseAWSSecrets {
		awsCfg, err := awsutil.LoadAWSConfig(context.Background())
		if err != nil {
			zap.L().Fatal("Failed to load AWS config", zap.Error(err))
		}
		resolver = credentials.NewSecretsManagerResolver(awsutil.NewSecretsClient(awsCfg), cfg.StrictEnvironment)
	} else {
		resolver = credentials.NewEnvCipherResolver(cfg.CredentialsKey, cfg.StrictEnvironment)
	}

	var events services.EventPublisher
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		events = producer
	}

	queue := services.NewRedisQueue(rdb)
	syncService := services.NewSyncService(
		runRepo, integrationRepo, productRepo, linkRepo,
		resolver, queue, events, cfg.SyncBudget,
	)

	syncController := controllers.NewSyncController(syncService, controllers.NewRequestValidator())

	// --- 3. Background worker (the execution contexts) ---

	workerCtx, workerCancel := context.WithCancel(context.Background())
	services.StartSyncWorker(workerCtx, rdb, syncService)

	// --- 4. HTTP Server & Middleware ---

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	routes.RegisterRoutes(r, syncController, []byte(cfg.JWTSecret))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// --- 5. Graceful Shutdown ---

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zap.L().Info("Catalog Sync Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down Catalog Sync Service...")

	workerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Fatal("Server forced to shutdown", zap.Error(err))
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			zap.L().Error("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if err := rdb.Close(); err != nil {
		zap.L().Error("Failed to close Redis", zap.Error(err))
	}
	if err := database.Close(); err != nil {
		zap.L().Error("Failed to disconnect MongoDB", zap.Error(err))
	}

	zap.L().Info("Catalog Sync Service stopped gracefully")
}
