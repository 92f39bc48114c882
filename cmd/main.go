package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RishiKendai/labscan/internal/api"
	"github.com/RishiKendai/labscan/internal/config"
	"github.com/RishiKendai/labscan/internal/configs/env"
	"github.com/RishiKendai/labscan/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/labscan/internal/infra/redis"
	"github.com/RishiKendai/labscan/internal/ingest"
	"github.com/RishiKendai/labscan/internal/logger"
	"github.com/RishiKendai/labscan/internal/metrics"
	"github.com/RishiKendai/labscan/internal/notify"
	"github.com/RishiKendai/labscan/internal/plagiarism"
	"github.com/RishiKendai/labscan/internal/reportstore"
	"github.com/RishiKendai/labscan/internal/repository"
	"github.com/RishiKendai/labscan/internal/stream"
	"github.com/RishiKendai/labscan/internal/submission"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel)
	log.Info().
		Str("reportStore", cfg.ReportStore).
		Str("submissionSource", cfg.SubmissionSource).
		Str("normalization", string(cfg.TokenNormalization)).
		Msg("Starting labscan server")

	// Initialize Prometheus metrics
	metrics.InitPrometheus()
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := api.StartServer("metrics", metricsMux, cfg.MetricsPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect MongoDB
	var mongoRepo *repository.MongoRepository
	if cfg.NeedsMongo() {
		mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create MongoDB client")
		}
		defer mongoClient.Close(context.Background())
		mongoRepo = repository.NewMongoRepository(mongoClient)
	}

	// Connect Redis
	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	store, err := newReportStore(ctx, cfg, mongoRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize report store")
	}

	source, err := newSubmissionSource(ctx, cfg, mongoRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize submission source")
	}

	engineOpts := []plagiarism.EngineOption{
		plagiarism.WithStatus(plagiarism.NewRedisStatus(redisClient.Client)),
	}
	if cfg.NatsURL != "" {
		nc, err := notify.Connect(cfg.NatsURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer nc.Drain()
		engineOpts = append(engineOpts, plagiarism.WithNotifier(notify.NewPublisher(nc)))
		log.Info().Str("subject", notify.RunCompletedSubject).Msg("Run completion events enabled")
	}

	// Initialize worker pool
	workerPool := plagiarism.NewSizedWorkerPool(ctx, cfg.MaxWorkers)
	defer workerPool.Close()
	log.Info().Int("workers", workerPool.Size()).Msg("Worker pool started")

	engine := plagiarism.NewEngine(source, store, workerPool, plagiarism.Options{
		Normalization: cfg.TokenNormalization,
		OmitZero:      cfg.OmitZeroSimilarity,
	}, engineOpts...)

	// Start Redis consumer in background
	consumerDone := make(chan struct{})
	if cfg.IngestEnabled {
		submissions := repository.NewSubmissionsRepository(mongoRepo)
		ingestSvc := ingest.NewService(submissions, cfg.MaxIngestFileSize)
		retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey)

		consumerName := newConsumerName()
		consumer := stream.NewConsumer(redisClient.Client, stream.ConsumerConfig{
			StreamKey:     cfg.RedisStreamKey,
			ConsumerGroup: cfg.RedisConsumerGroup,
			ConsumerName:  consumerName,
			Retention:     cfg.StreamRetentionDuration,
		}, ingestSvc, retryHandler)

		go func() {
			defer close(consumerDone)
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Redis consumer error")
			}
		}()
		log.Info().Str("consumer_name", consumerName).Str("stream", cfg.RedisStreamKey).Msg("Redis consumer started")
	} else {
		close(consumerDone)
	}

	router := api.SetupRoutes(cfg, engine)
	srv := api.StartServer("api", router, cfg.ServerPort)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	// Running duplicate checks finish before the pool and stores go away
	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down API server")
	}

	cancel()
	<-consumerDone

	if err := api.ShutdownServer(metricsServer, 5*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}

func newReportStore(ctx context.Context, cfg *config.Config, mongoRepo *repository.MongoRepository) (reportstore.Store, error) {
	var store reportstore.Store
	switch cfg.ReportStore {
	case config.StoreMongo:
		reports := repository.NewReportsRepository(mongoRepo)
		if err := reports.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		store = reports
	case config.StoreMinio:
		minioStore, err := reportstore.NewMinioStore(reportstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			Region:    cfg.MinioRegion,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		store = minioStore
	default:
		log.Warn().Msg("Using in-memory report store, runs are lost on restart")
		store = reportstore.NewMemoryStore()
	}

	if cfg.ReportCacheSize <= 0 {
		return store, nil
	}
	cached, err := reportstore.NewCachedStore(store, cfg.ReportCacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

func newSubmissionSource(ctx context.Context, cfg *config.Config, mongoRepo *repository.MongoRepository) (submission.Source, error) {
	if cfg.SubmissionSource == config.SourceFS {
		log.Info().Str("workspace", cfg.WorkspaceDir).Msg("Reading submissions from workspace directory")
		return submission.NewDirSource(cfg.WorkspaceDir), nil
	}

	submissions := repository.NewSubmissionsRepository(mongoRepo)
	if err := submissions.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return submissions, nil
}

func newConsumerName() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	return fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
}
