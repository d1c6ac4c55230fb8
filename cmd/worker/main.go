package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"

	"github.com/plateful/ladle/internal/config"
	"github.com/plateful/ladle/internal/db"
	"github.com/plateful/ladle/internal/extract"
	"github.com/plateful/ladle/internal/logger"
	"github.com/plateful/ladle/internal/materialize"
	"github.com/plateful/ladle/internal/metadata"
	"github.com/plateful/ladle/internal/metrics"
	"github.com/plateful/ladle/internal/sentry"
	"github.com/plateful/ladle/internal/store"
	"github.com/plateful/ladle/internal/telemetry"
	"github.com/plateful/ladle/internal/transcript"
	"github.com/plateful/ladle/internal/worker"
	"github.com/redis/go-redis/v9"
)

func main() {
	defer sentry.Recover()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName+"-worker", cfg.ServiceVersion, cfg.Env, cfg.OtelExporterOTLPEndpoint, nil)
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName+"-worker", cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	} else if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize business metrics
	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	// Initialize logger with OTel support
	slog.SetDefault(logger.New(cfg.Env))

	// Database connection
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	st := store.New(pool)

	// Redis client for the metadata cache
	var redisClient *redis.Client
	if redisOpt, err := redis.ParseURL(cfg.RedisURL); err != nil {
		slog.Warn("Failed to parse Redis URL for cache, caching disabled", "error", err)
	} else {
		redisClient = redis.NewClient(redisOpt)
		defer redisClient.Close()
	}

	// Content fetchers
	youtubeFetcher, err := metadata.NewYouTubeFetcher(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		log.Fatalf("Failed to create YouTube client: %v", err)
	}
	instagramFetcher := metadata.NewInstagramFetcher(cfg.InstagramAccessToken, metadata.NewCache(redisClient))
	tiktokFetcher := metadata.NewTikTokFetcher()
	webFetcher := metadata.NewWebFetcher()
	captionFetcher := transcript.NewCaptionFetcher()
	linkScraper := transcript.NewLinkedPageScraper(cfg.Pipeline.LinkTextBudget)

	// Extraction
	geminiClient, err := extract.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Pipeline.Model)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer geminiClient.Close()
	extractor := extract.NewExtractor(geminiClient, cfg.Pipeline)

	materializer := materialize.New(st)

	processor := worker.NewImportProcessor(worker.ImportProcessorDeps{
		Store:        st,
		Materializer: materializer,
		Extractor:    extractor,
		YouTube:      youtubeFetcher,
		Instagram:    instagramFetcher,
		TikTok:       tiktokFetcher,
		Web:          webFetcher,
		Captions:     captionFetcher,
		Links:        linkScraper,
	}, cfg.Pipeline)

	workerMetrics, err := worker.NewWorkerMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}

	// Asynq server
	srv := worker.NewServer(cfg.RedisURL)

	mux := asynq.NewServeMux()
	mux.Use(worker.OTelMiddleware)
	mux.Use(worker.SentryMiddleware)
	mux.Use(worker.MetricsMiddleware(workerMetrics))
	mux.HandleFunc(worker.TypeProcessImport, processor.HandleProcessImport)
	mux.HandleFunc(worker.TypeSweepStaleJobs, processor.HandleSweepStaleJobs)

	// Periodic sweep for jobs stuck in processing
	scheduler := worker.NewScheduler(cfg.RedisURL)
	if _, err := scheduler.Register("@every 5m", worker.NewSweepStaleJobsTask()); err != nil {
		slog.Warn("Failed to register stale job sweep", "error", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			slog.Error("Scheduler failed", "error", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
	}()

	slog.Info("Starting worker", "concurrency", 10)

	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
