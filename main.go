package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/emd5953/leaseIQ-sub000/internal/api"
	"github.com/emd5953/leaseIQ-sub000/internal/api/middleware"
	"github.com/emd5953/leaseIQ-sub000/internal/cache"
	"github.com/emd5953/leaseIQ-sub000/internal/config"
	"github.com/emd5953/leaseIQ-sub000/internal/db"
	"github.com/emd5953/leaseIQ-sub000/internal/logging"
	"github.com/emd5953/leaseIQ-sub000/internal/services"
	"github.com/emd5953/leaseIQ-sub000/internal/storage"
	"github.com/emd5953/leaseIQ-sub000/internal/store"
	"github.com/emd5953/leaseIQ-sub000/internal/tasks"
)

var runMode = flag.String("m", config.RunModeAll, "Run mode: 'api', 'worker' (ingest + alert tasks), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Options{
		Writer: os.Stderr,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Initialize Database
	mongoClient, mongoDb, err := db.ConnectDB(ctx, cfg.MongoURI, cfg.MongoDbName, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.DisconnectDB(mongoClient, logger)

	listingStore := store.NewMongoListingStore(mongoDb)
	searchStore := store.NewMongoSavedSearchStore(mongoDb)
	if err := listingStore.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := searchStore.EnsureIndexes(ctx); err != nil {
		return err
	}

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer cache.DisconnectRedis(redisClient, logger)

	archive, err := storage.NewS3Archive(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize raw archive: %w", err)
	}

	// Initialize Services needed by handlers and/or task processor
	ingestionService := services.NewIngestionService(
		listingStore,
		cache.NewRedisLocker(redisClient),
		archive,
		services.IngestionConfig{
			RadiusMeters: cfg.DedupRadiusMeters,
			MaxRetries:   cfg.MergeMaxRetries,
			LockTTL:      cfg.IngestLockTTL,
		},
		logger,
	)
	alertService := services.NewAlertService(listingStore, searchStore, cfg.AlertConcurrency, cfg.AlertOverlap, logger)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	taskProcessor := tasks.NewTaskProcessor(ingestionService, alertService, logger)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)
	fatalChan := make(chan error, 4)
	stopCleanup := make(chan struct{})

	// Start Service API (always runs)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(alertService, shutdownChan, logger),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("service API listening", "port", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatalChan <- fmt.Errorf("service API: %w", err)
		}
	}()

	// --- Mode-specific servers ---
	var mainApiSrv *http.Server
	var taskSrv *asynq.Server
	var scheduler *asynq.Scheduler

	logger.Info("starting application", "mode", cfg.RunMode)

	apiMode := func() {
		rateLimiter := middleware.NewRateLimiterMiddleware(cfg.RateLimitRefillRate, cfg.RateLimitBucketSize, logger)
		go rateLimiter.RunCleanup(stopCleanup)
		mainApiSrv = &http.Server{
			Addr: ":" + cfg.ApiPort,
			Handler: api.SetupRouter(api.Dependencies{
				Ingestion:  ingestionService,
				Locator:    services.NewDuplicateLocator(listingStore, cfg.DedupRadiusMeters),
				Search:     services.NewSearchService(listingStore),
				TaskClient: taskClient,
				RateLimit:  rateLimiter,
				Logger:     logger,
			}),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("main API listening", "port", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatalChan <- fmt.Errorf("main API: %w", err)
			}
		}()
	}

	workerMode := func() error {
		taskSrv = tasks.SetupServer(redisClient, cfg, logger)
		if err := taskSrv.Start(taskProcessor.Mux()); err != nil {
			return fmt.Errorf("failed to start task server: %w", err)
		}
		scheduler, err = tasks.NewScheduler(redisClient, cfg)
		if err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		logger.Info("task worker started", "concurrency", cfg.WorkerConcurrency, "alert_cron", cfg.AlertCron)
		return nil
	}

	switch cfg.RunMode {
	case config.RunModeAPI:
		apiMode()
	case config.RunModeWorker:
		err = workerMode()
	case config.RunModeAll:
		apiMode()
		err = workerMode()
	}

	// --- Graceful Shutdown ---
	if err == nil {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("received signal, shutting down", "signal", sig.String())
		case <-shutdownChan:
			logger.Info("shutdown requested via service API")
		case err = <-fatalChan:
		}
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	close(stopCleanup)
	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		logger.Warn("service API shutdown error", logging.Err(err))
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			logger.Warn("main API shutdown error", logging.Err(err))
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	logger.Info("server gracefully stopped")
	return err
}
