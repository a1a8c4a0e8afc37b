package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"careerVault/internal/api"
	"careerVault/internal/auth"
	"careerVault/internal/config"
	"careerVault/internal/database"
	"careerVault/internal/extract"
	"careerVault/internal/llm"
	"careerVault/internal/metrics"
	"careerVault/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	log.Printf("storage ready, driver=%s bucket=%s", cfg.Storage.Driver, cfg.Storage.Bucket)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, parse rate limit and purge queue degrade", slog.Any("error", err))
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	verifier, err := auth.NewGoogleVerifier(ctx, cfg.Auth.GoogleClientID)
	if err != nil {
		log.Fatalf("init google verifier: %v", err)
	}

	var sessions *auth.SessionManager
	if cfg.Auth.SessionSecret != "" {
		sessions, err = auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
		if err != nil {
			log.Fatalf("init session manager: %v", err)
		}
	} else {
		logger.Warn("AUTH_SESSION_SECRET not set, protected routes trust the X-User-Email header alone")
	}

	fetcher, closeFetcher := buildFetcher(cfg.Extractor, logger)
	defer closeFetcher()

	strategy, err := buildStrategy(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("init extractor strategy: %v", err)
	}
	extractor := extract.NewExtractor(fetcher, strategy, logger)

	deps := api.Deps{
		DB:             db,
		Storage:        store,
		Verifier:       verifier,
		Sessions:       sessions,
		Extractor:      extractor,
		StrategyName:   strategy.Name(),
		RateLimiter:    redisClient,
		ParseLimit:     cfg.API.ParseRateLimit,
		Queue:          asynqClient,
		MaxResumeBytes: cfg.Resume.MaxBytes,
	}
	if cfg.Clamd.Addr != "" {
		deps.Scanner = api.NewClamdScanner(cfg.Clamd.Addr)
	}

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, deps)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
		}
	}()

	logger.Info("api listening", slog.String("addr", server.Addr), slog.String("strategy", strategy.Name()))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to start api server: %v", err)
	}
	logger.Info("api stopped")
}

func buildFetcher(cfg config.ExtractorConfig, logger *slog.Logger) (extract.Fetcher, func()) {
	if cfg.FetcherMode == "browser" {
		browser := extract.NewBrowserFetcher(cfg.FetchTimeout, cfg.AllowPrivateHosts, logger)
		return browser, func() {
			if err := browser.Close(); err != nil {
				logger.Error("close browser failed", slog.Any("error", err))
			}
		}
	}
	return extract.NewHTTPFetcher(cfg.FetchTimeout, cfg.AllowPrivateHosts), func() {}
}

func buildStrategy(ctx context.Context, cfg *config.Config, logger *slog.Logger) (extract.Strategy, error) {
	if cfg.Extractor.Strategy == "summarize" {
		return extract.NewSummarizeStrategy(cfg.Summarizer.URL, cfg.Summarizer.Token, cfg.Summarizer.Timeout, logger), nil
	}

	model, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	return extract.NewGenerativeStrategy(metrics.InstrumentGenerator(model), cfg.LLM.Timeout, logger), nil
}
