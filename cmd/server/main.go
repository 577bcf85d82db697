package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"litassist/internal/app"
	"litassist/internal/config"
	"litassist/internal/ratelimit"
	"litassist/internal/server"
	"litassist/internal/util"
	"litassist/pkg/ai"
	"litassist/pkg/auth"
	"litassist/pkg/extract"
	"litassist/pkg/prompt"
	"litassist/pkg/queue"
	"litassist/pkg/storage"
	"litassist/pkg/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	files, err := storage.NewFileStore(cfg.UploadDir, cfg.MaxUploadBytes, cfg.AllowedExtensions)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	prompts, err := prompt.NewLoader(cfg.PromptDir)
	if err != nil {
		return fmt.Errorf("init prompt loader: %w", err)
	}

	var archive storage.ArchiveStore
	if cfg.Minio.Endpoint != "" {
		minioArchive, err := storage.NewMinioArchive(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			return fmt.Errorf("init archive store: %w", err)
		}
		archive = minioArchive
		logger.Info("archive store enabled", "endpoint", cfg.Minio.Endpoint, "bucket", cfg.Minio.Bucket)
	}

	var publisher queue.Publisher
	if cfg.AMQP.URL != "" {
		exchange := cfg.AMQP.Exchange
		if exchange == "" {
			exchange = "litassist.events"
		}
		amqpPublisher, err := queue.NewAMQPPublisher(cfg.AMQP.URL, exchange)
		if err != nil {
			return fmt.Errorf("init event publisher: %w", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		logger.Info("event publisher enabled", "exchange", exchange)
	}

	var limiter *ratelimit.Limiter
	if cfg.Redis.Addr != "" && cfg.RateLimit.PerMinute > 0 {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		limiter = ratelimit.New(client, "litassist:generate", cfg.RateLimit.PerMinute, time.Minute)
		logger.Info("rate limiter enabled", "per_minute", cfg.RateLimit.PerMinute)
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.TokenTTL))
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}

	application, err := app.New(app.Config{
		Store:     db,
		Files:     files,
		Archive:   archive,
		Extractor: extract.Default(),
		Prompts:   prompts,
		Providers: ai.DefaultRegistry(),
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	srv, err := server.New(server.Config{
		App:     application,
		Tokens:  tokens,
		Limiter: limiter,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
