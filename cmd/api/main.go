package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/book-review-service/internal/api/http"
	"github.com/spec-kit/book-review-service/internal/api/http/handlers"
	"github.com/spec-kit/book-review-service/internal/auth"
	"github.com/spec-kit/book-review-service/internal/config"
	"github.com/spec-kit/book-review-service/internal/events"
	"github.com/spec-kit/book-review-service/internal/observability"
	"github.com/spec-kit/book-review-service/internal/persistence"
	"github.com/spec-kit/book-review-service/internal/repository"
	"github.com/spec-kit/book-review-service/internal/service"
	"github.com/spec-kit/book-review-service/internal/storage"
	"github.com/spec-kit/book-review-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var (
		userRepo repository.UserRepository
		bookRepo repository.BookRepository
	)
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		userRepo = repository.NewUserRepository(pg.PoolHandle())
		bookRepo = repository.NewBookRepository(pg.PoolHandle())
	} else {
		memory := repository.NewMemoryStore()
		userRepo = memory.Users()
		bookRepo = memory.Books()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	userRepo = repository.NewCachedUserRepository(userRepo, redis.Client, cfg.Cache.ProfileTTL(), logger)

	images, err := newImageStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init image storage", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartActivityWorker(dispatcher, service.NewActivityService(logger, metrics))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authService := service.NewAuthService(cfg.Auth, userRepo, tokens, dispatcher, logger)
	bookService := service.NewBookService(bookRepo, images, dispatcher, logger)

	app := httptransport.NewApp(cfg.App, logger, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:    handlers.NewAuthHandler(authService),
		Books:   handlers.NewBooksHandler(bookService),
		Gate:    auth.NewGate(tokens, userRepo, logger, metrics),
		Metrics: metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newImageStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.ImageStore, error) {
	if cfg.Bucket == "" {
		logger.Warn("STORAGE_S3_BUCKET not provided; using in-memory image store")
		return storage.NewMemoryImageStore(), nil
	}
	store, err := storage.NewS3ImageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("using s3 image store", zap.String("bucket", cfg.Bucket))
	return store, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
