package app

import (
	"context"
	"time"

	"imageAttach/internal/config"
	"imageAttach/internal/database"
	"imageAttach/internal/idempotency"
	"imageAttach/internal/logger"
	"imageAttach/internal/queue"
	"imageAttach/internal/repository"
	"imageAttach/internal/service"
	"imageAttach/internal/storage"
	"imageAttach/internal/target"
	"imageAttach/internal/variants"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const urlCacheTTL = 5 * time.Minute

// App holds the process-wide dependencies shared by the API and the CLI.
type App struct {
	DB          *database.DB
	Repo        *repository.Repository
	Storage     *storage.MinIOClient
	Redis       redis.UniversalClient
	Idempotency idempotency.Store
	Services    *service.Service
}

func New(cfg *config.Config) *App {
	// connection DB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}

	// connection MinIO
	minioClient, err := storage.NewMinIOClient(cfg)
	if err != nil {
		logger.Log.Fatal("failed to initialize MinIO", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := minioClient.EnsureBucket(ctx, cfg.MinIO.Region); err != nil {
		logger.Log.Fatal("failed to prepare bucket", zap.Error(err))
	}

	a := &App{DB: db, Storage: minioClient}

	var jobs service.JobQueue
	if cfg.Redis.Enabled() {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			logger.Log.Fatal("failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		a.Idempotency = idempotency.NewRedisStore(a.Redis)
		jobs = queue.NewProducer(a.Redis, cfg.Variants.Stream, cfg.Variants.MaxLen)
	} else {
		logger.Log.Info("REDIS_ADDR not set, using in-process idempotency store and inline variant jobs")
		a.Idempotency = idempotency.NewMemoryStore(10 * time.Minute)
	}

	// enabling dependencies
	a.Repo = repository.NewRepository(db.DB)

	targets := target.NewDefaultRegistry(db.DB)
	logger.Log.Info("attachment targets registered", zap.Strings("tags", targets.Tags()))

	a.Services = service.NewService(service.Deps{
		Repo:    a.Repo,
		Tx:      a.Repo,
		Targets: targets,
		Storage: minioClient,
		URLs:    storage.NewURLResolver(minioClient, variants.Names(), urlCacheTTL),
		Jobs:    jobs,
	}, cfg)

	return a
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Warn("failed to close Redis", zap.Error(err))
		}
	}
	if err := a.DB.CloseDB(); err != nil {
		logger.Log.Warn("failed to close database", zap.Error(err))
	}
}
