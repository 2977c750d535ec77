package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	adaptercache "dify-manga/internal/adapter/cache"
	"dify-manga/internal/adapter/dify"
	"dify-manga/internal/adapter/storage"
	"dify-manga/internal/cache"
	"dify-manga/internal/config"
	"dify-manga/internal/database"
	"dify-manga/internal/domain"
	"dify-manga/internal/logger"
	"dify-manga/internal/repository"
	"dify-manga/internal/service"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container holds the wired services shared by the server and the CLI.
type Container struct {
	DB    *sqlx.DB
	Cache domain.Cache

	Generation service.GenerationService
	Stream     service.StreamService
	Library    service.LibraryService
	Snapshots  service.SnapshotService
	Proxy      service.ImageProxy
	Strategy   service.GenerationStrategy

	redis *redis.Client
}

// newCache prefers Redis and falls back to the in-process LRU when Redis is
// not configured or unreachable.
func newCache(cfg *config.Config) (domain.Cache, *redis.Client) {
	log := logger.Get()
	if cfg.Redis.Address != "" {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err == nil {
			log.Info("Successfully connected to Redis", zap.String("address", cfg.Redis.Address))
			return adaptercache.NewRedisCache(client), client
		}
		log.Warn("Redis unavailable, using in-process cache", zap.Error(err))
	}
	return adaptercache.NewLRUCache(cfg.Cache.Size, 0), nil
}

func newImageStore(ctx context.Context, cfg *config.Config) (domain.ImageStore, error) {
	if !cfg.Storage.Enabled {
		logger.Get().Info("Object storage disabled, images keep their remote URLs")
		return storage.NoopImageStore{}, nil
	}
	client, err := storage.NewS3Client(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Get().Info("Object storage enabled",
		zap.String("bucket", cfg.Storage.Bucket),
		zap.String("endpoint", cfg.Storage.Endpoint))
	return storage.NewS3ImageStore(client, cfg.Storage), nil
}

// New connects to the database, applies migrations and wires every service.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db.DB, cfg.DB.Driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	c := &Container{DB: db}
	c.Cache, c.redis = newCache(cfg)

	store, err := newImageStore(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	var client domain.WorkflowClient
	if !cfg.Dify.Mocked() {
		client = dify.NewClient(cfg.Dify)
	} else {
		logger.Get().Warn("DIFY_API_KEY not set, generation runs in degraded mode")
	}

	libraryRepo := repository.NewLibraryRepository(db)
	runRepo := repository.NewWorkflowRunRepository(db)
	tm := repository.NewTransactionManagerAdapter(db)
	mirror := service.NewImageMirror(store, cfg.Storage.Prefix, cfg.Storage.Concurrency)

	c.Generation = service.NewGenerationService(client, libraryRepo, runRepo, tm, mirror,
		service.NewRunResultCache(c.Cache, cfg.Cache.ResultTTL), cfg)
	c.Stream = service.NewStreamService(client, libraryRepo, runRepo, tm, mirror, cfg)
	c.Library = service.NewLibraryService(libraryRepo, tm)
	c.Snapshots = service.NewSnapshotService(c.Cache, cfg.Snapshot.TTL)
	c.Proxy = service.NewImageProxy(&http.Client{}, cfg.Proxy.AllowedPrefix, cfg.Proxy.Timeout)
	c.Strategy = service.NewGenerationStrategy(cfg.Generation.Mode, c.Generation, c.Stream, cfg.Generation)

	logger.Get().Info("Services initialized", zap.String("generation_mode", c.Strategy.Name()))
	return c, nil
}

// Close releases the database and Redis connections.
func (c *Container) Close() {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			logger.Get().Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Get().Warn("Failed to close database", zap.Error(err))
		}
	}
}
