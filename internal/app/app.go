// Package app wires the course service from configuration. The API server
// and the janitor worker build the same backend.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"homework/internal/cache"
	"homework/internal/cloudinary"
	"homework/internal/config"
	"homework/internal/course"
	"homework/internal/filestore"
	"homework/internal/store"
)

// Backend is a wired service plus the resources it holds.
type Backend struct {
	Service *course.Service
	Checks  map[string]func(ctx context.Context) bool

	db    *store.DB
	redis *store.Redis
}

// Build opens the configured repository, file store and cache.
func Build(ctx context.Context, cfg config.App, log *zap.Logger) (*Backend, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", cfg.TimeZone, err)
	}

	b := &Backend{Checks: map[string]func(ctx context.Context) bool{}}

	var repo course.Repository
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		repo = store.NewMemory()
	case "postgres":
		b.db, err = store.NewDB(ctx, store.Postgres, cfg.DatabaseURL)
	case "sqlite":
		b.db, err = store.NewDB(ctx, store.SQLite, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, err
	}
	if b.db != nil {
		repo = store.NewSQLRepository(b.db)
		b.Checks["db"] = b.db.Healthy
	}

	files, err := openFiles(ctx, cfg)
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	var c cache.Cache
	if b.redis = store.NewRedis(cfg.RedisAddr); b.redis != nil {
		c = cache.NewRedisCache(b.redis.Client)
		b.Checks["redis"] = b.redis.Healthy
		log.Info("redis cache configured", zap.String("addr", cfg.RedisAddr))
	}

	var images course.ImageStore
	cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if cdn.Configured() {
		images = cdn
		log.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		log.Info("cloudinary not configured, leave images go to the file store")
	}

	b.Service = course.NewService(repo, files, course.Options{
		Images:     images,
		Cache:      c,
		CacheTTL:   cfg.CacheTTL,
		NoticeFile: cfg.NoticeFile,
		Location:   loc,
		Logger:     log,
	})
	return b, nil
}

func openFiles(ctx context.Context, cfg config.App) (filestore.Store, error) {
	switch cfg.FileBackend {
	case "local":
		dir, err := filepath.Abs(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return filestore.NewLocal(dir)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("S3_BUCKET is required for the s3 file backend")
		}
		client, err := filestore.NewS3Client(ctx, filestore.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return filestore.NewS3(ctx, client, cfg.S3Bucket)
	}
	return nil, fmt.Errorf("unknown file backend %q", cfg.FileBackend)
}

// Close releases the database and redis connections.
func (b *Backend) Close() error {
	return errors.Join(b.db.Close(), b.redis.Close())
}
