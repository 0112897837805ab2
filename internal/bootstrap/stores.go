package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arjenou/5000React/internal/blob"
	"github.com/arjenou/5000React/internal/cache"
	"github.com/arjenou/5000React/internal/config"
	"github.com/arjenou/5000React/internal/db"
	"github.com/arjenou/5000React/internal/projects"
	"github.com/arjenou/5000React/internal/users"
)

// Stores are the repositories selected by STORE_DRIVER.
type Stores struct {
	Users    users.Repository
	Projects projects.Repository
	close    func(context.Context) error
}

func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStores connects to the configured backend and prepares its schema.
func OpenStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, cols, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := db.EnsureIndexes(ctx, cols); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		log.Info("mongo connected", slog.String("db", cfg.MongoDB))
		return &Stores{
			Users:    users.NewMongoRepository(cols.AdminUsers),
			Projects: projects.NewMongoRepository(cols.Projects),
			close:    client.Disconnect,
		}, nil
	default:
		conn, dialect, err := db.OpenSQL(ctx, cfg.StoreDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("sql store ready", slog.String("dialect", dialect.String()))
		return &Stores{
			Users:    users.NewSQLRepository(conn, dialect),
			Projects: projects.NewSQLRepository(conn, dialect),
			close:    func(context.Context) error { return conn.Close() },
		}, nil
	}
}

// OpenCache returns the Redis response cache when one is configured and a
// no-op cache otherwise.
func OpenCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (cache.Cache, func() error, error) {
	if cfg.RedisURL == "" && cfg.RedisAddr == "" {
		log.Info("response cache disabled")
		return cache.NewNoop(), func() error { return nil }, nil
	}

	var (
		rc  *cache.RedisCache
		err error
	)
	if cfg.RedisURL != "" {
		rc, err = cache.NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis url: %w", err)
		}
	} else {
		rc = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("redis connected")
	return rc, rc.Close, nil
}

// OpenBlob returns the image store selected by BLOB_DRIVER.
func OpenBlob(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.BlobDriver == config.BlobS3 {
		store, err := blob.NewS3Store(ctx, blob.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.PublicAssetBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := blob.NewDiskStore(cfg.BlobDir, cfg.PublicAssetBaseURL)
	if err != nil {
		return nil, err
	}
	return store, nil
}
