package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lllypuk/collabfront/internal/application/domainstore"
	"github.com/lllypuk/collabfront/internal/config"
	"github.com/lllypuk/collabfront/internal/domain/record"
	filerepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/file"
	memoryrepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/memory"
	mongorepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/mongodb"
	redisrepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/redis"
	sqliterepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/sqlite"
)

// domainStore is the part of domainstore.Store the domains commands use.
type domainStore interface {
	Domains() []record.Domain
	GetDomain(index int) (record.Domain, bool)
	GetDomainIndex(d record.Domain) int
	AppendDomain(ctx context.Context, d record.Domain) (int, error)
	RemoveDomain(ctx context.Context, index int) error
}

// storeOpener opens the configured domain store. The returned func releases it.
type storeOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domainStore, func() error, error)

var errMockStorage = errors.New("mock mode keeps domains in memory only; nothing to manage offline")

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domainStore, func() error, error) {
	if cfg.App.IsMockMode() {
		return nil, nil, errMockStorage
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("storage %s: %w", cfg.Storage.Driver, err)
	}

	return domainstore.New(ctx, repo, domainstore.WithLogger(logger)), closeRepo, nil
}

func nopClose() error { return nil }

// openRepository opens the medium selected by storage.driver.
func openRepository(ctx context.Context, cfg *config.Config) (domainstore.Repository, func() error, error) {
	key := cfg.Storage.Key

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return memoryrepo.NewRepository(), nopClose, nil

	case config.StorageFile:
		if err := os.MkdirAll(cfg.Storage.Dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create storage dir: %w", err)
		}
		return filerepo.NewRepository(cfg.Storage.Dir, key), nopClose, nil

	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create sqlite dir: %w", err)
		}
		db, err := sqliterepo.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqliterepo.NewRepository(db, key), db.Close, nil

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return redisrepo.NewRepository(client, cfg.Redis.KeyPrefix, key), client.Close, nil

	case config.StorageMongoDB:
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoDB.URI))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoDB.Timeout)
		defer cancel()
		if err = client.Ping(pingCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
		}
		coll := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		disconnect := func() error { return client.Disconnect(context.Background()) }
		return mongorepo.NewMongoDomainRepository(coll, key), disconnect, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidStorageDriver, cfg.Storage.Driver)
	}
}
