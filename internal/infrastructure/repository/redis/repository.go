// Package redis stores the domain collection as a Redis string value.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/lllypuk/collabfront/internal/infrastructure/repository"
)

// DefaultPrefix is prepended to the storage key.
const DefaultPrefix = "collabfront:"

// Repository implements domainstore.Repository on a single Redis key.
type Repository struct {
	client *redis.Client
	key    string
}

// NewRepository creates a repository storing the collection at prefix+key.
func NewRepository(client *redis.Client, prefix, key string) *Repository {
	if key == "" {
		key = repository.DefaultKey
	}
	return &Repository{
		client: client,
		key:    prefix + key,
	}
}

// Key returns the full Redis key.
func (r *Repository) Key() string {
	return r.key
}

// Load reads the collection. A missing key is not an error.
func (r *Repository) Load(ctx context.Context) ([]record.Domain, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.key, err)
	}
	return repository.Decode(data)
}

// Save overwrites the collection.
func (r *Repository) Save(ctx context.Context, domains []record.Domain) error {
	data, err := repository.Encode(domains)
	if err != nil {
		return err
	}
	if err = r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", r.key, err)
	}
	return nil
}
