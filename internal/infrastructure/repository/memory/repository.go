// Package memory is an in-process domain collection repository for tests and mock mode.
package memory

import (
	"context"
	"sync"

	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/lllypuk/collabfront/internal/infrastructure/repository"
)

// Repository keeps the serialized collection in memory, so loads see exactly what a durable medium would.
type Repository struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{}
}

// NewRepositoryWithData creates a repository pre-filled with raw persisted bytes.
func NewRepositoryWithData(data []byte) *Repository {
	return &Repository{data: append([]byte(nil), data...)}
}

// Load decodes the stored bytes. Nothing stored yields (nil, nil).
func (r *Repository) Load(_ context.Context) ([]record.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data == nil {
		return nil, nil
	}
	return repository.Decode(r.data)
}

// Save replaces the stored bytes.
func (r *Repository) Save(_ context.Context, domains []record.Domain) error {
	data, err := repository.Encode(domains)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = data
	r.saves++
	return nil
}

// Raw returns a copy of the stored bytes.
func (r *Repository) Raw() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.data...)
}

// Saves returns how many times Save was called.
func (r *Repository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
