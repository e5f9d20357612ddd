// Package domainstore keeps the ordered list of tracked collab domains and
// mirrors it to durable storage after every mutation.
package domainstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lllypuk/collabfront/internal/domain/errs"
	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/lllypuk/collabfront/internal/infrastructure/metrics"
)

// StorageKey is the fixed key the serialized collection lives under.
const StorageKey = "domains"

// NotFound is returned by GetDomainIndex when no record matches.
const NotFound = -1

// ErrIndexOutOfRange is returned by RemoveDomain for a position outside the collection.
var ErrIndexOutOfRange = fmt.Errorf("%w: domain index out of range", errs.ErrNotFound)

// ErrPersist wraps repository failures. The in-memory mutation has already happened.
var ErrPersist = errors.New("domain collection not persisted")

// Repository is the durable mirror of the collection.
// Declared on the consumer side; implementations live in infrastructure/repository.
type Repository interface {
	// Load returns the persisted collection. Absent data is (nil, nil).
	Load(ctx context.Context) ([]record.Domain, error)

	// Save overwrites the persisted collection.
	Save(ctx context.Context, domains []record.Domain) error
}

// Store is the in-memory domain collection.
type Store struct {
	repo    Repository
	logger  *slog.Logger
	metrics *metrics.StoreMetrics

	mu      sync.RWMutex
	domains []record.Domain
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a store hydrated from repo. Unreadable or absent data yields an
// empty collection; the failure is logged, never returned.
func New(ctx context.Context, repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.domains = s.hydrate(ctx)
	s.observeSize()

	return s
}

func (s *Store) hydrate(ctx context.Context) []record.Domain {
	domains, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "domain storage unreadable, starting with an empty collection",
			slog.String("key", StorageKey),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.LoadFailures.Inc()
		}
		return make([]record.Domain, 0)
	}

	if domains == nil {
		return make([]record.Domain, 0)
	}

	s.logger.DebugContext(ctx, "domain collection hydrated", slog.Int("count", len(domains)))
	return domains
}

// AddDomain appends d and persists the full collection.
// The append stands even if persisting fails; the persistence error is returned.
func (s *Store) AddDomain(ctx context.Context, d record.Domain) error {
	_, err := s.AppendDomain(ctx, d)
	return err
}

// AppendDomain is AddDomain that also returns the position d was stored at.
// The index is valid even when the persistence error is non-nil.
func (s *Store) AppendDomain(ctx context.Context, d record.Domain) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.domains = append(s.domains, d.Clone())
	index := len(s.domains) - 1

	return index, s.persist(ctx, metrics.OpAdd)
}

// GetDomain returns the record at index, or false when index is outside [0, len).
func (s *Store) GetDomain(index int) (record.Domain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.domains) {
		return record.Domain{}, false
	}

	return s.domains[index].Clone(), true
}

// RemoveDomain removes the record at index, shifting later records left, and
// persists the full collection. An out-of-range index changes nothing and
// returns ErrIndexOutOfRange.
func (s *Store) RemoveDomain(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.domains) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(s.domains))
	}

	s.domains = append(s.domains[:index], s.domains[index+1:]...)

	return s.persist(ctx, metrics.OpRemove)
}

// GetDomainIndex returns the position of the first record named like d, or NotFound.
func (s *Store) GetDomainIndex(d record.Domain) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, existing := range s.domains {
		if existing.SameName(d) {
			return i
		}
	}

	return NotFound
}

// Domains returns a copy of the collection in order.
func (s *Store) Domains() []record.Domain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]record.Domain, len(s.domains))
	for i, d := range s.domains {
		out[i] = d.Clone()
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.domains)
}

// persist writes the whole collection. Caller holds the write lock.
func (s *Store) persist(ctx context.Context, op string) error {
	start := time.Now()
	err := s.repo.Save(ctx, s.domains)

	if s.metrics != nil {
		s.metrics.PersistDuration.Observe(time.Since(start).Seconds())
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusFailed
		}
		s.metrics.Mutations.WithLabelValues(op, status).Inc()
		s.metrics.Size.Set(float64(len(s.domains)))
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist domain collection",
			slog.String("op", op),
			slog.Int("count", len(s.domains)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	return nil
}

func (s *Store) observeSize() {
	if s.metrics != nil {
		s.metrics.Size.Set(float64(len(s.domains)))
	}
}

// IsOutOfRange reports whether err came from an out-of-range removal.
func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrIndexOutOfRange)
}
