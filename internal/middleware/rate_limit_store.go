package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// sweepThreshold is the number of tracked keys above which expired windows
// are dropped on the next hit.
const sweepThreshold = 1024

// MemoryRateLimitStore keeps windows in process. Counters are lost on restart
// and not shared between replicas.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	windows map[string]rateWindow
	now     func() time.Time
}

type rateWindow struct {
	count   int64
	resetAt time.Time
}

// NewMemoryRateLimitStore creates an empty store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		windows: make(map[string]rateWindow),
		now:     time.Now,
	}
}

// Hit implements RateLimitStore.
func (s *MemoryRateLimitStore) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.windows) >= sweepThreshold {
		for k, w := range s.windows {
			if !now.Before(w.resetAt) {
				delete(s.windows, k)
			}
		}
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = rateWindow{resetAt: now.Add(window)}
	}
	w.count++
	s.windows[key] = w

	return w.count, w.resetAt.Sub(now), nil
}

// DefaultRateLimitKeyPrefix namespaces counters when no prefix is given.
const DefaultRateLimitKeyPrefix = "collabfront:ratelimit:"

// hitScript increments the counter and starts the window on the first hit in
// one round trip.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RedisRateLimitStore shares windows between replicas.
type RedisRateLimitStore struct {
	client redis.Scripter
	prefix string
}

// NewRedisRateLimitStore creates a store that keeps its counters under prefix.
func NewRedisRateLimitStore(client redis.Scripter, prefix string) *RedisRateLimitStore {
	if prefix == "" {
		prefix = DefaultRateLimitKeyPrefix
	}
	return &RedisRateLimitStore{client: client, prefix: prefix}
}

// Hit implements RateLimitStore.
func (s *RedisRateLimitStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit hit %q: %w", key, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("rate limit hit %q: unexpected reply %v", key, res)
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}
