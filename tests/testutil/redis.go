package testutil

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// redisImage needs EVAL for the rate limiter and PUBLISH for the bus.
	redisImage        = "redis:7-alpine"
	redisMemoryCap    = 64 << 20
	redisStartTimeout = 60 * time.Second
	redisOpTimeout    = 10 * time.Second
)

// sharedRedis is the one container all integration tests in a binary use.
// Tests are isolated by key prefix, not by database.
var sharedRedis struct {
	mu        sync.Mutex
	container testcontainers.Container
	addr      string
}

// redisAddr starts the shared container on first use, and again if it died
// since the previous test.
func redisAddr(ctx context.Context) (string, error) {
	sharedRedis.mu.Lock()
	defer sharedRedis.mu.Unlock()

	if c := sharedRedis.container; c != nil {
		if state, err := c.State(ctx); err == nil && state.Running {
			return sharedRedis.addr, nil
		}
		terminateRedis()
	}

	startCtx, cancel := context.WithTimeout(context.Background(), redisStartTimeout)
	defer cancel()

	c, err := testcontainers.GenericContainer(startCtx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			HostConfigModifier: func(hc *container.HostConfig) {
				hc.Memory = redisMemoryCap
				hc.MemorySwap = redisMemoryCap
			},
			WaitingFor: wait.ForListeningPort("6379/tcp").WithStartupTimeout(redisStartTimeout),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start redis container: %w", err)
	}

	host, err := c.Host(startCtx)
	if err != nil {
		_ = c.Terminate(context.Background())
		return "", fmt.Errorf("redis container host: %w", err)
	}
	port, err := c.MappedPort(startCtx, "6379/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		return "", fmt.Errorf("redis container port: %w", err)
	}

	sharedRedis.container = c
	sharedRedis.addr = net.JoinHostPort(host, port.Port())
	return sharedRedis.addr, nil
}

// terminateRedis must be called with sharedRedis.mu held.
func terminateRedis() {
	if sharedRedis.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	_ = sharedRedis.container.Terminate(ctx)
	sharedRedis.container = nil
	sharedRedis.addr = ""
}

// SetupTestRedisWithPrefix returns a client on the shared container and a key
// prefix owned by the test. The domain repository, the notification bus and
// the rate limiter all take a prefix, so tests never see each other's keys.
// Keys under the prefix are deleted when the test ends.
func SetupTestRedisWithPrefix(t *testing.T) (*redis.Client, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), redisStartTimeout)
	defer cancel()

	addr, err := redisAddr(ctx)
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 10})
	require.Eventually(t, func() bool {
		return client.Ping(ctx).Err() == nil
	}, redisOpTimeout, 250*time.Millisecond, "redis at %s did not answer", addr)

	prefix := "collabfront:test:" + strings.NewReplacer("/", ":", " ", "_").Replace(t.Name()) + ":"

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cleanupCancel()

		iter := client.Scan(cleanupCtx, 0, prefix+"*", 100).Iterator()
		for iter.Next(cleanupCtx) {
			client.Del(cleanupCtx, iter.Val())
		}
		_ = client.Close()
	})

	return client, prefix
}

// CleanupSharedRedisContainer stops the shared container. Call it from
// TestMain after m.Run.
func CleanupSharedRedisContainer() {
	sharedRedis.mu.Lock()
	defer sharedRedis.mu.Unlock()
	terminateRedis()
}
