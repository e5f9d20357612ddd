//go:build integration

package redis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/lllypuk/collabfront/internal/infrastructure/repository"
	redisrepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/redis"
	"github.com/lllypuk/collabfront/tests/testutil"
)

func TestRepository_SaveLoad(t *testing.T) {
	client, prefix := testutil.SetupTestRedisWithPrefix(t)
	ctx := testutil.NewTestContext(t)
	repo := redisrepo.NewRepository(client, prefix, "domains")

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	in := []record.Domain{
		testutil.BuildDomain("alpha", testutil.WithField("meta", map[string]any{"seen": true})),
		testutil.BuildDomain("beta", testutil.WithHost(""), testutil.WithAccessKey("")),
	}

	require.NoError(t, repo.Save(ctx, in))

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	testutil.AssertDomainNames(t, got, "alpha", "beta")
	testutil.AssertSameJSON(t, in, got)

	raw, err := client.Get(ctx, prefix+"domains").Result()
	require.NoError(t, err)
	assert.Contains(t, raw, `"alpha"`)
	assert.NotContains(t, raw, "beta.collab.test", "cleared host is not written")
}

func TestRepository_LoadCorrupt(t *testing.T) {
	client, prefix := testutil.SetupTestRedisWithPrefix(t)
	ctx := testutil.NewTestContext(t)
	repo := redisrepo.NewRepository(client, prefix, "")

	require.NoError(t, client.Set(ctx, repo.Key(), "garbage", 0).Err())

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, repository.ErrCorrupt)
}
