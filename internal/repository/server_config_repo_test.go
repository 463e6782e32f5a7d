package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/rowstore"
)

func newConfigRepo(t *testing.T, store rowstore.Store) ServerConfigRepo {
	t.Helper()
	repo := NewServerConfigRepo(store)
	_, err := repo.CreateIfAbsent(context.Background(), &model.ServerConfig{Name: "test", MaxUploadBytes: 1024})
	require.NoError(t, err)
	return repo
}

func TestServerConfigCreateIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewServerConfigRepo(rowstore.NewMemoryStore())

	cfg, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	first, err := repo.CreateIfAbsent(ctx, &model.ServerConfig{Name: "first"})
	require.NoError(t, err)
	second, err := repo.CreateIfAbsent(ctx, &model.ServerConfig{Name: "second"})
	require.NoError(t, err)
	assert.Equal(t, "first", first.Name)
	assert.Equal(t, "first", second.Name)
	assert.Nil(t, second.OwnerID)
}

func TestClaimOwner(t *testing.T) {
	ctx := context.Background()
	repo := newConfigRepo(t, rowstore.NewMemoryStore())

	res, err := repo.ClaimOwner(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, res.Claimed)

	res, err = repo.ClaimOwner(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, res.Claimed)
	assert.Equal(t, "alice", res.OwnerID)

	cfg, err := repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg.OwnerID)
	assert.Equal(t, "alice", *cfg.OwnerID)

	require.NoError(t, repo.ClearOwner(ctx))
	res, err = repo.ClaimOwner(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, res.Claimed)

	require.NoError(t, repo.SetOwner(ctx, "carol"))
	cfg, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "carol", *cfg.OwnerID)
}

func TestClaimOwnerConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newConfigRepo(t, rowstore.NewMemoryStore())

	const claimants = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := repo.ClaimOwner(ctx, string(rune('a'+i)))
			if err == nil && res.Claimed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestIncrementTokenVersion(t *testing.T) {
	ctx := context.Background()
	repo := newConfigRepo(t, rowstore.NewMemoryStore())

	var last int64
	for i := 0; i < 7; i++ {
		v, err := repo.IncrementTokenVersion(ctx)
		require.NoError(t, err)
		assert.Greater(t, v, last)
		last = v
	}
	assert.Equal(t, int64(7), last)
}

func TestIncrementTokenVersionExhausted(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{Store: rowstore.NewMemoryStore(), table: consts.TableServerConfig}
	repo := newConfigRepo(t, store)

	store.interfere = func(ctx context.Context, tb rowstore.Table, key rowstore.Key) {
		row, _ := tb.Get(ctx, key)
		_ = tb.Put(ctx, key, rowstore.Row{colTokenVersion: row.Int(colTokenVersion) + 1})
	}
	v, err := repo.IncrementTokenVersion(ctx)
	require.NoError(t, err)
	// 最后一次读到的版本为 4，之后的递增全部输给了并发写入者
	assert.Equal(t, int64(rowstore.MaxAttempts-1), v)
}
