package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/rowstore"
)

func TestInviteConsumeMaxUses(t *testing.T) {
	ctx := context.Background()
	repo := NewInviteRepo(rowstore.NewMemoryStore())

	inv, err := repo.Create(ctx, "owner", 3, nil, "welcome")
	require.NoError(t, err)
	assert.Len(t, inv.Code, consts.InviteCodeLength)
	assert.Equal(t, 3, inv.UsesRemaining)
	assert.False(t, inv.Revoked)

	for i := 0; i < 3; i++ {
		res, err := repo.Consume(ctx, inv.Code)
		require.NoError(t, err)
		require.True(t, res.OK, "consume %d", i+1)
		assert.Equal(t, 2-i, res.Invite.UsesRemaining)
	}

	got, err := repo.Get(ctx, inv.Code)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsesRemaining)
	assert.True(t, got.Revoked)

	// 自动作废后 revoked 优先于 used_up
	res, err := repo.Consume(ctx, inv.Code)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, model.InviteRevoked, res.Reason)
}

func TestInviteConsumeUsedUpWhenNotRevoked(t *testing.T) {
	ctx := context.Background()
	store := rowstore.NewMemoryStore()
	repo := NewInviteRepo(store)
	inv, err := repo.Create(ctx, "owner", 1, nil, "")
	require.NoError(t, err)

	// 外部写入造成的不一致状态：次数为 0 但未作废
	require.NoError(t, store.Table(consts.TableInvites).Put(ctx, inviteKey(inv.Code), rowstore.Row{colUsesRemaining: 0}))
	res, err := repo.Consume(ctx, inv.Code)
	require.NoError(t, err)
	assert.Equal(t, model.InviteUsedUp, res.Reason)
	assert.False(t, res.Contended)
}

func TestInviteConsumePrecedence(t *testing.T) {
	ctx := context.Background()
	repo := NewInviteRepo(rowstore.NewMemoryStore())

	res, err := repo.Consume(ctx, "MISSING1")
	require.NoError(t, err)
	assert.Equal(t, model.InviteNotFound, res.Reason)

	past := time.Now().Add(-time.Hour)
	expired, err := repo.Create(ctx, "owner", 2, &past, "")
	require.NoError(t, err)
	res, err = repo.Consume(ctx, expired.Code)
	require.NoError(t, err)
	assert.Equal(t, model.InviteExpired, res.Reason)

	ok, err := repo.Revoke(ctx, expired.Code)
	require.NoError(t, err)
	assert.True(t, ok)
	res, err = repo.Consume(ctx, expired.Code)
	require.NoError(t, err)
	assert.Equal(t, model.InviteRevoked, res.Reason)

	ok, err = repo.Revoke(ctx, "MISSING1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInviteConcurrentSingleUse(t *testing.T) {
	ctx := context.Background()
	repo := NewInviteRepo(rowstore.NewMemoryStore())
	inv, err := repo.Create(ctx, "owner", 1, nil, "")
	require.NoError(t, err)

	results := make([]*model.ConsumeResult, 2)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := repo.Consume(ctx, inv.Code)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, r := range results {
		require.NotNil(t, r)
		if r.OK {
			successes++
			continue
		}
		assert.Contains(t, []string{model.InviteUsedUp, model.InviteRevoked}, r.Reason)
	}
	assert.Equal(t, 1, successes)
}

func TestInviteConsumeContended(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{Store: rowstore.NewMemoryStore(), table: consts.TableInvites}
	repo := NewInviteRepo(store)
	inv, err := repo.Create(ctx, "owner", 100, nil, "")
	require.NoError(t, err)

	// 每次条件写之前都有另一个消费者抢先扣减
	store.interfere = func(ctx context.Context, tb rowstore.Table, key rowstore.Key) {
		row, _ := tb.Get(ctx, key)
		_ = tb.Put(ctx, key, rowstore.Row{colUsesRemaining: row.Int(colUsesRemaining) - 1})
	}
	res, err := repo.Consume(ctx, inv.Code)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, model.InviteUsedUp, res.Reason)
	assert.True(t, res.Contended)
	assert.Equal(t, rowstore.MaxAttempts, store.conditions)
}

func TestInviteCreateCollisions(t *testing.T) {
	ctx := context.Background()
	repo := NewInviteRepo(rowstore.NewMemoryStore()).(*inviteRepoImpl)
	repo.newCode = func() (string, error) { return "SAMECODE", nil }

	_, err := repo.Create(ctx, "owner", 1, nil, "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "owner", 1, nil, "")
	assert.ErrorIs(t, err, ErrInviteCodeExhausted)

	_, err = repo.Create(ctx, "owner", 0, nil, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestInviteList(t *testing.T) {
	ctx := context.Background()
	repo := NewInviteRepo(rowstore.NewMemoryStore()).(*inviteRepoImpl)
	base := time.Now()
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		repo.now = func() time.Time { return at }
		_, err := repo.Create(ctx, "owner", 1, nil, "")
		require.NoError(t, err)
	}
	invites, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, invites, 3)
	assert.True(t, invites[0].CreatedAt.After(invites[1].CreatedAt))
	assert.True(t, invites[1].CreatedAt.After(invites[2].CreatedAt))
}
