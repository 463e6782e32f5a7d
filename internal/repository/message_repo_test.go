package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/rowstore"
)

func insertMessage(t *testing.T, repo MessageRepo, conv, sender, text string, at time.Time) *model.Message {
	t.Helper()
	m, err := repo.Insert(context.Background(), &model.Message{
		ConversationID: conv,
		SenderID:       sender,
		Text:           text,
		CreatedAt:      at,
	})
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func TestMessageInsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepo(rowstore.NewMemoryStore())

	m := insertMessage(t, repo, "c1", "u1", "hello", time.Time{})
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())
	assert.Nil(t, m.Reactions)

	got, err := repo.GetByID(ctx, "c1", m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Text)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))

	// 会话不匹配视为不存在
	got, err = repo.GetByID(ctx, "c2", m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.Insert(ctx, &model.Message{ConversationID: "c1", SenderID: "u1", ID: m.ID, CreatedAt: m.CreatedAt})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestMessageInsertValidation(t *testing.T) {
	repo := NewMessageRepo(rowstore.NewMemoryStore())
	_, err := repo.Insert(context.Background(), &model.Message{SenderID: "u1"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = repo.GetByID(context.Background(), "c1", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMessageListPage(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepo(rowstore.NewMemoryStore())
	base := time.UnixMilli(1_700_000_000_000).UTC()
	for i := 0; i < 5; i++ {
		insertMessage(t, repo, "c1", "u1", fmt.Sprint(i), base.Add(time.Duration(i)*time.Second))
	}
	insertMessage(t, repo, "c2", "u1", "other", base)

	page, err := repo.ListPage(ctx, "c1", nil, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, []string{"2", "3", "4"}, []string{page[0].Text, page[1].Text, page[2].Text})

	before := page[0].CreatedAt
	page, err = repo.ListPage(ctx, "c1", &before, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "0", page[0].Text)
	assert.Equal(t, "1", page[1].Text)
}

func TestMessageUpdateText(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepo(rowstore.NewMemoryStore())
	m := insertMessage(t, repo, "c1", "u1", "v1", time.Time{})

	updated, err := repo.UpdateText(ctx, "c1", m.ID, "v2")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "v2", updated.Text)
	assert.NotNil(t, updated.EditedAt)

	missing, err := repo.UpdateText(ctx, "c1", "nope", "v3")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMessageDeleteRemovesLookup(t *testing.T) {
	ctx := context.Background()
	store := rowstore.NewMemoryStore()
	repo := NewMessageRepo(store)
	m := insertMessage(t, repo, "c1", "u1", "bye", time.Time{})

	ok, err := repo.Delete(ctx, "c1", m.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, "c1", m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = store.Table(consts.TableMessageLookup).Get(ctx, lookupKey("c1", m.ID))
	assert.ErrorIs(t, err, rowstore.ErrNotFound)

	ok, err = repo.Delete(ctx, "c1", m.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessageMissingLookupIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := rowstore.NewMemoryStore()
	repo := NewMessageRepo(store)
	m := insertMessage(t, repo, "c1", "u1", "orphan", time.Time{})

	// 主表行仍在，索引丢失
	require.NoError(t, store.Table(consts.TableMessageLookup).Delete(ctx, lookupKey("c1", m.ID)))

	got, err := repo.GetByID(ctx, "c1", m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	toggled, err := repo.ToggleReaction(ctx, "c1", m.ID, "+1", "u2")
	require.NoError(t, err)
	assert.Nil(t, toggled)

	page, err := repo.ListPage(ctx, "c1", nil, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestToggleReactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := rowstore.NewMemoryStore()
	repo := NewMessageRepo(store)
	m := insertMessage(t, repo, "c1", "u1", "hi", time.Time{})
	key := messageKey("c1", m.CreatedAt, m.ID)

	before, err := store.Table(consts.TableMessages).Get(ctx, key)
	require.NoError(t, err)

	once, err := repo.ToggleReaction(ctx, "c1", m.ID, "+1", "u2")
	require.NoError(t, err)
	require.NotNil(t, once)
	require.Len(t, once.Reactions, 1)
	assert.Equal(t, model.Reaction{Src: "+1", Count: 1, Users: []string{"u2"}}, once.Reactions[0])

	twice, err := repo.ToggleReaction(ctx, "c1", m.ID, "+1", "u2")
	require.NoError(t, err)
	require.NotNil(t, twice)
	assert.Empty(t, twice.Reactions)

	after, err := store.Table(consts.TableMessages).Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, before[colReactions], after[colReactions])
	assert.Nil(t, after[colReactions])
}

func TestRemoveReactionFailsFast(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{Store: rowstore.NewMemoryStore(), table: consts.TableMessages}
	repo := NewMessageRepo(store)
	m := insertMessage(t, repo, "c1", "u1", "hi", time.Time{})

	got, err := repo.RemoveReaction(ctx, "c1", m.ID, "+1", "u2")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, store.conditions)

	_, err = repo.ToggleReaction(ctx, "c1", m.ID, "+1", "u2")
	require.NoError(t, err)
	got, err = repo.RemoveReaction(ctx, "c1", m.ID, "+1", "u2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Reactions)
}

func TestToggleReactionExhaustedIsSoftFailure(t *testing.T) {
	ctx := context.Background()
	n := 0
	store := &racingStore{
		Store: rowstore.NewMemoryStore(),
		table: consts.TableMessages,
		interfere: func(ctx context.Context, tb rowstore.Table, key rowstore.Key) {
			n++
			encoded, _ := model.EncodeReactions([]model.Reaction{{Src: "x", Count: 1, Users: []string{fmt.Sprint("rival", n)}}})
			_ = tb.Put(ctx, key, rowstore.Row{colReactions: encoded})
		},
	}
	repo := NewMessageRepo(store)
	m := insertMessage(t, repo, "c1", "u1", "hi", time.Time{})

	got, err := repo.ToggleReaction(ctx, "c1", m.ID, "+1", "u2")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, rowstore.MaxAttempts, store.conditions)
}

func TestConcurrentTogglesByDistinctUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepo(rowstore.NewMemoryStore())
	m := insertMessage(t, repo, "c1", "u1", "hi", time.Time{})

	const users = 4
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = repo.ToggleReaction(ctx, "c1", m.ID, "+1", fmt.Sprint("user", i))
		}(i)
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, "c1", m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	for _, r := range got.Reactions {
		assert.Equal(t, len(r.Users), r.Count)
		assert.LessOrEqual(t, r.Count, users)
	}
}

func TestDeleteAllBySender(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepo(rowstore.NewMemoryStore())
	a1 := insertMessage(t, repo, "c1", "spammer", "a", time.Time{})
	insertMessage(t, repo, "c2", "spammer", "b", time.Time{})
	keep := insertMessage(t, repo, "c1", "u1", "c", time.Time{})

	deleted, err := repo.DeleteAllBySender(ctx, "spammer")
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	got, err := repo.GetByID(ctx, "c1", a1.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = repo.GetByID(ctx, "c1", keep.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
