package rowstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/internal/pkg/rowstore"
	"Parley/internal/pkg/rowstore/rowstoretest"
)

func TestMemoryStore(t *testing.T) {
	rowstoretest.Run(t, rowstore.NewMemoryStore())
}

func TestMemoryStoreRejectsUnsupportedType(t *testing.T) {
	tb := rowstore.NewMemoryStore().Table("t")
	err := tb.Put(context.Background(), rowstore.Key{Partition: "p", Clustering: "c"}, rowstore.Row{"bad": 1.5})
	require.Error(t, err)
	err = tb.Put(context.Background(), rowstore.Key{Partition: "p", Clustering: "c"}, rowstore.Row{"bad": []string{"x"}})
	require.Error(t, err)
}

func TestOptimistic(t *testing.T) {
	ctx := context.Background()

	t.Run("DoneOnFirstAttempt", func(t *testing.T) {
		calls := 0
		v, err := rowstore.Optimistic(ctx, 0, func(ctx context.Context, attempt int) (string, bool, error) {
			calls++
			return "ok", true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 1, calls)
	})

	t.Run("ExhaustedReturnsLast", func(t *testing.T) {
		calls := 0
		v, err := rowstore.Optimistic(ctx, rowstore.MaxAttempts, func(ctx context.Context, attempt int) (int, bool, error) {
			calls++
			return attempt, false, nil
		})
		require.ErrorIs(t, err, rowstore.ErrContention)
		assert.Equal(t, rowstore.MaxAttempts-1, v)
		assert.Equal(t, rowstore.MaxAttempts, calls)
	})

	t.Run("ErrorStops", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		_, err := rowstore.Optimistic(ctx, 3, func(ctx context.Context, attempt int) (int, bool, error) {
			calls++
			return 0, false, boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}

func TestLookupIndex(t *testing.T) {
	ctx := context.Background()
	idx := rowstore.NewLookupIndex(rowstore.NewMemoryStore().Table("lookup"))
	natural := rowstore.Key{Partition: "m1", Clustering: "conv"}
	target := rowstore.Key{Partition: "conv", Clustering: "0000000000001#m1"}

	_, found, err := idx.Resolve(ctx, natural)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, idx.Write(ctx, natural, target, rowstore.Row{"sender_id": "u1"}))
	got, found, err := idx.Resolve(ctx, natural)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, target, got)

	require.NoError(t, idx.Delete(ctx, natural))
	_, found, err = idx.Resolve(ctx, natural)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNormalizeAndMatch(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	row, err := rowstore.NormalizeRow(rowstore.Row{"i": 7, "f": float64(3), "t": at, "zero": time.Time{}, "s": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), row["i"])
	assert.Equal(t, int64(3), row["f"])
	assert.Equal(t, int64(1700000000123), row["t"])
	assert.Nil(t, row["zero"])

	assert.True(t, rowstore.Match(row, rowstore.Cond{"i": int64(7), "missing": nil}))
	assert.False(t, rowstore.Match(row, rowstore.Cond{"s": nil}))
	assert.False(t, rowstore.Match(row, rowstore.Cond{"i": int64(8)}))
}

func TestCodecRoundTrip(t *testing.T) {
	in := rowstore.Row{"s": "x", "n": int64(1 << 50), "b": false}
	data, err := rowstore.MarshalRow(in)
	require.NoError(t, err)
	out, err := rowstore.UnmarshalRow(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
