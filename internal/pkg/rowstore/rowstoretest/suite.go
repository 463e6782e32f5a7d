// Package rowstoretest 所有存储引擎共用的一致性测试
package rowstoretest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/internal/pkg/rowstore"
)

// Run 对 store 执行完整的一致性测试。每个子测试使用独立的表名，可在共享实例上运行。
func Run(t *testing.T, store rowstore.Store) {
	t.Helper()
	ctx := context.Background()
	table := func(t *testing.T) rowstore.Table {
		return store.Table("t_" + uuid.NewString()[:8])
	}

	t.Run("GetMissing", func(t *testing.T) {
		tb := table(t)
		_, err := tb.Get(ctx, rowstore.Key{Partition: "p", Clustering: "c"})
		require.ErrorIs(t, err, rowstore.ErrNotFound)
	})

	t.Run("PutMergesAndClears", func(t *testing.T) {
		tb := table(t)
		key := rowstore.Key{Partition: "p", Clustering: "c"}
		require.NoError(t, tb.Put(ctx, key, rowstore.Row{"a": "x", "n": 3, "flag": true}))
		require.NoError(t, tb.Put(ctx, key, rowstore.Row{"a": nil, "b": "y"}))

		row, err := tb.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, row["a"])
		assert.Equal(t, "y", row.String("b"))
		assert.Equal(t, int64(3), row.Int("n"))
		assert.True(t, row.Bool("flag"))
	})

	t.Run("TimeRoundTrip", func(t *testing.T) {
		tb := table(t)
		key := rowstore.Key{Partition: "p", Clustering: "c"}
		now := time.Now().UTC().Truncate(time.Millisecond)
		require.NoError(t, tb.Put(ctx, key, rowstore.Row{"at": now}))
		row, err := tb.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, now.Equal(row.Time("at")))
		assert.Nil(t, row.TimePtr("missing"))
	})

	t.Run("InsertIfAbsent", func(t *testing.T) {
		tb := table(t)
		key := rowstore.Key{Partition: "p", Clustering: "c"}
		res, err := tb.InsertIfAbsent(ctx, key, rowstore.Row{"v": "first"})
		require.NoError(t, err)
		assert.True(t, res.Applied)

		res, err = tb.InsertIfAbsent(ctx, key, rowstore.Row{"v": "second"})
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, "first", res.Observed.String("v"))
	})

	t.Run("UpdateIfMissingRow", func(t *testing.T) {
		tb := table(t)
		res, err := tb.UpdateIf(ctx, rowstore.Key{Partition: "p", Clustering: "none"}, rowstore.Row{"v": 1}, nil)
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Nil(t, res.Observed)
	})

	t.Run("UpdateIfConditions", func(t *testing.T) {
		tb := table(t)
		key := rowstore.Key{Partition: "p", Clustering: "c"}
		require.NoError(t, tb.Put(ctx, key, rowstore.Row{"n": 1, "s": "a"}))

		res, err := tb.UpdateIf(ctx, key, rowstore.Row{"n": 2}, rowstore.Cond{"n": 5})
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, int64(1), res.Observed.Int("n"))

		res, err = tb.UpdateIf(ctx, key, rowstore.Row{"n": 2}, rowstore.Cond{"n": 1, "s": "a"})
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, int64(2), res.Observed.Int("n"))

		// 空条件只要求行存在
		res, err = tb.UpdateIf(ctx, key, rowstore.Row{"s": "b"}, nil)
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, "b", res.Observed.String("s"))
	})

	t.Run("UpdateIfNullGuard", func(t *testing.T) {
		tb := table(t)
		key := rowstore.Key{Partition: "p", Clustering: "c"}
		require.NoError(t, tb.Put(ctx, key, rowstore.Row{"name": "x"}))

		res, err := tb.UpdateIf(ctx, key, rowstore.Row{"owner": "u1"}, rowstore.Cond{"owner": nil})
		require.NoError(t, err)
		assert.True(t, res.Applied)

		res, err = tb.UpdateIf(ctx, key, rowstore.Row{"owner": "u2"}, rowstore.Cond{"owner": nil})
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, "u1", res.Observed.String("owner"))

		// 非空期望值不匹配空列
		res, err = tb.UpdateIf(ctx, key, rowstore.Row{"name": "y"}, rowstore.Cond{"missing": "v"})
		require.NoError(t, err)
		assert.False(t, res.Applied)
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		tb := table(t)
		key := rowstore.Key{Partition: "p", Clustering: "c"}
		require.NoError(t, tb.Put(ctx, key, rowstore.Row{"v": "x"}))
		require.NoError(t, tb.Delete(ctx, key))
		require.NoError(t, tb.Delete(ctx, key))
		_, err := tb.Get(ctx, key)
		require.ErrorIs(t, err, rowstore.ErrNotFound)
	})

	t.Run("ScanPartitionOrder", func(t *testing.T) {
		tb := table(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, tb.Put(ctx, rowstore.Key{Partition: "p1", Clustering: fmt.Sprintf("%03d", i)}, rowstore.Row{"i": i}))
		}
		require.NoError(t, tb.Put(ctx, rowstore.Key{Partition: "p2", Clustering: "000"}, rowstore.Row{"i": 99}))

		asc, err := rowstore.Collect(ctx, tb, rowstore.Query{Partition: "p1"})
		require.NoError(t, err)
		require.Len(t, asc, 5)
		assert.Equal(t, "000", asc[0].Key.Clustering)
		assert.Equal(t, "004", asc[4].Key.Clustering)

		desc, err := rowstore.Collect(ctx, tb, rowstore.Query{Partition: "p1", Desc: true, Before: "003", Limit: 2})
		require.NoError(t, err)
		require.Len(t, desc, 2)
		assert.Equal(t, "002", desc[0].Key.Clustering)
		assert.Equal(t, "001", desc[1].Key.Clustering)
	})

	t.Run("ScanFullTableWhere", func(t *testing.T) {
		tb := table(t)
		require.NoError(t, tb.Put(ctx, rowstore.Key{Partition: "b", Clustering: "1"}, rowstore.Row{"owner": "u1"}))
		require.NoError(t, tb.Put(ctx, rowstore.Key{Partition: "a", Clustering: "2"}, rowstore.Row{"owner": "u2"}))
		require.NoError(t, tb.Put(ctx, rowstore.Key{Partition: "a", Clustering: "1"}, rowstore.Row{"owner": "u1"}))

		all, err := rowstore.Collect(ctx, tb, rowstore.Query{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, rowstore.Key{Partition: "a", Clustering: "1"}, all[0].Key)
		assert.Equal(t, rowstore.Key{Partition: "b", Clustering: "1"}, all[2].Key)

		owned, err := rowstore.Collect(ctx, tb, rowstore.Query{Where: rowstore.Cond{"owner": "u1"}, Limit: 1})
		require.NoError(t, err)
		require.Len(t, owned, 1)
		assert.Equal(t, "a", owned[0].Key.Partition)
	})

	t.Run("ScanStop", func(t *testing.T) {
		tb := table(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, tb.Put(ctx, rowstore.Key{Partition: "p", Clustering: fmt.Sprint(i)}, rowstore.Row{"i": i}))
		}
		seen := 0
		err := tb.Scan(ctx, rowstore.Query{Partition: "p"}, func(e rowstore.Entry) error {
			seen++
			return rowstore.ErrStopScan
		})
		require.NoError(t, err)
		assert.Equal(t, 1, seen)
	})

	t.Run("ConcurrentCompareAndSet", func(t *testing.T) {
		tb := table(t)
		key := rowstore.Key{Partition: "p", Clustering: "counter"}
		require.NoError(t, tb.Put(ctx, key, rowstore.Row{"n": 0}))

		const workers = 8
		var applied atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := tb.UpdateIf(ctx, key, rowstore.Row{"n": 1}, rowstore.Cond{"n": 0})
				if err == nil && res.Applied {
					applied.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), applied.Load())
	})
}
