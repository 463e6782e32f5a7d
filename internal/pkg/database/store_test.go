package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"Parley/internal/pkg/rowstore"
	"Parley/internal/pkg/rowstore/rowstoretest"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("PARLEY_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("PARLEY_TEST_MYSQL_DSN not set")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestMySQLStore(t *testing.T) {
	rowstoretest.Run(t, NewStore(openTestDB(t)))
}

func TestSwapRejectsRecreatedRow(t *testing.T) {
	ctx := context.Background()
	tb := NewStore(openTestDB(t)).Table("recreate_" + t.Name()).(*table)
	key := rowstore.Key{Partition: "p", Clustering: "c"}
	t.Cleanup(func() { _ = tb.Delete(ctx, key) })

	inserted, err := tb.insert(ctx, key, rowstore.Row{"v": "old"})
	require.NoError(t, err)
	require.True(t, inserted)
	stale, _, err := tb.load(ctx, key)
	require.NoError(t, err)

	// 删除后以相同主键重建，version 同样从 0 开始
	require.NoError(t, tb.Delete(ctx, key))
	inserted, err = tb.insert(ctx, key, rowstore.Row{"v": "new"})
	require.NoError(t, err)
	require.True(t, inserted)
	fresh, _, err := tb.load(ctx, key)
	require.NoError(t, err)
	require.Equal(t, stale.Version, fresh.Version)

	updated, err := tb.swap(ctx, stale, rowstore.Row{"v": "stale-merge"})
	require.NoError(t, err)
	assert.False(t, updated)

	row, err := tb.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "new", row.String("v"))
}
