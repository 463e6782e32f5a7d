package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/internal/pkg/rowstore/rowstoretest"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("PARLEY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PARLEY_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() {
		_ = rdb.Close()
	})
	require.NoError(t, rdb.Ping(context.Background()).Err())

	rowstoretest.Run(t, NewStore(rdb, "parley_test_"+uuid.NewString()[:8]))
}

func TestValueEncoding(t *testing.T) {
	for _, v := range []any{"", "s:x", int64(-42), true, false} {
		got, err := decodeValue(encodeValue(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	_, err := decodeValue("nope")
	assert.Error(t, err)
	_, err = decodeValue("z:1")
	assert.Error(t, err)
}

func TestParseResult(t *testing.T) {
	res, err := parseResult([]any{int64(0), []any{}})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Nil(t, res.Observed)

	res, err = parseResult([]any{int64(1), []any{"__", "1", "n", "i:3", "s", "s:a"}})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, int64(3), res.Observed.Int("n"))
	assert.Equal(t, "a", res.Observed.String("s"))
	_, hasSentinel := res.Observed[sentinelField]
	assert.False(t, hasSentinel)
}
