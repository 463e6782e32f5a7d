package logger

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisArgsHidesScriptPayload(t *testing.T) {
	ctx := t.Context()
	cmd := redis.NewCmd(ctx, "evalsha", "abc", 3, "parley:messages:r:c1", "parley:messages:all", "parley:messages:p:c1", "s:secret text")
	assert.Equal(t, "[parley:messages:r:c1 parley:messages:all parley:messages:p:c1]", redisArgs(cmd))

	auth := redis.NewCmd(ctx, "auth", "user", "password")
	assert.Equal(t, "[PROTECTED]", redisArgs(auth))
}

func TestExpectedRedisErrors(t *testing.T) {
	assert.True(t, isExpectedRedisError("get", redis.Nil))
	assert.True(t, isExpectedRedisError("evalsha", errors.New("NOSCRIPT No matching script")))
	assert.False(t, isExpectedRedisError("hset", errors.New("WRONGTYPE Operation against a key")))
}

func TestSQLVerb(t *testing.T) {
	assert.Equal(t, "UPDATE", sqlVerb("  update `wide_rows` SET data=?"))
	assert.Equal(t, "QUERY", sqlVerb(""))
}

func TestESTransportKeepsBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &ESTransport{Transport: http.DefaultTransport}}
	resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{"query":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	echoed, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"query":1}`, string(echoed))
}
