package logger

import (
	"bytes"
	"context"
	log "log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandlerInjectsTraceID(t *testing.T) {
	var out bytes.Buffer
	l := log.New(NewHandler(&out, nil, log.LevelInfo))

	ctx := context.WithValue(context.Background(), TraceIDKey, "trace-1")
	l.InfoContext(ctx, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, "trace-1", rec[TraceIDKey])
	assert.Equal(t, "hello", rec["msg"])
}

func TestRemoteOnlyReceivesTracedRecords(t *testing.T) {
	var stdout, remote bytes.Buffer
	l := log.New(NewHandler(&stdout, &remote, log.LevelDebug))

	l.Info("untraced")
	assert.Contains(t, stdout.String(), "untraced")
	assert.Empty(t, remote.String())

	l.InfoContext(context.WithValue(context.Background(), TraceIDKey, "t"), "traced")
	assert.Contains(t, remote.String(), "traced")
	assert.NotContains(t, remote.String(), "untraced")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, log.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, log.LevelError, ParseLevel("error"))
	assert.Equal(t, log.LevelInfo, ParseLevel(""))
}

func TestRemoteReceivesUntracedWarnings(t *testing.T) {
	var stdout, remote bytes.Buffer
	l := log.New(NewHandler(&stdout, &remote, log.LevelInfo))

	l.Warn("store degraded")
	l.Debug("dropped everywhere")
	assert.Contains(t, remote.String(), "store degraded")
	assert.NotContains(t, stdout.String(), "dropped everywhere")
}
