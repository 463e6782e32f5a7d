package wire

import (
	"Parley/internal/api/config"
	"Parley/internal/pkg/rowstore"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Driver: "memory"},
		JWT:   config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		ServerDefaults: config.ServerDefaults{
			Name:             "Parley",
			MaxUploadBytes:   1 << 20,
			MaxMessageLength: 100,
		},
		Moderation: config.ModerationConfig{PageSize: 100, DigestCron: "0 */10 * * * *"},
		Preview:    config.PreviewConfig{CacheSize: 8, CacheTTL: 60, Timeout: 1},
	}
}

func newTestApp(t *testing.T) *ApplicationContainer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app, err := BuildApplication(context.Background(), testConfig(), Infra{Store: rowstore.NewMemoryStore()})
	require.NoError(t, err)
	assert.Nil(t, app.KafkaManager)
	return app
}

func call(t *testing.T, app *ApplicationContainer, method, path, token string, body any) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type session struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Token  string `json:"token"`
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "cassandra"
	_, err := OpenStore(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg.Store.Driver = "redis"
	_, err = OpenStore(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestServerLifecycle(t *testing.T) {
	app := newTestApp(t)

	env := call(t, app, http.MethodGet, "/api/server", "", nil)
	require.Equal(t, 200, env.Code)

	env = call(t, app, http.MethodPost, "/api/server/claim", "", map[string]string{"user_id": "alice"})
	require.Equal(t, 200, env.Code, env.Message)
	owner := decode[session](t, env)
	assert.Equal(t, "owner", owner.Role)
	require.NotEmpty(t, owner.Token)

	env = call(t, app, http.MethodPost, "/api/server/claim", "", map[string]string{"user_id": "mallory"})
	assert.Equal(t, 409, env.Code)

	env = call(t, app, http.MethodPost, "/api/invites", owner.Token, map[string]any{"max_uses": 1})
	require.Equal(t, 200, env.Code, env.Message)
	invite := decode[struct {
		Code string `json:"code"`
	}](t, env)

	env = call(t, app, http.MethodPost, "/api/invites/join", "", map[string]string{"code": invite.Code, "user_id": "bob"})
	require.Equal(t, 200, env.Code, env.Message)
	member := decode[session](t, env)
	assert.Equal(t, "member", member.Role)

	env = call(t, app, http.MethodPost, "/api/invites/join", "", map[string]string{"code": invite.Code, "user_id": "carol"})
	assert.NotEqual(t, 200, env.Code)

	// 所有者 id 公开可见，但不能凭它换取会话
	env = call(t, app, http.MethodPost, "/api/invites/join", "", map[string]string{"code": "NOT-A-CODE", "user_id": "alice"})
	assert.NotEqual(t, 200, env.Code)

	env = call(t, app, http.MethodPost, "/api/conversations/general/messages", member.Token, map[string]string{"text": "hello"})
	require.Equal(t, 200, env.Code, env.Message)

	env = call(t, app, http.MethodGet, "/api/conversations/general/messages", member.Token, nil)
	require.Equal(t, 200, env.Code, env.Message)
	page := decode[struct {
		Messages []struct {
			SenderID string `json:"sender_id"`
			Text     string `json:"text"`
		} `json:"messages"`
	}](t, env)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "bob", page.Messages[0].SenderID)

	env = call(t, app, http.MethodPost, "/api/invites", member.Token, map[string]any{"max_uses": 1})
	assert.Equal(t, 403, env.Code)

	env = call(t, app, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, 401, env.Code)

	env = call(t, app, http.MethodPost, "/api/server/tokens/rotate", owner.Token, nil)
	require.Equal(t, 200, env.Code, env.Message)
	rotated := decode[struct {
		Session session `json:"session"`
	}](t, env)
	require.NotEmpty(t, rotated.Session.Token)

	env = call(t, app, http.MethodGet, "/api/me", member.Token, nil)
	assert.Equal(t, 401, env.Code)
	env = call(t, app, http.MethodGet, "/api/me", owner.Token, nil)
	assert.Equal(t, 401, env.Code)

	env = call(t, app, http.MethodGet, "/api/me", rotated.Session.Token, nil)
	assert.Equal(t, 200, env.Code, env.Message)
}
