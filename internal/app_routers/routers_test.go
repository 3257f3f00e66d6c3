package approuters

import (
	"Lumen/internal/configuration"
	"Lumen/internal/model"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routerSecret = "router-secret"

type envelope struct {
	HttpStatusCode int             `json:"HttpStatusCode"`
	ResponseBody   json.RawMessage `json:"ResponseBody"`
	IsSuccess      bool            `json:"IsSuccess"`
	Message        string          `json:"Message"`
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) (*apiClient, *configuration.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"store": {"driver": "sqlite", "sqlite": {"path": ":memory:"}},
		"auth": {"jwtSecret": "`+routerSecret+`"},
		"logging": {"level": "error"}
	}`), 0o600))

	container, err := configuration.BuildContainer(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	return &apiClient{t: t, router: NewRouter(container, nil)}, container
}

func (c *apiClient) do(method, path, userID string, body any) (int, envelope) {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID}).SignedString([]byte(routerSecret))
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func TestRouter_RequiresToken(t *testing.T) {
	api, _ := newAPI(t)

	code, _ := api.do(http.MethodGet, "/lumen/api/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_ProfileLifecycle(t *testing.T) {
	api, _ := newAPI(t)

	code, env := api.do(http.MethodPost, "/lumen/api/profiles", "u", map[string]string{"username": "alice", "displayName": "Alice"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.True(t, env.IsSuccess)

	code, env = api.do(http.MethodPost, "/lumen/api/profiles", "x", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Username already taken", env.Message)

	code, env = api.do(http.MethodPost, "/lumen/api/profiles", "u", map[string]string{"username": "alice2"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Profile already exists", env.Message)

	code, env = api.do(http.MethodGet, "/lumen/api/profiles/me", "u", nil)
	require.Equal(t, http.StatusOK, code)
	var me model.Profile
	require.NoError(t, json.Unmarshal(env.ResponseBody, &me))
	assert.Equal(t, "alice", me.Username)

	code, env = api.do(http.MethodGet, "/lumen/api/profiles/missing", "u", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.IsSuccess)

	code, _ = api.do(http.MethodPatch, "/lumen/api/profiles/me", "u", map[string]string{"status": "away"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodPatch, "/lumen/api/profiles/me", "u", map[string]string{"status": "dnd"})
	require.Equal(t, http.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.ResponseBody, &me))
	assert.Equal(t, model.StatusDnd, me.Status)

	_, _ = api.do(http.MethodPost, "/lumen/api/profiles", "b", map[string]string{"username": "albert"})

	code, env = api.do(http.MethodGet, "/lumen/api/profiles/search?q=al", "u", nil)
	require.Equal(t, http.StatusOK, code)
	var found struct {
		Profiles []model.Profile `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(env.ResponseBody, &found))
	require.Len(t, found.Profiles, 1)
	assert.Equal(t, "albert", found.Profiles[0].Username)

	code, env = api.do(http.MethodGet, "/lumen/api/profiles/search?q=a", "u", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.ResponseBody, &found))
	assert.Empty(t, found.Profiles)
}

func TestRouter_ConversationFlow(t *testing.T) {
	api, _ := newAPI(t)
	_, _ = api.do(http.MethodPost, "/lumen/api/profiles", "u", map[string]string{"username": "ursula"})
	_, _ = api.do(http.MethodPost, "/lumen/api/profiles", "a", map[string]string{"username": "arthur"})

	code, _ := api.do(http.MethodPost, "/lumen/api/conversations/a/messages", "u", map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := api.do(http.MethodPost, "/lumen/api/conversations/a/messages", "u", map[string]string{"content": "hi"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var sent struct {
		Message model.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.ResponseBody, &sent))
	assert.Equal(t, "hi", sent.Message.Content)

	var list struct {
		Conversations []model.Conversation `json:"conversations"`
	}
	code, env = api.do(http.MethodGet, "/lumen/api/conversations", "a", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.ResponseBody, &list))
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "u", list.Conversations[0].Partner.ID)
	assert.Equal(t, "ursula", list.Conversations[0].Partner.Username)
	assert.Equal(t, 1, list.Conversations[0].UnreadCount)

	var history struct {
		Messages []model.Message `json:"messages"`
	}
	code, env = api.do(http.MethodGet, "/lumen/api/conversations/u/messages", "a", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.ResponseBody, &history))
	require.Len(t, history.Messages, 1)

	code, _ = api.do(http.MethodPost, "/lumen/api/conversations/read", "a", map[string][]string{"ids": {history.Messages[0].ID}})
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/lumen/api/conversations", "a", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.ResponseBody, &list))
	assert.Zero(t, list.Conversations[0].UnreadCount)

	code, _ = api.do(http.MethodGet, "/lumen/api/monitor/stats", "a", nil)
	assert.Equal(t, http.StatusOK, code)
}
