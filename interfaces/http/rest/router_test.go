package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mirror-backend/application/draft"
	"mirror-backend/application/services"
	"mirror-backend/application/state"
	"mirror-backend/infrastructure/config"
	badgerstore "mirror-backend/infrastructure/persistence/badger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) (*httptest.Server, *state.Manager) {
	t.Helper()

	store, err := badgerstore.NewStore(badgerstore.InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	manager := state.NewManager(store, services.NewCrisisScanner(zap.NewNop()), nil, zap.NewNop(), nil)
	require.True(t, manager.Initialize(context.Background()).Ready())

	sessions := draft.NewSessions(nil, store, zap.NewNop(), nil)
	t.Cleanup(sessions.CloseAll)

	backups := services.NewBackupService(store, store, zap.NewNop())

	cfg := &config.Config{
		ServerAddress: ":0",
		DataDir:       t.TempDir(),
	}

	router := NewRouter(manager, sessions, backups, store, cfg, nil, nil, zap.NewNop())
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)

	return srv, manager
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func createReflectionHTTP(t *testing.T, base, content string) map[string]interface{} {
	t.Helper()

	resp, env := doJSON(t, http.MethodPost, base+"/api/reflections", map[string]interface{}{
		"content": content,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	decodeData(t, env, &created)
	return created
}

func TestRouter_ReflectionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createReflectionHTTP(t, srv.URL, "first entry")
	id := created["id"].(string)
	assert.Equal(t, "first entry", created["content"])
	assert.Equal(t, "private", created["layer"])

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/reflections", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []map[string]interface{}
	decodeData(t, env, &listed)
	require.Len(t, listed, 1)

	resp, env = doJSON(t, http.MethodPut, srv.URL+"/api/reflections/"+id, map[string]interface{}{
		"content": "revised entry",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated map[string]interface{}
	decodeData(t, env, &updated)
	assert.Equal(t, "revised entry", updated["content"])

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/reflections/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/reflections/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestRouter_CreateReflection_RejectsInvalidLayer(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/reflections", map[string]interface{}{
		"content": "hello",
		"layer":   "secret",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
}

func TestRouter_ThreadMembership(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/threads", map[string]interface{}{
		"title": "morning pages",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var thread map[string]interface{}
	decodeData(t, env, &thread)
	threadID := thread["id"].(string)

	created := createReflectionHTTP(t, srv.URL, "standalone")
	reflectionID := created["id"].(string)

	resp, env = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/threads/%s/reflections", srv.URL, threadID),
		map[string]interface{}{"reflectionId": reflectionID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, env, &thread)
	assert.Equal(t, []interface{}{reflectionID}, thread["reflectionIds"])

	resp, env = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/threads/%s/reflections", srv.URL, threadID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var members []map[string]interface{}
	decodeData(t, env, &members)
	require.Len(t, members, 1)
	assert.Equal(t, reflectionID, members[0]["id"])
}

func TestRouter_ContextUpdateShapesState(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/context", map[string]interface{}{
		"currentLayer": "shared",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap map[string]interface{}
	decodeData(t, env, &snap)
	assert.Equal(t, "shared", snap["currentLayer"])

	created := createReflectionHTTP(t, srv.URL, "inherits the layer")
	assert.Equal(t, "shared", created["layer"])
}

func TestRouter_ClearRequiresConfirmation(t *testing.T) {
	srv, _ := newTestServer(t)
	createReflectionHTTP(t, srv.URL, "precious")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/data/clear", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/reflections", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []map[string]interface{}
	decodeData(t, env, &listed)
	assert.Len(t, listed, 1, "unconfirmed clear must not touch data")

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/data/clear?confirm=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/reflections", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, env, &listed)
	assert.Empty(t, listed)
}

func TestRouter_BackupRestoreRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createReflectionHTTP(t, srv.URL, "keep me safe")
	id := created["id"].(string)

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/backups", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var info map[string]interface{}
	decodeData(t, env, &info)
	slot := info["slot"].(string)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/reflections/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = doJSON(t, http.MethodPost, srv.URL+"/api/backups/"+slot+"/restore", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap map[string]interface{}
	decodeData(t, env, &snap)
	reflections := snap["reflections"].([]interface{})
	require.Len(t, reflections, 1)
	assert.Equal(t, id, reflections[0].(map[string]interface{})["id"])
}

func TestRouter_DraftEditAndSave(t *testing.T) {
	srv, manager := newTestServer(t)

	created := createReflectionHTTP(t, srv.URL, "draft me")
	id := created["id"].(string)
	base := srv.URL + "/api/drafts/" + id

	resp, env := doJSON(t, http.MethodPost, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var d map[string]interface{}
	decodeData(t, env, &d)
	assert.Equal(t, "draft me", d["content"])

	resp, env = doJSON(t, http.MethodPost, base+"/input", map[string]interface{}{
		"content":    "draft me harder",
		"checkpoint": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, env, &d)
	assert.Equal(t, "draft me harder", d["content"])
	assert.Equal(t, true, d["canUndo"])

	resp, env = doJSON(t, http.MethodPost, base+"/undo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, env, &d)
	assert.Equal(t, "draft me", d["content"])

	resp, env = doJSON(t, http.MethodPost, base+"/redo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, env, &d)
	assert.Equal(t, "draft me harder", d["content"])

	resp, _ = doJSON(t, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	snap := manager.GetState()
	require.Len(t, snap.Reflections, 1)
	assert.Equal(t, "draft me harder", snap.Reflections[0].Content().Text())
}

func TestRouter_DraftUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createReflectionHTTP(t, srv.URL, "never opened")
	id := created["id"].(string)

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/drafts/"+id+"/undo", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestRouter_ReadinessReflectsHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ready", health["status"])
}

func TestRouter_ExportImportRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createReflectionHTTP(t, srv.URL, "travels well")
	id := created["id"].(string)

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/data/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	other, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, other.URL+"/api/data/import", bytes.NewReader(env.Data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	importResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer importResp.Body.Close()
	require.Equal(t, http.StatusOK, importResp.StatusCode)

	resp, env = doJSON(t, http.MethodGet, other.URL+"/api/reflections/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var imported map[string]interface{}
	decodeData(t, env, &imported)
	assert.Equal(t, "travels well", imported["content"])
}
