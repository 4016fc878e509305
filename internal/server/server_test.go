package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sshdeck/sshdeck/internal/commands"
	"github.com/sshdeck/sshdeck/internal/keygen"
	"github.com/sshdeck/sshdeck/internal/storage/sqlite"
)

type stubGenerator struct {
	dir string
}

func (g *stubGenerator) Generate(ctx context.Context, name string) (string, error) {
	if err := keygen.ValidateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(g.dir, 0700); err != nil {
		return "", err
	}
	path := filepath.Join(g.dir, name)
	if err := os.WriteFile(path, []byte("PRIVATE"), 0600); err != nil {
		return "", err
	}
	return path, nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	tmp := t.TempDir()

	store, err := sqlite.NewStore(filepath.Join(tmp, "sshdeck.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cmds := commands.New(store, &stubGenerator{dir: filepath.Join(tmp, ".ssh")}, nil)
	srv := New([]byte("test-secret"), cmds)

	token, err := srv.IssueToken(time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	return srv, token
}

func doRequest(t *testing.T, srv *Server, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, "", http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, "", http.MethodGet, "/api/v1/ssh-keys", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	w = doRequest(t, srv, "garbage", http.MethodGet, "/api/v1/ssh-keys", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", w.Code)
	}
}

func TestKeyLifecycleOverHTTP(t *testing.T) {
	srv, token := newTestServer(t)

	// Add
	w := doRequest(t, srv, token, http.MethodPost, "/api/v1/ssh-keys",
		map[string]any{"name": "work", "path": "/home/u/.ssh/id1", "is_default": true})
	if w.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, w, &created)

	// Get
	w = doRequest(t, srv, token, http.MethodGet, "/api/v1/ssh-keys/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var key struct {
		Name      string `json:"name"`
		IsDefault bool   `json:"is_default"`
	}
	decodeBody(t, w, &key)
	if key.Name != "work" || !key.IsDefault {
		t.Errorf("unexpected key: %+v", key)
	}

	// Second default key displaces the first
	w = doRequest(t, srv, token, http.MethodPost, "/api/v1/ssh-keys",
		map[string]any{"name": "home", "path": "/home/u/.ssh/id2", "is_default": true})
	if w.Code != http.StatusCreated {
		t.Fatalf("add second: expected 201, got %d", w.Code)
	}

	w = doRequest(t, srv, token, http.MethodGet, "/api/v1/ssh-keys", nil)
	var keys []struct {
		ID        int64 `json:"id"`
		IsDefault bool  `json:"is_default"`
	}
	decodeBody(t, w, &keys)
	defaults := 0
	for _, k := range keys {
		if k.IsDefault {
			defaults++
		}
	}
	if len(keys) != 2 || defaults != 1 {
		t.Errorf("expected 2 keys with 1 default, got %d keys %d defaults", len(keys), defaults)
	}

	// Set default back
	w = doRequest(t, srv, token, http.MethodPost, "/api/v1/ssh-keys/1/default", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("set default: expected 204, got %d", w.Code)
	}

	// Delete without touching files
	w = doRequest(t, srv, token, http.MethodDelete, "/api/v1/ssh-keys/1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}

	w = doRequest(t, srv, token, http.MethodGet, "/api/v1/ssh-keys/1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}

	_ = created
}

func TestGenerateKeyOverHTTP(t *testing.T) {
	srv, token := newTestServer(t)

	w := doRequest(t, srv, token, http.MethodPost, "/api/v1/ssh-keys/generate",
		map[string]any{"name": "id_test"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Path string `json:"path"`
	}
	decodeBody(t, w, &resp)
	if filepath.Base(resp.Path) != "id_test" {
		t.Errorf("unexpected path: %s", resp.Path)
	}

	// Invalid name maps to 400
	w = doRequest(t, srv, token, http.MethodPost, "/api/v1/ssh-keys/generate",
		map[string]any{"name": "../escape"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid name, got %d", w.Code)
	}
}

func TestServerEndpoints(t *testing.T) {
	srv, token := newTestServer(t)

	w := doRequest(t, srv, token, http.MethodPost, "/api/v1/servers", map[string]any{
		"name": "prod", "host": "prod.example.com", "username": "deploy",
		"auth_type": "password", "password": "secret",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Validation failures map to 400
	w = doRequest(t, srv, token, http.MethodPost, "/api/v1/servers", map[string]any{
		"name": "", "host": "h", "username": "u", "auth_type": "password",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	w = doRequest(t, srv, token, http.MethodPut, "/api/v1/servers/1", map[string]any{
		"name": "prod-eu", "host": "prod.example.com", "username": "deploy",
		"auth_type": "password",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("update: expected 204, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, srv, token, http.MethodGet, "/api/v1/servers/1", nil)
	var got struct {
		Name string `json:"name"`
		Port int    `json:"port"`
	}
	decodeBody(t, w, &got)
	if got.Name != "prod-eu" || got.Port != 22 {
		t.Errorf("unexpected server: %+v", got)
	}

	w = doRequest(t, srv, token, http.MethodDelete, "/api/v1/servers/1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = doRequest(t, srv, token, http.MethodGet, "/api/v1/servers/1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSettingEndpoints(t *testing.T) {
	srv, token := newTestServer(t)

	w := doRequest(t, srv, token, http.MethodGet, "/api/v1/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var settings []struct {
		Key string `json:"key"`
	}
	decodeBody(t, w, &settings)
	if len(settings) == 0 {
		t.Fatal("expected seeded settings")
	}

	w = doRequest(t, srv, token, http.MethodPut, "/api/v1/settings/theme",
		map[string]any{"value": "dark"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("update: expected 204, got %d", w.Code)
	}

	w = doRequest(t, srv, token, http.MethodGet, "/api/v1/settings/theme", nil)
	var setting struct {
		Value string `json:"value"`
	}
	decodeBody(t, w, &setting)
	if setting.Value != "dark" {
		t.Errorf("expected dark, got %s", setting.Value)
	}

	w = doRequest(t, srv, token, http.MethodPut, "/api/v1/settings/nope",
		map[string]any{"value": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown key: expected 404, got %d", w.Code)
	}
}

func TestInvalidIDMapsToBadRequest(t *testing.T) {
	srv, token := newTestServer(t)

	w := doRequest(t, srv, token, http.MethodGet, "/api/v1/ssh-keys/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
