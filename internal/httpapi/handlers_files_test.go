package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agent-engine/internal/config"
	"github.com/haasonsaas/agent-engine/internal/workspace"
)

func newTestServer(t *testing.T) (*Server, *workspace.FS) {
	t.Helper()
	fs := workspace.NewFS(t.TempDir())
	srv := New(":0", fs, nil, nil, config.ProvidersConfig{}, nil, nil)
	return srv, fs
}

func TestHandleFilesWrite_CreatesThenUpdates(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.routes()

	body, _ := json.Marshal(writeRequest{Path: "notes.txt", Content: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/files/write", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ = json.Marshal(writeRequest{Path: "notes.txt", Content: "updated"})
	req = httptest.NewRequest(http.MethodPost, "/api/files/write", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/files/read?path=notes.txt", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp readResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "updated", resp.Content)
}

func TestHandleFilesRead_PathEscapeReturns400(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.routes()

	req := httptest.NewRequest(http.MethodGet, "/api/files/read?path=../../etc/passwd", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "path escape", envelope.Detail)
}

func TestHandleFilesRead_MissingReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.routes()

	req := httptest.NewRequest(http.MethodGet, "/api/files/read?path=missing.txt", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleFilesTree_ReflectsCreatedFiles(t *testing.T) {
	srv, fs := newTestServer(t)
	mux := srv.routes()

	_, err := fs.Create("a.txt", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, fs.MkdirAll("sub"))
	_, err = fs.Create("sub/b.txt", []byte("y"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/files/tree?path=", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []fileItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	var sub *fileItem
	for i := range items {
		if items[i].Name == "sub" {
			sub = &items[i]
		}
	}
	require.NotNil(t, sub)
	require.Len(t, sub.Children, 1)
	assert.Equal(t, "b.txt", sub.Children[0].Name)
}
