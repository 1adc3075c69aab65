package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geomesh/proximity/internal/appstore"
	"github.com/geomesh/proximity/internal/core"
	"github.com/geomesh/proximity/internal/pointcache"
)

func newTestServer(t *testing.T) (*Server, *appstore.Memory) {
	t.Helper()
	store := appstore.NewMemory()
	store.Seed("T1", "auth-key", []byte("hmac-key"), 4)
	world := core.NewWorld(store, pointcache.New())
	return &Server{World: world}, store
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePointRequiresValidAppToken(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"point_id": "P0"})
	req := httptest.NewRequest(http.MethodPost, "/v1/apps/T1/points", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer wrong-key")
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreatePointAndMintTokenFlow(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"point_id": "P0"})
	req := httptest.NewRequest(http.MethodPost, "/v1/apps/T1/points", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer auth-key")
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/apps/T1/points/P0/tokens/update", nil)
	req.Header.Set("Authorization", "Bearer auth-key")
	w = httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
