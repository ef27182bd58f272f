package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/engram/engram/internal/config"
	"github.com/engram/engram/internal/memory"
	"github.com/engram/engram/internal/testutil"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db := testutil.OpenStorage(t)
	cfg := config.DefaultConfig()
	svc := memory.NewService(db, cfg)
	return NewServer(svc, cfg)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected status=healthy, got %v", body["status"])
	}
}

func TestRememberAndRecallEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Router(), http.MethodPost, "/remember", map[string]any{"content": "hello world"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rememberResp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rememberResp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if rememberResp["status"] != "created" {
		t.Errorf("expected status=created, got %v", rememberResp["status"])
	}

	rec = doJSON(t, s.Router(), http.MethodPost, "/recall", map[string]any{"query": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var recallResp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &recallResp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if recallResp["fallback_mode"] != true {
		t.Errorf("expected fallback_mode=true, got %v", recallResp["fallback_mode"])
	}
}

func TestRememberValidationError(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodPost, "/remember", map[string]any{"upsert": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestContextHydrateForbiddenWhenDisabled(t *testing.T) {
	s := newTestServer(t)
	s.config.EnableContextHydration = false
	rec := doJSON(t, s.Router(), http.MethodPost, "/context/hydrate", map[string]any{"query": ""})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}
