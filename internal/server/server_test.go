package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliobot/folio/internal/assistant"
	"github.com/foliobot/folio/internal/database"
	"github.com/foliobot/folio/internal/leads"
	"github.com/foliobot/folio/internal/log"
)

type stubReplier struct {
	answer  string
	err     error
	message string
	history []assistant.Message
}

func (s *stubReplier) Reply(_ context.Context, message string, history []assistant.Message) (string, error) {
	s.message = message
	s.history = history
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestChat_Success(t *testing.T) {
	replier := &stubReplier{answer: "I have ten years of experience."}
	s := newTestServer(t, Config{Assistant: replier})

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", map[string]any{
		"message": "What is your experience?",
		"history": []map[string]string{
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "I have ten years of experience.", resp.Response)
	assert.Equal(t, "success", resp.Status)

	assert.Equal(t, "What is your experience?", replier.message)
	require.Len(t, replier.history, 2)
	assert.Equal(t, assistant.RoleAssistant, replier.history[1].Role)
}

func TestChat_EmptyMessage(t *testing.T) {
	s := newTestServer(t, Config{Assistant: &stubReplier{answer: "unused"}})

	for _, message := range []string{"", "   \n\t"} {
		w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", map[string]string{"message": message})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "message cannot be empty")
	}
}

func TestChat_InvalidBody(t *testing.T) {
	s := newTestServer(t, Config{Assistant: &stubReplier{}})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON body")
}

func TestChat_AssistantErrorIsGeneric(t *testing.T) {
	s := newTestServer(t, Config{
		Assistant: &stubReplier{err: errors.New("pgx: connection refused at 10.0.0.5")},
	})

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", map[string]string{"message": "hi"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "error processing request")
	// Internal details must never reach the client.
	assert.NotContains(t, w.Body.String(), "pgx")
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Config{Assistant: &stubReplier{}})

	w := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestRoot_ServiceInfo(t *testing.T) {
	s := newTestServer(t, Config{Assistant: &stubReplier{}})

	w := doJSON(t, s.Handler(), http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Contains(t, info, "message")
	assert.Contains(t, info, "endpoints")
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Config{Assistant: &stubReplier{}, RateBurst: 2})

	var last *httptest.ResponseRecorder
	for range 3 {
		last = doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "too many requests")
}

func TestRateLimit_PerIP(t *testing.T) {
	s := newTestServer(t, Config{Assistant: &stubReplier{}, RateBurst: 1})

	first := httptest.NewRequest(http.MethodGet, "/health", nil)
	first.RemoteAddr = "198.51.100.1:4000"
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, first)
	require.Equal(t, http.StatusOK, w.Code)

	// A different client gets its own bucket.
	second := httptest.NewRequest(http.MethodGet, "/health", nil)
	second.RemoteAddr = "198.51.100.2:4000"
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, second)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, Config{
		Assistant:   &stubReplier{},
		CORSOrigins: []string{"https://example.com"},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	s := newTestServer(t, Config{Assistant: &stubReplier{}})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestDataEndpoints(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "folio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := leads.NewStore(db, log.NewNop())
	ctx := context.Background()
	_, err = store.InsertLead(ctx, "ada@example.com", "Ada", "interested in Go roles")
	require.NoError(t, err)
	_, err = store.InsertGap(ctx, "What is your favorite color?")
	require.NoError(t, err)

	s := newTestServer(t, Config{Assistant: &stubReplier{}, Leads: store})

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/leads", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var gotLeads []leads.Lead
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gotLeads))
	require.Len(t, gotLeads, 1)
	assert.Equal(t, "ada@example.com", gotLeads[0].Email)

	w = doJSON(t, s.Handler(), http.MethodGet, "/api/knowledge-gaps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var gotGaps []leads.Gap
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gotGaps))
	require.Len(t, gotGaps, 1)
	assert.Equal(t, "What is your favorite color?", gotGaps[0].Question)

	w = doJSON(t, s.Handler(), http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["total_leads"])
	assert.EqualValues(t, 1, stats["total_knowledge_gaps"])
}

func TestDataEndpoints_DisabledWithoutStore(t *testing.T) {
	s := newTestServer(t, Config{Assistant: &stubReplier{}})

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/leads", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, Config{Assistant: &stubReplier{}})

	w := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	// A caller-supplied ID is echoed back.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestNew_RequiresAssistant(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
