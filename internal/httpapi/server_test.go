package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/composer"
	"github.com/fyrsmithlabs/eirene/internal/engine"
	"github.com/fyrsmithlabs/eirene/internal/httpapi"
	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/memory"
	"github.com/fyrsmithlabs/eirene/internal/safety"
	"github.com/fyrsmithlabs/eirene/internal/session"
	"github.com/fyrsmithlabs/eirene/internal/specialist"
	"github.com/fyrsmithlabs/eirene/internal/stage"
)

type memRegistry struct {
	mu     sync.Mutex
	stages map[string]stage.Stage
}

func (r *memRegistry) Get(_ context.Context, userID string) (stage.Stage, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stages[userID]
	return st, ok, nil
}

func (r *memRegistry) Insert(_ context.Context, userID string, st stage.Stage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !st.IsValid() {
		return false
	}
	if _, exists := r.stages[userID]; exists {
		return false
	}
	r.stages[userID] = st
	return true
}

func (r *memRegistry) Update(_ context.Context, userID string, st stage.Stage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stages[userID]; !exists || !st.IsValid() {
		return false
	}
	r.stages[userID] = st
	return true
}

func (r *memRegistry) Delete(_ context.Context, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stages[userID]; !exists {
		return false
	}
	delete(r.stages, userID)
	return true
}

func (r *memRegistry) Close() error { return nil }

type memStore struct {
	mu   sync.Mutex
	docs map[string][]string
}

func (s *memStore) Add(_ context.Context, text, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[userID] = append(s.docs[userID], text)
	return nil
}

func (s *memStore) Search(_ context.Context, _ string, userID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.docs[userID]
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return append([]string(nil), docs...), nil
}

func (s *memStore) AllByUser(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.docs[userID]...), nil
}

func (s *memStore) Close() error { return nil }

func newTestServer(t *testing.T, gateResponse string) *httpapi.Server {
	t.Helper()
	logger := zap.NewNop()

	ltm := memory.NewLongTermMemory(&memStore{docs: make(map[string][]string)}, logger)
	orchestrator := memory.NewOrchestrator(&llm.Fake{Response: "summary"}, ltm, 20, 4, logger)

	specialistClient := &llm.Fake{Response: "note"}
	eng := engine.New(engine.Config{
		Sessions: session.NewStore(logger),
		Registry: &memRegistry{stages: make(map[string]stage.Stage)},
		Memory:   orchestrator,
		Gate:     safety.NewGate(&llm.Fake{Response: gateResponse}, logger),
		Monitor:  stage.NewMonitor(&llm.Fake{Response: "0"}, logger),
		Scorer:   stage.NewScorer(&llm.Fake{Response: "0"}, stage.ScorerConfig{Low: 7, High: 18}, logger),
		Router:   specialist.NewRouter(&llm.Fake{Response: "0"}, specialist.Catalog, logger),
		Pool: specialist.NewPool([]specialist.Specialist{
			specialist.NewMedical(specialistClient, nil, logger),
		}, logger),
		Composer:       composer.New(&llm.Fake{Chunks: []string{"warm ", "reply"}}, logger),
		SearchLimit:    3,
		ReadinessClues: 10,
		Logger:         logger,
	})
	t.Cleanup(eng.Shutdown)

	server, err := httpapi.NewServer(eng, httpapi.Config{Host: "localhost", Port: 0}, logger)
	require.NoError(t, err)
	return server
}

func doJSON(t *testing.T, server *httpapi.Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echoContentType, "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func startSession(t *testing.T, server *httpapi.Server) string {
	t.Helper()
	rec := doJSON(t, server, "/chat/start", `{"user_id":"user-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httpapi.StartSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestServer_Health(t *testing.T) {
	server := newTestServer(t, "0")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_StartSession(t *testing.T) {
	server := newTestServer(t, "0")
	sessionID := startSession(t, server)
	assert.NotEmpty(t, sessionID)
}

func TestServer_StartSessionMissingUser(t *testing.T) {
	server := newTestServer(t, "0")
	rec := doJSON(t, server, "/chat/start", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CheckSession(t *testing.T) {
	server := newTestServer(t, "0")
	sessionID := startSession(t, server)

	rec := doJSON(t, server, "/chat/check", `{"session_id":"`+sessionID+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())

	rec = doJSON(t, server, "/chat/check", `{"session_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ChatStreamsChunks(t *testing.T) {
	server := newTestServer(t, "0")
	sessionID := startSession(t, server)

	rec := doJSON(t, server, "/chat", `{"session_id":"`+sessionID+`","message":"hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echoContentType))
	assert.Equal(t, "warm reply", rec.Body.String())
}

func TestServer_ChatUnknownSession(t *testing.T) {
	server := newTestServer(t, "0")
	rec := doJSON(t, server, "/chat", `{"session_id":"nope","message":"hello"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ChatSafetyMessage(t *testing.T) {
	server := newTestServer(t, "1")
	sessionID := startSession(t, server)

	rec := doJSON(t, server, "/chat", `{"session_id":"`+sessionID+`","message":"I give up"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, safety.Message, rec.Body.String())
}

func TestServer_EndSession(t *testing.T) {
	server := newTestServer(t, "0")
	sessionID := startSession(t, server)

	rec := doJSON(t, server, "/chat/end", `{"session_id":"`+sessionID+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ended")

	rec = doJSON(t, server, "/chat/end", `{"session_id":"`+sessionID+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MetricsExposed(t *testing.T) {
	server := newTestServer(t, "0")
	startSession(t, server)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eirene_http_requests_total")
}
