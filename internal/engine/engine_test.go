package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/composer"
	"github.com/fyrsmithlabs/eirene/internal/engine"
	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/memory"
	"github.com/fyrsmithlabs/eirene/internal/safety"
	"github.com/fyrsmithlabs/eirene/internal/session"
	"github.com/fyrsmithlabs/eirene/internal/specialist"
	"github.com/fyrsmithlabs/eirene/internal/stage"
)

type fakeRegistry struct {
	mu     sync.Mutex
	stages map[string]stage.Stage
	getErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{stages: make(map[string]stage.Stage)}
}

func (r *fakeRegistry) Get(_ context.Context, userID string) (stage.Stage, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return "", false, r.getErr
	}
	st, ok := r.stages[userID]
	return st, ok, nil
}

func (r *fakeRegistry) Insert(_ context.Context, userID string, st stage.Stage) bool {
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

func (r *fakeRegistry) Update(_ context.Context, userID string, st stage.Stage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !st.IsValid() {
		return false
	}
	if _, exists := r.stages[userID]; !exists {
		return false
	}
	r.stages[userID] = st
	return true
}

func (r *fakeRegistry) Delete(_ context.Context, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stages[userID]; !exists {
		return false
	}
	delete(r.stages, userID)
	return true
}

func (r *fakeRegistry) Close() error { return nil }

func (r *fakeRegistry) stageOf(userID string) stage.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stages[userID]
}

type fakeStore struct {
	mu   sync.Mutex
	docs map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string][]string)}
}

func (s *fakeStore) Add(_ context.Context, text, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[userID] = append(s.docs[userID], text)
	return nil
}

func (s *fakeStore) Search(_ context.Context, _ string, userID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.docs[userID]
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return append([]string(nil), docs...), nil
}

func (s *fakeStore) AllByUser(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.docs[userID]...), nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) stored(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.docs[userID]...)
}

// harness bundles an engine with one scripted client per reasoning
// service, so each behavior can be steered independently.
type harness struct {
	engine       *engine.Engine
	registry     *fakeRegistry
	store        *fakeStore
	orchestrator *memory.Orchestrator

	gateClient     *llm.Fake
	monitorClient  *llm.Fake
	routerClient   *llm.Fake
	scorerClient   *llm.Fake
	composerClient *llm.Fake
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()

	h := &harness{
		registry:       newFakeRegistry(),
		store:          newFakeStore(),
		gateClient:     &llm.Fake{Response: "0"},
		monitorClient:  &llm.Fake{Response: "0"},
		routerClient:   &llm.Fake{Response: "0"},
		scorerClient:   &llm.Fake{Response: "0"},
		composerClient: &llm.Fake{Chunks: []string{"hello ", "there"}},
	}

	ltm := memory.NewLongTermMemory(h.store, logger)
	h.orchestrator = memory.NewOrchestrator(&llm.Fake{Response: "summary"}, ltm, 20, 4, logger)

	specialistClient := &llm.Fake{Response: "a specialist note"}
	pool := specialist.NewPool([]specialist.Specialist{
		specialist.NewMedical(specialistClient, nil, logger),
		specialist.NewLegacy(specialistClient, nil, logger),
		specialist.NewACP(specialistClient, logger),
		specialist.NewCultural(specialistClient, logger),
	}, logger)

	h.engine = engine.New(engine.Config{
		Sessions:       session.NewStore(logger),
		Registry:       h.registry,
		Memory:         h.orchestrator,
		Gate:           safety.NewGate(h.gateClient, logger),
		Monitor:        stage.NewMonitor(h.monitorClient, logger),
		Scorer:         stage.NewScorer(h.scorerClient, stage.ScorerConfig{Low: 7, High: 18}, logger),
		Router:         specialist.NewRouter(h.routerClient, specialist.Catalog, logger),
		Pool:           pool,
		Composer:       composer.New(h.composerClient, logger),
		SearchLimit:    3,
		ReadinessClues: 10,
		Logger:         logger,
	})
	t.Cleanup(h.engine.Shutdown)
	return h
}

func (h *harness) turn(t *testing.T, sessionID, message string) []string {
	t.Helper()
	var chunks []string
	err := h.engine.Turn(context.Background(), sessionID, message, func(_ context.Context, chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	return chunks
}

func TestEngine_StartSession(t *testing.T) {
	h := newHarness(t)

	sess := h.engine.StartSession(context.Background(), "user-1")
	assert.Equal(t, stage.Setting, sess.Stage)
	assert.Equal(t, stage.Setting, h.registry.stageOf("user-1"))

	got, ok := h.engine.CheckSession(sess.ID)
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID)
}

func TestEngine_StartSessionKnownUser(t *testing.T) {
	h := newHarness(t)
	h.registry.stages["user-1"] = stage.Emotion

	sess := h.engine.StartSession(context.Background(), "user-1")
	assert.Equal(t, stage.Emotion, sess.Stage)
}

func TestEngine_PlainTurn(t *testing.T) {
	h := newHarness(t)
	sess := h.engine.StartSession(context.Background(), "user-1")

	chunks := h.turn(t, sess.ID, "hello")
	assert.Equal(t, []string{"hello ", "there"}, chunks)

	// Stage unchanged, exactly one classification each for gate and
	// the four router branches, one for the monitor.
	got, _ := h.engine.CheckSession(sess.ID)
	assert.Equal(t, stage.Setting, got.Stage)
	assert.Equal(t, 1, h.gateClient.CallCount())
	assert.Equal(t, 1, h.monitorClient.CallCount())
	assert.Equal(t, len(specialist.Catalog), h.routerClient.CallCount())

	// The completed exchange is recorded in the background.
	require.Eventually(t, func() bool {
		return len(h.store.stored("user-1")) == 1
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(h.orchestrator.Recent(sess.ID)) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_SafetyShortCircuit(t *testing.T) {
	h := newHarness(t)
	h.gateClient.Response = "1"
	sess := h.engine.StartSession(context.Background(), "user-1")

	chunks := h.turn(t, sess.ID, "I cannot go on")
	require.Equal(t, []string{safety.Message}, chunks)

	// No monitor, router, or composer call happens on this branch.
	assert.Equal(t, 0, h.monitorClient.CallCount())
	assert.Equal(t, 0, h.routerClient.CallCount())
	assert.Equal(t, 0, h.composerClient.CallCount())

	// The safety message is still recorded as the turn's reply.
	require.Eventually(t, func() bool {
		hist := h.orchestrator.Recent(sess.ID)
		return len(hist) == 2 && hist[1].Content == safety.Message
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_StageAdvance(t *testing.T) {
	h := newHarness(t)
	h.monitorClient.Response = "1"
	sess := h.engine.StartSession(context.Background(), "user-1")

	h.turn(t, sess.ID, "I feel ready to talk about it")

	got, _ := h.engine.CheckSession(sess.ID)
	assert.Equal(t, stage.Perception, got.Stage)

	// The registry is not touched mid-conversation.
	assert.Equal(t, stage.Setting, h.registry.stageOf("user-1"))
}

func TestEngine_TurnUnknownSession(t *testing.T) {
	h := newHarness(t)
	err := h.engine.Turn(context.Background(), "no-such-session", "hi",
		func(context.Context, string) error { return nil })
	assert.ErrorIs(t, err, engine.ErrSessionNotFound)
}

func TestEngine_EndSessionPersistsDivergentStage(t *testing.T) {
	h := newHarness(t)
	h.monitorClient.Response = "1"
	sess := h.engine.StartSession(context.Background(), "user-1")
	h.turn(t, sess.ID, "hello")

	require.NoError(t, h.engine.EndSession(context.Background(), sess.ID))
	h.engine.Shutdown()

	assert.Equal(t, stage.Perception, h.registry.stageOf("user-1"))

	_, ok := h.engine.CheckSession(sess.ID)
	assert.False(t, ok)
}

func TestEngine_EndSessionUnknown(t *testing.T) {
	h := newHarness(t)
	err := h.engine.EndSession(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, engine.ErrSessionNotFound)
}

func TestEngine_AcceptancePromotion(t *testing.T) {
	h := newHarness(t)
	h.registry.stages["user-1"] = stage.Acceptance
	// Seven probes at 2 each aggregate to 14, inside [7, 18).
	h.scorerClient.Response = "2"

	sess := h.engine.StartSession(context.Background(), "user-1")
	require.NoError(t, h.engine.EndSession(context.Background(), sess.ID))
	h.engine.Shutdown()

	assert.Equal(t, stage.Reminiscence, h.registry.stageOf("user-1"))
}

func TestEngine_AcceptanceNotReadyStays(t *testing.T) {
	h := newHarness(t)
	h.registry.stages["user-1"] = stage.Acceptance
	// Sevens aggregate to 49, above the band: no promotion.
	h.scorerClient.Response = "7"

	sess := h.engine.StartSession(context.Background(), "user-1")
	require.NoError(t, h.engine.EndSession(context.Background(), sess.ID))
	h.engine.Shutdown()

	assert.Equal(t, stage.Acceptance, h.registry.stageOf("user-1"))
}
