package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/llm"
)

// Orchestrator owns the short-term buffers of every active session and
// fronts the shared long-term store. Short-term state is keyed by
// session, long-term state by user. It is safe for concurrent use by
// the request path and the cleanup path.
type Orchestrator struct {
	client  llm.Client
	ltm     *LongTermMemory
	limit   int
	reserve int
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*ShortTermMemory

	forwards sync.WaitGroup
}

// NewOrchestrator creates an orchestrator. client is used for
// background summarization; limit and reserve configure each session's
// short-term buffer.
func NewOrchestrator(client llm.Client, ltm *LongTermMemory, limit, reserve int, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		client:   client,
		ltm:      ltm,
		limit:    limit,
		reserve:  reserve,
		logger:   logger,
		sessions: make(map[string]*ShortTermMemory),
	}
}

// AddSession ensures a short-term buffer exists for the session.
func (o *Orchestrator) AddSession(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.sessions[sessionID]; !ok {
		o.sessions[sessionID] = NewShortTermMemory(sessionID, o.client, o.limit, o.reserve, o.logger)
	}
}

// RemoveSession discards the session's short-term buffer. It blocks
// until any in-flight summarization for that buffer has finished, so
// no writes happen after the session is gone.
func (o *Orchestrator) RemoveSession(sessionID string) {
	o.mu.Lock()
	stm, ok := o.sessions[sessionID]
	delete(o.sessions, sessionID)
	o.mu.Unlock()

	if ok {
		stm.Shutdown()
	}
}

func (o *Orchestrator) shortTerm(sessionID string) *ShortTermMemory {
	o.mu.RLock()
	stm, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if ok {
		return stm
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if stm, ok := o.sessions[sessionID]; ok {
		return stm
	}
	o.logger.Debug("initializing short-term memory on demand", zap.String("session_id", sessionID))
	stm = NewShortTermMemory(sessionID, o.client, o.limit, o.reserve, o.logger)
	o.sessions[sessionID] = stm
	return stm
}

// RecordTurn appends a completed user/assistant exchange to the
// session's short-term buffer and forwards the user's message to the
// user's long-term memory in the background. The buffer is created on
// demand if the session was never registered.
func (o *Orchestrator) RecordTurn(ctx context.Context, sessionID, userID, userMsg, aiMsg string) {
	stm := o.shortTerm(sessionID)
	stm.AddUserMessage(userMsg)
	stm.AddAssistantMessage(aiMsg)

	o.forwards.Add(1)
	go func() {
		defer o.forwards.Done()
		if err := o.ltm.Record(context.WithoutCancel(ctx), userID, userMsg); err != nil {
			o.logger.Warn("long-term memory record failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}()
}

// Recent returns the session's buffered history, summary first.
func (o *Orchestrator) Recent(sessionID string) []Message {
	o.mu.RLock()
	stm, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return nil
	}
	return stm.History()
}

// RelevantLongTerm returns long-term memories relevant to query.
func (o *Orchestrator) RelevantLongTerm(ctx context.Context, userID, query string, limit int) []string {
	return o.ltm.Search(ctx, userID, query, limit)
}

// AllLongTerm returns every long-term memory stored for the user.
func (o *Orchestrator) AllLongTerm(ctx context.Context, userID string) []string {
	return o.ltm.All(ctx, userID)
}

// Shutdown drains every session buffer and waits for background
// long-term forwards to finish.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	sessions := o.sessions
	o.sessions = make(map[string]*ShortTermMemory)
	o.mu.Unlock()

	for _, stm := range sessions {
		stm.Shutdown()
	}
	o.forwards.Wait()
}
