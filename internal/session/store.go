// Package session holds the in-memory store of active chat sessions.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/stage"
)

// Session is one active conversation. The stage field tracks the
// user's counseling stage for in-progress-turn decisions; the
// persisted registry stays the source of truth across sessions.
type Session struct {
	ID        string
	UserID    string
	Stage     stage.Stage
	CreatedAt time.Time
}

// Store owns session lifecycle. All methods are safe for concurrent
// use; Get returns a snapshot, so callers never share mutable state.
type Store struct {
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session for the user and returns it.
func (s *Store) Create(userID string, st stage.Stage) Session {
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Stage:     st,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("session created",
		zap.String("session_id", sess.ID),
		zap.String("user_id", userID),
		zap.String("stage", st.String()),
	)
	return *sess
}

// Get returns a snapshot of the session, if it exists.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// SetStage updates the session's stage. Returns false if the session
// does not exist.
func (s *Store) SetStage(id string, st stage.Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	sess.Stage = st
	return true
}

// Remove deletes the session and returns its final snapshot.
func (s *Store) Remove(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	delete(s.sessions, id)
	return *sess, true
}

// Len reports how many sessions are active.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
