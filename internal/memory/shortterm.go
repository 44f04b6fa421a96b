package memory

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/prompt"
)

// ShortTermMemory is the rolling message buffer for one active
// conversation. Appends never block on summarization: when the buffer
// reaches its limit, a snapshot is handed to a background worker, the
// completion call runs outside the lock, and the summarized prefix is
// pruned atomically afterwards.
//
// Invariants:
//   - at most one summarization job is in flight per buffer
//   - at most one summary message exists, covering only pruned history
//   - readers observe the pre-prune or post-prune state, never a mix
type ShortTermMemory struct {
	sessionID string
	client    llm.Client
	logger    *zap.Logger
	limit     int
	reserve   int

	mu       sync.Mutex
	messages []Message
	summary  string
	length   int
	inFlight bool
	closed   bool

	jobs chan summaryJob
	wg   sync.WaitGroup
}

type summaryJob struct {
	snapshot []Message
	prior    string
}

// NewShortTermMemory creates a buffer and starts its worker. The
// worker lives until Shutdown. limit is the buffer size that triggers
// summarization; reserve is how many trailing messages are always kept
// verbatim.
func NewShortTermMemory(sessionID string, client llm.Client, limit, reserve int, logger *zap.Logger) *ShortTermMemory {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &ShortTermMemory{
		sessionID: sessionID,
		client:    client,
		logger:    logger,
		limit:     limit,
		reserve:   reserve,
		jobs:      make(chan summaryJob, 1),
	}
	m.wg.Add(1)
	go m.worker()
	return m
}

// AddUserMessage appends a user message to the buffer.
func (m *ShortTermMemory) AddUserMessage(text string) {
	m.append(Message{Role: RoleUser, Content: text}, false)
}

// AddAssistantMessage appends an assistant message. Crossing the
// buffer limit on an assistant append is what schedules summarization.
func (m *ShortTermMemory) AddAssistantMessage(text string) {
	m.append(Message{Role: RoleAssistant, Content: text}, true)
}

func (m *ShortTermMemory) append(msg Message, checkLimit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.messages = append(m.messages, msg)
	m.length++

	if !checkLimit || m.length < m.limit || m.inFlight {
		return
	}

	snapshot := make([]Message, len(m.messages))
	copy(snapshot, m.messages)

	// The in-flight flag keeps the channel empty here, so this send
	// cannot block while holding the lock.
	m.inFlight = true
	m.jobs <- summaryJob{snapshot: snapshot, prior: m.summary}
}

// History returns the summary message (if any) followed by the live
// buffer.
func (m *ShortTermMemory) History() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, 0, len(m.messages)+1)
	if m.summary != "" {
		out = append(out, Message{Role: RoleSummary, Content: m.summary})
	}
	out = append(out, m.messages...)
	return out
}

// Shutdown stops accepting appends, drains any pending job, and waits
// for the worker to exit. After it returns no summarization writes can
// occur.
func (m *ShortTermMemory) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	close(m.jobs)
	m.wg.Wait()
}

func (m *ShortTermMemory) worker() {
	defer m.wg.Done()
	for job := range m.jobs {
		m.summarize(job)
	}
}

func (m *ShortTermMemory) summarize(job summaryJob) {
	if len(job.snapshot) <= m.reserve {
		m.clearInFlight()
		return
	}
	prefix := job.snapshot[:len(job.snapshot)-m.reserve]

	excerpt := FormatHistory(prefix)
	if job.prior != "" {
		excerpt = "summary of earlier conversation: " + job.prior + "\n" + excerpt
	}

	// Completion runs outside the lock so appends are never blocked
	// by the model call.
	text, err := m.client.Complete(context.Background(), prompt.Summarize(excerpt))

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.logger.Warn("short-term summarization failed",
			zap.String("session_id", m.sessionID),
			zap.Error(err),
		)
		m.inFlight = false
		return
	}

	// Prune from the live buffer, which may have grown past the
	// snapshot while the call was running.
	drop := len(prefix)
	if drop > len(m.messages) {
		drop = len(m.messages)
	}
	m.messages = append([]Message(nil), m.messages[drop:]...)
	m.summary = strings.TrimSpace(text)
	m.length = len(m.messages)
	m.inFlight = false

	m.logger.Debug("short-term buffer summarized",
		zap.String("session_id", m.sessionID),
		zap.Int("pruned", drop),
		zap.Int("retained", len(m.messages)),
	)
}

func (m *ShortTermMemory) clearInFlight() {
	m.mu.Lock()
	m.inFlight = false
	m.mu.Unlock()
}
