// Package engine runs the turn pipeline: memory context, safety gate,
// stage monitoring, specialist routing, and response composition.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/composer"
	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/logging"
	"github.com/fyrsmithlabs/eirene/internal/memory"
	"github.com/fyrsmithlabs/eirene/internal/prompt"
	"github.com/fyrsmithlabs/eirene/internal/registry"
	"github.com/fyrsmithlabs/eirene/internal/safety"
	"github.com/fyrsmithlabs/eirene/internal/session"
	"github.com/fyrsmithlabs/eirene/internal/specialist"
	"github.com/fyrsmithlabs/eirene/internal/stage"
)

var tracer = otel.Tracer("eirene.engine")

// ErrSessionNotFound signals an unknown session id. The transport
// layer maps it to a not-found response.
var ErrSessionNotFound = errors.New("session not found")

// Config wires the engine's collaborators.
type Config struct {
	Sessions *session.Store
	Registry registry.Registry
	Memory   *memory.Orchestrator
	Gate     *safety.Gate
	Monitor  *stage.Monitor
	Scorer   *stage.Scorer
	Router   *specialist.Router
	Pool     *specialist.Pool
	Composer *composer.Composer

	// SearchLimit is k for per-turn long-term retrieval.
	SearchLimit int
	// ReadinessClues is k for the end-of-session readiness battery.
	ReadinessClues int

	Logger *zap.Logger
}

// Engine is the produced interface toward the transport layer.
type Engine struct {
	cfg    Config
	logger *zap.Logger

	background sync.WaitGroup
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// StartSession begins a session for the user. The registry is the
// source of truth for the user's stage; a user without one starts at
// SETTING, which is persisted before the session is handed out. A
// registry failure degrades to SETTING for this session.
func (e *Engine) StartSession(ctx context.Context, userID string) session.Session {
	ctx, span := tracer.Start(ctx, "engine.start_session")
	defer span.End()

	st, ok, err := e.cfg.Registry.Get(ctx, userID)
	if err != nil {
		e.logger.Warn("stage registry lookup failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		ok = false
	}
	if !ok {
		st = stage.Setting
		if !e.cfg.Registry.Insert(ctx, userID, st) {
			e.logger.Warn("stage registry insert rejected", zap.String("user_id", userID))
		}
	}

	sess := e.cfg.Sessions.Create(userID, st)
	e.cfg.Memory.AddSession(sess.ID)

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("stage", st.String()),
	)
	e.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("user_id", userID),
		zap.String("stage", st.String()),
	)
	return sess
}

// CheckSession reports whether the session exists and returns it.
func (e *Engine) CheckSession(sessionID string) (session.Session, bool) {
	return e.cfg.Sessions.Get(sessionID)
}

// Turn processes one user message, forwarding response chunks to emit
// as they are produced. After the stream is exhausted the completed
// exchange is recorded into memory in the background.
//
// Returns ErrSessionNotFound for an unknown session; every other
// failure mode degrades inside the pipeline and still yields a
// response.
func (e *Engine) Turn(ctx context.Context, sessionID, message string, emit llm.StreamFunc) error {
	ctx, span := tracer.Start(ctx, "engine.turn")
	defer span.End()

	sess, ok := e.cfg.Sessions.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	message = strings.TrimSpace(message)

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("stage", sess.Stage.String()),
	)
	e.logger.Debug("turn received",
		zap.String("session_id", sessionID),
		zap.String("stage", sess.Stage.String()),
		zap.String("message", logging.Trim(message, 30)),
	)

	userInfo := formatMemories(e.cfg.Memory.RelevantLongTerm(ctx, sess.UserID, message, e.cfg.SearchLimit))
	history := memory.FormatHistory(e.cfg.Memory.Recent(sessionID))

	var reply string
	if e.cfg.Gate.Check(ctx, message, history) {
		// Terminal branch: no routing, no stage evaluation, only the
		// fixed safety message.
		e.logger.Info("safety gate triggered",
			zap.String("session_id", sessionID),
			zap.String("user_id", sess.UserID),
		)
		span.SetAttributes(attribute.Bool("safety_triggered", true))
		reply = safety.Message
		if err := emit(ctx, reply); err != nil {
			e.logger.Warn("safety message delivery failed", zap.Error(err))
		}
	} else {
		if e.cfg.Monitor.ShouldAdvance(ctx, message, history, sess.Stage) {
			next := stage.Next(sess.Stage)
			if next != sess.Stage {
				e.cfg.Sessions.SetStage(sessionID, next)
				e.logger.Info("stage advanced",
					zap.String("session_id", sessionID),
					zap.String("user_id", sess.UserID),
					zap.String("from", sess.Stage.String()),
					zap.String("to", next.String()),
				)
				sess.Stage = next
			}
		}

		selected := e.cfg.Router.Classify(ctx, message, history)
		block := e.cfg.Pool.Consult(ctx, selected, specialist.TurnContext{
			Query:    message,
			History:  history,
			UserInfo: userInfo,
		})

		reply = e.cfg.Composer.Stream(ctx, composer.Input{
			Stage:           sess.Stage.String(),
			SpecialistBlock: block,
			UserInfo:        userInfo,
			History:         history,
			Query:           message,
		}, emit)
	}

	e.logger.Debug("turn completed",
		zap.String("session_id", sessionID),
		zap.String("reply", logging.Trim(reply, 80)),
	)

	// Record strictly after stream exhaustion so memory sees the
	// complete reply, without delaying the response path.
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		e.cfg.Memory.RecordTurn(context.WithoutCancel(ctx), sessionID, sess.UserID, message, reply)
	}()
	return nil
}

// EndSession discards the session, flushes its short-term memory, and
// reconciles the user's persisted stage in the background.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "engine.end_session")
	defer span.End()

	sess, ok := e.cfg.Sessions.Remove(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	e.background.Add(1)
	go func() {
		defer e.background.Done()
		e.reconcileStage(context.WithoutCancel(ctx), sess.UserID, sess.Stage)
	}()

	// Blocks until any in-flight summarization has applied.
	e.cfg.Memory.RemoveSession(sessionID)

	e.logger.Info("session ended",
		zap.String("session_id", sessionID),
		zap.String("user_id", sess.UserID),
	)
	return nil
}

// reconcileStage persists the session's final stage. In ACCEPTANCE the
// readiness battery runs over long-term clues and can promote the user
// to REMINISCENCE; a promotion wins over plain divergence persistence.
func (e *Engine) reconcileStage(ctx context.Context, userID string, final stage.Stage) {
	ctx, span := tracer.Start(ctx, "engine.reconcile_stage")
	defer span.End()

	previous, ok, err := e.cfg.Registry.Get(ctx, userID)
	if err != nil {
		e.logger.Warn("stage registry lookup failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		ok = false
	}

	if final == stage.Acceptance {
		clues := e.cfg.Memory.RelevantLongTerm(ctx, userID, prompt.ReadinessQuery, e.cfg.ReadinessClues)
		ready, score := e.cfg.Scorer.Assess(ctx, strings.Join(clues, "\n"))
		span.SetAttributes(attribute.Int("readiness_score", score))
		if ready {
			if e.cfg.Registry.Update(ctx, userID, stage.Reminiscence) {
				e.logger.Info("user promoted to reminiscence",
					zap.String("user_id", userID),
					zap.Int("score", score),
				)
			}
			return
		}
		e.logger.Debug("readiness battery did not admit promotion",
			zap.String("user_id", userID),
			zap.Int("score", score),
		)
	}

	if !ok || previous != final {
		if !e.cfg.Registry.Update(ctx, userID, final) {
			e.logger.Warn("stage registry update rejected",
				zap.String("user_id", userID),
				zap.String("stage", final.String()),
			)
		}
	}
}

// Shutdown waits for background recording and reconciliation work and
// drains every session's short-term memory.
func (e *Engine) Shutdown() {
	e.background.Wait()
	e.cfg.Memory.Shutdown()
}

func formatMemories(memories []string) string {
	if len(memories) == 0 {
		return ""
	}
	lines := make([]string, len(memories))
	for i, m := range memories {
		lines[i] = "- " + m
	}
	return strings.Join(lines, "\n")
}
