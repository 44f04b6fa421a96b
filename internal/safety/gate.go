// Package safety implements the risk short-circuit that can preempt
// normal turn routing.
package safety

import (
	"context"

	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/prompt"
	"go.uber.org/zap"
)

// Message is the fixed response surfaced when the gate triggers. It is
// the entire turn output for that branch; no specialist or composer
// text is produced.
const Message = "This sounds like a very difficult moment. Please reach out to a professional right away. You can contact your counselor or a crisis line immediately."

// Gate classifies a turn for acute risk.
type Gate struct {
	client llm.Client
	logger *zap.Logger
}

// NewGate creates a safety gate.
func NewGate(client llm.Client, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{client: client, logger: logger}
}

// Check issues exactly one risk classification call. Any call failure
// fails open to false: risk detection must never itself break the turn.
func (g *Gate) Check(ctx context.Context, message, history string) bool {
	raw, err := g.client.Complete(ctx, prompt.Escalation(message, history))
	if err != nil {
		g.logger.Error("safety classification failed", zap.Error(err))
		return false
	}
	return llm.ExtractOption(raw, 0, 1, 0) == 1
}
