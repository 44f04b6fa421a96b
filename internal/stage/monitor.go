package stage

import (
	"context"

	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/prompt"
	"go.uber.org/zap"
)

// Monitor decides per-turn stage advancement.
type Monitor struct {
	client llm.Client
	logger *zap.Logger
}

// NewMonitor creates a stage monitor.
func NewMonitor(client llm.Client, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{client: client, logger: logger}
}

// ShouldAdvance reports whether the client is ready for the next stage.
//
// Acceptance and Reminiscence never advance through the per-turn
// classifier; the acceptance-to-reminiscence transition is gated by the
// readiness scorer on session end, and Reminiscence is terminal. For
// the remaining stages one binary classification call is issued; any
// call failure degrades to false.
func (m *Monitor) ShouldAdvance(ctx context.Context, message, history string, current Stage) bool {
	if current == Acceptance || current == Reminiscence {
		return false
	}

	raw, err := m.client.Complete(ctx, prompt.Monitor(current.String(), history, message))
	if err != nil {
		m.logger.Error("stage advancement check failed",
			zap.String("stage", current.String()),
			zap.Error(err),
		)
		return false
	}

	return llm.ExtractOption(raw, 0, 1, 0) == 1
}
