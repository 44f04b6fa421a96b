package specialist

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pool holds the instantiated specialists and runs consultations.
type Pool struct {
	agents map[ID]Specialist
	logger *zap.Logger
}

// NewPool creates a pool from the given specialists.
func NewPool(agents []Specialist, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	byID := make(map[ID]Specialist, len(agents))
	for _, a := range agents {
		byID[a.ID()] = a
	}
	return &Pool{agents: byID, logger: logger}
}

// Consult runs every selected specialist in parallel and joins their
// notes into one block, in selection order. Failed or empty
// consultations are dropped; unknown ids are skipped.
func (p *Pool) Consult(ctx context.Context, ids []ID, tc TurnContext) string {
	if len(ids) == 0 {
		return ""
	}

	notes := make([]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		agent, ok := p.agents[id]
		if !ok {
			p.logger.Warn("unknown specialist selected", zap.String("specialist", string(id)))
			continue
		}
		g.Go(func() error {
			note, err := agent.Consult(gctx, tc)
			if err != nil {
				p.logger.Warn("specialist consultation failed",
					zap.String("specialist", string(id)),
					zap.Error(err),
				)
				return nil
			}
			notes[i] = note
			return nil
		})
	}
	_ = g.Wait()

	var lines []string
	for i, id := range ids {
		if notes[i] != "" {
			lines = append(lines, fmt.Sprintf("- %s specialist: %s", id.Label(), notes[i]))
		}
	}
	return strings.Join(lines, "\n")
}
