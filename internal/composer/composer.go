// Package composer produces the streamed counselor reply for a turn.
package composer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/prompt"
)

// ErrorChunk is the only failure artifact ever streamed to a client.
// Internal causes stay in the logs.
const ErrorChunk = "\n[ERROR] The connection is not stable right now. Please try again in a moment."

// Input carries everything the composition prompt needs for one turn.
type Input struct {
	// Stage is the user's current counseling stage name. Unknown
	// names fall back to the default instruction.
	Stage           string
	SpecialistBlock string
	UserInfo        string
	History         string
	Query           string
}

// Composer streams completions from the counselor model.
type Composer struct {
	client llm.Client
	logger *zap.Logger
}

// New creates a composer.
func New(client llm.Client, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{client: client, logger: logger}
}

// Stream generates the reply, forwarding each chunk to emit as it
// arrives, and returns the full accumulated reply. On failure the
// fixed error chunk is emitted and becomes part of the returned text,
// so the recorded assistant message matches what the client saw.
func (c *Composer) Stream(ctx context.Context, in Input, emit llm.StreamFunc) string {
	instruction := prompt.StageInstruction(in.Stage)
	msgs := prompt.Composer(instruction, in.SpecialistBlock, in.UserInfo, in.History, in.Query)

	var reply strings.Builder
	err := c.client.StreamComplete(ctx, msgs, func(ctx context.Context, chunk string) error {
		if chunk == "" {
			return nil
		}
		reply.WriteString(chunk)
		return emit(ctx, chunk)
	})
	if err != nil {
		c.logger.Error("composition stream failed", zap.Error(err))
		reply.WriteString(ErrorChunk)
		_ = emit(ctx, ErrorChunk)
	}
	return reply.String()
}
