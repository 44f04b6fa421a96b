// Package llm defines the language model boundary for eirened.
//
// Every reasoning service in the pipeline (routing, safety, stage
// monitoring, specialists, composition, summarization) consumes the
// Client interface. Implementations are expected to fail with plain
// errors; callers degrade to their documented neutral defaults and
// never propagate a model failure past their own boundary.
package llm

import (
	"context"
	"unicode"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message sent to a model.
type Message struct {
	Role    Role
	Content string
}

// StreamFunc receives one chunk of a streamed completion. Returning an
// error aborts the stream.
type StreamFunc func(ctx context.Context, chunk string) error

// Client is the completion capability consumed by the core.
type Client interface {
	// Complete issues one completion call and returns the full text.
	Complete(ctx context.Context, msgs []Message) (string, error)

	// StreamComplete issues one streaming completion call, invoking fn
	// for each chunk as it arrives. The sequence is finite and not
	// restartable.
	StreamComplete(ctx context.Context, msgs []Message, fn StreamFunc) error
}

// ExtractOption extracts the first digit of raw and returns it if it
// lies in [min, max]. Otherwise def is returned. Classifier prompts
// constrain answers to a single digit, but models pad with prose often
// enough that strict parsing would discard usable answers.
//
// max must be a single digit.
func ExtractOption(raw string, min, max, def int) int {
	for _, r := range raw {
		if unicode.IsDigit(r) {
			n := int(r - '0')
			if n >= min && n <= max {
				return n
			}
			return def
		}
	}
	return def
}
