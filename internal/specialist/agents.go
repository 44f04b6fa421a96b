package specialist

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/prompt"
)

// Retriever supplies reference material for knowledge-backed agents.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Agent is one specialist built on a completion client and an
// optional knowledge retriever.
type Agent struct {
	id        ID
	client    llm.Client
	retriever Retriever
	k         int
	logger    *zap.Logger
}

// NewMedical creates the geriatric health specialist. retriever may be
// nil when no medical corpus is configured.
func NewMedical(client llm.Client, retriever Retriever, logger *zap.Logger) *Agent {
	return newAgent(Medical, client, retriever, 4, logger)
}

// NewLegacy creates the legacy-planning specialist.
func NewLegacy(client llm.Client, retriever Retriever, logger *zap.Logger) *Agent {
	return newAgent(Legacy, client, retriever, 1, logger)
}

// NewACP creates the advance-care-planning specialist.
func NewACP(client llm.Client, logger *zap.Logger) *Agent {
	return newAgent(ACP, client, nil, 0, logger)
}

// NewCultural creates the cultural specialist.
func NewCultural(client llm.Client, logger *zap.Logger) *Agent {
	return newAgent(Cultural, client, nil, 0, logger)
}

func newAgent(id ID, client llm.Client, retriever Retriever, k int, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{id: id, client: client, retriever: retriever, k: k, logger: logger}
}

// ID implements Specialist.
func (a *Agent) ID() ID { return a.id }

// Consult implements Specialist. A retrieval failure degrades to an
// empty reference block; the consultation still runs.
func (a *Agent) Consult(ctx context.Context, tc TurnContext) (string, error) {
	reference := ""
	if a.retriever != nil {
		docs, err := a.retriever.Search(ctx, tc.Query, a.k)
		if err != nil {
			a.logger.Warn("specialist retrieval failed",
				zap.String("specialist", string(a.id)),
				zap.Error(err),
			)
		} else {
			reference = strings.Join(docs, "\n")
		}
	}

	msgs := prompt.Specialist(string(a.id), reference, tc.UserInfo, tc.History, tc.Query)
	resp, err := a.client.Complete(ctx, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}
