package memory

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/vectorstore"
)

// LongTermMemory stores durable facts about a client in a vector
// store. Lookups degrade to "no memory" on failure; callers never see
// a retrieval error.
type LongTermMemory struct {
	store  vectorstore.Store
	logger *zap.Logger
}

// NewLongTermMemory wraps a vector store.
func NewLongTermMemory(store vectorstore.Store, logger *zap.Logger) *LongTermMemory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LongTermMemory{store: store, logger: logger}
}

// Record persists one memory for the user.
func (l *LongTermMemory) Record(ctx context.Context, userID, text string) error {
	return l.store.Add(ctx, text, userID)
}

// Search returns up to limit memories relevant to query. Failures are
// logged and return nil.
func (l *LongTermMemory) Search(ctx context.Context, userID, query string, limit int) []string {
	results, err := l.store.Search(ctx, query, userID, limit)
	if err != nil {
		l.logger.Warn("long-term memory search failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	return results
}

// All returns every stored memory for the user. Failures are logged
// and return nil.
func (l *LongTermMemory) All(ctx context.Context, userID string) []string {
	results, err := l.store.AllByUser(ctx, userID)
	if err != nil {
		l.logger.Warn("long-term memory listing failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	return results
}
