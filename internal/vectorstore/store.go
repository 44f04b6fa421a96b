// Package vectorstore provides the user-scoped long-term memory store
// and the domain knowledge bases consulted by specialists.
//
// Two backends are supported: chromem-go (embedded, zero external
// dependencies, the default) and Qdrant (external server). Both store
// plain text records keyed by owner; vectors are derived through the
// configured embedder and never mutated by callers.
package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates the embedder rejected the input.
	ErrEmbeddingFailed = errors.New("embedding failed")
)

// Embedder generates embeddings for text content.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the per-user long-term memory capability.
type Store interface {
	// Add stores one text record owned by userID.
	Add(ctx context.Context, text, userID string) error

	// Search returns up to limit records owned by userID, most
	// relevant to query first.
	Search(ctx context.Context, query, userID string, limit int) ([]string, error)

	// AllByUser returns every record owned by userID.
	AllByUser(ctx context.Context, userID string) ([]string, error)

	Close() error
}
