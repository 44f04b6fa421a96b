package vectorstore

import (
	"context"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// Knowledge is a read-mostly domain reference corpus (medical notes,
// legacy-planning material) consulted by specialists. Each corpus
// lives in its own embedded database directory so it can be built and
// shipped independently of user memory.
type Knowledge struct {
	collection *chromem.Collection
	logger     *zap.Logger
}

// NewKnowledge opens (or creates) the corpus stored at path.
func NewKnowledge(path, name string, embedder Embedder, logger *zap.Logger) (*Knowledge, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	expanded, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", expanded, err)
	}

	db, err := chromem.NewPersistentDB(expanded, false)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge base %s: %w", name, err)
	}

	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
	collection, err := db.GetOrCreateCollection(name, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", name, err)
	}

	logger.Info("knowledge base opened",
		zap.String("name", name),
		zap.String("path", expanded),
		zap.Int("documents", collection.Count()),
	)

	return &Knowledge{collection: collection, logger: logger}, nil
}

// AddDocuments inserts reference documents. Used by corpus ingestion
// tooling, not by the turn pipeline.
func (k *Knowledge) AddDocuments(ctx context.Context, texts []string) error {
	docs := make([]chromem.Document, len(texts))
	for i, text := range texts {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("doc_%d_%d", k.collection.Count(), i),
			Content: text,
		}
	}
	if err := k.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

// Search returns up to limit reference texts relevant to query.
func (k *Knowledge) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	count := k.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := k.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge base: %w", err)
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	return texts, nil
}
