package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("eirene.vectorstore.chromem")

// allByUserProbe is the query text used when listing a user's records;
// chromem has no unranked listing API, so listing is a ranked query
// over the user's whole collection.
const allByUserProbe = "the client's life, memories, and inner state"

// ChromemConfig holds configuration for the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool
}

// Validate validates the configuration.
func (c ChromemConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: path required", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store using chromem-go with one collection
// per user. Collection-per-user keeps ownership isolation structural
// rather than filter-based.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	logger   *zap.Logger
}

// NewChromemStore creates a persistent embedded store.
func NewChromemStore(cfg ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	path, err := expandPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	logger.Info("chromem store initialized",
		zap.String("path", path),
		zap.Bool("compress", cfg.Compress),
	)

	return &ChromemStore{db: db, embedder: embedder, logger: logger}, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// userCollection sanitizes a user ID into a collection name.
func userCollection(userID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, userID)
	return "user_" + sanitized
}

// Add stores one text record owned by userID.
func (s *ChromemStore) Add(ctx context.Context, text, userID string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Add")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text cannot be empty", ErrInvalidConfig)
	}

	collection, err := s.db.GetOrCreateCollection(userCollection(userID), nil, s.embeddingFunc())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("getting collection for %s: %w", userID, err)
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	doc := chromem.Document{
		ID:        uuid.New().String(),
		Content:   text,
		Metadata:  map[string]string{"user_id": userID},
		Embedding: embeddings[0],
	}

	if err := collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding document: %w", err)
	}

	s.logger.Debug("added long-term record",
		zap.String("user_id", userID),
		zap.Int("length", len(text)),
	)
	return nil
}

// Search returns up to limit records owned by userID, most relevant
// first.
func (s *ChromemStore) Search(ctx context.Context, query, userID string, limit int) ([]string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	collection := s.db.GetCollection(userCollection(userID), s.embeddingFunc())
	if collection == nil {
		return nil, nil
	}

	// chromem requires nResults <= document count.
	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	span.SetAttributes(attribute.Int("results", len(texts)))
	return texts, nil
}

// AllByUser returns every record owned by userID.
func (s *ChromemStore) AllByUser(ctx context.Context, userID string) ([]string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.AllByUser")
	defer span.End()

	collection := s.db.GetCollection(userCollection(userID), s.embeddingFunc())
	if collection == nil {
		return nil, nil
	}

	count := collection.Count()
	if count == 0 {
		return nil, nil
	}

	results, err := collection.Query(ctx, allByUserProbe, count, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("listing collection: %w", err)
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	return texts, nil
}

// Close releases the store. chromem persists on write, so this is a
// no-op kept for interface symmetry with the Qdrant backend.
func (s *ChromemStore) Close() error {
	return nil
}
