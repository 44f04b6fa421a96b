package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var qdrantTracer = otel.Tracer("eirene.vectorstore.qdrant")

// scrollLimit bounds how many records AllByUser returns. A single
// user's extracted facts stay far below this in practice.
const scrollLimit = 4096

// QdrantConfig holds configuration for the external Qdrant store.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	VectorSize int
	UseTLS     bool
	APIKey     string
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "eirene_ltm"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 1536
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// QdrantStore implements Store against a Qdrant server. Records share
// one collection; ownership is a payload filter on user_id.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	logger   *zap.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// NewQdrantStore creates a Qdrant-backed store.
func NewQdrantStore(cfg QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	logger.Info("qdrant store initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("collection", cfg.Collection),
	)

	return &QdrantStore{client: client, embedder: embedder, config: cfg, logger: logger}, nil
}

// ensureCollection creates the collection on first use.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		exists, err := s.client.CollectionExists(ctx, s.config.Collection)
		if err != nil {
			s.ensureErr = fmt.Errorf("checking collection: %w", err)
			return
		}
		if exists {
			return
		}
		s.ensureErr = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.config.VectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	return s.ensureErr
}

func userFilter(userID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "user_id",
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: userID},
						},
					},
				},
			},
		},
	}
}

// Add stores one text record owned by userID.
func (s *QdrantStore) Add(ctx context.Context, text, userID string) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Add")
	defer span.End()

	if err := s.ensureCollection(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(uuid.New().String()),
		Vectors: qdrant.NewVectors(embeddings[0]...),
		Payload: map[string]*qdrant.Value{
			"content": {Kind: &qdrant.Value_StringValue{StringValue: text}},
			"user_id": {Kind: &qdrant.Value_StringValue{StringValue: userID}},
		},
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.config.Collection,
		Points:         []*qdrant.PointStruct{point},
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting point: %w", err)
	}

	s.logger.Debug("added long-term record",
		zap.String("user_id", userID),
		zap.Int("length", len(text)),
	)
	return nil
}

// Search returns up to limit records owned by userID, most relevant
// first.
func (s *QdrantStore) Search(ctx context.Context, query, userID string, limit int) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	if err := s.ensureCollection(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.Collection,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         userFilter(userID),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying qdrant: %w", err)
	}

	texts := make([]string, 0, len(results))
	for _, point := range results {
		if content, ok := payloadString(point.Payload, "content"); ok {
			texts = append(texts, content)
		}
	}
	span.SetAttributes(attribute.Int("results", len(texts)))
	return texts, nil
}

// AllByUser returns every record owned by userID via Scroll.
func (s *QdrantStore) AllByUser(ctx context.Context, userID string) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.AllByUser")
	defer span.End()

	if err := s.ensureCollection(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.config.Collection,
		Filter:         userFilter(userID),
		Limit:          qdrant.PtrOf(uint32(scrollLimit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scrolling qdrant: %w", err)
	}

	texts := make([]string, 0, len(points))
	for _, point := range points {
		if content, ok := payloadString(point.Payload, "content"); ok {
			texts = append(texts, content)
		}
	}
	return texts, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func payloadString(payload map[string]*qdrant.Value, key string) (string, bool) {
	if payload == nil {
		return "", false
	}
	value, ok := payload[key]
	if !ok {
		return "", false
	}
	str, ok := value.Kind.(*qdrant.Value_StringValue)
	if !ok {
		return "", false
	}
	return str.StringValue, true
}
