package embeddings_test

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/eirene/internal/embeddings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  embeddings.Config
		wantErr bool
	}{
		{
			name:   "valid",
			config: embeddings.Config{BaseURL: "http://localhost:8080/v1", Model: "BAAI/bge-small-en-v1.5"},
		},
		{
			name:    "missing base URL",
			config:  embeddings.Config{Model: "text-embedding-3-small"},
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  embeddings.Config{BaseURL: "https://api.openai.com/v1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, embeddings.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewService_InvalidConfig(t *testing.T) {
	_, err := embeddings.NewService(embeddings.Config{})
	assert.ErrorIs(t, err, embeddings.ErrInvalidConfig)
}

func TestService_EmptyInput(t *testing.T) {
	service, err := embeddings.NewService(embeddings.Config{
		BaseURL: "http://localhost:8080/v1",
		Model:   "BAAI/bge-small-en-v1.5",
	})
	require.NoError(t, err)

	_, err = service.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, embeddings.ErrEmptyInput)

	_, err = service.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, embeddings.ErrEmptyInput)
}
