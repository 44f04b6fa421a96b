package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOption(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		min, max int
		def      int
		want     int
	}{
		{"bare digit", "1", 0, 1, 0, 1},
		{"digit with prose", "Answer: 1 (relevant)", 0, 1, 0, 1},
		{"leading prose", "The score is 5.", 1, 7, 0, 5},
		{"out of range", "9", 1, 7, 0, 0},
		{"no digit", "none", 0, 1, 0, 0},
		{"empty", "", 1, 7, 0, 0},
		{"first digit wins", "3 or maybe 7", 1, 7, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractOption(tt.raw, tt.min, tt.max, tt.def)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFakeComplete(t *testing.T) {
	fake := &Fake{Responses: []string{"first", "second"}, Response: "fallback"}

	ctx := context.Background()
	msgs := []Message{{Role: RoleUser, Content: "hi"}}

	got, err := fake.Complete(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = fake.Complete(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	got, err = fake.Complete(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	assert.Equal(t, 3, fake.CallCount())
}

func TestFakeCompleteError(t *testing.T) {
	fake := &Fake{Err: errors.New("boom")}
	_, err := fake.Complete(context.Background(), nil)
	require.Error(t, err)
}

func TestFakeStream(t *testing.T) {
	fake := &Fake{Chunks: []string{"a", "b", "c"}}

	var got []string
	err := fake.StreamComplete(context.Background(), nil, func(_ context.Context, chunk string) error {
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestFakeStreamFailsBeforeFirstChunk(t *testing.T) {
	fake := &Fake{Chunks: []string{"never"}, StreamErr: errors.New("down")}

	var got []string
	err := fake.StreamComplete(context.Background(), nil, func(_ context.Context, chunk string) error {
		got = append(got, chunk)
		return nil
	})
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := NewOpenAIClient(Config{})
	require.Error(t, err)

	_, err = NewOpenAIClient(Config{BaseURL: "http://localhost:1234/v1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model required")
}
