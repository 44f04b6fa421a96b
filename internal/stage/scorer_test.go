package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/stretchr/testify/assert"
)

func testScorer(fake *llm.Fake) *Scorer {
	return NewScorer(fake, ScorerConfig{Low: 7, High: 18}, nil)
}

func TestAssessAllMaxScores(t *testing.T) {
	fake := &llm.Fake{Response: "7"}
	s := testScorer(fake)

	ready, aggregate := s.Assess(context.Background(), "client info")

	assert.Equal(t, 49, aggregate)
	assert.False(t, ready, "49 is above the band")
	assert.Equal(t, 7, fake.CallCount())
}

func TestAssessAllAbstain(t *testing.T) {
	fake := &llm.Fake{Err: errors.New("model down")}
	s := testScorer(fake)

	ready, aggregate := s.Assess(context.Background(), "client info")

	assert.Equal(t, Indeterminate, aggregate)
	assert.False(t, ready)
}

func TestAssessInsideBand(t *testing.T) {
	fake := &llm.Fake{Response: "2"}
	s := testScorer(fake)

	ready, aggregate := s.Assess(context.Background(), "client info")

	assert.Equal(t, 14, aggregate)
	assert.True(t, ready)
}

func TestAssessBelowBand(t *testing.T) {
	// All ones: aggregate 7 sits exactly on the low bound (inclusive).
	fake := &llm.Fake{Response: "1"}
	ready, aggregate := testScorer(fake).Assess(context.Background(), "info")
	assert.Equal(t, 7, aggregate)
	assert.True(t, ready)
}

func TestAssessHighBoundExcluded(t *testing.T) {
	// Scores alternate so the aggregate lands on 18, which the
	// half-open band excludes: [3,2,3,2,3,2,3] -> sum 18, aggregate 18.
	fake := &llm.Fake{Responses: []string{"3", "2", "3", "2", "3", "2", "3"}}
	ready, aggregate := testScorer(fake).Assess(context.Background(), "info")
	assert.Equal(t, 18, aggregate)
	assert.False(t, ready)
}

func TestAssessPartialAbstention(t *testing.T) {
	// Three probes abstain; the four answered fours scale back up:
	// round(16 * 7 / 4) = 28.
	fake := &llm.Fake{Responses: []string{"4", "no idea", "4", "zzz", "4", "nope", "4"}}
	ready, aggregate := testScorer(fake).Assess(context.Background(), "info")
	assert.Equal(t, 28, aggregate)
	assert.False(t, ready)
}

func TestAggregateScores(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   int
	}{
		{"all sevens", []int{7, 7, 7, 7, 7, 7, 7}, 49},
		{"all abstain", []int{0, 0, 0, 0, 0, 0, 0}, Indeterminate},
		{"single answer", []int{0, 0, 5, 0, 0, 0, 0}, 35},
		{"rounding", []int{1, 1, 1, 0, 0, 0, 0}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aggregateScores(tt.scores))
		})
	}
}
