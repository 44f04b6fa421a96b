package stage

import (
	"context"
	"math"

	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/prompt"
	"go.uber.org/zap"
)

// Indeterminate is the aggregate returned when every probe abstained.
const Indeterminate = -1

// ScorerConfig bounds the readiness band.
type ScorerConfig struct {
	// Low and High bound the half-open aggregate band [Low, High) that
	// admits advancement. Aggregates below the band mean the client is
	// not yet distressed enough to need the next stage's deeper work;
	// aggregates at or above High require external review.
	Low  int
	High int
}

// Scorer runs the fixed probe battery against a client's accumulated
// long-term information and derives the readiness aggregate.
type Scorer struct {
	client llm.Client
	config ScorerConfig
	logger *zap.Logger
}

// NewScorer creates a readiness scorer.
func NewScorer(client llm.Client, cfg ScorerConfig, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{client: client, config: cfg, logger: logger}
}

// Assess scores every probe question independently and aggregates.
//
// Each probe yields an integer in [1,7]; a call failure or unparseable
// answer yields 0, meaning "abstain", not "low score". The aggregate is
// round(sum * 7 / nonAbstaining), or Indeterminate when every probe
// abstained. ready is true iff the aggregate lies in [Low, High).
func (s *Scorer) Assess(ctx context.Context, userInfo string) (ready bool, aggregate int) {
	scores := make([]int, len(prompt.ProbeQuestions))
	for i, probe := range prompt.ProbeQuestions {
		scores[i] = s.scoreProbe(ctx, userInfo, probe)
	}

	aggregate = aggregateScores(scores)
	s.logger.Debug("readiness battery complete",
		zap.Ints("scores", scores),
		zap.Int("aggregate", aggregate),
	)

	if aggregate == Indeterminate {
		return false, Indeterminate
	}
	return aggregate >= s.config.Low && aggregate < s.config.High, aggregate
}

func (s *Scorer) scoreProbe(ctx context.Context, userInfo, probe string) int {
	raw, err := s.client.Complete(ctx, prompt.Score(userInfo, probe))
	if err != nil {
		s.logger.Error("probe scoring failed", zap.Error(err))
		return 0
	}
	return llm.ExtractOption(raw, 1, 7, 0)
}

// aggregateScores scales the answered probes back up to the full
// battery so partial abstention does not deflate the aggregate.
func aggregateScores(scores []int) int {
	sum := 0
	answered := 0
	for _, score := range scores {
		if score > 0 {
			sum += score
			answered++
		}
	}
	if answered == 0 {
		return Indeterminate
	}
	return int(math.Round(float64(sum) * float64(len(scores)) / float64(answered)))
}
