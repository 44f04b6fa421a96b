package specialist

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/prompt"
)

// Router fans one query out to a binary relevance classification per
// catalog entry and gathers the selected subset.
type Router struct {
	client  llm.Client
	catalog []ID
	logger  *zap.Logger
}

// NewRouter creates a router over the given catalog.
func NewRouter(client llm.Client, catalog []ID, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{client: client, catalog: catalog, logger: logger}
}

// Classify returns the specialists judged relevant to the query, in
// catalog order. All classifications run in parallel; a failed branch
// counts as not relevant for that capability only.
func (r *Router) Classify(ctx context.Context, query, history string) []ID {
	if len(r.catalog) == 0 {
		return nil
	}

	relevant := make([]bool, len(r.catalog))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range r.catalog {
		g.Go(func() error {
			msgs := prompt.Router(prompt.RoutingPrompt(string(id)), history, query)
			resp, err := r.client.Complete(gctx, msgs)
			if err != nil {
				r.logger.Warn("routing classification failed",
					zap.String("specialist", string(id)),
					zap.Error(err),
				)
				return nil
			}
			relevant[i] = llm.ExtractOption(resp, 0, 1, 0) == 1
			return nil
		})
	}
	// Branches swallow their own failures.
	_ = g.Wait()

	var selected []ID
	for i, id := range r.catalog {
		if relevant[i] {
			selected = append(selected, id)
		}
	}
	r.logger.Debug("routing decision",
		zap.Int("catalog", len(r.catalog)),
		zap.Int("selected", len(selected)),
	)
	return selected
}
