package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Outcome is one batch item. Index is the item's position in the input.
type Outcome struct {
	Index  int
	Result Result
	Err    error
}

// RunBatch processes requests with at most workers in flight. Outcomes are
// returned in completion order, one per request; per-item failures are
// reported in Outcome.Err and never stop the batch.
func (p *Processor) RunBatch(ctx context.Context, requests []Request, workers int) ([]Outcome, error) {
	if workers < 1 {
		return nil, fmt.Errorf("workers must be >= 1 (got %d)", workers)
	}

	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(requests))
	)
	var g errgroup.Group
	g.SetLimit(workers)
	for idx, req := range requests {
		g.Go(func() error {
			result, err := p.Process(ctx, req)
			if err != nil {
				p.logger.Warn().
					Err(err).
					Int("index", idx).
					Str("url", req.Article.URL).
					Msg("batch item failed")
			}
			mu.Lock()
			outcomes = append(outcomes, Outcome{Index: idx, Result: result, Err: err})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info().
		Int("items", len(requests)).
		Int("workers", workers).
		Msg("batch completed")
	return outcomes, nil
}
