package pipeline

import (
	"cmp"
	"context"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultThreshold is the minimum overall match for a shortlisted candidate.
const DefaultThreshold = 70

// Item is the outcome of one request of a batch.
type Item struct {
	Request Request
	Result  *Result
	Err     error
}

// RunBatch runs independent requests with at most concurrency runs in flight.
// A failed item never stops the others. Items keep the order of reqs.
func (p *Pipeline) RunBatch(ctx context.Context, reqs []Request, concurrency int) []Item {
	if concurrency < 1 {
		concurrency = 1
	}

	items := make([]Item, len(reqs))

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			result, err := p.Run(ctx, req)
			items[i] = Item{Request: req, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			p.deps.Logger.Warn("resume evaluation failed",
				zap.String("document", item.Request.DocumentPath),
				zap.Error(item.Err),
			)
		}
	}

	p.deps.Logger.Info("batch finished",
		zap.Int("total", len(items)),
		zap.Int("failed", failed),
		zap.Int("concurrency", concurrency),
	)

	return items
}

type Candidate struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Score    float64 `json:"score"`
	Document string  `json:"-"`
}

type Failure struct {
	Document string `json:"document"`
	Error    string `json:"error"`
}

// Shortlist returns successful items scoring at least threshold, best first.
func Shortlist(items []Item, threshold float64) []Candidate {
	candidates := make([]Candidate, 0)
	for _, item := range items {
		if item.Err != nil || item.Result == nil || item.Result.Verdict == nil {
			continue
		}

		v := item.Result.Verdict
		if v.OverallMatch < threshold {
			continue
		}

		candidates = append(candidates, Candidate{
			Name:     v.Identification.Name,
			Email:    v.Identification.Email,
			Score:    v.OverallMatch,
			Document: item.Request.DocumentPath,
		})
	}

	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return candidates
}

func Failures(items []Item) []Failure {
	failures := make([]Failure, 0)
	for _, item := range items {
		if item.Err != nil {
			failures = append(failures, Failure{Document: item.Request.DocumentPath, Error: item.Err.Error()})
		}
	}
	return failures
}
