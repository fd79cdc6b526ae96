// Package pool implements the batch-likelihood worker pool from the
// concurrency model (§5): a fixed set of workers, each holding its own
// Evaluator, mapping log-likelihood evaluation over a batch while
// preserving input order.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Evaluator evaluates the log-likelihood for a single point. Each worker
// gets its own Evaluator instance so per-worker state (a cloned model) is
// never shared across goroutines.
type Evaluator func(x []float64) float64

// Pool fans batch likelihood evaluations out across a fixed number of
// workers. It is a pure map: the result order always matches the input
// order regardless of which worker finished first.
type Pool struct {
	workers []Evaluator
}

// New builds a pool from one evaluator per worker. Passing a single
// evaluator (n=1) degenerates to serial evaluation, matching the
// no-pool configuration.
func New(workers []Evaluator) *Pool {
	return &Pool{workers: workers}
}

// Map evaluates every row of x, distributing rows round-robin across the
// workers' evaluators, and returns results indexed identically to x.
func (p *Pool) Map(ctx context.Context, x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	if len(p.workers) <= 1 {
		eval := p.soleEvaluator()
		for i, row := range x {
			out[i] = eval(row)
		}
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	nw := len(p.workers)
	for w := 0; w < nw; w++ {
		w := w
		g.Go(func() error {
			eval := p.workers[w]
			for i := w; i < len(x); i += nw {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				out[i] = eval(x[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pool) soleEvaluator() Evaluator {
	if len(p.workers) == 0 {
		return func([]float64) float64 { return 0 }
	}
	return p.workers[0]
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }
