package model

import (
	"context"

	"nsflow/internal/pool"
)

// PooledModel wraps a UnitCubeModel so its log-likelihood evaluations are
// spread across a fixed worker pool (§5's concurrency model), useful once
// logL grows expensive enough that batched draws benefit from it. Every
// worker closes over the same pure logL function, so no per-worker model
// clone is needed; the evaluation counter is only touched after the pool
// barrier returns, never concurrently.
type PooledModel struct {
	*UnitCubeModel
	pool *pool.Pool
}

// NewPooledModel builds a pool of workers workers around base's
// log-likelihood function.
func NewPooledModel(base *UnitCubeModel, workers int) *PooledModel {
	if workers < 1 {
		workers = 1
	}
	evaluators := make([]pool.Evaluator, workers)
	for i := range evaluators {
		evaluators[i] = base.logL
	}
	return &PooledModel{UnitCubeModel: base, pool: pool.New(evaluators)}
}

func (m *PooledModel) EvaluateLogLikelihood(x [][]float64) []float64 {
	out, err := m.pool.Map(context.Background(), x)
	if err != nil {
		return out
	}
	m.evaluations += int64(len(x))
	return out
}
