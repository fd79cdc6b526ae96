// Package model defines the external collaborator contracts the sampler
// core depends on: the user-supplied probabilistic model and the
// normalising-flow proposal, plus the reparametrisations between the unit
// hypercube and an unbounded "prime" space that the importance variant
// uses to train flows.
package model

import "nsflow/internal/sample"

// Model is the user-supplied probabilistic model contract (§6). The
// sampler core never inspects a model's internals; it only calls through
// this interface.
type Model interface {
	// Names returns the ordered parameter names.
	Names() []string

	// NewPoint draws a single random sample from the prior with LogP
	// populated.
	NewPoint() sample.Sample

	// LogPrior returns the log prior density for a batch of points,
	// using -Inf to signal "out of bounds".
	LogPrior(x [][]float64) []float64

	// EvaluateLogLikelihood evaluates the log likelihood for a batch of
	// points, in the same order as the input.
	EvaluateLogLikelihood(x [][]float64) []float64

	// InBounds returns a boolean mask over a batch of points.
	InBounds(x [][]float64) []bool

	// ToUnitHypercube and FromUnitHypercube form the bijection used by
	// the importance variant between native parameter space and [0,1]^d.
	ToUnitHypercube(x []float64) []float64
	FromUnitHypercube(u []float64) []float64

	// LikelihoodEvaluations returns the running count of likelihood
	// evaluations performed so far.
	LikelihoodEvaluations() int64
}
