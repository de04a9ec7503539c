// Package run repeats independent simulation runs until the confidence
// intervals of both result estimates are narrow enough.
package run

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Estimator accumulates independent observations of one result and reports
// the Student-t confidence half-width of their mean. Variance is tracked
// with Welford's algorithm.
type Estimator struct {
	n    int
	mean float64
	m2   float64
}

// Add folds one observation into the estimate.
func (e *Estimator) Add(x float64) {
	e.n++
	delta := x - e.mean
	e.mean += delta / float64(e.n)
	e.m2 += delta * (x - e.mean)
}

// N returns the number of observations.
func (e *Estimator) N() int {
	return e.n
}

// Mean returns the sample mean, or 0 before any observation.
func (e *Estimator) Mean() float64 {
	return e.mean
}

// Variance returns the sample variance, or 0 with fewer than two
// observations.
func (e *Estimator) Variance() float64 {
	if e.n < 2 {
		return 0
	}
	return e.m2 / float64(e.n-1)
}

// HalfWidth returns half the width of the (1-alpha) confidence interval of
// the mean. With fewer than two observations the interval is unbounded.
func (e *Estimator) HalfWidth(alpha float64) float64 {
	if e.n < 2 {
		return math.Inf(1)
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(e.n - 1)}
	q := t.Quantile(1 - alpha/2)
	return q * math.Sqrt(e.Variance()/float64(e.n))
}
