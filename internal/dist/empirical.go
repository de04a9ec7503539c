// Package dist implements the empirical inverse-CDF sampler that every
// behavioral model in the simulator draws from.
package dist

import (
	"errors"
	"math/rand/v2"
	"slices"
)

// ErrEmptyDistribution is returned when drawing from a distribution that
// holds no samples.
var ErrEmptyDistribution = errors.New("empirical distribution has no samples")

// Empirical is a continuous distribution fitted to an observed sample.
//
// The fit is a monotone piecewise-linear map from the uniform range [0,1]
// to the sorted sample, evaluated lazily on the first draw and discarded
// whenever new data arrives. Draws never extrapolate outside the sample
// range.
type Empirical struct {
	data   []float64
	fitted bool
}

// New creates a distribution from a sample. An empty (or nil) sample is
// valid; only drawing from it fails.
func New(sample []float64) *Empirical {
	return &Empirical{data: slices.Clone(sample)}
}

// Len returns the number of samples backing the distribution.
func (e *Empirical) Len() int {
	return len(e.data)
}

// Data returns the backing sample. Callers must not mutate it.
func (e *Empirical) Data() []float64 {
	return e.data
}

// Mean returns the sample mean, or 0 for an empty distribution.
func (e *Empirical) Mean() float64 {
	if len(e.data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range e.data {
		sum += v
	}
	return sum / float64(len(e.data))
}

// Extend appends the data of another distribution and invalidates the
// cached fit.
func (e *Empirical) Extend(other *Empirical) {
	if other == nil || len(other.data) == 0 {
		return
	}
	e.data = append(e.data, other.data...)
	e.fitted = false
}

// ExtendValues appends raw samples and invalidates the cached fit.
func (e *Empirical) ExtendValues(values ...float64) {
	if len(values) == 0 {
		return
	}
	e.data = append(e.data, values...)
	e.fitted = false
}

// Draw samples one value. A single-sample distribution always returns that
// value; an empty one returns ErrEmptyDistribution.
func (e *Empirical) Draw(rng *rand.Rand) (float64, error) {
	switch len(e.data) {
	case 0:
		return 0, ErrEmptyDistribution
	case 1:
		return e.data[0], nil
	}
	if !e.fitted {
		e.fit()
	}
	// Evaluate the inverse CDF at a uniform point. pos lands between two
	// sorted samples; interpolate linearly between them.
	pos := rng.Float64() * float64(len(e.data)-1)
	i := int(pos)
	if i >= len(e.data)-1 {
		return e.data[len(e.data)-1], nil
	}
	frac := pos - float64(i)
	return e.data[i] + frac*(e.data[i+1]-e.data[i]), nil
}

func (e *Empirical) fit() {
	slices.Sort(e.data)
	e.fitted = true
}
