// Package model fits and answers queries about per-computer user behavior:
// hourly behavioral models, the week grid with its merge and fallback rules,
// and the idle-timeout search.
package model

import (
	"errors"
	"math"

	"github.com/j-veylop/idlesim/internal/dist"
	"github.com/j-veylop/idlesim/internal/metric"
)

// ErrUnknownKey is returned by Resolve for metrics that have no fitted
// distribution.
var ErrUnknownKey = errors.New("no distribution for key")

// Params carries the numeric knobs shared by every model.
type Params struct {
	TargetSatisfaction    float64 // percent, the root-search target
	SatisfactionThreshold float64 // seconds, end of the satisfaction ramp
	Xmin                  float64 // seconds, lower bound of the inactivity domain
	Xmax                  float64 // seconds, upper bound of the inactivity domain
	NoiseThreshold        float64 // seconds, 0 disables noise rejection
	DefaultTimeout        float64 // seconds, used when a computer has no data
}

// Samples holds the raw observations an hourly model is built from.
type Samples struct {
	Activity    []float64
	Inactivity  []float64
	OffDuration []float64
	OffFraction []float64
}

// HourlyModel holds the fitted behavior of one computer (or one merged
// group) during one hour-of-week slot.
type HourlyModel struct {
	params      Params
	activity    *dist.Empirical
	inactivity  *dist.Empirical
	offDuration *dist.Empirical
	offFraction []float64

	timeout      float64
	timeoutValid bool
}

// NewHourlyModel builds a model from raw samples. Any of the sample slices
// may be empty.
func NewHourlyModel(params Params, samples Samples) *HourlyModel {
	return &HourlyModel{
		params:      params,
		activity:    dist.New(samples.Activity),
		inactivity:  dist.New(samples.Inactivity),
		offDuration: dist.New(samples.OffDuration),
		offFraction: append([]float64(nil), samples.OffFraction...),
	}
}

// Activity returns the activity-burst duration distribution.
func (m *HourlyModel) Activity() *dist.Empirical { return m.activity }

// Inactivity returns the inactivity-gap duration distribution.
func (m *HourlyModel) Inactivity() *dist.Empirical { return m.inactivity }

// OffDuration returns the voluntary-shutdown duration distribution.
func (m *HourlyModel) OffDuration() *dist.Empirical { return m.offDuration }

// OffFraction returns the expected voluntary-shutdown counts, one sample
// per observed week.
func (m *HourlyModel) OffFraction() []float64 { return m.offFraction }

// MeanOffFraction returns the expected voluntary-shutdown count for this
// slot, or 0 when nothing was observed.
func (m *HourlyModel) MeanOffFraction() float64 {
	if len(m.offFraction) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.offFraction {
		sum += v
	}
	return sum / float64(len(m.offFraction))
}

// IsComplete reports whether the model can answer queries. A model without
// inactivity samples must never be used; the fallback walk resolves past it.
func (m *HourlyModel) IsComplete() bool {
	return m.inactivity.Len() > 0
}

// Resolve maps a metric to its fitted distribution. Metrics that are only
// produced by the simulation resolve to an empty distribution.
func (m *HourlyModel) Resolve(key metric.Metric) (*dist.Empirical, error) {
	switch key {
	case metric.ActivityTime:
		return m.activity, nil
	case metric.InactivityTime:
		return m.inactivity, nil
	case metric.UserShutdownTime:
		return m.offDuration, nil
	case metric.AutoShutdownTime, metric.IdleTime:
		return dist.New(nil), nil
	}
	return nil, ErrUnknownKey
}

// Extend merges the data of sibling models into this one and invalidates
// the memoized timeout.
func (m *HourlyModel) Extend(others ...*HourlyModel) {
	for _, o := range others {
		if o == nil {
			continue
		}
		m.activity.Extend(o.activity)
		m.inactivity.Extend(o.inactivity)
		m.offDuration.Extend(o.offDuration)
		m.offFraction = append(m.offFraction, o.offFraction...)
	}
	m.timeoutValid = false
}

// OptimalIdleTimeout returns the timeout at which the mean weighted
// satisfaction of the inactivity sample meets the target. The result is
// memoized until the model is extended.
func (m *HourlyModel) OptimalIdleTimeout() float64 {
	if !m.timeoutValid {
		m.timeout = m.searchTimeout()
		m.timeoutValid = true
	}
	return m.timeout
}

// searchTimeout bisects for the root of the satisfaction curve within
// [Xmin, Xmax] to one-second tolerance.
func (m *HourlyModel) searchTimeout() float64 {
	if m.inactivity.Len() == 0 {
		return m.params.DefaultTimeout
	}

	f := func(x float64) float64 {
		return MeanSatisfaction(m.inactivity.Data(), x,
			m.params.SatisfactionThreshold)*100 - m.params.TargetSatisfaction
	}

	lo, hi := m.params.Xmin, m.params.Xmax
	flo, fhi := f(lo), f(hi)
	if flo == 0 {
		return lo
	}
	if fhi == 0 {
		return hi
	}
	if flo*fhi > 0 {
		// No root in range: the target is unreachable. Return the bound
		// whose satisfaction lands closest to it.
		if math.Abs(fhi) < math.Abs(flo) {
			return hi
		}
		return lo
	}

	const xtol = 1.0
	for hi-lo > xtol {
		mid := (lo + hi) / 2
		fmid := f(mid)
		if fmid == 0 {
			return mid
		}
		if flo*fmid < 0 {
			hi = mid
		} else {
			lo, flo = mid, fmid
		}
	}
	return (lo + hi) / 2
}
