package model

import (
	"errors"
	"math"
	"testing"

	"github.com/j-veylop/idlesim/internal/metric"
)

func testParams() Params {
	return Params{
		TargetSatisfaction:    80,
		SatisfactionThreshold: 600,
		Xmin:                  1,
		Xmax:                  10000,
		DefaultTimeout:        1800,
	}
}

func TestWeightedSatisfaction(t *testing.T) {
	tests := []struct {
		name      string
		t         float64
		timeout   float64
		threshold float64
		want      float64
	}{
		{"below timeout", 100, 160, 600, 1},
		{"just over timeout, inside grace", 190, 160, 600, 1},
		{"mid ramp", 300, 160, 600, 460.0 / 540.0},
		{"near end of ramp", 500, 160, 600, 260.0 / 540.0},
		{"beyond threshold", 5000, 160, 600, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedSatisfaction(tt.t, tt.timeout, tt.threshold)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("WeightedSatisfaction(%v, %v, %v) = %v, want %v",
					tt.t, tt.timeout, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestMeanSatisfactionEmpty(t *testing.T) {
	if got := MeanSatisfaction(nil, 100, 600); got != 0 {
		t.Errorf("MeanSatisfaction(nil) = %v, want 0", got)
	}
}

func TestOptimalIdleTimeout(t *testing.T) {
	// With this sample, an 80% target and a 600s threshold the
	// satisfaction curve crosses the target at exactly 160s.
	m := NewHourlyModel(testParams(), Samples{
		Inactivity: []float64{100, 200, 300, 400, 500},
	})
	got := m.OptimalIdleTimeout()
	if math.Abs(got-160) > 1 {
		t.Errorf("OptimalIdleTimeout() = %v, want 160 within bisection tolerance", got)
	}
	if again := m.OptimalIdleTimeout(); again != got {
		t.Errorf("memoized OptimalIdleTimeout() = %v, want %v", again, got)
	}
}

func TestOptimalIdleTimeoutNoData(t *testing.T) {
	m := NewHourlyModel(testParams(), Samples{})
	if got := m.OptimalIdleTimeout(); got != 1800 {
		t.Errorf("OptimalIdleTimeout() = %v, want default 1800", got)
	}
}

func TestOptimalIdleTimeoutUnreachableTarget(t *testing.T) {
	// Even the lowest timeout over-satisfies a 10% target, so the search
	// returns the bound closest to it.
	p := testParams()
	p.TargetSatisfaction = 10
	m := NewHourlyModel(p, Samples{Inactivity: []float64{100}})
	if got := m.OptimalIdleTimeout(); got != p.Xmin {
		t.Errorf("OptimalIdleTimeout() = %v, want Xmin %v", got, p.Xmin)
	}
}

func TestOptimalIdleTimeoutMonotonicInTarget(t *testing.T) {
	sample := []float64{100, 200, 300, 400, 500}
	prev := -1.0
	for _, target := range []float64{50, 70, 80, 95} {
		p := testParams()
		p.TargetSatisfaction = target
		m := NewHourlyModel(p, Samples{Inactivity: sample})
		got := m.OptimalIdleTimeout()
		if got < prev-1 {
			t.Errorf("target %v: timeout %v dropped below %v", target, got, prev)
		}
		prev = got
	}
}

func TestExtendInvalidatesTimeout(t *testing.T) {
	m := NewHourlyModel(testParams(), Samples{
		Inactivity: []float64{100, 200, 300, 400, 500},
	})
	before := m.OptimalIdleTimeout()

	other := NewHourlyModel(testParams(), Samples{
		Inactivity: []float64{5000, 5000, 5000},
	})
	m.Extend(other)
	after := m.OptimalIdleTimeout()
	if after <= before {
		t.Errorf("after extending with long gaps, timeout %v should exceed %v", after, before)
	}
	if m.Inactivity().Len() != 8 {
		t.Errorf("Inactivity().Len() = %d, want 8", m.Inactivity().Len())
	}
}

func TestExtendIdempotentTimeout(t *testing.T) {
	sample := []float64{100, 200, 300, 400, 500}
	once := NewHourlyModel(testParams(), Samples{Inactivity: sample})
	once.Extend(NewHourlyModel(testParams(), Samples{Inactivity: sample}))

	twice := NewHourlyModel(testParams(), Samples{Inactivity: sample})
	twice.Extend(NewHourlyModel(testParams(), Samples{Inactivity: sample}))
	twice.Extend(NewHourlyModel(testParams(), Samples{Inactivity: sample}))

	a, b := once.OptimalIdleTimeout(), twice.OptimalIdleTimeout()
	if math.Abs(a-b) > 1 {
		t.Errorf("duplicated data changed timeout: %v vs %v", a, b)
	}
}

func TestIsComplete(t *testing.T) {
	complete := NewHourlyModel(testParams(), Samples{Inactivity: []float64{10}})
	if !complete.IsComplete() {
		t.Error("model with inactivity data should be complete")
	}
	incomplete := NewHourlyModel(testParams(), Samples{Activity: []float64{10}})
	if incomplete.IsComplete() {
		t.Error("model without inactivity data should be incomplete")
	}
}

func TestMeanOffFraction(t *testing.T) {
	m := NewHourlyModel(testParams(), Samples{OffFraction: []float64{0.2, 0.4}})
	if got := m.MeanOffFraction(); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("MeanOffFraction() = %v, want 0.3", got)
	}
	empty := NewHourlyModel(testParams(), Samples{})
	if got := empty.MeanOffFraction(); got != 0 {
		t.Errorf("MeanOffFraction() on empty model = %v, want 0", got)
	}
}

func TestResolve(t *testing.T) {
	m := NewHourlyModel(testParams(), Samples{
		Activity:    []float64{1, 2},
		Inactivity:  []float64{3},
		OffDuration: []float64{4, 5, 6},
	})

	tests := []struct {
		key     metric.Metric
		wantLen int
	}{
		{metric.ActivityTime, 2},
		{metric.InactivityTime, 1},
		{metric.UserShutdownTime, 3},
		{metric.AutoShutdownTime, 0},
		{metric.IdleTime, 0},
	}
	for _, tt := range tests {
		d, err := m.Resolve(tt.key)
		if err != nil {
			t.Errorf("Resolve(%q) returned error: %v", tt.key, err)
			continue
		}
		if d.Len() != tt.wantLen {
			t.Errorf("Resolve(%q).Len() = %d, want %d", tt.key, d.Len(), tt.wantLen)
		}
	}

	if _, err := m.Resolve(metric.Metric("bogus")); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Resolve(bogus) error = %v, want ErrUnknownKey", err)
	}
}
