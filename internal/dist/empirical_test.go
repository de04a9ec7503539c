package dist

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

func newTestRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestDrawEmpty(t *testing.T) {
	d := New(nil)
	if _, err := d.Draw(newTestRNG()); !errors.Is(err, ErrEmptyDistribution) {
		t.Errorf("Draw() on empty distribution: err = %v, want ErrEmptyDistribution", err)
	}
}

func TestDrawSingleSample(t *testing.T) {
	for _, v := range []float64{-3.5, 0, 42, 1e9} {
		d := New([]float64{v})
		rng := newTestRNG()
		for range 10 {
			got, err := d.Draw(rng)
			if err != nil {
				t.Fatalf("Draw() error: %v", err)
			}
			if got != v {
				t.Errorf("Draw() = %v, want %v every time", got, v)
			}
		}
	}
}

func TestDrawStaysWithinSampleRange(t *testing.T) {
	rng := newTestRNG()
	for range 50 {
		n := 2 + rng.IntN(40)
		sample := make([]float64, n)
		for i := range sample {
			sample[i] = rng.Float64()*2000 - 500
		}
		lo, hi := slices.Min(sample), slices.Max(sample)

		d := New(sample)
		for range 200 {
			got, err := d.Draw(rng)
			if err != nil {
				t.Fatalf("Draw() error: %v", err)
			}
			if got < lo || got > hi {
				t.Fatalf("Draw() = %v outside sample range [%v, %v]", got, lo, hi)
			}
		}
	}
}

func TestExtendGrowsSample(t *testing.T) {
	d := New([]float64{1, 2, 3})
	d.Extend(New([]float64{10, 20}))
	if d.Len() != 5 {
		t.Errorf("Len() = %d after extend, want 5", d.Len())
	}

	rng := newTestRNG()
	for range 100 {
		got, err := d.Draw(rng)
		if err != nil {
			t.Fatalf("Draw() error: %v", err)
		}
		if got < 1 || got > 20 {
			t.Errorf("Draw() = %v outside extended range [1, 20]", got)
		}
	}
}

func TestExtendInvalidatesFit(t *testing.T) {
	d := New([]float64{5, 5, 5})
	rng := newTestRNG()
	if _, err := d.Draw(rng); err != nil { // forces the fit
		t.Fatalf("Draw() error: %v", err)
	}

	d.ExtendValues(100)
	sawExtended := false
	for range 500 {
		got, err := d.Draw(rng)
		if err != nil {
			t.Fatalf("Draw() error: %v", err)
		}
		if got > 5 {
			sawExtended = true
			break
		}
	}
	if !sawExtended {
		t.Error("Draw() never reflected extended data; fit cache not invalidated")
	}
}

func TestMean(t *testing.T) {
	if got := New(nil).Mean(); got != 0 {
		t.Errorf("Mean() of empty = %v, want 0", got)
	}
	if got := New([]float64{2, 4, 6}).Mean(); got != 4 {
		t.Errorf("Mean() = %v, want 4", got)
	}
}
