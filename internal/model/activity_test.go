package model

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/j-veylop/idlesim/internal/trace"
	"github.com/j-veylop/idlesim/internal/week"
)

func newTestRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func entry(day, hour string, intervals ...float64) trace.HourEntry {
	return trace.HourEntry{Day: day, Hour: hour, Intervals: intervals}
}

func record(pc, typ string, entries ...trace.HourEntry) trace.Record {
	return trace.Record{PC: pc, Type: typ, Data: entries}
}

// fullRecords gives one computer a complete Monday 9:00 bucket.
func fullRecords(pc string) []trace.Record {
	return []trace.Record{
		record(pc, trace.TypeActivity, entry("Monday", "9", 500)),
		record(pc, trace.TypeInactivity, entry("Monday", "9", 100, 200, 300, 400, 500)),
		record(pc, trace.TypeOff, entry("Monday", "9", 7200)),
		record(pc, trace.TypeOffFrequency, entry("Monday", "9", 0.5)),
	}
}

func mustBuild(t *testing.T, records []trace.Record, perHour, perPC bool) *ActivityDistribution {
	t.Helper()
	a, err := NewActivityDistribution(records, testParams(), perHour, perPC)
	if err != nil {
		t.Fatalf("NewActivityDistribution returned error: %v", err)
	}
	return a
}

func TestServersAndEmptyServers(t *testing.T) {
	records := fullRecords("beta")
	// alpha reports only inactivity below Xmin, so every bucket is
	// incomplete after filtering.
	records = append(records,
		record("alpha", trace.TypeInactivity, entry("Monday", "9", 0.5, 0.2)),
		record("alpha", trace.TypeActivity, entry("Monday", "9", 10)),
	)
	a := mustBuild(t, records, true, true)

	if got := a.Servers(); len(got) != 1 || got[0] != "beta" {
		t.Errorf("Servers() = %v, want [beta]", got)
	}
	if got := a.EmptyServers(); len(got) != 1 || got[0] != "alpha" {
		t.Errorf("EmptyServers() = %v, want [alpha]", got)
	}
}

func TestFitRejectsMalformedEntries(t *testing.T) {
	tests := []struct {
		name string
		e    trace.HourEntry
	}{
		{"unknown weekday", entry("Funday", "9", 100)},
		{"non-numeric hour", entry("Monday", "nine", 100)},
		{"hour out of range", entry("Monday", "24", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []trace.Record{record("pc", trace.TypeInactivity, tt.e)}
			if _, err := NewActivityDistribution(records, testParams(), true, true); err == nil {
				t.Error("expected error for malformed entry")
			}
		})
	}
}

func TestInactivityFilteredToDomain(t *testing.T) {
	records := []trace.Record{
		record("pc", trace.TypeInactivity, entry("Monday", "9", 0.5, 100, 20000)),
	}
	a := mustBuild(t, records, true, true)
	m := a.modelAt("pc", 1, 9)
	if m == nil {
		t.Fatal("modelAt returned nil")
	}
	if got := m.Inactivity().Len(); got != 1 {
		t.Errorf("Inactivity().Len() = %d, want 1 after domain filtering", got)
	}
}

func TestFallbackWalkCachesResolution(t *testing.T) {
	a := mustBuild(t, fullRecords("pc"), true, true)

	// Monday 11:00 has no bucket; the walk resolves to Monday 9:00.
	ts := float64(1*24*3600 + 11*3600)
	got := a.RandomActivity(newTestRNG(), "pc", ts)
	if got != 500 {
		t.Errorf("RandomActivity = %v, want 500 from the fallback bucket", got)
	}

	slots := a.slots["pc"]
	if slots[week.Index(1, 11)] != slots[week.Index(1, 9)] {
		t.Error("fallback resolution was not cached into the requested slot")
	}
}

func TestModelAtUnknownComputer(t *testing.T) {
	a := mustBuild(t, fullRecords("pc"), true, true)
	if m := a.modelAt("ghost", 1, 9); m != nil {
		t.Errorf("modelAt(ghost) = %v, want nil", m)
	}
}

func TestMergePerHourPoolsSlots(t *testing.T) {
	records := []trace.Record{
		record("pc", trace.TypeInactivity,
			entry("Monday", "9", 100),
			entry("Tuesday", "10", 300)),
	}
	a := mustBuild(t, records, false, true)

	monday := a.modelAt("pc", 1, 9)
	tuesday := a.modelAt("pc", 2, 10)
	if monday == nil || tuesday == nil {
		t.Fatal("expected models for both occupied slots")
	}
	if monday != tuesday {
		t.Error("per-hour merge should alias occupied slots to one model")
	}
	if got := monday.Inactivity().Len(); got != 2 {
		t.Errorf("merged Inactivity().Len() = %d, want 2", got)
	}
}

func TestMergePerPCSharesSlots(t *testing.T) {
	records := []trace.Record{
		record("one", trace.TypeInactivity, entry("Monday", "9", 100)),
		record("two", trace.TypeInactivity, entry("Tuesday", "10", 300)),
	}
	a := mustBuild(t, records, true, false)

	// After the per-computer merge, "one" inherits the Tuesday bucket
	// that only "two" reported.
	m := a.modelAt("one", 2, 10)
	if m == nil {
		t.Fatal("expected computer one to inherit the Tuesday bucket")
	}
	if got := m.Inactivity().Len(); got != 1 {
		t.Errorf("inherited Inactivity().Len() = %d, want 1", got)
	}
	if data := m.Inactivity().Data(); data[0] != 300 {
		t.Errorf("inherited bucket holds %v, want [300]", data)
	}

	monday := a.modelAt("one", 1, 9)
	if got := monday.Inactivity().Data(); len(got) != 1 || got[0] != 100 {
		t.Errorf("Monday bucket holds %v, want [100]", got)
	}
}

func TestOptimalIdleTimeoutPerComputer(t *testing.T) {
	a := mustBuild(t, fullRecords("pc"), true, true)
	got := a.OptimalIdleTimeout("pc")
	if math.Abs(got-160) > 1 {
		t.Errorf("OptimalIdleTimeout(pc) = %v, want 160 within tolerance", got)
	}
	if got := a.OptimalIdleTimeout("ghost"); got != 1800 {
		t.Errorf("OptimalIdleTimeout(ghost) = %v, want default 1800", got)
	}
}

func TestGlobalIdleTimeout(t *testing.T) {
	records := append(fullRecords("one"), fullRecords("two")...)
	a := mustBuild(t, records, true, true)
	got := a.GlobalIdleTimeout()
	if math.Abs(got-160) > 1 {
		t.Errorf("GlobalIdleTimeout() = %v, want 160 within tolerance", got)
	}
}

func TestIdleTimeoutAt(t *testing.T) {
	a := mustBuild(t, fullRecords("pc"), true, true)
	ts := float64(1*24*3600 + 9*3600)
	got := a.IdleTimeoutAt("pc", ts)
	if math.Abs(got-160) > 1 {
		t.Errorf("IdleTimeoutAt = %v, want 160 within tolerance", got)
	}
}

func TestOffFrequency(t *testing.T) {
	a := mustBuild(t, fullRecords("pc"), true, true)
	if got := a.OffFrequency("pc", 1, 9); got != 0.5 {
		t.Errorf("OffFrequency(pc, Monday, 9) = %v, want 0.5", got)
	}
	if got := a.OffFrequency("ghost", 1, 9); got != 0 {
		t.Errorf("OffFrequency(ghost) = %v, want 0", got)
	}
}

func TestRandomInactivityRespectsNoiseThreshold(t *testing.T) {
	p := testParams()
	p.NoiseThreshold = 200
	records := []trace.Record{
		record("pc", trace.TypeInactivity, entry("Monday", "9", 100, 5000)),
	}
	a, err := NewActivityDistribution(records, p, true, true)
	if err != nil {
		t.Fatalf("NewActivityDistribution returned error: %v", err)
	}

	rng := newTestRNG()
	ts := float64(1*24*3600 + 9*3600)
	for range 50 {
		v := a.RandomInactivity(rng, "pc", ts)
		if v > p.NoiseThreshold {
			t.Fatalf("RandomInactivity = %v, want <= noise threshold %v", v, p.NoiseThreshold)
		}
	}
}

func TestRandomDrawsStayBounded(t *testing.T) {
	a := mustBuild(t, fullRecords("pc"), true, true)
	rng := newTestRNG()
	ts := float64(1*24*3600 + 9*3600)

	for range 20 {
		if v := a.RandomActivity(rng, "pc", ts); v < activityFloor || v > a.params.Xmax {
			t.Fatalf("RandomActivity = %v out of bounds", v)
		}
		if v := a.RandomInactivity(rng, "pc", ts); v < a.params.Xmin || v > a.params.Xmax {
			t.Fatalf("RandomInactivity = %v out of bounds", v)
		}
		if v := a.OffInterval(rng, "pc", ts); v < a.params.Xmin || v > a.params.Xmax {
			t.Fatalf("OffInterval = %v out of bounds", v)
		}
	}
}
