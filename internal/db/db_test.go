package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/j-veylop/idlesim/internal/metric"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "histogram.db")
	database, err := New(path)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestNewCreatesFile(t *testing.T) {
	database := newTestDB(t)
	if _, err := os.Stat(database.Path()); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestNewReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "histogram.db")
	if err := os.WriteFile(path, []byte("not a database"), 0o600); err != nil {
		t.Fatal(err)
	}
	database, err := New(path)
	if err != nil {
		t.Fatalf("New over existing file returned error: %v", err)
	}
	defer func() { _ = database.Close() }()

	h := database.NewHistogram(metric.IdleTime, 10)
	if err := h.Append(0, 0, "pc", 1); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if err := h.Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
}

func TestHistogramAppendAndSum(t *testing.T) {
	database := newTestDB(t)
	h := database.NewHistogram(metric.ActivityTime, 100)

	observations := []struct {
		run       int
		timestamp float64
		computer  string
		value     float64
	}{
		{0, 0, "one", 10},
		{0, 3600, "one", 20},
		{0, 3600, "two", 5},
		{1, 0, "one", 100},
	}
	for _, o := range observations {
		if err := h.Append(o.run, o.timestamp, o.computer, o.value); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}
	if err := h.Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}

	tests := []struct {
		name     string
		run      int
		computer string
		wantSum  float64
		wantN    int
	}{
		{"run 0 fleet", 0, "", 35, 3},
		{"run 0 one computer", 0, "one", 30, 2},
		{"run 1", 1, "", 100, 1},
		{"missing run", 7, "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := h.Sum(tt.run, tt.computer)
			if err != nil {
				t.Fatalf("Sum returned error: %v", err)
			}
			if sum != tt.wantSum {
				t.Errorf("Sum = %v, want %v", sum, tt.wantSum)
			}
			n, err := h.Count(tt.run, tt.computer)
			if err != nil {
				t.Fatalf("Count returned error: %v", err)
			}
			if n != tt.wantN {
				t.Errorf("Count = %d, want %d", n, tt.wantN)
			}
		})
	}
}

func TestHistogramAutoFlush(t *testing.T) {
	database := newTestDB(t)
	h := database.NewHistogram(metric.IdleTime, 2)

	if err := h.Append(0, 0, "pc", 1); err != nil {
		t.Fatal(err)
	}
	n, err := h.Count(0, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Count before cache fills = %d, want 0", n)
	}

	if err := h.Append(0, 0, "pc", 2); err != nil {
		t.Fatal(err)
	}
	n, err = h.Count(0, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Count after cache fills = %d, want 2", n)
	}
}

func TestHistogramValues(t *testing.T) {
	database := newTestDB(t)
	h := database.NewHistogram(metric.InactivityTime, 10)

	for _, v := range []float64{3, 1, 2} {
		if err := h.Append(0, 0, "pc", v); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.Flush(); err != nil {
		t.Fatal(err)
	}

	values, err := h.Values(0, "pc")
	if err != nil {
		t.Fatalf("Values returned error: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("len(Values) = %d, want 3", len(values))
	}
}

func TestHistogramHourBuckets(t *testing.T) {
	database := newTestDB(t)
	h := database.NewHistogram(metric.UserShutdownTime, 10)

	// Two observations in hour-of-week 0, one in hour 33 (Monday 9:00),
	// one a full week later that wraps back into hour 0.
	week0 := []struct {
		ts float64
		v  float64
	}{
		{0, 1},
		{1800, 2},
		{float64(1*24*3600 + 9*3600), 3},
		{float64(7 * 24 * 3600), 4},
	}
	for _, o := range week0 {
		if err := h.Append(0, o.ts, "pc", o.v); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.Flush(); err != nil {
		t.Fatal(err)
	}

	counts, err := h.HourlyCounts(0)
	if err != nil {
		t.Fatalf("HourlyCounts returned error: %v", err)
	}
	if counts[0] != 3 {
		t.Errorf("counts[0] = %d, want 3", counts[0])
	}
	if counts[33] != 1 {
		t.Errorf("counts[33] = %d, want 1", counts[33])
	}

	values, err := h.HourlyValues(0)
	if err != nil {
		t.Fatalf("HourlyValues returned error: %v", err)
	}
	if len(values[0]) != 3 || len(values[33]) != 1 {
		t.Errorf("bucket sizes = %d, %d, want 3, 1", len(values[0]), len(values[33]))
	}
	if values[33][0] != 3 {
		t.Errorf("values[33] = %v, want [3]", values[33])
	}
}
