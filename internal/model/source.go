package model

import (
	"math/rand/v2"

	"github.com/j-veylop/idlesim/internal/dist"
)

// Source answers the behavioral queries the simulation makes. It is
// implemented by ActivityDistribution (trace-fitted) and FleetGenerator
// (synthetic).
type Source interface {
	// Servers lists the computers with usable data, sorted.
	Servers() []string
	// RandomActivity samples an activity-burst duration for the slot that
	// contains timestamp.
	RandomActivity(rng *rand.Rand, cid string, timestamp float64) float64
	// RandomInactivity samples an inactivity gap for the slot that
	// contains timestamp.
	RandomInactivity(rng *rand.Rand, cid string, timestamp float64) float64
	// OffInterval samples a voluntary-shutdown duration for the slot that
	// contains timestamp.
	OffInterval(rng *rand.Rand, cid string, timestamp float64) float64
	// OffFrequency returns the expected voluntary-shutdown count for one
	// (day, hour) slot.
	OffFrequency(cid string, day, hour int) float64
	// IdleTimeoutAt resolves the idle timeout from the slot that contains
	// timestamp, falling back to the whole-history model.
	IdleTimeoutAt(cid string, timestamp float64) float64
	// OptimalIdleTimeout resolves the idle timeout over the computer's
	// whole history.
	OptimalIdleTimeout(cid string) float64
	// GlobalIdleTimeout averages OptimalIdleTimeout over the fleet.
	GlobalIdleTimeout() float64
}

var (
	_ Source = (*ActivityDistribution)(nil)
	_ Source = (*FleetGenerator)(nil)
)

// drawBounded rejection-samples d until the draw lands in [min, max]. A nil
// or empty distribution yields min, as does exhausting the attempt budget
// on a sample that never satisfies the bound.
func drawBounded(d *dist.Empirical, rng *rand.Rand, min, max float64) float64 {
	if d == nil || d.Len() == 0 {
		return min
	}
	const maxAttempts = 1000
	for range maxAttempts {
		v, err := d.Draw(rng)
		if err != nil {
			return min
		}
		if v >= min && v <= max {
			return v
		}
	}
	return min
}
