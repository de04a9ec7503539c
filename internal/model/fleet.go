package model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Office hours shaping the synthetic shutdown frequency.
const (
	fleetInHour  = 8
	fleetOutHour = 15
)

// FleetGenerator is a synthetic Source: instead of fitting a trace it draws
// activity, inactivity and off durations from log-normal distributions
// parameterized by high-level (mean, stddev) pairs.
type FleetGenerator struct {
	params  Params
	servers []string

	activity    distuv.LogNormal
	inactivity  distuv.LogNormal
	offDuration distuv.LogNormal
}

// NewFleetGenerator builds a synthetic fleet of size computers.
func NewFleetGenerator(params Params, size int) *FleetGenerator {
	return &FleetGenerator{
		params:      params,
		servers:     generateServers(size),
		activity:    logNormal(1800, 1800),
		inactivity:  logNormal(3600, 1800),
		offDuration: logNormal(8*3600, 2*3600),
	}
}

// logNormal builds a log-normal distribution whose mean and standard
// deviation are m and s.
func logNormal(m, s float64) distuv.LogNormal {
	m2 := m * m
	phi := math.Sqrt(s*s + m2)
	sigma := math.Sqrt(math.Log(phi * phi / m2))
	return distuv.LogNormal{Mu: math.Log(m2 / phi), Sigma: sigma}
}

// generateServers names size workstations with zero-padded indexes.
func generateServers(size int) []string {
	if size <= 0 {
		return nil
	}
	fill := int(math.Ceil(math.Log10(float64(size))))
	if fill < 1 {
		fill = 1
	}
	servers := make([]string, size)
	for i := range servers {
		servers[i] = fmt.Sprintf("workstation%0*d", fill, i)
	}
	return servers
}

// Servers lists the generated computers.
func (f *FleetGenerator) Servers() []string {
	return f.servers
}

// RandomActivity draws a synthetic activity-burst duration.
func (f *FleetGenerator) RandomActivity(rng *rand.Rand, _ string, _ float64) float64 {
	return f.draw(f.activity, rng)
}

// RandomInactivity draws a synthetic inactivity gap.
func (f *FleetGenerator) RandomInactivity(rng *rand.Rand, _ string, _ float64) float64 {
	return f.draw(f.inactivity, rng)
}

// OffInterval draws a synthetic voluntary-shutdown duration.
func (f *FleetGenerator) OffInterval(rng *rand.Rand, _ string, _ float64) float64 {
	return f.draw(f.offDuration, rng)
}

// OffFrequency shapes voluntary shutdowns around office hours: a small
// chance during the working day and a larger one at leaving time.
func (f *FleetGenerator) OffFrequency(_ string, day, hour int) float64 {
	if day < 1 || day > 5 {
		return 0
	}
	if hour > fleetInHour && hour < fleetOutHour {
		return 0.1
	}
	if hour == fleetOutHour {
		return 0.3
	}
	return 0
}

// IdleTimeoutAt is constant across the week for a synthetic fleet.
func (f *FleetGenerator) IdleTimeoutAt(cid string, _ float64) float64 {
	return f.OptimalIdleTimeout(cid)
}

// OptimalIdleTimeout is the inactivity quantile at the satisfaction target.
func (f *FleetGenerator) OptimalIdleTimeout(_ string) float64 {
	return f.GlobalIdleTimeout()
}

// GlobalIdleTimeout is the inactivity quantile at the satisfaction target.
func (f *FleetGenerator) GlobalIdleTimeout() float64 {
	return f.inactivity.Quantile(f.params.TargetSatisfaction / 100)
}

// draw samples d with rng, rejecting the non-positive values a degenerate
// parameterization could produce.
func (f *FleetGenerator) draw(d distuv.LogNormal, rng *rand.Rand) float64 {
	d.Src = rng
	v := d.Rand()
	for v <= 0 {
		v = d.Rand()
	}
	return v
}
