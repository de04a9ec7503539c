package model

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/j-veylop/idlesim/internal/dist"
	"github.com/j-veylop/idlesim/internal/logger"
	"github.com/j-veylop/idlesim/internal/trace"
	"github.com/j-veylop/idlesim/internal/week"
)

// noSlot marks an hour-of-week slot with no model.
const noSlot = -1

// weekSlots maps every hour-of-week bucket of one computer to an arena
// index, or noSlot. Merge passes alias buckets by storing the same index.
type weekSlots [week.Hours]int

// ActivityDistribution is the trace-fitted behavioral model of the whole
// fleet: a per-computer grid of hourly models with merge and previous-hour
// fallback rules.
type ActivityDistribution struct {
	params Params

	arena        []*HourlyModel
	slots        map[string]*weekSlots
	servers      []string
	emptyServers []string

	flat          map[string]*HourlyModel
	globalTimeout float64
	globalValid   bool
}

// activityFloor is the minimum activity-burst duration in seconds.
const activityFloor = 0.1

// NewActivityDistribution fits a validated trace into the week grid.
// PerHour and perPC are the inverted merge flags: a false value pools
// samples across all hours of a computer, or across all computers for a
// given hour, respectively.
func NewActivityDistribution(records []trace.Record, params Params, perHour, perPC bool) (*ActivityDistribution, error) {
	a := &ActivityDistribution{
		params: params,
		slots:  make(map[string]*weekSlots),
		flat:   make(map[string]*HourlyModel),
	}

	byPC := make(map[string]map[string][]trace.HourEntry)
	for _, r := range records {
		if byPC[r.PC] == nil {
			byPC[r.PC] = make(map[string][]trace.HourEntry)
		}
		byPC[r.PC][r.Type] = append(byPC[r.PC][r.Type], r.Data...)
	}

	for pc, byType := range byPC {
		slots, err := a.fitComputer(byType)
		if err != nil {
			return nil, fmt.Errorf("failed to fit %q: %w", pc, err)
		}
		a.slots[pc] = slots
	}

	if !perHour {
		a.mergePerHour()
	}
	if !perPC {
		a.mergePerPC()
	}
	a.filterEmptyServers()
	return a, nil
}

// fitComputer buckets one computer's entries by (day, hour) and keeps a
// model for every slot where the inactivity distribution is non-empty.
func (a *ActivityDistribution) fitComputer(byType map[string][]trace.HourEntry) (*weekSlots, error) {
	grid := make(map[int]*Samples, week.Hours)
	for typ, entries := range byType {
		for _, e := range entries {
			day, ok := week.Days[e.Day]
			if !ok {
				return nil, fmt.Errorf("unknown weekday %q", e.Day)
			}
			hour, err := strconv.Atoi(e.Hour)
			if err != nil || hour < 0 || hour > 23 {
				return nil, fmt.Errorf("invalid hour %q", e.Hour)
			}
			idx := week.Index(day, hour)
			if grid[idx] == nil {
				grid[idx] = &Samples{}
			}
			s := grid[idx]
			switch typ {
			case trace.TypeActivity:
				s.Activity = append(s.Activity, filterPositive(e.Intervals)...)
			case trace.TypeInactivity:
				s.Inactivity = append(s.Inactivity,
					filterRange(e.Intervals, a.params.Xmin, a.params.Xmax)...)
			case trace.TypeOff:
				s.OffDuration = append(s.OffDuration, filterPositive(e.Intervals)...)
			case trace.TypeOffFrequency:
				s.OffFraction = append(s.OffFraction, e.Intervals...)
			}
		}
	}

	var slots weekSlots
	for i := range slots {
		slots[i] = noSlot
	}
	for idx, samples := range grid {
		m := NewHourlyModel(a.params, *samples)
		if !m.IsComplete() {
			continue
		}
		a.arena = append(a.arena, m)
		slots[idx] = len(a.arena) - 1
	}
	return &slots, nil
}

// mergePerHour pools every occupied slot of a computer into one shared
// model, aliased across those slots.
func (a *ActivityDistribution) mergePerHour() {
	logger.Debug("merging models per hour")
	for _, slots := range a.slots {
		merged := NewHourlyModel(a.params, Samples{})
		for _, idx := range slots {
			if idx != noSlot {
				merged.Extend(a.arena[idx])
			}
		}
		if !merged.IsComplete() {
			continue
		}
		a.arena = append(a.arena, merged)
		mergedIdx := len(a.arena) - 1
		for i, idx := range slots {
			if idx != noSlot {
				slots[i] = mergedIdx
			}
		}
	}
}

// mergePerPC pools every computer's model for the same slot into one shared
// model, then gives every computer the same slot table, so each computer
// also inherits slots it had no data for.
func (a *ActivityDistribution) mergePerPC() {
	logger.Debug("merging models per computer")
	var merged weekSlots
	for i := range merged {
		merged[i] = noSlot
	}
	for _, slots := range a.slots {
		for i, idx := range slots {
			if idx == noSlot {
				continue
			}
			if merged[i] == noSlot {
				m := NewHourlyModel(a.params, Samples{})
				a.arena = append(a.arena, m)
				merged[i] = len(a.arena) - 1
			}
			a.arena[merged[i]].Extend(a.arena[idx])
		}
	}
	for pc := range a.slots {
		shared := merged
		a.slots[pc] = &shared
	}
}

// filterEmptyServers drops computers whose grid holds no complete bucket.
// They stay retrievable through EmptyServers for diagnostics.
func (a *ActivityDistribution) filterEmptyServers() {
	a.servers = a.servers[:0]
	a.emptyServers = a.emptyServers[:0]
	for pc, slots := range a.slots {
		empty := true
		for _, idx := range slots {
			if idx != noSlot {
				empty = false
				break
			}
		}
		if empty {
			a.emptyServers = append(a.emptyServers, pc)
			delete(a.slots, pc)
		} else {
			a.servers = append(a.servers, pc)
		}
	}
	sort.Strings(a.servers)
	sort.Strings(a.emptyServers)
	if len(a.emptyServers) > 0 {
		logger.Debug("filtered out servers with no data", "count", len(a.emptyServers))
	}
}

// Servers lists the computers with at least one complete bucket, sorted.
func (a *ActivityDistribution) Servers() []string {
	return a.servers
}

// EmptyServers lists the computers that were discarded during fitting.
func (a *ActivityDistribution) EmptyServers() []string {
	return a.emptyServers
}

// RandomActivity samples an activity-burst duration for the slot that
// contains timestamp.
func (a *ActivityDistribution) RandomActivity(rng *rand.Rand, cid string, timestamp float64) float64 {
	var d *dist.Empirical
	day, hour := week.DayHour(timestamp)
	if m := a.modelAt(cid, day, hour); m != nil {
		d = m.Activity()
	}
	return drawBounded(d, rng, activityFloor, a.params.Xmax)
}

// RandomInactivity samples an inactivity gap for the slot that contains
// timestamp, rejecting draws above the configured noise threshold.
func (a *ActivityDistribution) RandomInactivity(rng *rand.Rand, cid string, timestamp float64) float64 {
	var d *dist.Empirical
	day, hour := week.DayHour(timestamp)
	if m := a.modelAt(cid, day, hour); m != nil {
		d = m.Inactivity()
	}
	v := drawBounded(d, rng, a.params.Xmin, a.params.Xmax)
	if a.params.NoiseThreshold > 0 {
		const maxAttempts = 1000
		for attempts := 0; v > a.params.NoiseThreshold && attempts < maxAttempts; attempts++ {
			v = drawBounded(d, rng, a.params.Xmin, a.params.Xmax)
		}
	}
	return v
}

// OffInterval samples a voluntary-shutdown duration for the slot that
// contains timestamp.
func (a *ActivityDistribution) OffInterval(rng *rand.Rand, cid string, timestamp float64) float64 {
	var d *dist.Empirical
	day, hour := week.DayHour(timestamp)
	if m := a.modelAt(cid, day, hour); m != nil {
		d = m.OffDuration()
	}
	return drawBounded(d, rng, a.params.Xmin, a.params.Xmax)
}

// OffFrequency returns the expected voluntary-shutdown count for one
// (day, hour) slot.
func (a *ActivityDistribution) OffFrequency(cid string, day, hour int) float64 {
	m := a.modelAt(cid, day, hour)
	if m == nil {
		return 0
	}
	return m.MeanOffFraction()
}

// IdleTimeoutAt resolves the idle timeout from the slot that contains
// timestamp, falling back to the whole-history model when the walk finds
// nothing.
func (a *ActivityDistribution) IdleTimeoutAt(cid string, timestamp float64) float64 {
	day, hour := week.DayHour(timestamp)
	m := a.modelAt(cid, day, hour)
	if m == nil {
		return a.OptimalIdleTimeout(cid)
	}
	return m.OptimalIdleTimeout()
}

// OptimalIdleTimeout resolves the idle timeout over the computer's whole
// history. Computers without data get the configured default.
func (a *ActivityDistribution) OptimalIdleTimeout(cid string) float64 {
	if m, ok := a.flat[cid]; ok {
		return m.OptimalIdleTimeout()
	}
	slots, ok := a.slots[cid]
	if !ok {
		return a.params.DefaultTimeout
	}

	flat := NewHourlyModel(a.params, Samples{})
	seen := make(map[int]bool)
	for _, idx := range slots {
		if idx == noSlot || seen[idx] {
			continue
		}
		seen[idx] = true
		flat.Extend(a.arena[idx])
	}
	a.flat[cid] = flat
	if !flat.IsComplete() {
		return a.params.DefaultTimeout
	}
	return flat.OptimalIdleTimeout()
}

// GlobalIdleTimeout averages the whole-history timeout over the fleet.
func (a *ActivityDistribution) GlobalIdleTimeout() float64 {
	if a.globalValid {
		return a.globalTimeout
	}
	if len(a.servers) == 0 {
		return a.params.DefaultTimeout
	}
	var sum float64
	for _, cid := range a.servers {
		sum += a.OptimalIdleTimeout(cid)
	}
	a.globalTimeout = sum / float64(len(a.servers))
	a.globalValid = true
	return a.globalTimeout
}

// modelAt finds the model for (cid, day, hour), walking back one hour at a
// time (with week wraparound) when the slot is empty. A successful fallback
// is cached into the requested slot; an exhausted walk returns nil.
func (a *ActivityDistribution) modelAt(cid string, day, hour int) *HourlyModel {
	slots, ok := a.slots[cid]
	if !ok {
		return nil
	}
	requested := week.Index(day, hour)
	if idx := slots[requested]; idx != noSlot {
		return a.arena[idx]
	}

	d, h := day, hour
	for range week.Hours {
		d, h = week.Previous(d, h)
		if idx := slots[week.Index(d, h)]; idx != noSlot {
			slots[requested] = idx
			return a.arena[idx]
		}
	}
	logger.Warn("no model for slot", "computer", cid, "day", day, "hour", hour)
	return nil
}

func filterPositive(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func filterRange(values []float64, lo, hi float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lo && v <= hi {
			out = append(out, v)
		}
	}
	return out
}
