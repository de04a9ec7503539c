package sim

import (
	"math"
	"math/rand/v2"

	"github.com/j-veylop/idlesim/internal/logger"
	"github.com/j-veylop/idlesim/internal/metric"
	"github.com/j-veylop/idlesim/internal/model"
	"github.com/j-veylop/idlesim/internal/week"
)

// User models the person at one machine: alternating activity bursts and
// inactivity gaps, with occasional voluntary shutdowns shaped by the
// hour-of-week shutdown frequency.
type User struct {
	engine   *Engine
	computer *Computer
	rec      Recorder
	src      model.Source
	rng      *rand.Rand
	cid      string

	// slot and budget implement the hourly shutdown allowance: the
	// expected count is redrawn on every hour-of-week transition and
	// spent one unit per shutdown taken.
	slot   int
	budget float64
}

func newUser(engine *Engine, computer *Computer, rec Recorder, src model.Source, rng *rand.Rand, cid string) *User {
	return &User{
		engine:   engine,
		computer: computer,
		rec:      rec,
		src:      src,
		rng:      rng,
		cid:      cid,
		slot:     -1,
	}
}

// Start enters the serve/rest loop.
func (u *User) Start() {
	u.serve()
}

func (u *User) serve() {
	u.computer.Serve(u.rest)
}

// rest runs after an activity burst: the user either shuts the machine
// down for a while or walks away for an inactivity gap.
func (u *User) rest() {
	now := u.engine.Now()

	if u.indicateShutdown(now) {
		off := math.Round(u.src.OffInterval(u.rng, u.cid, now))
		if off < 1 {
			off = 1
		}
		u.computer.Shutdown()
		u.record(metric.UserShutdownTime, now, off)
		u.engine.Schedule(off, u.serve)
		return
	}

	gap := u.src.RandomInactivity(u.rng, u.cid, now)
	u.record(metric.InactivityTime, now, gap)
	u.engine.Schedule(gap, u.serve)
}

// indicateShutdown decides whether the user powers the machine off now.
// The hourly allowance is redrawn when the hour-of-week slot changes and
// decremented for every shutdown taken, so an expected count above one
// forces shutdowns until the remainder behaves like a probability again.
func (u *User) indicateShutdown(now float64) bool {
	slot := week.HourOfWeek(now)
	if slot != u.slot {
		u.slot = slot
		day, hour := week.HourToDay(slot)
		u.budget = u.src.OffFrequency(u.cid, day, hour)
	}
	if u.budget <= 0 {
		return false
	}
	if u.rng.Float64() < u.budget {
		u.budget--
		return true
	}
	return false
}

func (u *User) record(m metric.Metric, timestamp, value float64) {
	if err := u.rec.Record(m, timestamp, u.cid, value); err != nil {
		logger.Error("failed to record observation",
			"metric", string(m), "computer", u.cid, "error", err)
	}
}
