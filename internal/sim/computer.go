package sim

import (
	"math/rand/v2"

	"github.com/j-veylop/idlesim/internal/logger"
	"github.com/j-veylop/idlesim/internal/metric"
	"github.com/j-veylop/idlesim/internal/model"
)

// Status is a machine's power state.
type Status int

// Power states.
const (
	Off Status = iota
	On
)

// Recorder receives the simulation's observations. Implemented by
// stats.Stats; tests substitute an in-memory recorder.
type Recorder interface {
	Record(m metric.Metric, timestamp float64, computer string, value float64) error
}

// Computer models one machine: its power state, idle timer and the time
// bookkeeping around both. All methods run on the engine's event loop.
type Computer struct {
	engine *Engine
	rec    Recorder
	src    model.Source
	rng    *rand.Rand
	cid    string

	status              Status
	disableAutoShutdown bool

	// idleArmed tracks the span since the machine went idle even when
	// auto shutdown is disabled and no timer event exists.
	idleArmed bool
	idleStart float64
	idleTimer *Handle

	wasAutoShutdown bool
	autoShutdownAt  float64
}

// newComputer creates a machine that is on and idle at the current time.
func newComputer(engine *Engine, rec Recorder, src model.Source, rng *rand.Rand, cid string, disableAutoShutdown bool) *Computer {
	c := &Computer{
		engine:              engine,
		rec:                 rec,
		src:                 src,
		rng:                 rng,
		cid:                 cid,
		status:              On,
		disableAutoShutdown: disableAutoShutdown,
	}
	c.armIdleTimer()
	return c
}

// Status returns the machine's power state.
func (c *Computer) Status() Status {
	return c.status
}

// Serve runs one activity burst: the machine wakes if needed, works for a
// sampled duration, re-arms its idle timer and then calls done.
func (c *Computer) Serve(done func()) {
	if c.status == Off {
		c.powerOn()
	} else {
		c.interruptIdle()
	}

	start := c.engine.Now()
	duration := c.src.RandomActivity(c.rng, c.cid, start)
	c.engine.Schedule(duration, func() {
		c.record(metric.ActivityTime, start, duration)
		c.armIdleTimer()
		done()
	})
}

// Shutdown powers the machine off on the user's initiative.
func (c *Computer) Shutdown() {
	c.interruptIdle()
	c.status = Off
	c.wasAutoShutdown = false
}

// armIdleTimer starts counting idle time and schedules the auto shutdown.
func (c *Computer) armIdleTimer() {
	c.idleStart = c.engine.Now()
	c.idleArmed = true
	if c.disableAutoShutdown {
		c.idleTimer = nil
		return
	}
	timeout := c.src.IdleTimeoutAt(c.cid, c.idleStart)
	c.idleTimer = c.engine.Schedule(timeout, c.idleExpired)
}

// idleExpired fires when the idle timer runs out: the full idle span is
// recorded and the machine powers off.
func (c *Computer) idleExpired() {
	elapsed := c.engine.Now() - c.idleStart
	c.record(metric.IdleTime, c.idleStart, elapsed)
	c.idleArmed = false
	c.idleTimer = nil

	c.status = Off
	c.wasAutoShutdown = true
	c.autoShutdownAt = c.engine.Now()
}

// interruptIdle stops the idle timer and records the idle span elapsed so
// far.
func (c *Computer) interruptIdle() {
	if !c.idleArmed {
		return
	}
	if c.idleTimer != nil {
		c.idleTimer.Cancel()
		c.idleTimer = nil
	}
	elapsed := c.engine.Now() - c.idleStart
	c.record(metric.IdleTime, c.idleStart, elapsed)
	c.idleArmed = false
}

// powerOn wakes the machine. A wake that follows an auto shutdown records
// the span the machine spent needlessly off.
func (c *Computer) powerOn() {
	if c.wasAutoShutdown {
		span := c.engine.Now() - c.autoShutdownAt
		c.record(metric.AutoShutdownTime, c.autoShutdownAt, span)
		c.wasAutoShutdown = false
	}
	c.status = On
}

func (c *Computer) record(m metric.Metric, timestamp, value float64) {
	if err := c.rec.Record(m, timestamp, c.cid, value); err != nil {
		logger.Error("failed to record observation",
			"metric", string(m), "computer", c.cid, "error", err)
	}
}
