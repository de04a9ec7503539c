package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/j-veylop/idlesim/internal/logger"
	"github.com/j-veylop/idlesim/internal/model"
	"github.com/j-veylop/idlesim/internal/stats"
)

// Config carries the settings of one simulation.
type Config struct {
	// Duration is the simulated span in seconds.
	Duration float64
	// DisableAutoShutdown keeps the idle bookkeeping but never powers
	// machines off, for baseline comparisons.
	DisableAutoShutdown bool
	// Debug enables the progress monitor and the conservation checks.
	Debug bool
	// Seed keys the per-run random streams.
	Seed uint64
}

// Results holds the scores of one finished run.
type Results struct {
	Run               int
	UserSatisfaction  float64
	RemovedInactivity float64
}

// Simulation drives independent runs of the fleet over a model source.
type Simulation struct {
	src   model.Source
	stats *stats.Stats
	cfg   Config
}

// New creates a simulation recording into st.
func New(src model.Source, st *stats.Stats, cfg Config) *Simulation {
	return &Simulation{src: src, stats: st, cfg: cfg}
}

// Run simulates the fleet once and returns the run's scores. Every run
// gets a fresh engine and a random stream keyed by (seed, run index), so
// runs are independent and a seeded invocation is reproducible.
func (s *Simulation) Run(runIndex int) (Results, error) {
	servers := s.src.Servers()
	if len(servers) == 0 {
		return Results{}, fmt.Errorf("no computers to simulate")
	}

	engine := NewEngine()
	rng := rand.New(rand.NewPCG(s.cfg.Seed, uint64(runIndex)))
	for _, cid := range servers {
		computer := newComputer(engine, s.stats, s.src, rng, cid, s.cfg.DisableAutoShutdown)
		newUser(engine, computer, s.stats, s.src, rng, cid).Start()
	}

	if s.cfg.Debug {
		s.monitorProgress(engine, runIndex)
	}

	engine.Run(s.cfg.Duration)

	run := s.stats.Run()
	if err := s.stats.Flush(); err != nil {
		return Results{}, fmt.Errorf("failed to flush run %d: %w", run, err)
	}

	us, err := s.stats.UserSatisfaction(run)
	if err != nil {
		return Results{}, fmt.Errorf("failed to score run %d: %w", run, err)
	}
	ri, err := s.stats.RemovedInactivity(run)
	if err != nil {
		return Results{}, fmt.Errorf("failed to score run %d: %w", run, err)
	}

	if s.cfg.Debug {
		if _, err := s.stats.Validate(run, s.cfg.Duration); err != nil {
			return Results{}, fmt.Errorf("failed to validate run %d: %w", run, err)
		}
	}

	if err := s.stats.Reset(); err != nil {
		return Results{}, fmt.Errorf("failed to finish run %d: %w", run, err)
	}
	return Results{
		Run:               run,
		UserSatisfaction:  us,
		RemovedInactivity: ri,
	}, nil
}

// monitorProgress logs every tenth of the simulated span.
func (s *Simulation) monitorProgress(engine *Engine, runIndex int) {
	for i := 1; i <= 10; i++ {
		pct := i * 10
		engine.Schedule(s.cfg.Duration*float64(i)/10, func() {
			logger.Debug("simulation progress",
				"run", runIndex, "percent", pct, "time", engine.Now())
		})
	}
}
