package run

import (
	"fmt"

	"github.com/j-veylop/idlesim/internal/logger"
	"github.com/j-veylop/idlesim/internal/sim"
)

// Result is the converged estimate of both simulation scores.
type Result struct {
	Runs int

	UserSatisfaction          float64
	UserSatisfactionHalfWidth float64

	RemovedInactivity          float64
	RemovedInactivityHalfWidth float64

	// Converged reports whether both intervals shrank below the
	// configured width before the run cap.
	Converged bool
}

// Simulator runs one independent simulation. Satisfied by sim.Simulation.
type Simulator interface {
	Run(runIndex int) (sim.Results, error)
}

// Runner repeats simulation runs until both confidence intervals are
// narrower than MaxWidth, or MaxRuns is reached.
type Runner struct {
	MaxRuns  int
	MaxWidth float64
	Alpha    float64
}

// Run drives the simulation to a converged estimate. Hitting the run cap
// without convergence is reported, not fatal.
func (r *Runner) Run(s Simulator) (Result, error) {
	if r.MaxRuns < 1 {
		return Result{}, fmt.Errorf("max runs must be at least 1, got %d", r.MaxRuns)
	}

	var us, ri Estimator
	for i := 0; i < r.MaxRuns; i++ {
		res, err := s.Run(i)
		if err != nil {
			return Result{}, fmt.Errorf("run %d failed: %w", i, err)
		}
		us.Add(res.UserSatisfaction)
		ri.Add(res.RemovedInactivity)
		logger.Debug("run finished",
			"run", i,
			"user_satisfaction", res.UserSatisfaction,
			"removed_inactivity", res.RemovedInactivity)

		if r.converged(&us, &ri) {
			return r.result(&us, &ri, true), nil
		}
	}

	if r.MaxRuns == 1 {
		logger.Warn("single run requested, results carry no confidence interval")
	} else {
		logger.Warn("hit the run cap before the intervals converged",
			"runs", r.MaxRuns, "max_width", r.MaxWidth)
	}
	return r.result(&us, &ri, false), nil
}

func (r *Runner) converged(us, ri *Estimator) bool {
	if us.N() < 2 {
		return false
	}
	return us.HalfWidth(r.Alpha) < r.MaxWidth && ri.HalfWidth(r.Alpha) < r.MaxWidth
}

func (r *Runner) result(us, ri *Estimator, converged bool) Result {
	return Result{
		Runs:                       us.N(),
		UserSatisfaction:           us.Mean(),
		UserSatisfactionHalfWidth:  us.HalfWidth(r.Alpha),
		RemovedInactivity:          ri.Mean(),
		RemovedInactivityHalfWidth: ri.HalfWidth(r.Alpha),
		Converged:                  converged,
	}
}
