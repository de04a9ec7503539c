// Package main is the entry point for the idle-timeout simulator. It fits
// behavioral models from a usage trace (or generates a synthetic fleet),
// simulates the fleet until the result estimates converge and reports the
// recommended idle timeout.
package main

import (
	"fmt"
	"os"

	"github.com/j-veylop/idlesim/internal/config"
	"github.com/j-veylop/idlesim/internal/db"
	"github.com/j-veylop/idlesim/internal/logger"
	"github.com/j-veylop/idlesim/internal/metric"
	"github.com/j-veylop/idlesim/internal/model"
	"github.com/j-veylop/idlesim/internal/report"
	"github.com/j-veylop/idlesim/internal/run"
	"github.com/j-veylop/idlesim/internal/sim"
	"github.com/j-veylop/idlesim/internal/stats"
	"github.com/j-veylop/idlesim/internal/trace"
	"github.com/j-veylop/idlesim/internal/version"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && (os.Args[1] == "-v" || os.Args[1] == "--version") {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Handle help flag
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		printUsage()
		os.Exit(0)
	}

	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute contains the main application logic, separated for cleaner error
// handling.
func execute() error {
	// 1. Load configuration from .env files and environment variables
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetDebug(cfg.Debug)

	// 2. Build the model source: trace-fitted or synthetic
	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	logger.Info("model source ready",
		"computers", len(src.Servers()),
		"global_timeout", src.GlobalIdleTimeout())

	// 3. Open the histogram database
	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open histogram database: %w", err)
	}
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing database: %v\n", closeErr)
		}
	}()

	// 4. Wire the stats layer and the simulation
	st := stats.New(database, src, cfg.SatisfactionThreshold, cfg.CacheSize)
	simulation := sim.New(src, st, sim.Config{
		Duration:            cfg.SimulationTime,
		DisableAutoShutdown: cfg.DisableAutoShutdown,
		Debug:               cfg.Debug,
		Seed:                cfg.Seed,
	})

	// 5. Repeat runs until both estimates converge
	runner := &run.Runner{
		MaxRuns:  cfg.MaxRuns,
		MaxWidth: cfg.MaxIntervalWidth,
		Alpha:    cfg.Alpha,
	}
	result, err := runner.Run(simulation)
	if err != nil {
		return err
	}

	// 6. Report
	fmt.Println(report.Summary(result, src.GlobalIdleTimeout(), len(src.Servers())))
	if cfg.Plot {
		lastRun := result.Runs - 1
		charts, err := report.HourlyCharts(st, lastRun)
		if err != nil {
			return err
		}
		fmt.Print(charts)
		medians, err := report.MedianChart(st, metric.InactivityTime, lastRun)
		if err != nil {
			return err
		}
		fmt.Print(medians)
	}

	return nil
}

// buildSource fits the trace, or generates a synthetic fleet when
// FLEET_GENERATOR is set.
func buildSource(cfg *config.Config) (model.Source, error) {
	params := model.Params{
		TargetSatisfaction:    cfg.TargetSatisfaction,
		SatisfactionThreshold: cfg.SatisfactionThreshold,
		Xmin:                  cfg.Xmin,
		Xmax:                  cfg.Xmax,
		NoiseThreshold:        cfg.NoiseThreshold,
		DefaultTimeout:        cfg.DefaultTimeout,
	}

	if cfg.FleetGenerator {
		logger.Info("generating synthetic fleet", "size", cfg.FleetSize)
		return model.NewFleetGenerator(params, cfg.FleetSize), nil
	}

	records, err := trace.Load(cfg.TracePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load trace: %w", err)
	}
	src, err := model.NewActivityDistribution(records, params, cfg.PerHour, cfg.PerPC)
	if err != nil {
		return nil, fmt.Errorf("failed to fit models: %w", err)
	}
	if empty := src.EmptyServers(); len(empty) > 0 {
		logger.Info("discarded computers without usable data", "count", len(empty))
	}
	return src, nil
}

// printUsage prints the command-line usage information.
func printUsage() {
	fmt.Println(`idlesim - idle-shutdown timeout estimator for workstation fleets

Usage:
  idlesim [flags]

Flags:
  -h, --help      Show this help message
  -v, --version   Show version information

Environment Variables:
  TRACE_PATH                     JSON usage trace to fit models from
  DATABASE_PATH                  Histogram database path (default: histogram.db)
  TARGET_SATISFACTION            Satisfaction target in percent (default: 90)
  SATISFACTION_THRESHOLD         Satisfaction ramp length in seconds (default: 600)
  XMIN, XMAX                     Inactivity domain in seconds (default: 1, 10000)
  NOISE_THRESHOLD                Reject sampled gaps above this, 0 disables
  DEFAULT_TIMEOUT                Timeout for computers without data (default: 1800)
  PER_HOUR, PER_PC               Keep per-hour / per-computer models (default: pooled)
  SIMULATION_TIME                Simulated seconds per run (default: one week)
  MAX_RUNS                       Run cap (default: 100)
  MAX_CONFIDENCE_INTERVAL_WIDTH  Convergence width in percent points (default: 0.5)
  ALPHA                          Confidence level parameter (default: 0.05)
  DISABLE_AUTO_SHUTDOWN          Never power machines off, for baselines
  FLEET_GENERATOR, FLEET_SIZE    Simulate a synthetic fleet instead of a trace
  SEED                           Random seed for reproducible runs
  PLOT                           Render hourly charts (default: true)
  DEBUG                          Verbose logging, progress and conservation checks

Configuration:
  The application looks for .env files in the current directory and in
  ~/.config/idlesim/.env.`)
}
