// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the simulator configuration.
type Config struct {
	// TracePath is the JSON usage trace to fit the models from. Unused
	// when FleetGenerator is set.
	TracePath string
	// DatabasePath is where the histogram database is written.
	DatabasePath string

	TargetSatisfaction    float64
	SatisfactionThreshold float64
	Xmin                  float64
	Xmax                  float64
	NoiseThreshold        float64
	DefaultTimeout        float64

	// PerHour keeps a separate model per hour-of-week bucket; unset, all
	// buckets of a computer are pooled. PerPC keeps a separate model per
	// computer; unset, all computers are pooled.
	PerHour bool
	PerPC   bool

	// SimulationTime is the simulated span of one run, in seconds.
	SimulationTime float64

	MaxRuns             int
	MaxIntervalWidth    float64
	Alpha               float64
	DisableAutoShutdown bool

	// FleetGenerator replaces the trace with a synthetic fleet of
	// FleetSize computers.
	FleetGenerator bool
	FleetSize      int

	CacheSize int
	Seed      uint64
	Plot      bool
	Debug     bool
}

// Default values
const (
	defaultDatabasePath          = "histogram.db"
	defaultTargetSatisfaction    = 90.0
	defaultSatisfactionThreshold = 600.0
	defaultXmin                  = 1.0
	defaultXmax                  = 10000.0
	defaultDefaultTimeout        = 1800.0
	defaultSimulationTime        = 7 * 24 * 3600.0
	defaultMaxRuns               = 100
	defaultMaxIntervalWidth      = 0.5
	defaultAlpha                 = 0.05
	defaultFleetSize             = 100
	defaultCacheSize             = 10000
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		TracePath:             getEnvString("TRACE_PATH", ""),
		DatabasePath:          getEnvString("DATABASE_PATH", defaultDatabasePath),
		TargetSatisfaction:    getEnvFloat("TARGET_SATISFACTION", defaultTargetSatisfaction),
		SatisfactionThreshold: getEnvFloat("SATISFACTION_THRESHOLD", defaultSatisfactionThreshold),
		Xmin:                  getEnvFloat("XMIN", defaultXmin),
		Xmax:                  getEnvFloat("XMAX", defaultXmax),
		NoiseThreshold:        getEnvFloat("NOISE_THRESHOLD", 0),
		DefaultTimeout:        getEnvFloat("DEFAULT_TIMEOUT", defaultDefaultTimeout),
		PerHour:               getEnvBool("PER_HOUR", false),
		PerPC:                 getEnvBool("PER_PC", false),
		SimulationTime:        getEnvFloat("SIMULATION_TIME", defaultSimulationTime),
		MaxRuns:               getEnvInt("MAX_RUNS", defaultMaxRuns),
		MaxIntervalWidth:      getEnvFloat("MAX_CONFIDENCE_INTERVAL_WIDTH", defaultMaxIntervalWidth),
		Alpha:                 getEnvFloat("ALPHA", defaultAlpha),
		DisableAutoShutdown:   getEnvBool("DISABLE_AUTO_SHUTDOWN", false),
		FleetGenerator:        getEnvBool("FLEET_GENERATOR", false),
		FleetSize:             getEnvInt("FLEET_SIZE", defaultFleetSize),
		CacheSize:             getEnvInt("CACHE_SIZE", defaultCacheSize),
		Seed:                  getEnvUint64("SEED", uint64(time.Now().UnixNano())),
		Plot:                  getEnvBool("PLOT", true),
		Debug:                 getEnvBool("DEBUG", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !c.FleetGenerator && c.TracePath == "" {
		return fmt.Errorf("TRACE_PATH is required unless FLEET_GENERATOR is set")
	}
	if c.TargetSatisfaction <= 0 || c.TargetSatisfaction >= 100 {
		return fmt.Errorf("TARGET_SATISFACTION must be in (0, 100), got %v", c.TargetSatisfaction)
	}
	if c.SatisfactionThreshold <= 60 {
		return fmt.Errorf("SATISFACTION_THRESHOLD must exceed the 60s grace period, got %v", c.SatisfactionThreshold)
	}
	if c.Xmin <= 0 || c.Xmin >= c.Xmax {
		return fmt.Errorf("inactivity domain [%v, %v] is invalid", c.Xmin, c.Xmax)
	}
	if c.SimulationTime <= 0 {
		return fmt.Errorf("SIMULATION_TIME must be positive, got %v", c.SimulationTime)
	}
	if c.MaxRuns < 1 {
		return fmt.Errorf("MAX_RUNS must be at least 1, got %d", c.MaxRuns)
	}
	if c.MaxIntervalWidth <= 0 {
		return fmt.Errorf("MAX_CONFIDENCE_INTERVAL_WIDTH must be positive, got %v", c.MaxIntervalWidth)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("ALPHA must be in (0, 1), got %v", c.Alpha)
	}
	if c.FleetGenerator && c.FleetSize < 1 {
		return fmt.Errorf("FLEET_SIZE must be at least 1, got %d", c.FleetSize)
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory location
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "idlesim", ".env"))
	}

	return paths
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvUint64 retrieves an unsigned integer environment variable or returns
// the default.
func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
