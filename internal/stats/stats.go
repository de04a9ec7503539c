// Package stats aggregates the simulation's observations: per-metric
// histograms, the satisfaction and removed-inactivity results, and the
// conservation checks that guard the simulation's bookkeeping.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/j-veylop/idlesim/internal/db"
	"github.com/j-veylop/idlesim/internal/logger"
	"github.com/j-veylop/idlesim/internal/metric"
	"github.com/j-veylop/idlesim/internal/model"
	"github.com/j-veylop/idlesim/internal/week"
)

// Stats records the observations of the current run and answers queries
// over any flushed run.
type Stats struct {
	src       model.Source
	threshold float64
	hists     map[metric.Metric]*db.Histogram
	run       int
}

// New creates the per-metric histograms on database. Threshold is the
// satisfaction ramp length in seconds.
func New(database *db.DB, src model.Source, threshold float64, cacheSize int) *Stats {
	hists := make(map[metric.Metric]*db.Histogram, len(metric.All))
	for _, m := range metric.All {
		hists[m] = database.NewHistogram(m, cacheSize)
	}
	return &Stats{
		src:       src,
		threshold: threshold,
		hists:     hists,
	}
}

// Run returns the index of the run currently being recorded.
func (s *Stats) Run() int {
	return s.run
}

// Reset finishes the current run and starts recording the next one. The
// finished run's rows stay queryable.
func (s *Stats) Reset() error {
	if err := s.Flush(); err != nil {
		return err
	}
	s.run++
	return nil
}

// Record buffers one observation for the current run.
func (s *Stats) Record(m metric.Metric, timestamp float64, computer string, value float64) error {
	h, ok := s.hists[m]
	if !ok {
		return fmt.Errorf("no histogram for metric %q", m)
	}
	return h.Append(s.run, timestamp, computer, value)
}

// Flush writes every buffered observation of the current run.
func (s *Stats) Flush() error {
	for _, h := range s.hists {
		if err := h.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Sum totals a metric over one run, for one computer or the fleet when
// computer is empty.
func (s *Stats) Sum(m metric.Metric, run int, computer string) (float64, error) {
	return s.hists[m].Sum(run, computer)
}

// Count returns the number of observations of a metric over one run.
func (s *Stats) Count(m metric.Metric, run int, computer string) (int, error) {
	return s.hists[m].Count(run, computer)
}

// Percentile returns the p-quantile (0..1) of a metric's values over one
// run, or 0 when the run recorded nothing.
func (s *Stats) Percentile(m metric.Metric, run int, p float64) (float64, error) {
	values, err := s.hists[m].Values(run, "")
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	sort.Float64s(values)
	return stat.Quantile(p, stat.Empirical, values, nil), nil
}

// HourlyCounts counts a metric's observations by hour of week over one run.
func (s *Stats) HourlyCounts(m metric.Metric, run int) ([week.Hours]int, error) {
	return s.hists[m].HourlyCounts(run)
}

// HourlyPercentiles returns the p-quantile of a metric per hour-of-week
// bucket over one run. Empty buckets yield 0.
func (s *Stats) HourlyPercentiles(m metric.Metric, run int, p float64) ([week.Hours]float64, error) {
	var out [week.Hours]float64
	buckets, err := s.hists[m].HourlyValues(run)
	if err != nil {
		return out, err
	}
	for i, values := range buckets {
		if len(values) == 0 {
			continue
		}
		sort.Float64s(values)
		out[i] = stat.Quantile(p, stat.Empirical, values, nil)
	}
	return out, nil
}

// UserSatisfaction scores one run: for each computer, the mean weighted
// satisfaction of its simulated inactivity intervals against its own
// optimal timeout, averaged over the fleet and scaled to percent.
func (s *Stats) UserSatisfaction(run int) (float64, error) {
	var sum float64
	var n int
	for _, cid := range s.src.Servers() {
		values, err := s.hists[metric.InactivityTime].Values(run, cid)
		if err != nil {
			return 0, err
		}
		if len(values) == 0 {
			continue
		}
		timeout := s.src.OptimalIdleTimeout(cid)
		sum += model.MeanSatisfaction(values, timeout, s.threshold)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n) * 100, nil
}

// RemovedInactivity scores one run: the share of simulated inactivity time
// that the fleet-wide timeout would cut off, in percent.
func (s *Stats) RemovedInactivity(run int) (float64, error) {
	values, err := s.hists[metric.InactivityTime].Values(run, "")
	if err != nil {
		return 0, err
	}

	timeout := s.src.GlobalIdleTimeout()
	var removed, total float64
	for _, v := range values {
		total += v
		if v > timeout {
			removed += v - timeout
		}
	}
	if total == 0 {
		return 0, nil
	}
	return removed / total * 100, nil
}

// Validate checks the conservation identities of one run against the
// simulated duration and returns a description of every violation. The
// state times of each computer must cover the simulated interval, and idle
// time plus auto-shutdown time must equal inactivity time.
func (s *Stats) Validate(run int, simTime float64) ([]string, error) {
	var violations []string
	for _, cid := range s.src.Servers() {
		sums := make(map[metric.Metric]float64, len(metric.All))
		for _, m := range metric.All {
			sum, err := s.Sum(m, run, cid)
			if err != nil {
				return nil, err
			}
			sums[m] = sum
		}

		covered := sums[metric.ActivityTime] + sums[metric.InactivityTime] +
			sums[metric.UserShutdownTime]
		if rel := math.Abs(covered-simTime) / simTime; rel > 0.1 {
			violations = append(violations, fmt.Sprintf(
				"%s: state times cover %.0fs of %.0fs simulated (%.1f%% off)",
				cid, covered, simTime, rel*100))
		}

		inactivity := sums[metric.InactivityTime]
		accounted := sums[metric.IdleTime] + sums[metric.AutoShutdownTime]
		if inactivity > 0 {
			if rel := math.Abs(accounted-inactivity) / inactivity; rel > 0.01 {
				violations = append(violations, fmt.Sprintf(
					"%s: idle + auto-shutdown = %.0fs, inactivity = %.0fs (%.1f%% off)",
					cid, accounted, inactivity, rel*100))
			}
		}
	}

	for _, v := range violations {
		logger.Warn("conservation check failed", "detail", v)
	}
	return violations, nil
}
