// Package report renders the simulation results for the terminal: a styled
// summary of both estimates and, optionally, hourly charts per metric.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/idlesim/internal/metric"
	"github.com/j-veylop/idlesim/internal/run"
	"github.com/j-veylop/idlesim/internal/stats"
	"github.com/j-veylop/idlesim/internal/week"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))
)

const (
	chartWidth  = 80
	chartHeight = 8
)

// Summary renders the converged estimates as a bordered box.
func Summary(res run.Result, globalTimeout float64, servers int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Idle timeout estimate"))
	b.WriteString("\n\n")
	b.WriteString(line("Recommended idle timeout", fmt.Sprintf("%.0f s", globalTimeout)))
	b.WriteString(line("User satisfaction", interval(res.UserSatisfaction, res.UserSatisfactionHalfWidth)))
	b.WriteString(line("Removed inactivity", interval(res.RemovedInactivity, res.RemovedInactivityHalfWidth)))
	b.WriteString(line("Computers", fmt.Sprintf("%d", servers)))
	b.WriteString(line("Runs", fmt.Sprintf("%d", res.Runs)))

	if !res.Converged {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("estimates did not converge, treat the intervals as lower bounds"))
	}

	return boxStyle.Render(b.String())
}

func line(label, value string) string {
	return fmt.Sprintf("%s %s\n",
		labelStyle.Render(fmt.Sprintf("%-26s", label)),
		valueStyle.Render(value))
}

func interval(mean, halfWidth float64) string {
	if math.IsInf(halfWidth, 1) {
		return fmt.Sprintf("%.2f %% (single run)", mean)
	}
	return fmt.Sprintf("%.2f %% ± %.2f", mean, halfWidth)
}

// HourlyCharts renders one chart per metric: the number of observations in
// each hour-of-week bucket of the given run. Metrics with no observations
// are skipped.
func HourlyCharts(st *stats.Stats, runIdx int) (string, error) {
	var b strings.Builder
	for _, m := range metric.All {
		counts, err := st.HourlyCounts(m, runIdx)
		if err != nil {
			return "", fmt.Errorf("failed to chart %s: %w", m, err)
		}

		series := make([]float64, week.Hours)
		var total int
		for i, n := range counts {
			series[i] = float64(n)
			total += n
		}
		if total == 0 {
			continue
		}

		b.WriteString("\n")
		b.WriteString(titleStyle.Render(string(m)))
		b.WriteString("\n")
		b.WriteString(asciigraph.Plot(series,
			asciigraph.Height(chartHeight),
			asciigraph.Width(chartWidth),
			asciigraph.Caption("observations per hour of week (Sunday 0:00 to Saturday 23:00)"),
		))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// MedianChart renders the hourly median of one metric over the given run.
func MedianChart(st *stats.Stats, m metric.Metric, runIdx int) (string, error) {
	medians, err := st.HourlyPercentiles(m, runIdx, 0.5)
	if err != nil {
		return "", fmt.Errorf("failed to chart %s medians: %w", m, err)
	}

	var total float64
	series := make([]float64, week.Hours)
	for i, v := range medians {
		series[i] = v
		total += v
	}
	if total == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(string(m) + " median"))
	b.WriteString("\n")
	b.WriteString(asciigraph.Plot(series,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.Caption("median seconds per hour of week"),
	))
	b.WriteString("\n")
	return b.String(), nil
}
