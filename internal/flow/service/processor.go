package service

import (
	"math"
	"sort"
	"strconv"

	flowdomain "github.com/sgericke98/beacon-l2c-sub000/internal/flow/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/period"
	"github.com/sgericke98/beacon-l2c-sub000/internal/trend"
)

type stageStats struct {
	averageDays float64
	medianDays  float64
	performance int
	recordCount int
}

// computeStageStats aggregates the non-null durations of one stage.
// The median takes the upper-middle element on even-length inputs.
func computeStageStats(durations []float64, targetDays float64) stageStats {
	if len(durations) == 0 {
		return stageStats{}
	}

	sorted := make([]float64, len(durations))
	copy(sorted, durations)
	sort.Float64s(sorted)

	var sum float64
	for _, d := range sorted {
		sum += d
	}
	median := sorted[len(sorted)/2]

	return stageStats{
		averageDays: sum / float64(len(sorted)),
		medianDays:  median,
		performance: performanceScore(median, targetDays),
		recordCount: len(sorted),
	}
}

// performanceScore rewards medians at or below target with 100 and decays
// proportionally above it.
func performanceScore(median, target float64) int {
	if target <= 0 {
		return 0
	}
	score := target / math.Max(median, target) * 100
	return int(math.Round(math.Max(0, score)))
}

func formatDuration(days float64) string {
	return strconv.FormatFloat(days, 'f', -1, 64) + " days"
}

// buildStage computes the full stage block: current-window stats, trends
// against last month and last quarter, and drill-down rows.
func buildStage[T any](
	name string,
	rows []T,
	dateOf func(T) string,
	durationOf func(T) *float64,
	targetDays float64,
	periods period.Set,
	detailOf func(T, string) flowdomain.DetailRow,
) flowdomain.StageMetrics {
	current := period.Filter(rows, dateOf, periods.Current)
	lastMonth := period.Filter(rows, dateOf, periods.LastMonth)
	lastQuarter := period.Filter(rows, dateOf, periods.LastQuarter)

	currentStats := computeStageStats(durations(current, durationOf), targetDays)
	monthStats := computeStageStats(durations(lastMonth, durationOf), targetDays)
	quarterStats := computeStageStats(durations(lastQuarter, durationOf), targetDays)

	details := make([]flowdomain.DetailRow, 0, len(current))
	for _, row := range current {
		d := durationOf(row)
		if d == nil {
			continue
		}
		details = append(details, detailOf(row, formatDuration(*d)))
	}

	return flowdomain.StageMetrics{
		Stage:         name,
		AverageDays:   currentStats.averageDays,
		MedianDays:    currentStats.medianDays,
		Performance:   currentStats.performance,
		RecordCount:   currentStats.recordCount,
		VsLastMonth:   compareStats(currentStats, monthStats),
		VsLastQuarter: compareStats(currentStats, quarterStats),
		DetailedData:  details,
	}
}

func compareStats(current, previous stageStats) flowdomain.StageTrend {
	return flowdomain.StageTrend{
		AverageDays: trend.Compare(current.averageDays, previous.averageDays),
		Performance: trend.Compare(float64(current.performance), float64(previous.performance)),
		RecordCount: trend.Compare(float64(current.recordCount), float64(previous.recordCount)),
	}
}

func durations[T any](rows []T, durationOf func(T) *float64) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		if d := durationOf(row); d != nil {
			out = append(out, *d)
		}
	}
	return out
}
