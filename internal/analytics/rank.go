package analytics

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/kgrahame/ovoau/internal/domain"
)

// DayUsage is one day's total consumption, used by the high-usage ranking.
type DayUsage struct {
	Day string // local date, YYYY-MM-DD
	KWh float64
}

// TopUsageDays ranks the trailing window's local days by total consumption
// descending and returns the top n. Ties go to the more recent date.
func TopUsageDays(series []domain.HourlyReading, now time.Time, lookbackDays, n int) []DayUsage {
	totals := dailyTotals(series, now, lookbackDays)

	days := lo.MapToSlice(totals, func(day string, kwh float64) DayUsage {
		return DayUsage{Day: day, KWh: kwh}
	})
	sort.Slice(days, func(i, j int) bool {
		if days[i].KWh != days[j].KWh {
			return days[i].KWh > days[j].KWh
		}
		return days[i].Day > days[j].Day
	})

	if len(days) > n {
		days = days[:n]
	}
	return days
}

// DailyBreakdown lists per-day kWh totals over [from, to] inclusive, date
// ascending. Days without readings are omitted.
func DailyBreakdown(series []domain.HourlyReading, from, to time.Time) []DayUsage {
	loKey, hiKey := dateKey(from), dateKey(to)
	totals := make(map[string]float64)
	for _, r := range series {
		key := dateKey(r.PeriodStart)
		if key < loKey || key > hiKey {
			continue
		}
		totals[key] += r.ConsumptionKWh
	}

	days := lo.MapToSlice(totals, func(day string, kwh float64) DayUsage {
		return DayUsage{Day: day, KWh: kwh}
	})
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days
}

// HourlyHeatmap averages consumption per (weekday, local hour) cell over the
// trailing window. Cells without observations stay undefined; indexing
// follows time.Weekday (Sunday = 0).
func HourlyHeatmap(series []domain.HourlyReading, now time.Time, lookbackDays int) [7][24]Value {
	from, to := dateKey(now.AddDate(0, 0, -(lookbackDays - 1))), dateKey(now)

	var sums [7][24]float64
	var counts [7][24]int
	for _, r := range series {
		key := dateKey(r.PeriodStart)
		if key < from || key > to {
			continue
		}
		wd, hour := r.PeriodStart.Weekday(), r.PeriodStart.Hour()
		sums[wd][hour] += r.ConsumptionKWh
		counts[wd][hour]++
	}

	var cells [7][24]Value
	for wd := range cells {
		for hour := range cells[wd] {
			if counts[wd][hour] > 0 {
				cells[wd][hour] = Defined(sums[wd][hour] / float64(counts[wd][hour]))
			}
		}
	}
	return cells
}
