// Package analytics derives rolling-window statistics from cached hourly
// readings. Every function is pure: inputs are a series snapshot, a reference
// "now" in the account's local timezone, and optionally a rate table. Calendar
// bucketing uses each reading's own recorded UTC offset, so day boundaries
// stay correct across the March/October DST changeovers.
package analytics

import (
	"time"

	"github.com/kgrahame/ovoau/internal/domain"
)

// Snapshot is an immutable view of the coordinator's cached streams.
type Snapshot = map[domain.Stream][]domain.HourlyReading

// Value is a float that knows whether it exists. Metrics report "no data"
// distinctly from zero: an empty window and a window of zeros are different
// answers.
type Value struct {
	V       float64
	Defined bool
}

func Defined(v float64) Value { return Value{V: v, Defined: true} }

func Undefined() Value { return Value{} }

// Total is a windowed sum of consumption and cost. Undefined when the window
// holds no points at all.
type Total struct {
	KWh  Value
	Cost Value
}

// AggregatedPeriod is a labelled cross-stream summary of one window, the
// shape consumed by monthly sensor pairs.
type AggregatedPeriod struct {
	Label        string
	Start, End   time.Time
	SolarKWh     float64
	GridKWh      float64
	ExportKWh    float64
	SolarCost    float64
	GridCost     float64
	ExportCredit float64
}

// dateKey renders the calendar date in the timestamp's own offset.
// Keys compare lexically in date order.
func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// windowTotal sums a series over the inclusive local-date window [from, to].
func windowTotal(series []domain.HourlyReading, from, to time.Time) Total {
	lo, hi := dateKey(from), dateKey(to)
	var kwh, cost float64
	seen := false
	for _, r := range series {
		key := dateKey(r.PeriodStart)
		if key < lo || key > hi {
			continue
		}
		seen = true
		kwh += r.ConsumptionKWh
		cost += r.Cost()
	}
	if !seen {
		return Total{}
	}
	return Total{KWh: Defined(kwh), Cost: Defined(cost)}
}

// DayTotal sums one stream for a single calendar day.
func DayTotal(series []domain.HourlyReading, day time.Time) Total {
	return windowTotal(series, day, day)
}

// TrailingTotal sums the last n calendar days, the day holding now included.
func TrailingTotal(series []domain.HourlyReading, now time.Time, days int) Total {
	return windowTotal(series, now.AddDate(0, 0, -(days-1)), now)
}

// MonthTotal sums the calendar month holding ref, up to and including ref.
func MonthTotal(series []domain.HourlyReading, ref time.Time) Total {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return windowTotal(series, first, ref)
}

// YearTotal sums the calendar year holding ref, up to and including ref.
func YearTotal(series []domain.HourlyReading, ref time.Time) Total {
	first := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
	return windowTotal(series, first, ref)
}

// Aggregate builds a labelled cross-stream summary for [from, to] inclusive.
func Aggregate(snapshot Snapshot, label string, from, to time.Time) AggregatedPeriod {
	solar := windowTotal(snapshot[domain.StreamSolar], from, to)
	grid := windowTotal(snapshot[domain.StreamGrid], from, to)
	export := windowTotal(snapshot[domain.StreamExport], from, to)

	return AggregatedPeriod{
		Label:        label,
		Start:        from,
		End:          to,
		SolarKWh:     solar.KWh.V,
		GridKWh:      grid.KWh.V,
		ExportKWh:    export.KWh.V,
		SolarCost:    solar.Cost.V,
		GridCost:     grid.Cost.V,
		ExportCredit: export.Cost.V,
	}
}

// LatestReading returns the most recent point in a series, if any. Series
// are cached sorted ascending by period start.
func LatestReading(series []domain.HourlyReading) (domain.HourlyReading, bool) {
	if len(series) == 0 {
		return domain.HourlyReading{}, false
	}
	return series[len(series)-1], true
}

// dailyTotals groups a series by local date over the trailing window and
// returns per-day kWh sums keyed by date. Today's partial day is included.
func dailyTotals(series []domain.HourlyReading, now time.Time, lookbackDays int) map[string]float64 {
	lo := dateKey(now.AddDate(0, 0, -(lookbackDays - 1)))
	hi := dateKey(now)
	totals := make(map[string]float64)
	for _, r := range series {
		key := dateKey(r.PeriodStart)
		if key < lo || key > hi {
			continue
		}
		totals[key] += r.ConsumptionKWh
	}
	return totals
}
