package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgrahame/ovoau/internal/domain"
)

var (
	aest = time.FixedZone("AEST", 10*3600)
	aedt = time.FixedZone("AEDT", 11*3600)
)

func point(start time.Time, kwh float64, stream domain.Stream) domain.HourlyReading {
	return domain.HourlyReading{
		PeriodStart:    start,
		PeriodEnd:      start.Add(time.Hour),
		ConsumptionKWh: kwh,
		ReadType:       domain.ReadActual,
		Stream:         stream,
	}
}

func chargedPoint(start time.Time, kwh, cost float64, stream domain.Stream) domain.HourlyReading {
	r := point(start, kwh, stream)
	r.Charge = &domain.Charge{Amount: cost, Currency: "AUD"}
	return r
}

// flatDay returns 24 hourly points of kwhEach for the day holding ref.
func flatDay(ref time.Time, kwhEach float64, stream domain.Stream) []domain.HourlyReading {
	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	out := make([]domain.HourlyReading, 0, 24)
	for h := 0; h < 24; h++ {
		out = append(out, point(midnight.Add(time.Duration(h)*time.Hour), kwhEach, stream))
	}
	return out
}

func TestDayTotalReportsNoDataForEmptyDay(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 18, 0, 0, 0, aest)
	series := flatDay(now, 0.5, domain.StreamSolar)

	today := DayTotal(series, now)
	require.True(t, today.KWh.Defined)
	assert.InDelta(t, 12.0, today.KWh.V, 1e-9)

	yesterday := DayTotal(series, now.AddDate(0, 0, -1))
	assert.False(t, yesterday.KWh.Defined, "an empty day is no data, not zero")
	assert.False(t, yesterday.Cost.Defined)
}

func TestDayBucketingUsesLocalDateAcrossOffsets(t *testing.T) {
	t.Parallel()

	// 23:00 AEDT on Jan 10 is 12:00 UTC the same day; 01:00 AEDT on Jan 11
	// is still Jan 10 in UTC. Local-date bucketing must keep them on their
	// own calendar days.
	lateJan10 := point(time.Date(2026, 1, 10, 23, 0, 0, 0, aedt), 1.0, domain.StreamSolar)
	earlyJan11 := point(time.Date(2026, 1, 11, 1, 0, 0, 0, aedt), 2.0, domain.StreamSolar)
	series := []domain.HourlyReading{lateJan10, earlyJan11}

	jan10 := DayTotal(series, time.Date(2026, 1, 10, 12, 0, 0, 0, aedt))
	require.True(t, jan10.KWh.Defined)
	assert.InDelta(t, 1.0, jan10.KWh.V, 1e-9)

	jan11 := DayTotal(series, time.Date(2026, 1, 11, 12, 0, 0, 0, aedt))
	require.True(t, jan11.KWh.Defined)
	assert.InDelta(t, 2.0, jan11.KWh.V, 1e-9)
}

func TestDayTotalNeedsReferenceTimeInAccountZone(t *testing.T) {
	t.Parallel()

	// 01:00 AEST on May 2 is 15:00 UTC on May 1. A reference time taken in
	// the host's zone on a UTC machine would address May 1 and miss the
	// account-day's data; converted into the account zone it finds it.
	series := []domain.HourlyReading{
		point(time.Date(2026, 5, 2, 1, 0, 0, 0, aest), 0.8, domain.StreamSolar),
	}
	instant := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

	hostToday := DayTotal(series, instant)
	assert.False(t, hostToday.KWh.Defined, "UTC reference buckets 'today' as May 1")

	accountToday := DayTotal(series, instant.In(aest))
	require.True(t, accountToday.KWh.Defined)
	assert.InDelta(t, 0.8, accountToday.KWh.V, 1e-9)
}

func TestMonthAndYearTotals(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	series := []domain.HourlyReading{
		chargedPoint(time.Date(2026, 4, 30, 10, 0, 0, 0, aest), 3.0, 0.90, domain.StreamSolar),
		chargedPoint(time.Date(2026, 5, 1, 10, 0, 0, 0, aest), 1.0, 0.30, domain.StreamSolar),
		chargedPoint(time.Date(2026, 5, 14, 10, 0, 0, 0, aest), 2.0, 0.60, domain.StreamSolar),
	}

	month := MonthTotal(series, now)
	require.True(t, month.KWh.Defined)
	assert.InDelta(t, 3.0, month.KWh.V, 1e-9)
	assert.InDelta(t, 0.90, month.Cost.V, 1e-9)

	year := YearTotal(series, now)
	assert.InDelta(t, 6.0, year.KWh.V, 1e-9)
}

func TestWeekOverWeekChange(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)

	tests := []struct {
		name      string
		thisWeek  float64
		lastWeek  float64
		want      Value
	}{
		{"both zero reports zero percent", 0, 0, Defined(0)},
		{"growth from nothing is undefined", 10, 0, Undefined()},
		{"normal increase", 15, 10, Defined(50)},
		{"normal decrease", 5, 10, Defined(-50)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var series []domain.HourlyReading
			if tc.thisWeek > 0 {
				series = append(series, point(now.AddDate(0, 0, -1), tc.thisWeek, domain.StreamSolar))
			}
			if tc.lastWeek > 0 {
				series = append(series, point(now.AddDate(0, 0, -8), tc.lastWeek, domain.StreamSolar))
			}

			cmp := WeekOverWeek(series, now)
			assert.Equal(t, tc.want.Defined, cmp.ChangePct.Defined)
			if tc.want.Defined {
				assert.InDelta(t, tc.want.V, cmp.ChangePct.V, 1e-9)
			}
		})
	}
}

func TestWeekOverWeekBoundaryDays(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	series := []domain.HourlyReading{
		point(now.AddDate(0, 0, -6), 1.0, domain.StreamSolar),  // oldest this-week day
		point(now.AddDate(0, 0, -7), 2.0, domain.StreamSolar),  // newest last-week day
		point(now.AddDate(0, 0, -13), 3.0, domain.StreamSolar), // oldest last-week day
		point(now.AddDate(0, 0, -14), 9.0, domain.StreamSolar), // outside both
	}

	cmp := WeekOverWeek(series, now)
	assert.InDelta(t, 1.0, cmp.ThisWeekKWh, 1e-9)
	assert.InDelta(t, 5.0, cmp.LastWeekKWh, 1e-9)
}

func TestWeekdayWeekendAverages(t *testing.T) {
	t.Parallel()

	// 2026-05-15 is a Friday.
	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	series := []domain.HourlyReading{
		point(time.Date(2026, 5, 11, 10, 0, 0, 0, aest), 10.0, domain.StreamSolar), // Mon
		point(time.Date(2026, 5, 12, 10, 0, 0, 0, aest), 20.0, domain.StreamSolar), // Tue
		point(time.Date(2026, 5, 9, 10, 0, 0, 0, aest), 6.0, domain.StreamSolar),   // Sat
		point(now, 99.0, domain.StreamSolar),                                       // today, partial, excluded
	}

	parts := WeekdayWeekendAverages(series, now, 30)
	require.True(t, parts.WeekdayAvgKWh.Defined)
	assert.InDelta(t, 15.0, parts.WeekdayAvgKWh.V, 1e-9)
	require.True(t, parts.WeekendAvgKWh.Defined)
	assert.InDelta(t, 6.0, parts.WeekendAvgKWh.V, 1e-9)
}

func TestWeekdayWeekendAveragesEmptyBucketIsNoData(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	series := []domain.HourlyReading{
		point(time.Date(2026, 5, 11, 10, 0, 0, 0, aest), 10.0, domain.StreamSolar), // Mon only
	}

	parts := WeekdayWeekendAverages(series, now, 30)
	assert.True(t, parts.WeekdayAvgKWh.Defined)
	assert.False(t, parts.WeekendAvgKWh.Defined, "no weekend observations means no data")
}

func TestTopUsageDaysTieBreaksRecentFirst(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	series := []domain.HourlyReading{
		point(time.Date(2026, 5, 10, 10, 0, 0, 0, aest), 8.0, domain.StreamSolar),
		point(time.Date(2026, 5, 12, 10, 0, 0, 0, aest), 8.0, domain.StreamSolar),
		point(time.Date(2026, 5, 13, 10, 0, 0, 0, aest), 3.0, domain.StreamSolar),
		point(time.Date(2026, 5, 14, 10, 0, 0, 0, aest), 12.0, domain.StreamSolar),
	}

	top := TopUsageDays(series, now, 30, 5)
	require.Len(t, top, 4)
	assert.Equal(t, "2026-05-14", top[0].Day)
	assert.Equal(t, "2026-05-12", top[1].Day, "equal totals rank the recent day first")
	assert.Equal(t, "2026-05-10", top[2].Day)
	assert.Equal(t, "2026-05-13", top[3].Day)
}

func TestTopUsageDaysCapsAtN(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	var series []domain.HourlyReading
	for i := 1; i <= 10; i++ {
		series = append(series, point(now.AddDate(0, 0, -i), float64(i), domain.StreamSolar))
	}

	top := TopUsageDays(series, now, 30, 5)
	require.Len(t, top, 5)
	assert.InDelta(t, 10.0, top[0].KWh, 1e-9)
}

func TestHourlyHeatmapAveragesAndNoData(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	// Two Mondays at 10:00: 2.0 and 4.0 kWh.
	series := []domain.HourlyReading{
		point(time.Date(2026, 5, 4, 10, 0, 0, 0, aest), 2.0, domain.StreamSolar),
		point(time.Date(2026, 5, 11, 10, 0, 0, 0, aest), 4.0, domain.StreamSolar),
	}

	cells := HourlyHeatmap(series, now, 30)
	cell := cells[time.Monday][10]
	require.True(t, cell.Defined)
	assert.InDelta(t, 3.0, cell.V, 1e-9)

	assert.False(t, cells[time.Monday][11].Defined, "unobserved cells are no data, not zero")
	assert.False(t, cells[time.Tuesday][10].Defined)
}

func TestLatestReading(t *testing.T) {
	t.Parallel()

	_, ok := LatestReading(nil)
	assert.False(t, ok)

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	series := []domain.HourlyReading{
		point(now.Add(-2*time.Hour), 1.0, domain.StreamSolar),
		point(now.Add(-time.Hour), 2.0, domain.StreamSolar),
	}
	latest, ok := LatestReading(series)
	require.True(t, ok)
	assert.InDelta(t, 2.0, latest.ConsumptionKWh, 1e-9)
}

func TestAggregateCrossStreamSummary(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 5, 14, 0, 0, 0, 0, aest)
	snapshot := Snapshot{
		domain.StreamSolar:  {chargedPoint(day.Add(10*time.Hour), 5.0, 1.50, domain.StreamSolar)},
		domain.StreamGrid:   {chargedPoint(day.Add(19*time.Hour), 2.0, 0.90, domain.StreamGrid)},
		domain.StreamExport: {chargedPoint(day.Add(12*time.Hour), 3.0, 0.24, domain.StreamExport)},
	}

	period := Aggregate(snapshot, "2026-05-14", day, day)
	assert.InDelta(t, 5.0, period.SolarKWh, 1e-9)
	assert.InDelta(t, 2.0, period.GridKWh, 1e-9)
	assert.InDelta(t, 3.0, period.ExportKWh, 1e-9)
	assert.InDelta(t, 1.50, period.SolarCost, 1e-9)
	assert.InDelta(t, 0.90, period.GridCost, 1e-9)
	assert.InDelta(t, 0.24, period.ExportCredit, 1e-9)
}
