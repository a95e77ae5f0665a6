package analytics

import (
	"time"

	"github.com/kgrahame/ovoau/internal/domain"
)

// WeekComparison holds the two trailing-week totals and the percentage
// change between them.
type WeekComparison struct {
	ThisWeekKWh float64
	LastWeekKWh float64
	// ChangePct is 0 when both weeks are zero and undefined when last week
	// is zero but this week is not. There is no honest percentage for
	// growth from nothing.
	ChangePct Value
}

// WeekOverWeek partitions the last 14 local days into this week (the 7 days
// ending today) and last week (the 7 before that) and compares totals.
func WeekOverWeek(series []domain.HourlyReading, now time.Time) WeekComparison {
	thisWeek := windowTotal(series, now.AddDate(0, 0, -6), now)
	lastWeek := windowTotal(series, now.AddDate(0, 0, -13), now.AddDate(0, 0, -7))

	cmp := WeekComparison{
		ThisWeekKWh: thisWeek.KWh.V,
		LastWeekKWh: lastWeek.KWh.V,
	}
	switch {
	case cmp.LastWeekKWh == 0 && cmp.ThisWeekKWh == 0:
		cmp.ChangePct = Defined(0)
	case cmp.LastWeekKWh == 0:
		cmp.ChangePct = Undefined()
	default:
		cmp.ChangePct = Defined((cmp.ThisWeekKWh - cmp.LastWeekKWh) / cmp.LastWeekKWh * 100)
	}
	return cmp
}

// DayParts holds average per-day consumption split by weekday and weekend.
type DayParts struct {
	WeekdayAvgKWh Value
	WeekendAvgKWh Value
}

// WeekdayWeekendAverages buckets complete local days in the trailing window
// by day-of-week and averages the per-day totals in each bucket. Today is a
// partial day and is excluded; a bucket with no complete day reports no data
// rather than a misleading zero.
func WeekdayWeekendAverages(series []domain.HourlyReading, now time.Time, lookbackDays int) DayParts {
	totals := dailyTotals(series, now, lookbackDays)
	today := dateKey(now)

	var weekdaySum, weekendSum float64
	var weekdayDays, weekendDays int
	for key, kwh := range totals {
		if key == today {
			continue
		}
		day, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekendSum += kwh
			weekendDays++
		} else {
			weekdaySum += kwh
			weekdayDays++
		}
	}

	var parts DayParts
	if weekdayDays > 0 {
		parts.WeekdayAvgKWh = Defined(weekdaySum / float64(weekdayDays))
	}
	if weekendDays > 0 {
		parts.WeekendAvgKWh = Defined(weekendSum / float64(weekendDays))
	}
	return parts
}
