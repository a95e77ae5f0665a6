package analytics

import (
	"sort"
	"time"

	"github.com/kgrahame/ovoau/internal/domain"
)

// peakWindowHours is the width of the contiguous high-usage block reported
// per day. 21 candidate start hours fit in a day.
const peakWindowHours = 4

// PeakWindow is the heaviest contiguous block found in one local day.
type PeakWindow struct {
	Day       string // local date, YYYY-MM-DD
	StartHour int
	KWh       float64
}

// DailyPeakWindows scans each local day in the trailing window and reports
// that day's maximum-sum contiguous block, earliest start winning ties. Days
// without readings are skipped. Results are ordered by date ascending.
func DailyPeakWindows(series []domain.HourlyReading, now time.Time, lookbackDays int) []PeakWindow {
	lo := dateKey(now.AddDate(0, 0, -(lookbackDays - 1)))
	hi := dateKey(now)

	// kWh per (local day, local start hour).
	hourly := make(map[string]*[24]float64)
	for _, r := range series {
		key := dateKey(r.PeriodStart)
		if key < lo || key > hi {
			continue
		}
		day, ok := hourly[key]
		if !ok {
			day = &[24]float64{}
			hourly[key] = day
		}
		day[r.PeriodStart.Hour()] += r.ConsumptionKWh
	}

	windows := make([]PeakWindow, 0, len(hourly))
	for key, day := range hourly {
		best := PeakWindow{Day: key, StartHour: 0}
		for start := 0; start <= 24-peakWindowHours; start++ {
			var sum float64
			for h := start; h < start+peakWindowHours; h++ {
				sum += day[h]
			}
			if sum > best.KWh {
				best.StartHour = start
				best.KWh = sum
			}
		}
		windows = append(windows, best)
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].Day < windows[j].Day })
	return windows
}

// PeakWindowOverall reports the single heaviest block across the whole
// trailing window. Ties go to the earlier day, then the earlier start hour.
func PeakWindowOverall(series []domain.HourlyReading, now time.Time, lookbackDays int) (PeakWindow, bool) {
	windows := DailyPeakWindows(series, now, lookbackDays)
	if len(windows) == 0 {
		return PeakWindow{}, false
	}
	best := windows[0]
	for _, w := range windows[1:] {
		if w.KWh > best.KWh {
			best = w
		}
	}
	return best, true
}
