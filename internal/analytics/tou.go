package analytics

import (
	"time"

	"github.com/kgrahame/ovoau/internal/domain"
)

// TOUSums accumulates consumption and cost per time-of-use bucket over a
// trailing window.
type TOUSums struct {
	PeakKWh      float64
	ShoulderKWh  float64
	OffPeakKWh   float64
	PeakCost     float64
	ShoulderCost float64
	OffPeakCost  float64
}

// TariffFor classifies a timestamp into exactly one time-of-use bucket by
// its local start hour and weekday:
//
//	Peak      14:00–20:00 Mon–Fri
//	Shoulder  07:00–14:00 and 20:00–22:00 Mon–Fri, 07:00–22:00 Sat–Sun
//	Off-Peak  22:00–07:00 every day
func TariffFor(t time.Time) string {
	hour := t.Hour()
	if hour >= 22 || hour < 7 {
		return domain.TariffOffPeak
	}

	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return domain.TariffShoulder
	}
	if hour >= 14 && hour < 20 {
		return domain.TariffPeak
	}
	return domain.TariffShoulder
}

// TimeOfUse accumulates one stream's points into tariff buckets over the
// trailing window.
func TimeOfUse(series []domain.HourlyReading, now time.Time, lookbackDays int) TOUSums {
	lo := dateKey(now.AddDate(0, 0, -(lookbackDays - 1)))
	hi := dateKey(now)

	var sums TOUSums
	for _, r := range series {
		key := dateKey(r.PeriodStart)
		if key < lo || key > hi {
			continue
		}
		switch TariffFor(r.PeriodStart) {
		case domain.TariffPeak:
			sums.PeakKWh += r.ConsumptionKWh
			sums.PeakCost += r.Cost()
		case domain.TariffShoulder:
			sums.ShoulderKWh += r.ConsumptionKWh
			sums.ShoulderCost += r.Cost()
		default:
			sums.OffPeakKWh += r.ConsumptionKWh
			sums.OffPeakCost += r.Cost()
		}
	}
	return sums
}
