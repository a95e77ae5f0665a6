package analytics

import (
	"time"

	"github.com/kgrahame/ovoau/internal/domain"
)

// GridDerivation labels derived grid readings in sensor metadata. The
// provider does not document the exact relationship between its savings
// stream and metered draw, so grid consumption is best-effort.
const GridDerivation = "approximate"

// DeriveGrid approximates hourly grid consumption when the provider supplies
// no grid stream. The savings stream's kWh is treated as the total implied
// household draw for the hour, so grid = max(0, savings − solar). When a rate
// table carries a price for the hour's tariff bucket the derived point gets a
// cost; otherwise its charge stays empty.
//
// A reading is flagged ESTIMATED if either input for the hour is.
func DeriveGrid(snapshot Snapshot, plan domain.Plan) []domain.HourlyReading {
	solarByStart := make(map[time.Time]domain.HourlyReading, len(snapshot[domain.StreamSolar]))
	for _, r := range snapshot[domain.StreamSolar] {
		solarByStart[r.PeriodStart.UTC()] = r
	}

	savings := snapshot[domain.StreamSavings]
	grid := make([]domain.HourlyReading, 0, len(savings))
	for _, s := range savings {
		kwh := s.ConsumptionKWh
		readType := s.ReadType
		if solar, ok := solarByStart[s.PeriodStart.UTC()]; ok {
			kwh -= solar.ConsumptionKWh
			if solar.ReadType == domain.ReadEstimated {
				readType = domain.ReadEstimated
			}
		}
		if kwh < 0 {
			kwh = 0
		}

		point := domain.HourlyReading{
			PeriodStart:    s.PeriodStart,
			PeriodEnd:      s.PeriodEnd,
			ConsumptionKWh: kwh,
			ReadType:       readType,
			Stream:         domain.StreamGrid,
		}
		if rate, ok := plan.Rate(TariffFor(s.PeriodStart)); ok {
			point.Charge = &domain.Charge{Amount: kwh * rate, Currency: "AUD"}
		}
		grid = append(grid, point)
	}
	return grid
}

// WithDerivedGrid returns a snapshot extended with the derived grid stream.
// The input snapshot is not modified.
func WithDerivedGrid(snapshot Snapshot, plan domain.Plan) Snapshot {
	out := make(Snapshot, len(snapshot)+1)
	for stream, series := range snapshot {
		out[stream] = series
	}
	out[domain.StreamGrid] = DeriveGrid(snapshot, plan)
	return out
}
