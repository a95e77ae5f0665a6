package analytics

import (
	"time"

	"github.com/kgrahame/ovoau/internal/domain"
)

// SelfSufficiency scores how much of total consumption was met by on-site
// generation: 100 × solar / (solar + grid), clamped to [0, 100]. Undefined
// when no energy moved at all.
func SelfSufficiency(solarKWh, gridKWh float64) Value {
	denom := solarKWh + gridKWh
	if denom == 0 {
		return Undefined()
	}
	score := 100 * solarKWh / denom
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return Defined(score)
}

// SelfSufficiencyOver scores self-sufficiency over the trailing window,
// deriving grid from the snapshot when the provider supplies none.
func SelfSufficiencyOver(snapshot Snapshot, plan domain.Plan, now time.Time, days int) Value {
	solar := TrailingTotal(snapshot[domain.StreamSolar], now, days)
	grid := TrailingTotal(WithDerivedGrid(snapshot, plan)[domain.StreamGrid], now, days)
	return SelfSufficiency(solar.KWh.V, grid.KWh.V)
}

// CostPerKWh divides a stream's trailing cost by its trailing consumption.
// Undefined when no energy was consumed in the window.
func CostPerKWh(series []domain.HourlyReading, now time.Time, days int) Value {
	total := TrailingTotal(series, now, days)
	if !total.KWh.Defined || total.KWh.V == 0 {
		return Undefined()
	}
	return Defined(total.Cost.V / total.KWh.V)
}

// CostBreakdown is the trailing-7-day effective price per stream. Overall
// combines grid and solar.
type CostBreakdown struct {
	Overall Value
	Grid    Value
	Solar   Value
}

func CostPerKWhBreakdown(snapshot Snapshot, plan domain.Plan, now time.Time) CostBreakdown {
	const days = 7
	withGrid := WithDerivedGrid(snapshot, plan)

	solar := TrailingTotal(withGrid[domain.StreamSolar], now, days)
	grid := TrailingTotal(withGrid[domain.StreamGrid], now, days)

	breakdown := CostBreakdown{
		Grid:  CostPerKWh(withGrid[domain.StreamGrid], now, days),
		Solar: CostPerKWh(withGrid[domain.StreamSolar], now, days),
	}
	if kwh := solar.KWh.V + grid.KWh.V; kwh > 0 {
		breakdown.Overall = Defined((solar.Cost.V + grid.Cost.V) / kwh)
	}
	return breakdown
}

// Projection extrapolates month-to-date spend to a full-month figure.
type Projection struct {
	DailyAvgCost  Value
	ProjectedCost Value // daily average × days in month
	RemainingCost Value // daily average × days still to come
}

// MonthlyProjection computes the projection for the calendar month holding
// now. Undefined until the month has at least one reading.
func MonthlyProjection(series []domain.HourlyReading, now time.Time) Projection {
	toDate := MonthTotal(series, now)
	if !toDate.Cost.Defined {
		return Projection{}
	}

	daysElapsed := now.Day()
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	avg := toDate.Cost.V / float64(daysElapsed)

	return Projection{
		DailyAvgCost:  Defined(avg),
		ProjectedCost: Defined(avg * float64(daysInMonth)),
		RemainingCost: Defined(avg * float64(daysInMonth-daysElapsed)),
	}
}

// ExportValue compares what exported energy earned against what the same
// energy would have cost to buy from the grid.
type ExportValue struct {
	ExportKWh      float64
	EarnedAUD      Value // export × feed-in rate
	OpportunityAUD Value // export × import rate
	DifferenceAUD  Value // opportunity − earned
}

// ReturnToGrid values the trailing window's exports. The import price is the
// highest-priced consumption tariff on the plan, the buyer's worst case.
// Figures depending on a rate missing from the plan stay undefined.
func ReturnToGrid(snapshot Snapshot, plan domain.Plan, now time.Time, days int) ExportValue {
	export := TrailingTotal(snapshot[domain.StreamExport], now, days)
	value := ExportValue{ExportKWh: export.KWh.V}

	if rate, ok := plan.Rate(domain.TariffFeedIn); ok {
		value.EarnedAUD = Defined(value.ExportKWh * rate)
	}
	if rate, ok := importRate(plan); ok {
		value.OpportunityAUD = Defined(value.ExportKWh * rate)
	}
	if value.EarnedAUD.Defined && value.OpportunityAUD.Defined {
		value.DifferenceAUD = Defined(value.OpportunityAUD.V - value.EarnedAUD.V)
	}
	return value
}

func importRate(plan domain.Plan) (float64, bool) {
	for _, label := range []string{domain.TariffPeak, domain.TariffShoulder, domain.TariffOffPeak} {
		if rate, ok := plan.Rate(label); ok {
			return rate, true
		}
	}
	return 0, false
}
