package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgrahame/ovoau/internal/domain"
)

func TestSelfSufficiency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		solar, grid  float64
		want         Value
	}{
		{"mostly solar", 8, 2, Defined(80)},
		{"no energy at all is undefined", 0, 0, Undefined()},
		{"all grid", 0, 5, Defined(0)},
		{"all solar", 5, 0, Defined(100)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := SelfSufficiency(tc.solar, tc.grid)
			assert.Equal(t, tc.want.Defined, got.Defined)
			if tc.want.Defined {
				assert.InDelta(t, tc.want.V, got.V, 1e-9)
			}
		})
	}
}

func TestCostPerKWh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	series := []domain.HourlyReading{
		chargedPoint(now.AddDate(0, 0, -1), 4.0, 1.20, domain.StreamGrid),
		chargedPoint(now.AddDate(0, 0, -2), 2.0, 0.90, domain.StreamGrid),
	}

	got := CostPerKWh(series, now, 7)
	require.True(t, got.Defined)
	assert.InDelta(t, 0.35, got.V, 1e-9)

	assert.False(t, CostPerKWh(nil, now, 7).Defined)

	zeroConsumption := []domain.HourlyReading{point(now, 0, domain.StreamGrid)}
	assert.False(t, CostPerKWh(zeroConsumption, now, 7).Defined, "division by zero consumption is undefined")
}

func TestMonthlyProjection(t *testing.T) {
	t.Parallel()

	// Day 10 of a 30-day month, $20 spent so far: $2/day, $60 projected,
	// $40 remaining.
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, aest)
	series := []domain.HourlyReading{
		chargedPoint(time.Date(2026, 6, 3, 10, 0, 0, 0, aest), 5.0, 12.0, domain.StreamGrid),
		chargedPoint(time.Date(2026, 6, 7, 10, 0, 0, 0, aest), 4.0, 8.0, domain.StreamGrid),
		chargedPoint(time.Date(2026, 5, 30, 10, 0, 0, 0, aest), 9.0, 99.0, domain.StreamGrid), // prior month
	}

	proj := MonthlyProjection(series, now)
	require.True(t, proj.DailyAvgCost.Defined)
	assert.InDelta(t, 2.0, proj.DailyAvgCost.V, 1e-9)
	assert.InDelta(t, 60.0, proj.ProjectedCost.V, 1e-9)
	assert.InDelta(t, 40.0, proj.RemainingCost.V, 1e-9)
}

func TestMonthlyProjectionUndefinedWithoutData(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 10, 12, 0, 0, 0, aest)
	proj := MonthlyProjection(nil, now)
	assert.False(t, proj.DailyAvgCost.Defined)
	assert.False(t, proj.ProjectedCost.Defined)
	assert.False(t, proj.RemainingCost.Defined)
}

func TestReturnToGrid(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	snapshot := Snapshot{
		domain.StreamExport: {
			point(now.AddDate(0, 0, -1), 10.0, domain.StreamExport),
		},
	}
	plan := domain.Plan{Rates: map[string]float64{
		domain.TariffFeedIn: 0.08,
		domain.TariffPeak:   0.45,
	}}

	value := ReturnToGrid(snapshot, plan, now, 7)
	assert.InDelta(t, 10.0, value.ExportKWh, 1e-9)
	require.True(t, value.EarnedAUD.Defined)
	assert.InDelta(t, 0.80, value.EarnedAUD.V, 1e-9)
	require.True(t, value.OpportunityAUD.Defined)
	assert.InDelta(t, 4.50, value.OpportunityAUD.V, 1e-9)
	assert.InDelta(t, 3.70, value.DifferenceAUD.V, 1e-9)
}

func TestReturnToGridMissingRatesStayUndefined(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	snapshot := Snapshot{
		domain.StreamExport: {point(now, 10.0, domain.StreamExport)},
	}

	value := ReturnToGrid(snapshot, domain.Plan{}, now, 7)
	assert.False(t, value.EarnedAUD.Defined)
	assert.False(t, value.OpportunityAUD.Defined)
	assert.False(t, value.DifferenceAUD.Defined)
}

func TestDeriveGrid(t *testing.T) {
	t.Parallel()

	// Monday 15:00 is peak; the derived point should be priced at the peak
	// rate. Solar exceeding implied draw clamps to zero, never negative.
	peakHour := time.Date(2026, 5, 11, 15, 0, 0, 0, aest)
	sunnyHour := time.Date(2026, 5, 11, 12, 0, 0, 0, aest)
	snapshot := Snapshot{
		domain.StreamSavings: {
			point(peakHour, 3.0, domain.StreamSavings),
			point(sunnyHour, 1.0, domain.StreamSavings),
		},
		domain.StreamSolar: {
			point(peakHour, 1.0, domain.StreamSolar),
			point(sunnyHour, 4.0, domain.StreamSolar),
		},
	}
	plan := domain.Plan{Rates: map[string]float64{domain.TariffPeak: 0.50}}

	grid := DeriveGrid(snapshot, plan)
	require.Len(t, grid, 2)

	assert.Equal(t, domain.StreamGrid, grid[0].Stream)
	assert.InDelta(t, 2.0, grid[0].ConsumptionKWh, 1e-9)
	require.NotNil(t, grid[0].Charge)
	assert.InDelta(t, 1.0, grid[0].Charge.Amount, 1e-9)

	assert.Zero(t, grid[1].ConsumptionKWh, "solar surplus clamps grid to zero")
	assert.Nil(t, grid[1].Charge, "no shoulder rate on the plan, no price")
}

func TestDeriveGridPropagatesEstimatedReads(t *testing.T) {
	t.Parallel()

	hour := time.Date(2026, 5, 11, 12, 0, 0, 0, aest)
	solar := point(hour, 1.0, domain.StreamSolar)
	solar.ReadType = domain.ReadEstimated
	snapshot := Snapshot{
		domain.StreamSavings: {point(hour, 3.0, domain.StreamSavings)},
		domain.StreamSolar:   {solar},
	}

	grid := DeriveGrid(snapshot, domain.Plan{})
	require.Len(t, grid, 1)
	assert.Equal(t, domain.ReadEstimated, grid[0].ReadType)
}

func TestSelfSufficiencyOver(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, aest)
	yesterday := now.AddDate(0, 0, -1)
	snapshot := Snapshot{
		domain.StreamSolar:   {point(yesterday, 8.0, domain.StreamSolar)},
		domain.StreamSavings: {point(yesterday, 10.0, domain.StreamSavings)}, // implies 2 kWh grid
	}

	score := SelfSufficiencyOver(snapshot, domain.Plan{}, now, 7)
	require.True(t, score.Defined)
	assert.InDelta(t, 80.0, score.V, 1e-9)
}
