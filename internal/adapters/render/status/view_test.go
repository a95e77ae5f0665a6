package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgrahame/ovoau/internal/sensors"
)

func TestRenderGroupsSensorsBySections(t *testing.T) {
	now := time.Date(2026, 5, 15, 18, 0, 0, 0, time.UTC)

	output, err := Render([]sensors.Reading{
		{Key: "solar_today_kwh", Name: "Solar Generation Today", Unit: sensors.UnitKWh, Value: 12.0, Defined: true},
		{Key: "grid_today_kwh", Name: "Grid Consumption Today", Unit: sensors.UnitKWh, Value: 4.25, Defined: true},
		{Key: "export_earned_7d_aud", Name: "Export Earnings (7 Days)", Unit: sensors.UnitAUD, Value: 1.28, Defined: true},
		{Key: "monthly_projected_cost", Name: "Projected Monthly Cost", Unit: sensors.UnitAUD, Value: 61.5, Defined: true},
	}, RenderOptions{Now: now, LastSuccess: now.Add(-3 * time.Minute)})

	require.NoError(t, err)
	assert.Contains(t, output, "OVO Energy Usage")
	assert.Contains(t, output, "sensors: 4")
	assert.Contains(t, output, "updated 3 minutes ago")
	assert.Contains(t, output, "Solar")
	assert.Contains(t, output, "Grid")
	assert.Contains(t, output, "Insights")
	assert.Contains(t, output, "Solar Generation Today")
	assert.Contains(t, output, "12.000")
	assert.Contains(t, output, "61.50")
	assert.NotContains(t, output, "stale")
}

func TestRenderUndefinedReadingShowsNoData(t *testing.T) {
	now := time.Date(2026, 5, 15, 18, 0, 0, 0, time.UTC)

	output, err := Render([]sensors.Reading{
		{Key: "solar_yesterday_kwh", Name: "Solar Generation Yesterday", Unit: sensors.UnitKWh},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "Solar Generation Yesterday")
	assert.Contains(t, output, "no data")
	assert.NotContains(t, output, "0.000")
}

func TestRenderMarksStaleCache(t *testing.T) {
	now := time.Date(2026, 5, 15, 18, 0, 0, 0, time.UTC)

	output, err := Render([]sensors.Reading{
		{Key: "solar_today_kwh", Name: "Solar Generation Today", Unit: sensors.UnitKWh, Value: 5, Defined: true},
	}, RenderOptions{Now: now, LastSuccess: now.Add(-30 * time.Minute), Stale: true})

	require.NoError(t, err)
	assert.Contains(t, output, "[stale]")
	assert.Contains(t, output, "30 minutes ago")
}

func TestRenderPercentSensorGetsGauge(t *testing.T) {
	now := time.Date(2026, 5, 15, 18, 0, 0, 0, time.UTC)

	output, err := Render([]sensors.Reading{
		{Key: "self_sufficiency_7d_pct", Name: "Self-Sufficiency (7 Days)", Unit: sensors.UnitPercent, Value: 80, Defined: true},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "80.0")
	assert.Contains(t, output, "[")
	assert.Contains(t, output, "]")
	assert.Contains(t, output, "================----")
}

func TestRenderEmptyReadings(t *testing.T) {
	output, err := Render(nil, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, output, "No sensor readings available.")
}
