package sensors

import (
	"time"

	"github.com/samber/lo"

	"github.com/kgrahame/ovoau/internal/analytics"
	"github.com/kgrahame/ovoau/internal/domain"
)

type streamSpec struct {
	stream domain.Stream
	key    string
	label  string
}

var streamSpecs = []streamSpec{
	{domain.StreamSolar, "solar", "Solar Generation"},
	{domain.StreamExport, "export", "Grid Export"},
	{domain.StreamGrid, "grid", "Grid Consumption"},
}

// Catalogue builds the full sensor table. The table is pure data; every
// compute closure reads only its Inputs.
func Catalogue() []Definition {
	defs := lo.FlatMap(streamSpecs, func(s streamSpec, _ int) []Definition {
		return append(energyDefs(s), costDefs(s)...)
	})
	defs = append(defs, savingsDefs()...)
	defs = append(defs, generationHoursDefs()...)
	defs = append(defs, peakDefs()...)
	defs = append(defs, touDefs()...)
	defs = append(defs, comparisonDefs()...)
	defs = append(defs, scoreDefs()...)
	defs = append(defs, rankingDefs()...)
	defs = append(defs, costRateDefs()...)
	defs = append(defs, projectionDefs()...)
	defs = append(defs, exportValueDefs()...)
	return defs
}

func series(in Inputs, stream domain.Stream) []domain.HourlyReading {
	return in.Snapshot[stream]
}

func streamAttrs(s streamSpec) map[string]any {
	if s.stream == domain.StreamGrid {
		return map[string]any{"derivation": analytics.GridDerivation}
	}
	return nil
}

// energyDefs builds the kWh window sensors for one stream: current hour,
// today, yesterday, trailing week, this/last month, year to date.
func energyDefs(s streamSpec) []Definition {
	return []Definition{
		{
			Key:  s.key + "_current_hour_kwh",
			Name: s.label + " Current Hour",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				latest, ok := analytics.LatestReading(series(in, s.stream))
				if !ok {
					return analytics.Undefined(), streamAttrs(s)
				}
				attrs := streamAttrs(s)
				if attrs == nil {
					attrs = map[string]any{}
				}
				attrs["period_start"] = latest.PeriodStart.Format(time.RFC3339)
				attrs["read_type"] = string(latest.ReadType)
				return analytics.Defined(latest.ConsumptionKWh), attrs
			},
		},
		{
			Key:  s.key + "_today_kwh",
			Name: s.label + " Today",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return analytics.DayTotal(series(in, s.stream), in.Now).KWh, streamAttrs(s)
			},
		},
		{
			Key:  s.key + "_yesterday_kwh",
			Name: s.label + " Yesterday",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return analytics.DayTotal(series(in, s.stream), in.Now.AddDate(0, 0, -1)).KWh, streamAttrs(s)
			},
		},
		{
			Key:  s.key + "_last_7_days_kwh",
			Name: s.label + " Last 7 Days",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return analytics.TrailingTotal(series(in, s.stream), in.Now, 7).KWh, streamAttrs(s)
			},
		},
		{
			Key:  s.key + "_this_month_kwh",
			Name: s.label + " This Month",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return analytics.MonthTotal(series(in, s.stream), in.Now).KWh,
					withMonthSummary(in, in.Now, monthAttrs(series(in, s.stream), in.Now, streamAttrs(s)))
			},
		},
		{
			Key:  s.key + "_last_month_kwh",
			Name: s.label + " Last Month",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				ref := lastMonthEnd(in.Now)
				return analytics.MonthTotal(series(in, s.stream), ref).KWh,
					withMonthSummary(in, ref, monthAttrs(series(in, s.stream), ref, streamAttrs(s)))
			},
		},
		{
			Key:  s.key + "_this_year_kwh",
			Name: s.label + " This Year",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return analytics.YearTotal(series(in, s.stream), in.Now).KWh, streamAttrs(s)
			},
		},
	}
}

// costDefs builds the dollar window sensors for one stream. For the export
// stream the amounts are feed-in credits, not charges.
func costDefs(s streamSpec) []Definition {
	label := s.label + " Cost"
	if s.stream == domain.StreamExport {
		label = s.label + " Credit"
	}

	window := func(key, name string, total func(in Inputs) analytics.Total) Definition {
		return Definition{
			Key:  s.key + key,
			Name: name,
			Unit: UnitAUD,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return total(in).Cost, streamAttrs(s)
			},
		}
	}

	return []Definition{
		window("_today_cost", label+" Today", func(in Inputs) analytics.Total {
			return analytics.DayTotal(series(in, s.stream), in.Now)
		}),
		window("_yesterday_cost", label+" Yesterday", func(in Inputs) analytics.Total {
			return analytics.DayTotal(series(in, s.stream), in.Now.AddDate(0, 0, -1))
		}),
		window("_last_7_days_cost", label+" Last 7 Days", func(in Inputs) analytics.Total {
			return analytics.TrailingTotal(series(in, s.stream), in.Now, 7)
		}),
		window("_this_month_cost", label+" This Month", func(in Inputs) analytics.Total {
			return analytics.MonthTotal(series(in, s.stream), in.Now)
		}),
		window("_last_month_cost", label+" Last Month", func(in Inputs) analytics.Total {
			return analytics.MonthTotal(series(in, s.stream), lastMonthEnd(in.Now))
		}),
		window("_this_year_cost", label+" This Year", func(in Inputs) analytics.Total {
			return analytics.YearTotal(series(in, s.stream), in.Now)
		}),
	}
}

// savingsDefs exposes the provider's solar-savings dollar stream directly.
func savingsDefs() []Definition {
	window := func(key, name string, total func(in Inputs) analytics.Total) Definition {
		return Definition{
			Key:  key,
			Name: name,
			Unit: UnitAUD,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return total(in).Cost, nil
			},
		}
	}

	return []Definition{
		window("savings_today_aud", "Solar Savings Today", func(in Inputs) analytics.Total {
			return analytics.DayTotal(series(in, domain.StreamSavings), in.Now)
		}),
		window("savings_this_month_aud", "Solar Savings This Month", func(in Inputs) analytics.Total {
			return analytics.MonthTotal(series(in, domain.StreamSavings), in.Now)
		}),
		window("savings_last_month_aud", "Solar Savings Last Month", func(in Inputs) analytics.Total {
			return analytics.MonthTotal(series(in, domain.StreamSavings), lastMonthEnd(in.Now))
		}),
	}
}

// generationHoursDefs counts today's hours with nonzero solar output, the
// "sun hours" figure the portal shows on its daily chart. A day with data
// but no output is honestly zero; a day with no data yet is no data.
func generationHoursDefs() []Definition {
	return []Definition{
		{
			Key:  "solar_generation_hours_today_h",
			Name: "Generation Hours Today",
			Unit: UnitHour,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				today := in.Now.Format("2006-01-02")
				points := lo.Filter(series(in, domain.StreamSolar), func(r domain.HourlyReading, _ int) bool {
					return r.PeriodStart.Format("2006-01-02") == today
				})
				if len(points) == 0 {
					return analytics.Undefined(), nil
				}
				producing := lo.CountBy(points, func(r domain.HourlyReading) bool {
					return r.ConsumptionKWh > 0
				})
				return analytics.Defined(float64(producing)), nil
			},
		},
	}
}

func peakDefs() []Definition {
	return []Definition{
		{
			Key:  "grid_peak_window_today_kwh",
			Name: "Heaviest 4h Block Today",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				windows := analytics.DailyPeakWindows(series(in, domain.StreamGrid), in.Now, 1)
				if len(windows) == 0 {
					return analytics.Undefined(), nil
				}
				w := windows[len(windows)-1]
				return analytics.Defined(w.KWh), map[string]any{"start_hour": w.StartHour}
			},
		},
		{
			Key:  "grid_peak_window_30d_kwh",
			Name: "Heaviest 4h Block (30 Days)",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				best, ok := analytics.PeakWindowOverall(series(in, domain.StreamGrid), in.Now, 30)
				if !ok {
					return analytics.Undefined(), nil
				}
				return analytics.Defined(best.KWh), map[string]any{
					"day":        best.Day,
					"start_hour": best.StartHour,
				}
			},
		},
	}
}

func touDefs() []Definition {
	bucket := func(key, name, unit string, pick func(analytics.TOUSums) float64) Definition {
		return Definition{
			Key:  key,
			Name: name,
			Unit: unit,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				sums := analytics.TimeOfUse(series(in, domain.StreamGrid), in.Now, 30)
				return analytics.Defined(pick(sums)), nil
			},
		}
	}

	return []Definition{
		bucket("grid_peak_30d_kwh", "Peak Usage (30 Days)", UnitKWh,
			func(s analytics.TOUSums) float64 { return s.PeakKWh }),
		bucket("grid_shoulder_30d_kwh", "Shoulder Usage (30 Days)", UnitKWh,
			func(s analytics.TOUSums) float64 { return s.ShoulderKWh }),
		bucket("grid_offpeak_30d_kwh", "Off-Peak Usage (30 Days)", UnitKWh,
			func(s analytics.TOUSums) float64 { return s.OffPeakKWh }),
		bucket("grid_peak_30d_cost", "Peak Cost (30 Days)", UnitAUD,
			func(s analytics.TOUSums) float64 { return s.PeakCost }),
		bucket("grid_shoulder_30d_cost", "Shoulder Cost (30 Days)", UnitAUD,
			func(s analytics.TOUSums) float64 { return s.ShoulderCost }),
		bucket("grid_offpeak_30d_cost", "Off-Peak Cost (30 Days)", UnitAUD,
			func(s analytics.TOUSums) float64 { return s.OffPeakCost }),
	}
}

func comparisonDefs() []Definition {
	var defs []Definition
	for _, s := range []streamSpec{
		{domain.StreamGrid, "grid", "Grid Consumption"},
		{domain.StreamSolar, "solar", "Solar Generation"},
	} {
		s := s
		defs = append(defs,
			Definition{
				Key:  s.key + "_this_week_kwh",
				Name: s.label + " This Week",
				Unit: UnitKWh,
				Compute: func(in Inputs) (analytics.Value, map[string]any) {
					cmp := analytics.WeekOverWeek(series(in, s.stream), in.Now)
					return analytics.Defined(cmp.ThisWeekKWh), nil
				},
			},
			Definition{
				Key:  s.key + "_last_week_kwh",
				Name: s.label + " Last Week",
				Unit: UnitKWh,
				Compute: func(in Inputs) (analytics.Value, map[string]any) {
					cmp := analytics.WeekOverWeek(series(in, s.stream), in.Now)
					return analytics.Defined(cmp.LastWeekKWh), nil
				},
			},
			Definition{
				Key:  s.key + "_week_change_pct",
				Name: s.label + " Week Over Week",
				Unit: UnitPercent,
				Compute: func(in Inputs) (analytics.Value, map[string]any) {
					return analytics.WeekOverWeek(series(in, s.stream), in.Now).ChangePct, nil
				},
			},
			Definition{
				Key:  s.key + "_weekday_avg_kwh",
				Name: s.label + " Weekday Average",
				Unit: UnitKWh,
				Compute: func(in Inputs) (analytics.Value, map[string]any) {
					return analytics.WeekdayWeekendAverages(series(in, s.stream), in.Now, 30).WeekdayAvgKWh, nil
				},
			},
			Definition{
				Key:  s.key + "_weekend_avg_kwh",
				Name: s.label + " Weekend Average",
				Unit: UnitKWh,
				Compute: func(in Inputs) (analytics.Value, map[string]any) {
					return analytics.WeekdayWeekendAverages(series(in, s.stream), in.Now, 30).WeekendAvgKWh, nil
				},
			},
		)
	}
	return defs
}

func scoreDefs() []Definition {
	score := func(key, name string, days int) Definition {
		return Definition{
			Key:  key,
			Name: name,
			Unit: UnitPercent,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return analytics.SelfSufficiencyOver(in.Snapshot, in.Plan, in.Now, days),
					map[string]any{"grid_derivation": analytics.GridDerivation}
			},
		}
	}
	return []Definition{
		score("self_sufficiency_7d_pct", "Self-Sufficiency (7 Days)", 7),
		score("self_sufficiency_30d_pct", "Self-Sufficiency (30 Days)", 30),
	}
}

func rankingDefs() []Definition {
	return []Definition{
		{
			Key:  "highest_usage_day_30d_kwh",
			Name: "Highest Usage Day (30 Days)",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				top := analytics.TopUsageDays(series(in, domain.StreamGrid), in.Now, 30, 5)
				if len(top) == 0 {
					return analytics.Undefined(), nil
				}
				ranking := lo.Map(top, func(d analytics.DayUsage, _ int) map[string]any {
					return map[string]any{"day": d.Day, "kwh": d.KWh}
				})
				return analytics.Defined(top[0].KWh), map[string]any{
					"day":     top[0].Day,
					"ranking": ranking,
				}
			},
		},
		{
			Key:  "busiest_hour_30d_kwh",
			Name: "Busiest Hour (30 Days)",
			Unit: UnitKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				cells := analytics.HourlyHeatmap(series(in, domain.StreamGrid), in.Now, 30)
				best := analytics.Undefined()
				var bestDay time.Weekday
				var bestHour int
				for wd := range cells {
					for hour := range cells[wd] {
						cell := cells[wd][hour]
						if cell.Defined && (!best.Defined || cell.V > best.V) {
							best = cell
							bestDay = time.Weekday(wd)
							bestHour = hour
						}
					}
				}
				if !best.Defined {
					return best, nil
				}
				return best, map[string]any{
					"weekday": bestDay.String(),
					"hour":    bestHour,
				}
			},
		},
	}
}

func costRateDefs() []Definition {
	rate := func(key, name string, pick func(analytics.CostBreakdown) analytics.Value) Definition {
		return Definition{
			Key:  key,
			Name: name,
			Unit: UnitAUDPerKWh,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return pick(analytics.CostPerKWhBreakdown(in.Snapshot, in.Plan, in.Now)), nil
			},
		}
	}
	return []Definition{
		rate("cost_per_kwh_7d", "Cost per kWh (7 Days)",
			func(b analytics.CostBreakdown) analytics.Value { return b.Overall }),
		rate("grid_cost_per_kwh_7d", "Grid Cost per kWh (7 Days)",
			func(b analytics.CostBreakdown) analytics.Value { return b.Grid }),
		rate("solar_cost_per_kwh_7d", "Solar Cost per kWh (7 Days)",
			func(b analytics.CostBreakdown) analytics.Value { return b.Solar }),
	}
}

func projectionDefs() []Definition {
	proj := func(key, name string, pick func(analytics.Projection) analytics.Value) Definition {
		return Definition{
			Key:  key,
			Name: name,
			Unit: UnitAUD,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return pick(analytics.MonthlyProjection(series(in, domain.StreamGrid), in.Now)), nil
			},
		}
	}
	return []Definition{
		proj("monthly_projected_cost", "Projected Monthly Cost",
			func(p analytics.Projection) analytics.Value { return p.ProjectedCost }),
		proj("monthly_remaining_cost", "Remaining Monthly Cost",
			func(p analytics.Projection) analytics.Value { return p.RemainingCost }),
		proj("daily_avg_cost_mtd", "Daily Average Cost (Month to Date)",
			func(p analytics.Projection) analytics.Value { return p.DailyAvgCost }),
	}
}

func exportValueDefs() []Definition {
	value := func(key, name string, pick func(analytics.ExportValue) analytics.Value) Definition {
		return Definition{
			Key:  key,
			Name: name,
			Unit: UnitAUD,
			Compute: func(in Inputs) (analytics.Value, map[string]any) {
				return pick(analytics.ReturnToGrid(in.Snapshot, in.Plan, in.Now, 7)), nil
			},
		}
	}
	return []Definition{
		value("export_earned_7d_aud", "Export Earnings (7 Days)",
			func(v analytics.ExportValue) analytics.Value { return v.EarnedAUD }),
		value("export_opportunity_7d_aud", "Export Opportunity Cost (7 Days)",
			func(v analytics.ExportValue) analytics.Value { return v.OpportunityAUD }),
		value("export_value_gap_7d_aud", "Export Value Gap (7 Days)",
			func(v analytics.ExportValue) analytics.Value { return v.DifferenceAUD }),
	}
}

// lastMonthEnd returns the final day of the month before now.
func lastMonthEnd(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 12, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
}

// withMonthSummary layers the cross-stream month aggregate on top of the
// per-stream attributes, so every monthly sensor carries the same summary.
func withMonthSummary(in Inputs, ref time.Time, base map[string]any) map[string]any {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	agg := analytics.Aggregate(in.Snapshot, ref.Format("2006-01"), first, ref)

	attrs := map[string]any{}
	for k, v := range base {
		attrs[k] = v
	}
	attrs["month_summary"] = map[string]any{
		"period":        agg.Label,
		"solar_kwh":     agg.SolarKWh,
		"grid_kwh":      agg.GridKWh,
		"export_kwh":    agg.ExportKWh,
		"solar_cost":    agg.SolarCost,
		"grid_cost":     agg.GridCost,
		"export_credit": agg.ExportCredit,
	}
	return attrs
}

// monthAttrs attaches the per-day breakdown the host platform shows under
// monthly sensors: average, busiest and quietest day of the month so far.
func monthAttrs(series []domain.HourlyReading, ref time.Time, base map[string]any) map[string]any {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	days := analytics.DailyBreakdown(series, first, ref)
	if len(days) == 0 {
		return base
	}

	attrs := map[string]any{}
	for k, v := range base {
		attrs[k] = v
	}
	kwh := lo.Map(days, func(d analytics.DayUsage, _ int) float64 { return d.KWh })
	attrs["daily_avg_kwh"] = lo.Sum(kwh) / float64(len(kwh))
	attrs["daily_max_kwh"] = lo.Max(kwh)
	attrs["daily_min_kwh"] = lo.Min(kwh)
	attrs["days_with_data"] = len(days)
	return attrs
}
