// Package sensors turns the analytics engine's metrics into a flat list of
// named readings for the status renderer and any host monitoring platform.
// The catalogue is a declarative table of (key, name, unit, compute) entries
// built once; adding a sensor means adding a row, not a type.
package sensors

import (
	"time"

	"github.com/samber/lo"

	"github.com/kgrahame/ovoau/internal/analytics"
	"github.com/kgrahame/ovoau/internal/domain"
)

const (
	UnitKWh       = "kWh"
	UnitAUD       = "AUD"
	UnitAUDPerKWh = "AUD/kWh"
	UnitPercent   = "%"
	UnitHour      = "h"
)

// Inputs is everything a compute function may read. Snapshot is the raw
// coordinator cache; the derived grid stream is added here so every sensor
// sees the same four streams.
type Inputs struct {
	Snapshot    analytics.Snapshot
	Plan        domain.Plan
	Now         time.Time
	LastSuccess time.Time
	Stale       bool
}

// Reading is one evaluated sensor. Undefined readings carry no value and
// render as "no data".
type Reading struct {
	Key        string
	Name       string
	Unit       string
	Value      float64
	Defined    bool
	Attributes map[string]any
}

// Definition is one row of the sensor catalogue.
type Definition struct {
	Key     string
	Name    string
	Unit    string
	Compute func(in Inputs) (analytics.Value, map[string]any)
}

// Evaluate runs the whole catalogue against one snapshot. Grid readings are
// derived once up front and shared by every sensor.
func Evaluate(in Inputs) []Reading {
	in.Snapshot = analytics.WithDerivedGrid(in.Snapshot, in.Plan)

	return lo.Map(Catalogue(), func(def Definition, _ int) Reading {
		value, attrs := def.Compute(in)
		if !in.LastSuccess.IsZero() {
			if attrs == nil {
				attrs = map[string]any{}
			}
			attrs["last_updated"] = in.LastSuccess.Format(time.RFC3339)
		}
		return Reading{
			Key:        def.Key,
			Name:       def.Name,
			Unit:       def.Unit,
			Value:      value.V,
			Defined:    value.Defined,
			Attributes: attrs,
		}
	})
}
