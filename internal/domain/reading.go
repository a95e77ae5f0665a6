package domain

import "time"

// Stream identifies one of the hourly data series returned by the usage API.
// Grid is not delivered upstream; it is derived by the analytics engine.
type Stream string

const (
	StreamSolar   Stream = "solar"
	StreamExport  Stream = "export"
	StreamSavings Stream = "savings"
	StreamGrid    Stream = "grid"
)

// Streams lists the series in the order the upstream API returns them.
var Streams = []Stream{StreamSolar, StreamExport, StreamSavings}

// ReadType distinguishes metered values from provider estimates. Estimated
// points may be revised to actual on a later fetch.
type ReadType string

const (
	ReadActual    ReadType = "ACTUAL"
	ReadEstimated ReadType = "ESTIMATED"
)

// Charge is the cost attached to a reading. A nil *Charge on HourlyReading
// means the provider supplied no cost data for the hour, which is normal for
// recent points.
type Charge struct {
	Amount   float64
	Currency string
}

// HourlyReading is one hour of consumption for a single stream. Immutable
// once received. PeriodStart retains the UTC offset the provider sent, which
// is what local-date bucketing must use across DST changes.
type HourlyReading struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	ConsumptionKWh float64
	Charge         *Charge
	ReadType       ReadType
	Stream         Stream
}

// Cost returns the charge amount, or zero when no cost data is attached.
func (r HourlyReading) Cost() float64 {
	if r.Charge == nil {
		return 0
	}
	return r.Charge.Amount
}
