package domain

import "time"

// Well-known tariff labels appearing in OVO product agreements. Rate maps are
// keyed by whatever label the provider uses; these cover the TOU plans sold
// for solar accounts.
const (
	TariffPeak     = "peak"
	TariffShoulder = "shoulder"
	TariffOffPeak  = "offpeak"
	TariffFeedIn   = "feedin"
)

// Plan describes the supply agreement for an account. Fetched rarely and
// cached for the process lifetime.
type Plan struct {
	Name          string
	NMI           string
	Rates         map[string]float64 // tariff label -> $/kWh
	AgreementFrom time.Time
	AgreementTo   time.Time
}

// Rate looks up the $/kWh for a tariff label.
func (p Plan) Rate(label string) (float64, bool) {
	rate, ok := p.Rates[label]
	return rate, ok
}

// WithOverrides returns a copy with manually configured rates layered on top
// of the detected ones. Overrides always win.
func (p Plan) WithOverrides(overrides map[string]float64) Plan {
	if len(overrides) == 0 {
		return p
	}
	out := p
	out.Rates = make(map[string]float64, len(p.Rates)+len(overrides))
	for label, rate := range p.Rates {
		out.Rates[label] = rate
	}
	for label, rate := range overrides {
		out.Rates[label] = rate
	}
	return out
}
