// README: Dynamic base price from distance and duration rates with the organization's target margin.
package pricing

import (
	"fmt"

	"vtc/internal/types"
)

const (
	MethodDistance = "DISTANCE"
	MethodDuration = "DURATION"
)

// EffectiveRates are the per-km and per-hour rates after the category → organization fallback.
type EffectiveRates struct {
	RatePerKm         float64 `json:"ratePerKm"`
	RatePerHour       float64 `json:"ratePerHour"`
	Source            string  `json:"source"`
	CategoryRatesUsed bool    `json:"categoryRatesUsed"`
}

// ResolveRates falls back per rate from the vehicle category to the organization.
func ResolveRates(cat *VehicleCategory, s Settings) EffectiveRates {
	r := EffectiveRates{RatePerKm: s.BaseRatePerKm, RatePerHour: s.BaseRatePerHour, Source: "ORGANIZATION"}
	if cat == nil {
		return r
	}
	fromCategory := 0
	if cat.RatePerKm != nil && *cat.RatePerKm > 0 {
		r.RatePerKm = *cat.RatePerKm
		fromCategory++
	}
	if cat.RatePerHour != nil && *cat.RatePerHour > 0 {
		r.RatePerHour = *cat.RatePerHour
		fromCategory++
	}
	switch fromCategory {
	case 2:
		r.Source = "CATEGORY"
	case 1:
		r.Source = "MIXED"
	}
	r.CategoryRatesUsed = fromCategory > 0
	return r
}

// CalculateDynamicBase takes the larger of the distance- and duration-based prices and
// applies the target margin.
func CalculateDynamicBase(distanceKm, durationMinutes float64, rates EffectiveRates, targetMarginPercent float64) (float64, AppliedRule) {
	p := DynamicBasePayload{
		DistanceKm:          distanceKm,
		DurationMinutes:     durationMinutes,
		RatePerKm:           rates.RatePerKm,
		RatePerHour:         rates.RatePerHour,
		RateSource:          rates.Source,
		DistanceBasedPrice:  types.RoundMoney(distanceKm * rates.RatePerKm),
		DurationBasedPrice:  types.RoundMoney(durationMinutes / 60 * rates.RatePerHour),
		TargetMarginPercent: targetMarginPercent,
	}
	p.SelectedMethod, p.BasePrice = MethodDistance, p.DistanceBasedPrice
	if p.DurationBasedPrice > p.DistanceBasedPrice {
		p.SelectedMethod, p.BasePrice = MethodDuration, p.DurationBasedPrice
	}
	p.PriceWithMargin = types.RoundMoney(p.BasePrice * (1 + targetMarginPercent/100))

	desc := fmt.Sprintf("%s-based price %.2f with %.1f%% margin", p.SelectedMethod, p.BasePrice, targetMarginPercent)
	return p.PriceWithMargin, newRule(desc, p)
}
