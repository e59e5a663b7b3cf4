// README: Manual price override with minimum-margin enforcement.
package pricing

import (
	"fmt"
	"math"

	"vtc/internal/types"
)

// ApplyPriceOverride returns a copy of r priced at newPrice. r itself is never modified.
// A nil minimumMarginPercent disables the margin floor.
func ApplyPriceOverride(r Result, newPrice float64, reason string, minimumMarginPercent *float64) (Result, error) {
	if newPrice <= 0 || math.IsNaN(newPrice) || math.IsInf(newPrice, 0) {
		return Result{}, &OverrideError{
			Code:           OverrideInvalidPrice,
			Message:        "price must be a positive amount",
			RequestedPrice: newPrice,
		}
	}
	price := types.RoundMoney(newPrice)
	margin, marginPct := CalculateMargin(price, r.InternalCost)
	if minimumMarginPercent != nil && marginPct < *minimumMarginPercent {
		return Result{}, &OverrideError{
			Code:                   OverrideBelowMinimumMargin,
			Message:                fmt.Sprintf("margin %.2f%% is below the %.2f%% minimum", marginPct, *minimumMarginPercent),
			RequestedPrice:         price,
			ResultingMargin:        margin,
			ResultingMarginPercent: marginPct,
			MinimumMarginPercent:   *minimumMarginPercent,
		}
	}

	out := r
	p := ManualOverridePayload{
		PreviousPrice: r.Price,
		NewPrice:      price,
		PriceChange:   types.RoundMoney(price - r.Price),
		Reason:        reason,
		PreviousMode:  r.PricingMode,
	}
	out.AppliedRules = r.AppliedRules.With(newRule(fmt.Sprintf("manual override %.2f -> %.2f", r.Price, price), p))
	out.Price = price
	out.Margin = margin
	out.MarginPercent = marginPct
	out.ProfitabilityData = profitabilityData(marginPct, r.ProfitabilityData.GreenThreshold, r.ProfitabilityData.OrangeThreshold)
	out.ProfitabilityIndicator = out.ProfitabilityData.Indicator
	out.PricingMode = ModeManual
	out.OverrideApplied = true
	if r.Validation != nil {
		v := ValidateResult(out, Settings{
			MarginBandMinPercent: r.Validation.MarginBandMinPercent,
			MarginBandMaxPercent: r.Validation.MarginBandMaxPercent,
		})
		out.Validation = &v
	}
	return out, nil
}
