// README: Margin calculation and the tri-state profitability indicator.
package pricing

import "vtc/internal/types"

// CalculateMargin returns price-cost and its share of price in percent.
func CalculateMargin(price, internalCost float64) (float64, float64) {
	margin := types.RoundMoney(price - internalCost)
	if price <= 0 {
		return margin, 0
	}
	return margin, types.Round(margin/price*100, 2)
}

// ClassifyProfitability: >= green is green, >= orange is orange, else red. Bounds are inclusive.
func ClassifyProfitability(marginPercent, green, orange float64) ProfitabilityIndicator {
	switch {
	case marginPercent >= green:
		return ProfitabilityGreen
	case marginPercent >= orange:
		return ProfitabilityOrange
	default:
		return ProfitabilityRed
	}
}

func profitabilityData(marginPercent, green, orange float64) ProfitabilityData {
	ind := ClassifyProfitability(marginPercent, green, orange)
	labels := map[ProfitabilityIndicator]string{
		ProfitabilityGreen:  "profitable",
		ProfitabilityOrange: "low margin",
		ProfitabilityRed:    "loss",
	}
	return ProfitabilityData{
		Indicator:       ind,
		MarginPercent:   marginPercent,
		GreenThreshold:  green,
		OrangeThreshold: orange,
		Label:           labels[ind],
	}
}
