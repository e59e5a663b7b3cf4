// README: Trip-type pricing: transfer passthrough, excursion minimum and surcharge, dispo hourly and buckets.
package pricing

import (
	"fmt"
	"math"
	"sort"

	"vtc/internal/types"
)

// TripTypeInput carries what the trip-type formulas need beyond the dynamic base.
type TripTypeInput struct {
	TripType       TripType
	BasePrice      float64
	RequestedHours float64
	DistanceKm     float64
	RatePerHour    float64
	Buckets        []DispoBucket
}

// ApplyTripType prices the trip according to its type.
func ApplyTripType(in TripTypeInput, s Settings) (float64, AppliedRule) {
	switch in.TripType {
	case TripExcursion:
		return priceExcursion(in, s)
	case TripDispo:
		return priceDispo(in, s)
	default:
		p := TripTypePayload{TripType: TripTransfer, Method: "PASSTHROUGH", PriceBefore: in.BasePrice, PriceAfter: in.BasePrice}
		return in.BasePrice, newRule("transfer priced on the dynamic base", p)
	}
}

func priceExcursion(in TripTypeInput, s Settings) (float64, AppliedRule) {
	hours := math.Max(in.RequestedHours, s.ExcursionMinimumHours)
	price := types.RoundMoney(hours * in.RatePerHour * (1 + s.ExcursionSurchargePercent/100))
	p := TripTypePayload{
		TripType:      TripExcursion,
		Method:        "HOURLY_WITH_MINIMUM",
		PriceBefore:   in.BasePrice,
		PriceAfter:    price,
		RatePerHour:   in.RatePerHour,
		Hours:         hours,
		MinimumHours:  s.ExcursionMinimumHours,
		MinimumForced: in.RequestedHours < s.ExcursionMinimumHours,
		Surcharge:     s.ExcursionSurchargePercent,
	}
	desc := fmt.Sprintf("excursion %.2fh at %.2f/h with %.1f%% surcharge", hours, in.RatePerHour, s.ExcursionSurchargePercent)
	if p.MinimumForced {
		desc += " (minimum duration enforced)"
	}
	return price, newRule(desc, p)
}

func priceDispo(in TripTypeInput, s Settings) (float64, AppliedRule) {
	if len(in.Buckets) > 0 {
		p := LookupDispoBucket(in.Buckets, in.RequestedHours, s.DispoBucketPolicy, in.RatePerHour)
		p.PriceBefore = in.BasePrice
		desc := fmt.Sprintf("dispo %.2fh from time buckets (%s)", in.RequestedHours, p.BucketPolicy)
		return p.PriceAfter, newRule(desc, p)
	}

	hourly := types.RoundMoney(in.RequestedHours * in.RatePerHour)
	includedKm := in.RequestedHours * s.DispoIncludedKmPerHour
	overageKm := math.Max(0, in.DistanceKm-includedKm)
	overage := types.RoundMoney(overageKm * s.DispoOverageRatePerKm)
	price := types.RoundMoney(hourly + overage)
	p := TripTypePayload{
		TripType:         TripDispo,
		Method:           "FLAT_HOURLY",
		PriceBefore:      in.BasePrice,
		PriceAfter:       price,
		RatePerHour:      in.RatePerHour,
		Hours:            in.RequestedHours,
		IncludedKm:       types.Round(includedKm, 2),
		OverageKm:        types.Round(overageKm, 2),
		OverageRatePerKm: s.DispoOverageRatePerKm,
		OverageAmount:    overage,
	}
	desc := fmt.Sprintf("dispo %.2fh at %.2f/h", in.RequestedHours, in.RatePerHour)
	if overageKm > 0 {
		desc += fmt.Sprintf(" plus %.1f km overage", overageKm)
	}
	return price, newRule(desc, p)
}

// LookupDispoBucket prices hours against time buckets. Between two buckets the policy picks
// the upper, the lower, or interpolates linearly; below the smallest bucket its price applies;
// beyond the largest, extra hours are billed at ratePerHour.
func LookupDispoBucket(buckets []DispoBucket, hours float64, policy BucketPolicy, ratePerHour float64) TripTypePayload {
	sorted := append([]DispoBucket(nil), buckets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hours < sorted[j].Hours })

	p := TripTypePayload{TripType: TripDispo, Method: "BUCKET", Hours: hours, BucketPolicy: policy, RatePerHour: ratePerHour}
	first, last := sorted[0], sorted[len(sorted)-1]
	switch {
	case hours <= first.Hours:
		p.UpperBucket = &first
		p.PriceAfter = types.RoundMoney(first.Price)
		return p
	case hours >= last.Hours:
		p.LowerBucket = &last
		p.ExtraHours = types.Round(hours-last.Hours, 2)
		p.ExtraHoursAmount = types.RoundMoney((hours - last.Hours) * ratePerHour)
		p.PriceAfter = types.RoundMoney(last.Price + p.ExtraHoursAmount)
		return p
	}

	for i := 1; i < len(sorted); i++ {
		lo, hi := sorted[i-1], sorted[i]
		if hours > hi.Hours {
			continue
		}
		if hours == hi.Hours {
			p.UpperBucket = &hi
			p.PriceAfter = types.RoundMoney(hi.Price)
			return p
		}
		p.LowerBucket, p.UpperBucket = &lo, &hi
		switch policy {
		case BucketRoundDown:
			p.PriceAfter = types.RoundMoney(lo.Price)
		case BucketProportional:
			ratio := (hours - lo.Hours) / (hi.Hours - lo.Hours)
			p.PriceAfter = types.RoundMoney(lo.Price + ratio*(hi.Price-lo.Price))
		default:
			p.BucketPolicy = BucketRoundUp
			p.PriceAfter = types.RoundMoney(hi.Price)
		}
		return p
	}
	return p
}
