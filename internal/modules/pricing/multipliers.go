// README: Multiplier engine: zone, advanced (night/weekend), seasonal, vehicle category and client difficulty.
package pricing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"vtc/internal/modules/zone"
	"vtc/internal/types"
)

// ApplyZoneMultiplier applies the aggregated pickup/dropoff multiplier. No rule is produced
// when neither point is in a zone.
func ApplyZoneMultiplier(price float64, zm zone.MultiplierResult) (float64, []AppliedRule) {
	if zm.Source == "none" {
		return price, nil
	}
	after := types.RoundMoney(price * zm.AppliedMultiplier)
	p := ZoneMultiplierPayload{
		Multiplier:  zm.AppliedMultiplier,
		Aggregation: zm.Aggregation,
		Source:      zm.Source,
		PriceBefore: price,
		PriceAfter:  after,
	}
	if zm.Pickup.Selected != nil {
		p.PickupZone = zm.Pickup.Selected.Code
	}
	if zm.Dropoff != nil && zm.Dropoff.Selected != nil {
		p.DropoffZone = zm.Dropoff.Selected.Code
	}
	desc := fmt.Sprintf("zone multiplier x%.3f (%s, %s)", zm.AppliedMultiplier, zm.Aggregation, zm.Source)
	return after, []AppliedRule{newRule(desc, p)}
}

// ApplyAdvancedRates applies every active NIGHT and WEEKEND rate cumulatively, highest priority
// first. NIGHT adjustments are weighted by the share of trip minutes inside the night window.
func ApplyAdvancedRates(price float64, rates []AdvancedRate, pickupAt *time.Time, tripMinutes float64) (float64, []AppliedRule) {
	if pickupAt == nil || len(rates) == 0 {
		return price, nil
	}
	sorted := append([]AdvancedRate(nil), rates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	var out []AppliedRule
	for _, r := range sorted {
		if !r.IsActive {
			continue
		}
		p := AdvancedRatePayload{
			RateID:         r.ID,
			RateName:       r.Name,
			RateType:       r.Type,
			AdjustmentType: r.AdjustmentType,
			Value:          r.Value,
			Priority:       r.Priority,
		}
		switch r.Type {
		case RateNight:
			startMin, okStart := parseClock(r.StartTime)
			endMin, okEnd := parseClock(r.EndTime)
			if !okStart || !okEnd {
				continue
			}
			overlap := NightOverlapMinutes(*pickupAt, tripMinutes, startMin, endMin)
			fraction := 0.0
			if tripMinutes > 0 {
				fraction = overlap / tripMinutes
			} else if inWindow(minuteOfDay(*pickupAt), startMin, endMin) {
				fraction = 1
			}
			if fraction <= 0 {
				continue
			}
			p.OverlapMinutes = types.Round(overlap, 2)
			p.TripMinutes = types.Round(tripMinutes, 2)
			p.WeightFraction = types.Round(fraction, 4)
		case RateWeekend:
			if !weekendMatch(*pickupAt, r.DaysOfWeek) {
				continue
			}
			p.WeightFraction = 1
		default:
			continue
		}

		var adjustment float64
		if r.AdjustmentType == AdjustFixedAmount {
			adjustment = r.Value * p.WeightFraction
		} else {
			adjustment = price * r.Value / 100 * p.WeightFraction
		}
		p.AdjustmentValue = types.RoundMoney(adjustment)
		p.PriceBefore = price
		price = types.RoundMoney(price + p.AdjustmentValue)
		p.PriceAfter = price

		desc := fmt.Sprintf("%s rate %q %+.2f", r.Type, r.Name, p.AdjustmentValue)
		if r.Type == RateNight && p.WeightFraction < 1 {
			desc += fmt.Sprintf(" (%.0f%% of trip in window)", p.WeightFraction*100)
		}
		out = append(out, newRule(desc, p))
	}
	return price, out
}

// NightOverlapMinutes is the overlap between [start, start+tripMinutes) and the daily window
// [startMin, endMin) in minutes of day, wrapping midnight when endMin <= startMin.
func NightOverlapMinutes(start time.Time, tripMinutes float64, startMin, endMin int) float64 {
	if tripMinutes <= 0 || startMin == endMin {
		return 0
	}
	end := start.Add(time.Duration(tripMinutes * float64(time.Minute)))
	y, m, d := start.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, start.Location())

	var overlap time.Duration
	// The window that began the previous day may still be open at start.
	for day := dayStart.AddDate(0, 0, -1); day.Before(end); day = day.AddDate(0, 0, 1) {
		wStart := day.Add(time.Duration(startMin) * time.Minute)
		wEnd := day.Add(time.Duration(endMin) * time.Minute)
		if endMin < startMin {
			wEnd = day.AddDate(0, 0, 1).Add(time.Duration(endMin) * time.Minute)
		}
		lo, hi := start, end
		if wStart.After(lo) {
			lo = wStart
		}
		if wEnd.Before(hi) {
			hi = wEnd
		}
		if hi.After(lo) {
			overlap += hi.Sub(lo)
		}
	}
	return overlap.Minutes()
}

func parseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || m < 0 || m > 59 {
		return 0, false
	}
	// 24:00 is the end of the day; any later clock is invalid.
	if h > 24 || (h == 24 && m != 0) {
		return 0, false
	}
	return h*60 + m, true
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func inWindow(minute, startMin, endMin int) bool {
	if startMin <= endMin {
		return minute >= startMin && minute < endMin
	}
	return minute >= startMin || minute < endMin
}

func weekendMatch(t time.Time, days []int) bool {
	if len(days) == 0 {
		days = []int{int(time.Saturday), int(time.Sunday)}
	}
	wd := int(t.Weekday())
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// ApplySeasonalMultipliers multiplies by every active seasonal multiplier whose inclusive date
// range contains the pickup date and whose category filter (if any) includes categoryID.
func ApplySeasonalMultipliers(price float64, seasonals []SeasonalMultiplier, pickupAt *time.Time, categoryID string) (float64, []AppliedRule) {
	if pickupAt == nil || len(seasonals) == 0 {
		return price, nil
	}
	date := pickupAt.Format("2006-01-02")
	sorted := append([]SeasonalMultiplier(nil), seasonals...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	var out []AppliedRule
	for _, sm := range sorted {
		if !sm.IsActive || sm.Multiplier <= 0 {
			continue
		}
		if date < sm.StartDate || date > sm.EndDate {
			continue
		}
		if len(sm.VehicleCategoryIDs) > 0 && !contains(sm.VehicleCategoryIDs, categoryID) {
			continue
		}
		before := price
		price = types.RoundMoney(price * sm.Multiplier)
		p := SeasonalMultiplierPayload{
			MultiplierID: sm.ID,
			Name:         sm.Name,
			Multiplier:   sm.Multiplier,
			StartDate:    sm.StartDate,
			EndDate:      sm.EndDate,
			Priority:     sm.Priority,
			PriceBefore:  before,
			PriceAfter:   price,
		}
		out = append(out, newRule(fmt.Sprintf("seasonal %q x%.3f", sm.Name, sm.Multiplier), p))
	}
	return price, out
}

// ApplyCategoryMultiplier is skipped when the dynamic base already used category rates.
func ApplyCategoryMultiplier(price float64, cat *VehicleCategory, categoryRatesUsed bool) (float64, []AppliedRule) {
	if cat == nil || categoryRatesUsed || cat.Multiplier() == 1 {
		return price, nil
	}
	after := types.RoundMoney(price * cat.Multiplier())
	p := VehicleCategoryPayload{
		CategoryID:  cat.ID,
		Category:    cat.Code,
		Multiplier:  cat.Multiplier(),
		PriceBefore: price,
		PriceAfter:  after,
	}
	return after, []AppliedRule{newRule(fmt.Sprintf("vehicle category %s x%.3f", cat.Code, cat.Multiplier()), p)}
}

// DifficultyScore prefers the end customer's score over the contact's.
func DifficultyScore(pc Context) (int, string, bool) {
	if pc.EndCustomer != nil && pc.EndCustomer.DifficultyScore != nil {
		return *pc.EndCustomer.DifficultyScore, "END_CUSTOMER", true
	}
	if pc.Contact.DifficultyScore != nil {
		return *pc.Contact.DifficultyScore, "CONTACT", true
	}
	return 0, "", false
}

// ApplyDifficultyMultiplier looks the score up in table; unknown scores are neutral.
func ApplyDifficultyMultiplier(price float64, score int, source string, table map[int]float64) (float64, []AppliedRule) {
	m, ok := table[score]
	if !ok || m <= 0 {
		m = 1
	}
	after := types.RoundMoney(price * m)
	p := DifficultyPayload{
		Score:       score,
		ScoreSource: source,
		Multiplier:  m,
		PriceBefore: price,
		PriceAfter:  after,
	}
	if math.Abs(m-1) < 1e-9 {
		return price, []AppliedRule{newRule(fmt.Sprintf("difficulty score %d, no adjustment", score), p)}
	}
	return after, []AppliedRule{newRule(fmt.Sprintf("difficulty score %d x%.2f", score, m), p)}
}
