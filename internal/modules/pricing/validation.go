// README: Post-hoc sanity checks over a complete pricing result.
package pricing

import (
	"fmt"
	"math"

	"vtc/internal/modules/compliance"
	"vtc/internal/types"
)

type ValidationStatus string

const (
	ValidationValid   ValidationStatus = "VALID"
	ValidationWarning ValidationStatus = "WARNING"
	ValidationInvalid ValidationStatus = "INVALID"
)

type CheckStatus string

const (
	CheckPass    CheckStatus = "PASS"
	CheckWarning CheckStatus = "WARNING"
	CheckFail    CheckStatus = "FAIL"
)

type ValidationCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}

type ValidationResult struct {
	Status               ValidationStatus  `json:"status"`
	Checks               []ValidationCheck `json:"checks"`
	MarginBandMinPercent float64           `json:"marginBandMinPercent"`
	MarginBandMaxPercent float64           `json:"marginBandMaxPercent"`
}

const (
	minPlausibleSpeedKmh = 20
	maxPlausibleSpeedKmh = 150
	costSumTolerance     = 0.05

	minStaffingHourlyRate = 10
	maxStaffingHourlyRate = 100
	minHotelNightRate     = 30
	maxHotelNightRate     = 400
)

// ValidateResult runs every check. Any FAIL makes the result INVALID, else any WARNING makes it
// WARNING. Contract (grid) prices downgrade negative-margin failures to warnings.
func ValidateResult(r Result, s Settings) ValidationResult {
	contract := r.PricingMode == ModePartnerGrid
	checks := []ValidationCheck{
		checkMarginNonNegative(r, contract),
		checkMarginBand(r, s),
		checkPriceCoversCost(r, contract),
		checkZoneMultiplier(r),
		checkAverageSpeed(r),
		checkStaffingCost(r),
		checkCostSum(r),
	}
	out := ValidationResult{
		Status:               ValidationValid,
		Checks:               checks,
		MarginBandMinPercent: s.MarginBandMinPercent,
		MarginBandMaxPercent: s.MarginBandMaxPercent,
	}
	for _, c := range checks {
		switch c.Status {
		case CheckFail:
			out.Status = ValidationInvalid
		case CheckWarning:
			if out.Status == ValidationValid {
				out.Status = ValidationWarning
			}
		}
	}
	return out
}

func check(name string, status CheckStatus, format string, args ...any) ValidationCheck {
	return ValidationCheck{Name: name, Status: status, Message: fmt.Sprintf(format, args...)}
}

func checkMarginNonNegative(r Result, contract bool) ValidationCheck {
	const name = "MARGIN_NON_NEGATIVE"
	switch {
	case r.Margin >= 0:
		return check(name, CheckPass, "margin %.2f", r.Margin)
	case contract:
		return check(name, CheckWarning, "negative margin %.2f accepted on contract price", r.Margin)
	default:
		return check(name, CheckFail, "negative margin %.2f", r.Margin)
	}
}

func checkMarginBand(r Result, s Settings) ValidationCheck {
	const name = "MARGIN_BAND"
	if r.MarginPercent < s.MarginBandMinPercent || r.MarginPercent > s.MarginBandMaxPercent {
		return check(name, CheckWarning, "margin %.2f%% outside %.0f%%..%.0f%%", r.MarginPercent, s.MarginBandMinPercent, s.MarginBandMaxPercent)
	}
	return check(name, CheckPass, "margin %.2f%% within band", r.MarginPercent)
}

func checkPriceCoversCost(r Result, contract bool) ValidationCheck {
	const name = "PRICE_COVERS_COST"
	switch {
	case r.Price >= r.InternalCost:
		return check(name, CheckPass, "price %.2f covers cost %.2f", r.Price, r.InternalCost)
	case contract:
		return check(name, CheckWarning, "contract price %.2f below cost %.2f", r.Price, r.InternalCost)
	default:
		return check(name, CheckFail, "price %.2f below cost %.2f", r.Price, r.InternalCost)
	}
}

// checkZoneMultiplier compares the applied zone rule with the transparency snapshot. Any
// difference means the pipeline applied something other than what it resolved.
func checkZoneMultiplier(r Result) ValidationCheck {
	const name = "ZONE_MULTIPLIER_CONSISTENCY"
	rule, applied := r.AppliedRules.Find(RuleZoneMultiplier)
	if r.ZoneTransparency == nil {
		if applied {
			return check(name, CheckFail, "zone multiplier applied without a zone snapshot")
		}
		return check(name, CheckPass, "no zone multiplier")
	}
	if !applied {
		if r.PricingMode != ModeClientDirect || r.ZoneTransparency.Source == "none" {
			return check(name, CheckPass, "zone multiplier not applicable")
		}
		return check(name, CheckFail, "snapshot multiplier %.3f was never applied", r.ZoneTransparency.AppliedMultiplier)
	}
	p, ok := rule.Payload.(ZoneMultiplierPayload)
	if !ok || p.Multiplier != r.ZoneTransparency.AppliedMultiplier {
		return check(name, CheckFail, "applied multiplier %.3f differs from snapshot %.3f", p.Multiplier, r.ZoneTransparency.AppliedMultiplier)
	}
	return check(name, CheckPass, "multiplier %.3f matches snapshot", p.Multiplier)
}

func checkAverageSpeed(r Result) ValidationCheck {
	const name = "AVERAGE_SPEED"
	svc, ok := r.TripAnalysis.Segment(SegmentService)
	driving := svc.DrivingMinutes()
	if !ok || driving <= 0 || svc.DistanceKm <= 0 {
		return check(name, CheckPass, "no service leg to check")
	}
	speed := types.Round(svc.DistanceKm/(driving/60), 1)
	if speed < minPlausibleSpeedKmh || speed > maxPlausibleSpeedKmh {
		return check(name, CheckWarning, "average speed %.1f km/h outside %d..%d", speed, minPlausibleSpeedKmh, maxPlausibleSpeedKmh)
	}
	return check(name, CheckPass, "average speed %.1f km/h", speed)
}

func checkStaffingCost(r Result) ValidationCheck {
	const name = "STAFFING_COST"
	if r.StaffingSelection == nil || r.StaffingSelection.SelectedPlan == nil {
		return check(name, CheckPass, "no staffing plan")
	}
	plan := r.StaffingSelection.SelectedPlan
	c := plan.AdditionalCost
	if c.ExtraDriverCost > 0 {
		var hours float64
		switch plan.Mode {
		case compliance.StaffingDoubleCrew:
			hours = plan.Schedule.AmplitudeHoursPerDay
		case compliance.StaffingRelayDriver:
			hours = plan.Schedule.DrivingHoursPerDriver
		}
		if hours > 0 {
			rate := c.ExtraDriverCost / hours
			if rate < minStaffingHourlyRate || rate > maxStaffingHourlyRate {
				return check(name, CheckWarning, "implied driver rate %.2f/h outside %d..%d", rate, minStaffingHourlyRate, maxStaffingHourlyRate)
			}
		}
	}
	if nights := plan.Schedule.OvernightStops; nights > 0 && c.HotelCost > 0 {
		rate := c.HotelCost / float64(nights)
		if rate < minHotelNightRate || rate > maxHotelNightRate {
			return check(name, CheckWarning, "implied hotel rate %.2f/night outside %d..%d", rate, minHotelNightRate, maxHotelNightRate)
		}
	}
	return check(name, CheckPass, "staffing cost %.2f proportionate", c.Total)
}

func checkCostSum(r Result) ValidationCheck {
	const name = "COST_SUM"
	b := r.TripAnalysis.TotalCost
	if !withinTolerance(b.ComponentSum(), b.Total) {
		return check(name, CheckFail, "components %.2f do not reconstruct total %.2f", b.ComponentSum(), b.Total)
	}
	expected := types.RoundMoney(b.Total + r.StaffingCost)
	if !withinTolerance(expected, r.InternalCost) {
		return check(name, CheckFail, "breakdown %.2f does not reconstruct internal cost %.2f", expected, r.InternalCost)
	}
	return check(name, CheckPass, "cost components consistent")
}

func withinTolerance(a, b float64) bool {
	if a == b {
		return true
	}
	ref := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= ref*costSumTolerance
}
