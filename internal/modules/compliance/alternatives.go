// README: Alternative staffing plans for non-compliant heavy missions and the policy-driven choice between them.
package compliance

import (
	"fmt"
	"math"
	"sort"

	"vtc/internal/types"
)

type StaffingMode string

const (
	StaffingDoubleCrew  StaffingMode = "DOUBLE_CREW"
	StaffingRelayDriver StaffingMode = "RELAY_DRIVER"
	StaffingMultiDay    StaffingMode = "MULTI_DAY"
)

type SelectionPolicy string

const (
	PolicyCheapest       SelectionPolicy = "CHEAPEST"
	PolicyFastest        SelectionPolicy = "FASTEST"
	PolicyPreferInternal SelectionPolicy = "PREFER_INTERNAL"
)

// ParsePolicy maps unknown or empty values to CHEAPEST.
func ParsePolicy(s string) SelectionPolicy {
	switch SelectionPolicy(s) {
	case PolicyFastest, PolicyPreferInternal:
		return SelectionPolicy(s)
	default:
		return PolicyCheapest
	}
}

// StaffingParams are the organization cost parameters for extra staffing.
type StaffingParams struct {
	DriverHourlyCost  float64 `json:"driverHourlyCost"`
	HotelCostPerNight float64 `json:"hotelCostPerNight"`
	MealCostPerDay    float64 `json:"mealCostPerDay"`
	OvernightPremium  float64 `json:"overnightPremium"`

	// ExtraDayDriverCost is paid per additional mission day; 0 means 8 hours at DriverHourlyCost.
	ExtraDayDriverCost float64 `json:"extraDayDriverCost"`

	// SameDayAmplitudeHours is the double-crew amplitude above which an overnight is priced.
	SameDayAmplitudeHours       float64 `json:"sameDayAmplitudeHours"`
	DoubleCrewMaxAmplitudeHours float64 `json:"doubleCrewMaxAmplitudeHours"`
	MaxMissionDays              int     `json:"maxMissionDays"`
}

func DefaultStaffingParams() StaffingParams {
	return StaffingParams{
		DriverHourlyCost:            25,
		HotelCostPerNight:           90,
		MealCostPerDay:              30,
		OvernightPremium:            50,
		SameDayAmplitudeHours:       10,
		DoubleCrewMaxAmplitudeHours: 18,
		MaxMissionDays:              7,
	}
}

func (p StaffingParams) extraDayCost() float64 {
	if p.ExtraDayDriverCost > 0 {
		return p.ExtraDayDriverCost
	}
	return 8 * p.DriverHourlyCost
}

type AdditionalCost struct {
	ExtraDriverCost  float64 `json:"extraDriverCost"`
	HotelCost        float64 `json:"hotelCost"`
	MealCost         float64 `json:"mealCost"`
	OvernightPremium float64 `json:"overnightPremium"`
	ExtraDayCost     float64 `json:"extraDayCost"`
	Total            float64 `json:"total"`
}

func (c *AdditionalCost) finalize() {
	c.ExtraDriverCost = types.RoundMoney(c.ExtraDriverCost)
	c.HotelCost = types.RoundMoney(c.HotelCost)
	c.MealCost = types.RoundMoney(c.MealCost)
	c.OvernightPremium = types.RoundMoney(c.OvernightPremium)
	c.ExtraDayCost = types.RoundMoney(c.ExtraDayCost)
	c.Total = types.RoundMoney(c.ExtraDriverCost + c.HotelCost + c.MealCost + c.OvernightPremium + c.ExtraDayCost)
}

type Schedule struct {
	Days                  int     `json:"days"`
	Drivers               int     `json:"drivers"`
	DrivingHoursPerDriver float64 `json:"drivingHoursPerDriver"`
	AmplitudeHoursPerDay  float64 `json:"amplitudeHoursPerDay"`
	HandoverAfterMinutes  float64 `json:"handoverAfterMinutes,omitempty"`
	OvernightStops        int     `json:"overnightStops"`
}

type AlternativeOption struct {
	Mode               StaffingMode   `json:"mode"`
	IsFeasible         bool           `json:"isFeasible"`
	WouldBeCompliant   bool           `json:"wouldBeCompliant"`
	Description        string         `json:"description"`
	InfeasibleReason   string         `json:"infeasibleReason,omitempty"`
	AdditionalCost     AdditionalCost `json:"additionalCost"`
	Schedule           Schedule       `json:"schedule"`
	ResidualViolations []Violation    `json:"residualViolations"`
}

func (o AlternativeOption) usable() bool { return o.IsFeasible && o.WouldBeCompliant }

type GenerationResult struct {
	HasViolations      bool                `json:"hasViolations"`
	OriginalViolations []Violation         `json:"originalViolations"`
	Alternatives       []AlternativeOption `json:"alternatives"`
	Message            string              `json:"message"`
}

// GenerateAlternatives builds the three staffing options for a validation result.
// A compliant result yields no alternatives.
func GenerateAlternatives(res Result, params StaffingParams) GenerationResult {
	out := GenerationResult{
		HasViolations:      len(res.Violations) > 0,
		OriginalViolations: res.Violations,
		Alternatives:       []AlternativeOption{},
	}
	if !out.HasViolations {
		out.Message = "mission is compliant, no alternative staffing needed"
		return out
	}
	rules := res.EffectiveRules
	driving := res.DrivingHours()
	amplitude := res.AmplitudeHours()

	out.Alternatives = append(out.Alternatives,
		doubleCrew(driving, amplitude, rules, params),
		relayDriver(driving, amplitude, rules, params),
		multiDay(driving, amplitude, rules, params),
	)
	usable := 0
	for _, a := range out.Alternatives {
		if a.usable() {
			usable++
		}
	}
	out.Message = fmt.Sprintf("%d of %d staffing alternatives resolve the violations", usable, len(out.Alternatives))
	return out
}

func doubleCrew(driving, amplitude float64, rules Rules, p StaffingParams) AlternativeOption {
	perDriver := types.Round(driving/2, 2)
	opt := AlternativeOption{
		Mode:               StaffingDoubleCrew,
		IsFeasible:         amplitude <= p.DoubleCrewMaxAmplitudeHours,
		Description:        "second driver on board for the whole mission, driving shared",
		ResidualViolations: []Violation{},
		Schedule: Schedule{
			Days:                  1,
			Drivers:               2,
			DrivingHoursPerDriver: perDriver,
			AmplitudeHoursPerDay:  amplitude,
		},
	}
	if !opt.IsFeasible {
		opt.InfeasibleReason = fmt.Sprintf("amplitude %.2fh exceeds the %.2fh double-crew ceiling", amplitude, p.DoubleCrewMaxAmplitudeHours)
		opt.ResidualViolations = append(opt.ResidualViolations, residual(ViolationAmplitude, amplitude, p.DoubleCrewMaxAmplitudeHours))
	}
	if perDriver > rules.MaxDailyDrivingHours {
		opt.ResidualViolations = append(opt.ResidualViolations, residual(ViolationDrivingTime, perDriver, rules.MaxDailyDrivingHours))
	}
	opt.WouldBeCompliant = len(opt.ResidualViolations) == 0

	opt.AdditionalCost.ExtraDriverCost = amplitude * p.DriverHourlyCost
	if amplitude > p.SameDayAmplitudeHours {
		opt.Schedule.OvernightStops = 1
		opt.AdditionalCost.HotelCost = p.HotelCostPerNight
		opt.AdditionalCost.MealCost = p.MealCostPerDay
		opt.AdditionalCost.OvernightPremium = p.OvernightPremium
	}
	opt.AdditionalCost.finalize()
	return opt
}

func relayDriver(driving, amplitude float64, rules Rules, p StaffingParams) AlternativeOption {
	half := types.Round(driving/2, 2)
	opt := AlternativeOption{
		Mode:               StaffingRelayDriver,
		IsFeasible:         half <= rules.MaxDailyDrivingHours,
		Description:        "second driver takes over midway",
		ResidualViolations: []Violation{},
		Schedule: Schedule{
			Days:                  1,
			Drivers:               2,
			DrivingHoursPerDriver: half,
			AmplitudeHoursPerDay:  amplitude,
			HandoverAfterMinutes:  types.Round(driving*60/2, 2),
		},
	}
	if !opt.IsFeasible {
		opt.InfeasibleReason = fmt.Sprintf("half of the driving (%.2fh) still exceeds the %.2fh limit", half, rules.MaxDailyDrivingHours)
		opt.ResidualViolations = append(opt.ResidualViolations, residual(ViolationDrivingTime, half, rules.MaxDailyDrivingHours))
	}
	// The handover splits driving but not the mission's duty span.
	if amplitude > rules.MaxDailyAmplitudeHours {
		opt.ResidualViolations = append(opt.ResidualViolations, residual(ViolationAmplitude, amplitude, rules.MaxDailyAmplitudeHours))
	}
	opt.WouldBeCompliant = len(opt.ResidualViolations) == 0
	opt.AdditionalCost.ExtraDriverCost = half * p.DriverHourlyCost
	opt.AdditionalCost.finalize()
	return opt
}

func multiDay(driving, amplitude float64, rules Rules, p StaffingParams) AlternativeOption {
	days := 1
	if rules.MaxDailyAmplitudeHours > 0 {
		days = max(days, int(math.Ceil(amplitude/rules.MaxDailyAmplitudeHours)))
	}
	if rules.MaxDailyDrivingHours > 0 {
		days = max(days, int(math.Ceil(driving/rules.MaxDailyDrivingHours)))
	}
	if days < 2 {
		days = 2
	}
	perDayDriving := types.Round(driving/float64(days), 2)
	perDayAmplitude := types.Round(amplitude/float64(days), 2)
	nights := days - 1

	opt := AlternativeOption{
		Mode:               StaffingMultiDay,
		IsFeasible:         p.MaxMissionDays <= 0 || days <= p.MaxMissionDays,
		Description:        fmt.Sprintf("mission split over %d days with %d overnight stop(s)", days, nights),
		ResidualViolations: []Violation{},
		Schedule: Schedule{
			Days:                  days,
			Drivers:               1,
			DrivingHoursPerDriver: perDayDriving,
			AmplitudeHoursPerDay:  perDayAmplitude,
			OvernightStops:        nights,
		},
	}
	if !opt.IsFeasible {
		opt.InfeasibleReason = fmt.Sprintf("%d days exceeds the %d-day mission maximum", days, p.MaxMissionDays)
	}
	if perDayDriving > rules.MaxDailyDrivingHours {
		opt.ResidualViolations = append(opt.ResidualViolations, residual(ViolationDrivingTime, perDayDriving, rules.MaxDailyDrivingHours))
	}
	if perDayAmplitude > rules.MaxDailyAmplitudeHours {
		opt.ResidualViolations = append(opt.ResidualViolations, residual(ViolationAmplitude, perDayAmplitude, rules.MaxDailyAmplitudeHours))
	}
	opt.WouldBeCompliant = opt.IsFeasible && len(opt.ResidualViolations) == 0

	opt.AdditionalCost.HotelCost = float64(nights) * p.HotelCostPerNight
	opt.AdditionalCost.MealCost = float64(days) * p.MealCostPerDay
	opt.AdditionalCost.ExtraDayCost = float64(nights) * p.extraDayCost()
	opt.AdditionalCost.finalize()
	return opt
}

func residual(t ViolationType, actual, limit float64) Violation {
	return Violation{
		Type:     t,
		Message:  fmt.Sprintf("%.2fh remains above the %.2fh limit", actual, limit),
		Actual:   actual,
		Limit:    limit,
		Unit:     "hours",
		Severity: "BLOCKING",
	}
}

type StaffingSelection struct {
	IsRequired             bool               `json:"isRequired"`
	Policy                 SelectionPolicy    `json:"policy"`
	SelectedPlan           *AlternativeOption `json:"selectedPlan"`
	RequiresManualReview   bool               `json:"requiresManualReview"`
	ManualReviewCandidate  *AlternativeOption `json:"manualReviewCandidate,omitempty"`
	AlternativesConsidered int                `json:"alternativesConsidered"`
	Reason                 string             `json:"reason"`
}

// SelectedCost is the additional cost of the selected plan, 0 when none.
func (s StaffingSelection) SelectedCost() float64 {
	if s.SelectedPlan == nil {
		return 0
	}
	return s.SelectedPlan.AdditionalCost.Total
}

var internalPreference = map[StaffingMode]int{
	StaffingDoubleCrew:  0,
	StaffingMultiDay:    1,
	StaffingRelayDriver: 2,
}

// SelectBestStaffingPlan chooses among feasible, compliant alternatives per policy.
// When none qualifies the mission is flagged for manual review with the cheapest
// option as a candidate.
func SelectBestStaffingPlan(gen GenerationResult, policy SelectionPolicy) StaffingSelection {
	sel := StaffingSelection{
		IsRequired:             gen.HasViolations,
		Policy:                 policy,
		AlternativesConsidered: len(gen.Alternatives),
	}
	if !gen.HasViolations {
		sel.Reason = "no violations"
		return sel
	}

	usable := make([]AlternativeOption, 0, len(gen.Alternatives))
	for _, a := range gen.Alternatives {
		if a.usable() {
			usable = append(usable, a)
		}
	}
	if len(usable) == 0 {
		sel.RequiresManualReview = true
		sel.Reason = "no feasible and compliant staffing alternative"
		if len(gen.Alternatives) > 0 {
			all := append([]AlternativeOption(nil), gen.Alternatives...)
			sortByCost(all)
			c := all[0]
			sel.ManualReviewCandidate = &c
		}
		return sel
	}

	switch policy {
	case PolicyFastest:
		sort.SliceStable(usable, func(i, j int) bool {
			a, b := usable[i].Schedule, usable[j].Schedule
			if a.Days != b.Days {
				return a.Days < b.Days
			}
			if a.Drivers != b.Drivers {
				return a.Drivers < b.Drivers
			}
			return usable[i].AdditionalCost.Total < usable[j].AdditionalCost.Total
		})
		sel.Reason = "fewest days, then fewest drivers"
	case PolicyPreferInternal:
		sort.SliceStable(usable, func(i, j int) bool {
			return internalPreference[usable[i].Mode] < internalPreference[usable[j].Mode]
		})
		sel.Reason = "internal staffing preference"
	default:
		sel.Policy = PolicyCheapest
		sortByCost(usable)
		sel.Reason = "lowest additional cost"
	}
	chosen := usable[0]
	sel.SelectedPlan = &chosen
	return sel
}

func sortByCost(opts []AlternativeOption) {
	sort.SliceStable(opts, func(i, j int) bool {
		return opts[i].AdditionalCost.Total < opts[j].AdditionalCost.Total
	})
}
