// README: Heavy-vehicle compliance validation: speed cap, driving time, mandatory breaks, amplitude.
package compliance

import (
	"fmt"
	"time"

	"vtc/internal/types"
)

type ViolationType string

const (
	ViolationDrivingTime ViolationType = "DRIVING_TIME_EXCEEDED"
	ViolationAmplitude   ViolationType = "AMPLITUDE_EXCEEDED"
)

type WarningType string

const (
	WarningDrivingTime WarningType = "DRIVING_TIME_NEAR_LIMIT"
	WarningAmplitude   WarningType = "AMPLITUDE_NEAR_LIMIT"
)

type CheckStatus string

const (
	CheckPass    CheckStatus = "PASS"
	CheckWarning CheckStatus = "WARNING"
	CheckFail    CheckStatus = "FAIL"
)

// Segment is one driving leg of the mission.
type Segment struct {
	Name            string  `json:"name"`
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes float64 `json:"durationMinutes"`
}

type Input struct {
	RegulatoryCategory RegulatoryCategory `json:"regulatoryCategory"`
	Segments           []Segment          `json:"segments"`
	// WaitingMinutes is on-duty time spent not driving (e.g. waiting between round-trip legs).
	WaitingMinutes float64 `json:"waitingMinutes,omitempty"`
	// DutyStart and DutyEnd give the wall-clock amplitude when both are known.
	DutyStart *time.Time `json:"dutyStart,omitempty"`
	DutyEnd   *time.Time `json:"dutyEnd,omitempty"`
}

type Violation struct {
	Type     ViolationType `json:"type"`
	Message  string        `json:"message"`
	Actual   float64       `json:"actual"`
	Limit    float64       `json:"limit"`
	Unit     string        `json:"unit"`
	Severity string        `json:"severity"`
}

type Warning struct {
	Type           WarningType `json:"type"`
	Message        string      `json:"message"`
	Actual         float64     `json:"actual"`
	Limit          float64     `json:"limit"`
	PercentOfLimit float64     `json:"percentOfLimit"`
}

type RuleCheck struct {
	Rule   string      `json:"rule"`
	Limit  float64     `json:"limit"`
	Actual float64     `json:"actual"`
	Status CheckStatus `json:"status"`
}

type AdjustedSegment struct {
	Name            string  `json:"name"`
	DistanceKm      float64 `json:"distanceKm"`
	OriginalMinutes float64 `json:"originalMinutes"`
	AdjustedMinutes float64 `json:"adjustedMinutes"`
	SpeedCapped     bool    `json:"speedCapped"`
}

type AdjustedDurations struct {
	OriginalDrivingMinutes   float64           `json:"originalDrivingMinutes"`
	AdjustedDrivingMinutes   float64           `json:"adjustedDrivingMinutes"`
	InjectedBreakMinutes     float64           `json:"injectedBreakMinutes"`
	OriginalAmplitudeMinutes float64           `json:"originalAmplitudeMinutes"`
	AdjustedAmplitudeMinutes float64           `json:"adjustedAmplitudeMinutes"`
	AmplitudeSource          string            `json:"amplitudeSource"`
	Segments                 []AdjustedSegment `json:"segments,omitempty"`
}

// Result is the ComplianceValidationResult of a mission.
type Result struct {
	IsCompliant        bool               `json:"isCompliant"`
	RegulatoryCategory RegulatoryCategory `json:"regulatoryCategory"`
	Violations         []Violation        `json:"violations"`
	Warnings           []Warning          `json:"warnings"`
	AdjustedDurations  AdjustedDurations  `json:"adjustedDurations"`
	RulesApplied       []RuleCheck        `json:"rulesApplied"`
	EffectiveRules     Rules              `json:"effectiveRules"`
}

// DrivingHours is the adjusted driving time in hours.
func (r Result) DrivingHours() float64 {
	return r.AdjustedDurations.AdjustedDrivingMinutes / 60
}

// AmplitudeHours is the adjusted amplitude (breaks included) in hours.
func (r Result) AmplitudeHours() float64 {
	return r.AdjustedDurations.AdjustedAmplitudeMinutes / 60
}

// ValidateHeavyVehicleCompliance checks a mission against rules. LIGHT vehicles are
// always compliant and no rule is evaluated.
func ValidateHeavyVehicleCompliance(in Input, rules Rules) Result {
	res := Result{
		IsCompliant:        true,
		RegulatoryCategory: in.RegulatoryCategory,
		Violations:         []Violation{},
		Warnings:           []Warning{},
		RulesApplied:       []RuleCheck{},
		EffectiveRules:     rules,
	}
	if in.RegulatoryCategory != CategoryHeavy {
		return res
	}

	adj := &res.AdjustedDurations
	capped := 0
	for _, s := range in.Segments {
		seg := AdjustedSegment{
			Name:            s.Name,
			DistanceKm:      s.DistanceKm,
			OriginalMinutes: s.DurationMinutes,
			AdjustedMinutes: s.DurationMinutes,
		}
		if rules.SpeedCapKmh > 0 && s.DistanceKm > 0 {
			minMinutes := s.DistanceKm / rules.SpeedCapKmh * 60
			if s.DurationMinutes < minMinutes {
				seg.AdjustedMinutes = types.Round(minMinutes, 2)
				seg.SpeedCapped = true
				capped++
			}
		}
		adj.OriginalDrivingMinutes += seg.OriginalMinutes
		adj.AdjustedDrivingMinutes += seg.AdjustedMinutes
		adj.Segments = append(adj.Segments, seg)
	}
	adj.OriginalDrivingMinutes = types.Round(adj.OriginalDrivingMinutes, 2)
	adj.AdjustedDrivingMinutes = types.Round(adj.AdjustedDrivingMinutes, 2)

	if rules.SpeedCapKmh > 0 {
		status := CheckPass
		if capped > 0 {
			status = CheckWarning
		}
		res.RulesApplied = append(res.RulesApplied, RuleCheck{
			Rule: "SPEED_CAP", Limit: rules.SpeedCapKmh, Actual: float64(capped), Status: status,
		})
	}

	drivingHours := types.Round(adj.AdjustedDrivingMinutes/60, 2)
	res.checkLimit("MAX_DAILY_DRIVING", ViolationDrivingTime, WarningDrivingTime, "driving time", drivingHours, rules.MaxDailyDrivingHours)

	adj.InjectedBreakMinutes = rules.MandatoryBreakMinutes(adj.AdjustedDrivingMinutes)
	res.RulesApplied = append(res.RulesApplied, RuleCheck{
		Rule: "MANDATORY_BREAKS", Limit: rules.BlockMinutesForBreak, Actual: adj.InjectedBreakMinutes, Status: CheckPass,
	})

	if in.DutyStart != nil && in.DutyEnd != nil && in.DutyEnd.After(*in.DutyStart) {
		adj.AmplitudeSource = "WALL_CLOCK"
		adj.OriginalAmplitudeMinutes = in.DutyEnd.Sub(*in.DutyStart).Minutes()
		extension := adj.AdjustedDrivingMinutes - adj.OriginalDrivingMinutes
		adj.AdjustedAmplitudeMinutes = adj.OriginalAmplitudeMinutes + extension + adj.InjectedBreakMinutes
	} else {
		adj.AmplitudeSource = "SEGMENT_SUM"
		adj.OriginalAmplitudeMinutes = adj.OriginalDrivingMinutes + in.WaitingMinutes
		adj.AdjustedAmplitudeMinutes = adj.AdjustedDrivingMinutes + in.WaitingMinutes + adj.InjectedBreakMinutes
	}
	adj.OriginalAmplitudeMinutes = types.Round(adj.OriginalAmplitudeMinutes, 2)
	adj.AdjustedAmplitudeMinutes = types.Round(adj.AdjustedAmplitudeMinutes, 2)

	amplitudeHours := types.Round(adj.AdjustedAmplitudeMinutes/60, 2)
	res.checkLimit("MAX_DAILY_AMPLITUDE", ViolationAmplitude, WarningAmplitude, "amplitude", amplitudeHours, rules.MaxDailyAmplitudeHours)

	res.IsCompliant = len(res.Violations) == 0
	return res
}

func (r *Result) checkLimit(rule string, vt ViolationType, wt WarningType, label string, actual, limit float64) {
	status := evaluate(actual, limit)
	r.RulesApplied = append(r.RulesApplied, RuleCheck{Rule: rule, Limit: limit, Actual: actual, Status: status})
	switch status {
	case CheckFail:
		r.Violations = append(r.Violations, Violation{
			Type:     vt,
			Message:  fmt.Sprintf("%s of %.2fh exceeds the %.2fh limit", label, actual, limit),
			Actual:   actual,
			Limit:    limit,
			Unit:     "hours",
			Severity: "BLOCKING",
		})
	case CheckWarning:
		r.Warnings = append(r.Warnings, Warning{
			Type:           wt,
			Message:        fmt.Sprintf("%s of %.2fh is close to the %.2fh limit", label, actual, limit),
			Actual:         actual,
			Limit:          limit,
			PercentOfLimit: types.Round(actual/limit*100, 1),
		})
	}
}

// evaluate classifies actual against limit: FAIL above it, WARNING from 90% of it.
func evaluate(actual, limit float64) CheckStatus {
	switch {
	case limit <= 0:
		return CheckPass
	case actual > limit:
		return CheckFail
	case actual >= limit*warningRatio:
		return CheckWarning
	default:
		return CheckPass
	}
}
