// README: Regulatory (RSE) limits for heavy vehicles and their single defaulting point.
package compliance

type RegulatoryCategory string

const (
	CategoryLight RegulatoryCategory = "LIGHT"
	CategoryHeavy RegulatoryCategory = "HEAVY"
)

// warningRatio is the share of a limit from which a non-blocking warning is raised.
const warningRatio = 0.9

type Rules struct {
	MaxDailyDrivingHours   float64 `json:"maxDailyDrivingHours"`
	MaxDailyAmplitudeHours float64 `json:"maxDailyAmplitudeHours"`
	BreakMinutesPerBlock   float64 `json:"breakMinutesPerBlock"`
	BlockMinutesForBreak   float64 `json:"blockMinutesForBreak"`
	// SpeedCapKmh is the ceiling used to recompute segment durations; 0 disables capping.
	SpeedCapKmh float64 `json:"speedCapKmh"`
	Source      string  `json:"source"`
}

// RuleOverrides are organization-specific values; nil and non-positive fields keep the
// defaults, so an override can tighten or relax a limit but never switch it off.
type RuleOverrides struct {
	MaxDailyDrivingHours   *float64 `json:"maxDailyDrivingHours,omitempty"`
	MaxDailyAmplitudeHours *float64 `json:"maxDailyAmplitudeHours,omitempty"`
	BreakMinutesPerBlock   *float64 `json:"breakMinutesPerBlock,omitempty"`
	BlockMinutesForBreak   *float64 `json:"blockMinutesForBreak,omitempty"`
	SpeedCapKmh            *float64 `json:"speedCapKmh,omitempty"`
}

// DefaultRules are the EU driving-time limits used for every new calculation:
// 9h driving, 13h amplitude, 45min break per 4h30 of driving, 85 km/h speed cap.
func DefaultRules() Rules {
	return Rules{
		MaxDailyDrivingHours:   9,
		MaxDailyAmplitudeHours: 13,
		BreakMinutesPerBlock:   45,
		BlockMinutesForBreak:   270,
		SpeedCapKmh:            85,
		Source:                 "DEFAULT",
	}
}

// LegacyRules is the historical 10h/14h set. It is kept only to replay audit entries that
// were recorded under it and must not be used for new calculations.
func LegacyRules() Rules {
	r := DefaultRules()
	r.MaxDailyDrivingHours = 10
	r.MaxDailyAmplitudeHours = 14
	r.Source = "LEGACY"
	return r
}

// ResolveRules applies organization overrides on top of DefaultRules.
func ResolveRules(o *RuleOverrides) Rules {
	r := DefaultRules()
	if o == nil {
		return r
	}
	set := func(dst *float64, v *float64) {
		if v != nil && *v > 0 {
			*dst = *v
			r.Source = "ORGANIZATION"
		}
	}
	set(&r.MaxDailyDrivingHours, o.MaxDailyDrivingHours)
	set(&r.MaxDailyAmplitudeHours, o.MaxDailyAmplitudeHours)
	set(&r.BreakMinutesPerBlock, o.BreakMinutesPerBlock)
	set(&r.BlockMinutesForBreak, o.BlockMinutesForBreak)
	set(&r.SpeedCapKmh, o.SpeedCapKmh)
	return r
}

// MandatoryBreakMinutes is floor(driving / block) * breakPerBlock.
func (r Rules) MandatoryBreakMinutes(drivingMinutes float64) float64 {
	if r.BlockMinutesForBreak <= 0 || drivingMinutes <= 0 {
		return 0
	}
	blocks := int(drivingMinutes / r.BlockMinutesForBreak)
	return float64(blocks) * r.BreakMinutesPerBlock
}
