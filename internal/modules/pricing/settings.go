// README: Organization pricing settings and their single defaulting function.
package pricing

import (
	"time"
	_ "time/tzdata"

	"vtc/internal/modules/compliance"
	"vtc/internal/modules/zone"
	"vtc/internal/types"
)

type BucketPolicy string

const (
	BucketRoundUp      BucketPolicy = "ROUND_UP"
	BucketRoundDown    BucketPolicy = "ROUND_DOWN"
	BucketProportional BucketPolicy = "PROPORTIONAL"
)

// DefaultTimezone is the zone night and seasonal windows are read in when none is configured.
const DefaultTimezone = "Europe/Paris"

// OrganizationSettings is the stored, partially filled settings record. Nil means "use the default".
type OrganizationSettings struct {
	Currency *string `json:"currency,omitempty"`
	Timezone *string `json:"timezone,omitempty"`

	BaseRatePerKm       *float64 `json:"baseRatePerKm,omitempty"`
	BaseRatePerHour     *float64 `json:"baseRatePerHour,omitempty"`
	TargetMarginPercent *float64 `json:"targetMarginPercent,omitempty"`

	GreenMarginThreshold  *float64 `json:"greenMarginThreshold,omitempty"`
	OrangeMarginThreshold *float64 `json:"orangeMarginThreshold,omitempty"`
	MarginBandMinPercent  *float64 `json:"marginBandMinPercent,omitempty"`
	MarginBandMaxPercent  *float64 `json:"marginBandMaxPercent,omitempty"`

	ZoneConflictStrategy    *zone.ConflictStrategy    `json:"zoneConflictStrategy,omitempty"`
	ZoneAggregationStrategy *zone.AggregationStrategy `json:"zoneMultiplierAggregationStrategy,omitempty"`

	FuelConsumptionL100km *float64 `json:"fuelConsumptionL100km,omitempty"`
	FuelPricePerLiter     *float64 `json:"fuelPricePerLiter,omitempty"`
	TollCostPerKm         *float64 `json:"tollCostPerKm,omitempty"`
	WearCostPerKm         *float64 `json:"wearCostPerKm,omitempty"`
	DriverHourlyCost      *float64 `json:"driverHourlyCost,omitempty"`

	BaseLocation    *types.Point `json:"baseLocation,omitempty"`
	AverageSpeedKmh *float64     `json:"averageSpeedKmh,omitempty"`
	RoadFactor      *float64     `json:"roadFactor,omitempty"`

	ExcursionMinimumHours     *float64 `json:"excursionMinimumHours,omitempty"`
	ExcursionSurchargePercent *float64 `json:"excursionSurchargePercent,omitempty"`

	DispoIncludedKmPerHour *float64      `json:"dispoIncludedKmPerHour,omitempty"`
	DispoOverageRatePerKm  *float64      `json:"dispoOverageRatePerKm,omitempty"`
	DispoBucketPolicy      *BucketPolicy `json:"dispoBucketPolicy,omitempty"`

	DifficultyMultipliers map[int]float64 `json:"difficultyMultipliers,omitempty"`

	MaxWaitOnSiteMinutes *float64 `json:"maxWaitOnSiteMinutes,omitempty"`

	StaffingSelectionPolicy *compliance.SelectionPolicy `json:"staffingSelectionPolicy,omitempty"`
	HotelCostPerNight       *float64                    `json:"hotelCostPerNight,omitempty"`
	MealCostPerDay          *float64                    `json:"mealCostPerDay,omitempty"`
	OvernightPremium        *float64                    `json:"overnightPremium,omitempty"`
	ExtraDayDriverCost      *float64                    `json:"extraDayDriverCost,omitempty"`

	RSERules *compliance.RuleOverrides `json:"rseRules,omitempty"`
}

// Settings is the fully resolved configuration of one calculation.
type Settings struct {
	Currency string         `json:"currency"`
	Timezone string         `json:"timezone"`
	Location *time.Location `json:"-"`

	BaseRatePerKm       float64 `json:"baseRatePerKm"`
	BaseRatePerHour     float64 `json:"baseRatePerHour"`
	TargetMarginPercent float64 `json:"targetMarginPercent"`

	GreenMarginThreshold  float64 `json:"greenMarginThreshold"`
	OrangeMarginThreshold float64 `json:"orangeMarginThreshold"`
	MarginBandMinPercent  float64 `json:"marginBandMinPercent"`
	MarginBandMaxPercent  float64 `json:"marginBandMaxPercent"`

	ZoneConflictStrategy    zone.ConflictStrategy    `json:"zoneConflictStrategy"`
	ZoneAggregationStrategy zone.AggregationStrategy `json:"zoneMultiplierAggregationStrategy"`

	FuelConsumptionL100km float64 `json:"fuelConsumptionL100km"`
	// FuelPricePerLiter is the organization's own fuel price; 0 means the fuel type's default.
	FuelPricePerLiter     float64 `json:"fuelPricePerLiter,omitempty"`
	TollCostPerKm         float64 `json:"tollCostPerKm"`
	WearCostPerKm         float64 `json:"wearCostPerKm"`
	DriverHourlyCost      float64 `json:"driverHourlyCost"`

	BaseLocation    *types.Point `json:"baseLocation,omitempty"`
	AverageSpeedKmh float64      `json:"averageSpeedKmh"`
	RoadFactor      float64      `json:"roadFactor"`

	ExcursionMinimumHours     float64 `json:"excursionMinimumHours"`
	ExcursionSurchargePercent float64 `json:"excursionSurchargePercent"`

	DispoIncludedKmPerHour float64      `json:"dispoIncludedKmPerHour"`
	DispoOverageRatePerKm  float64      `json:"dispoOverageRatePerKm"`
	DispoBucketPolicy      BucketPolicy `json:"dispoBucketPolicy"`

	DifficultyMultipliers map[int]float64 `json:"difficultyMultipliers"`

	MaxWaitOnSiteMinutes float64 `json:"maxWaitOnSiteMinutes"`

	StaffingPolicy compliance.SelectionPolicy `json:"staffingSelectionPolicy"`
	Staffing       compliance.StaffingParams  `json:"staffing"`
	RSERules       compliance.Rules           `json:"rseRules"`
}

// DefaultDifficultyMultipliers maps client difficulty scores 1..5 to price multipliers.
func DefaultDifficultyMultipliers() map[int]float64 {
	return map[int]float64{1: 1.00, 2: 1.02, 3: 1.05, 4: 1.08, 5: 1.10}
}

// Resolve fills every unset field. It is the only place pricing defaults are declared:
//
//	currency EUR; timezone Europe/Paris; base rates 2.00 €/km and 45 €/h; target margin 20%
//	profitability green >= 20%, orange >= 0%; sane margin band -50%..80%
//	zone conflict PRIORITY, aggregation MAX
//	fuel 8 L/100km priced per fuel type unless the organization sets a price; tolls 0.12 €/km; wear 0.08 €/km; driver 25 €/h
//	haversine estimate: road factor 1.3 at 50 km/h
//	excursion minimum 4h with a 10% surcharge
//	dispo 50 km included per hour, overage 0.50 €/km, bucket policy ROUND_UP
//	difficulty table 1.00/1.02/1.05/1.08/1.10
//	round-trip wait on site up to 180 minutes
//	staffing policy CHEAPEST with compliance.DefaultStaffingParams, driver rate shared with cost
//	RSE rules from compliance.ResolveRules (EU 9h/13h defaults)
func (o OrganizationSettings) Resolve() Settings {
	f := func(v *float64, def float64) float64 {
		if v == nil {
			return def
		}
		return *v
	}
	s := Settings{
		Currency:                  types.DefaultCurrency,
		BaseRatePerKm:             f(o.BaseRatePerKm, 2.0),
		BaseRatePerHour:           f(o.BaseRatePerHour, 45),
		TargetMarginPercent:       f(o.TargetMarginPercent, 20),
		GreenMarginThreshold:      f(o.GreenMarginThreshold, 20),
		OrangeMarginThreshold:     f(o.OrangeMarginThreshold, 0),
		MarginBandMinPercent:      f(o.MarginBandMinPercent, -50),
		MarginBandMaxPercent:      f(o.MarginBandMaxPercent, 80),
		ZoneConflictStrategy:      zone.ConflictPriority,
		ZoneAggregationStrategy:   zone.AggregateMax,
		FuelConsumptionL100km:     f(o.FuelConsumptionL100km, 8.0),
		FuelPricePerLiter:         f(o.FuelPricePerLiter, 0),
		TollCostPerKm:             f(o.TollCostPerKm, 0.12),
		WearCostPerKm:             f(o.WearCostPerKm, 0.08),
		DriverHourlyCost:          f(o.DriverHourlyCost, 25),
		BaseLocation:              o.BaseLocation,
		AverageSpeedKmh:           f(o.AverageSpeedKmh, 50),
		RoadFactor:                f(o.RoadFactor, 1.3),
		ExcursionMinimumHours:     f(o.ExcursionMinimumHours, 4),
		ExcursionSurchargePercent: f(o.ExcursionSurchargePercent, 10),
		DispoIncludedKmPerHour:    f(o.DispoIncludedKmPerHour, 50),
		DispoOverageRatePerKm:     f(o.DispoOverageRatePerKm, 0.5),
		DispoBucketPolicy:         BucketRoundUp,
		DifficultyMultipliers:     DefaultDifficultyMultipliers(),
		MaxWaitOnSiteMinutes:      f(o.MaxWaitOnSiteMinutes, 180),
		StaffingPolicy:            compliance.PolicyCheapest,
		Staffing:                  compliance.DefaultStaffingParams(),
		RSERules:                  compliance.ResolveRules(o.RSERules),
	}
	if o.Currency != nil && *o.Currency != "" {
		s.Currency = *o.Currency
	}
	s.Timezone, s.Location = resolveLocation(o.Timezone)
	if o.ZoneConflictStrategy != nil && *o.ZoneConflictStrategy != "" {
		s.ZoneConflictStrategy = *o.ZoneConflictStrategy
	}
	if o.ZoneAggregationStrategy != nil && *o.ZoneAggregationStrategy != "" {
		s.ZoneAggregationStrategy = *o.ZoneAggregationStrategy
	}
	if o.DispoBucketPolicy != nil && *o.DispoBucketPolicy != "" {
		s.DispoBucketPolicy = *o.DispoBucketPolicy
	}
	for score, m := range o.DifficultyMultipliers {
		if score >= 1 && score <= 5 && m > 0 {
			s.DifficultyMultipliers[score] = m
		}
	}
	if o.StaffingSelectionPolicy != nil {
		s.StaffingPolicy = compliance.ParsePolicy(string(*o.StaffingSelectionPolicy))
	}
	if s.AverageSpeedKmh <= 0 {
		s.AverageSpeedKmh = 50
	}
	if s.RoadFactor <= 0 {
		s.RoadFactor = 1.3
	}

	s.Staffing.DriverHourlyCost = s.DriverHourlyCost
	s.Staffing.HotelCostPerNight = f(o.HotelCostPerNight, s.Staffing.HotelCostPerNight)
	s.Staffing.MealCostPerDay = f(o.MealCostPerDay, s.Staffing.MealCostPerDay)
	s.Staffing.OvernightPremium = f(o.OvernightPremium, s.Staffing.OvernightPremium)
	s.Staffing.ExtraDayDriverCost = f(o.ExtraDayDriverCost, s.Staffing.ExtraDayDriverCost)
	return s
}

// resolveLocation falls back to DefaultTimezone for an empty or unknown zone name.
func resolveLocation(name *string) (string, *time.Location) {
	if name != nil && *name != "" {
		if loc, err := time.LoadLocation(*name); err == nil {
			return *name, loc
		}
	}
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return "UTC", time.UTC
	}
	return DefaultTimezone, loc
}

// LocalTime converts t into the organization's timezone; nil stays nil.
func (s Settings) LocalTime(t *time.Time) *time.Time {
	if t == nil || s.Location == nil {
		return t
	}
	local := t.In(s.Location)
	return &local
}
