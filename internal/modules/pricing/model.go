// README: Pricing data model: request, read-only context, and the result wire contract.
package pricing

import (
	"context"
	"time"

	"vtc/internal/modules/compliance"
	"vtc/internal/modules/cost"
	"vtc/internal/modules/zone"
	"vtc/internal/types"
)

type TripType string

const (
	TripTransfer  TripType = "transfer"
	TripExcursion TripType = "excursion"
	TripDispo     TripType = "dispo"
)

type PricingMode string

const (
	ModePartnerGrid  PricingMode = "PARTNER_GRID"
	ModeClientDirect PricingMode = "CLIENT_DIRECT"
	ModeManual       PricingMode = "MANUAL"
)

type ProfitabilityIndicator string

const (
	ProfitabilityGreen  ProfitabilityIndicator = "green"
	ProfitabilityOrange ProfitabilityIndicator = "orange"
	ProfitabilityRed    ProfitabilityIndicator = "red"
)

type FallbackReason string

const (
	FallbackNoContract     FallbackReason = "NO_CONTRACT"
	FallbackZoneNotFound   FallbackReason = "ZONE_NOT_FOUND"
	FallbackNoMatchingGrid FallbackReason = "NO_MATCHING_GRID"
)

// RoutingSource tags where a segment's distance and duration came from, most authoritative first.
type RoutingSource string

const (
	RoutingVehicleSelection  RoutingSource = "VEHICLE_SELECTION"
	RoutingGoogleAPI         RoutingSource = "GOOGLE_API"
	RoutingRequestEstimate   RoutingSource = "REQUEST_ESTIMATE"
	RoutingHaversineEstimate RoutingSource = "HAVERSINE_ESTIMATE"
	// RoutingMirroredLeg is a leg copied from its opposite-direction twin.
	RoutingMirroredLeg       RoutingSource = "MIRRORED_LEG"
)

// Request is the immutable input of a calculation.
type Request struct {
	ContactID                string            `json:"contactId" validate:"required"`
	EndCustomerID            string            `json:"endCustomerId,omitempty"`
	Pickup                   types.Point       `json:"pickup"`
	Dropoff                  *types.Point      `json:"dropoff,omitempty"`
	VehicleCategoryID        string            `json:"vehicleCategoryId" validate:"required"`
	TripType                 TripType          `json:"tripType" validate:"required,oneof=transfer excursion dispo"`
	PickupAt                 *time.Time        `json:"pickupAt,omitempty"`
	ReturnPickupAt           *time.Time        `json:"returnPickupAt,omitempty"`
	EstimatedDistanceKm      *float64          `json:"estimatedDistanceKm,omitempty" validate:"omitempty,gte=0"`
	EstimatedDurationMinutes *float64          `json:"estimatedDurationMinutes,omitempty" validate:"omitempty,gte=0"`
	DurationHours            *float64          `json:"durationHours,omitempty" validate:"omitempty,gt=0"`
	IsRoundTrip              bool              `json:"isRoundTrip"`
	ParkingCost              float64           `json:"parkingCost" validate:"gte=0"`
	VehicleSelection         *VehicleSelection `json:"vehicleSelection,omitempty"`
}

// VehicleSelection is the dispatcher's chosen vehicle with its pre-routed deadhead legs.
type VehicleSelection struct {
	VehicleID string       `json:"vehicleId"`
	Base      *types.Point `json:"base,omitempty"`
	Approach  *Route       `json:"approach,omitempty"`
	Return    *Route       `json:"return,omitempty"`
}

// Route is a routed leg.
type Route struct {
	DistanceKm      float64 `json:"distanceKm" validate:"gte=0"`
	DurationMinutes float64 `json:"durationMinutes" validate:"gte=0"`
	Polyline        string  `json:"polyline,omitempty"`
}

// RouteSource is the live routing collaborator.
type RouteSource interface {
	Route(ctx context.Context, from, to types.Point) (Route, error)
}

// DataSources parameterizes the single pricing pipeline. Nil Routes means no live routing;
// cost.EstimateResolver keeps every cost on static rates.
type DataSources struct {
	Routes RouteSource
	Costs  cost.Resolver
}

// EstimateSources is the estimate-only variant.
func EstimateSources() DataSources {
	return DataSources{Costs: cost.EstimateResolver{}}
}

type Contact struct {
	ID              string           `json:"id"`
	Name            string           `json:"name,omitempty"`
	IsPartner       bool             `json:"isPartner"`
	DifficultyScore *int             `json:"difficultyScore,omitempty"`
	PartnerContract *PartnerContract `json:"partnerContract,omitempty"`
}

type EndCustomer struct {
	ID              string `json:"id"`
	DifficultyScore *int   `json:"difficultyScore,omitempty"`
}

type RouteDirection string

const (
	DirectionBidirectional RouteDirection = "BIDIRECTIONAL"
	DirectionAToB          RouteDirection = "A_TO_B"
)

// ZoneRoute is a fixed transfer price between zone groups.
type ZoneRoute struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	VehicleCategoryID string         `json:"vehicleCategoryId"`
	FromZoneID        string         `json:"fromZoneId,omitempty"`
	ToZoneID          string         `json:"toZoneId,omitempty"`
	FromZoneIDs       []string       `json:"fromZoneIds,omitempty"`
	ToZoneIDs         []string       `json:"toZoneIds,omitempty"`
	Direction         RouteDirection `json:"direction"`
	FixedPrice        float64        `json:"fixedPrice"`
	IsActive          bool           `json:"isActive"`
}

// Package is an excursion or dispo fixed-price package. Empty zone ids match anywhere.
type Package struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	VehicleCategoryID     string  `json:"vehicleCategoryId"`
	OriginZoneID          string  `json:"originZoneId,omitempty"`
	DestinationZoneID     string  `json:"destinationZoneId,omitempty"`
	IncludedDurationHours float64 `json:"includedDurationHours,omitempty"`
	IncludedDistanceKm    float64 `json:"includedDistanceKm,omitempty"`
	Price                 float64 `json:"price"`
	IsActive              bool    `json:"isActive"`
}

type ZoneRouteAssignment struct {
	Route         ZoneRoute `json:"route"`
	OverridePrice *float64  `json:"overridePrice,omitempty"`
}

type PackageAssignment struct {
	Package       Package  `json:"package"`
	OverridePrice *float64 `json:"overridePrice,omitempty"`
}

// PartnerContract lists grid assignments in priority order.
type PartnerContract struct {
	ID                string                `json:"id"`
	ZoneRoutes        []ZoneRouteAssignment `json:"zoneRoutes,omitempty"`
	ExcursionPackages []PackageAssignment   `json:"excursionPackages,omitempty"`
	DispoPackages     []PackageAssignment   `json:"dispoPackages,omitempty"`
}

type DispoBucket struct {
	Hours float64 `json:"hours"`
	Price float64 `json:"price"`
}

type VehicleCategory struct {
	ID                    string                        `json:"id"`
	Code                  string                        `json:"code"`
	Name                  string                        `json:"name"`
	RegulatoryCategory    compliance.RegulatoryCategory `json:"regulatoryCategory"`
	FuelType              cost.FuelType                 `json:"fuelType"`
	PriceMultiplier       float64                       `json:"priceMultiplier"`
	RatePerKm             *float64                      `json:"ratePerKm,omitempty"`
	RatePerHour           *float64                      `json:"ratePerHour,omitempty"`
	FuelConsumptionL100km *float64                      `json:"fuelConsumptionL100km,omitempty"`
	TCO                   *cost.TCOOverrides            `json:"tco,omitempty"`
	DispoBuckets          []DispoBucket                 `json:"dispoBuckets,omitempty"`
}

// Multiplier treats an unset multiplier as neutral.
func (c VehicleCategory) Multiplier() float64 {
	if c.PriceMultiplier <= 0 {
		return 1
	}
	return c.PriceMultiplier
}

type Vehicle struct {
	ID                    string             `json:"id"`
	FuelConsumptionL100km *float64           `json:"fuelConsumptionL100km,omitempty"`
	TCO                   *cost.TCOOverrides `json:"tco,omitempty"`
}

type AdvancedRateType string

const (
	RateNight   AdvancedRateType = "NIGHT"
	RateWeekend AdvancedRateType = "WEEKEND"
)

type AdjustmentType string

const (
	AdjustPercentage  AdjustmentType = "PERCENTAGE"
	AdjustFixedAmount AdjustmentType = "FIXED_AMOUNT"
)

// AdvancedRate is a NIGHT window (StartTime/EndTime as HH:MM, may wrap midnight) or a
// WEEKEND day set (time.Weekday numbers, Sunday = 0).
type AdvancedRate struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Type           AdvancedRateType `json:"type"`
	StartTime      string           `json:"startTime,omitempty"`
	EndTime        string           `json:"endTime,omitempty"`
	DaysOfWeek     []int            `json:"daysOfWeek,omitempty"`
	AdjustmentType AdjustmentType   `json:"adjustmentType"`
	Value          float64          `json:"value"`
	Priority       int              `json:"priority"`
	IsActive       bool             `json:"isActive"`
}

// SeasonalMultiplier applies between StartDate and EndDate (YYYY-MM-DD, inclusive).
type SeasonalMultiplier struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	StartDate          string   `json:"startDate"`
	EndDate            string   `json:"endDate"`
	Multiplier         float64  `json:"multiplier"`
	VehicleCategoryIDs []string `json:"vehicleCategoryIds,omitempty"`
	Priority           int      `json:"priority"`
	IsActive           bool     `json:"isActive"`
}

// Context is the read-only data a calculation runs against.
type Context struct {
	OrganizationID      string               `json:"organizationId"`
	Contact             Contact              `json:"contact"`
	EndCustomer         *EndCustomer         `json:"endCustomer,omitempty"`
	Zones               []zone.Zone          `json:"zones"`
	Settings            OrganizationSettings `json:"settings"`
	AdvancedRates       []AdvancedRate       `json:"advancedRates,omitempty"`
	SeasonalMultipliers []SeasonalMultiplier `json:"seasonalMultipliers,omitempty"`
	VehicleCategory     *VehicleCategory     `json:"vehicleCategory,omitempty"`
	Vehicle             *Vehicle             `json:"vehicle,omitempty"`
}

type CostSources struct {
	RoutingSource   RoutingSource    `json:"routingSource"`
	TollSource      cost.TollSource  `json:"tollSource"`
	FuelPriceSource cost.PriceSource `json:"fuelPriceSource"`
}

type ProfitabilityData struct {
	Indicator       ProfitabilityIndicator `json:"indicator"`
	MarginPercent   float64                `json:"marginPercent"`
	GreenThreshold  float64                `json:"greenThreshold"`
	OrangeThreshold float64                `json:"orangeThreshold"`
	Label           string                 `json:"label"`
}

// BidirectionalPricing compares a partner grid price with the client-direct price of the same trip.
type BidirectionalPricing struct {
	PartnerGridPrice  float64 `json:"partnerGridPrice"`
	ClientDirectPrice float64 `json:"clientDirectPrice"`
	Difference        float64 `json:"difference"`
	DifferencePercent float64 `json:"differencePercent"`
}

// Result is the PricingResult wire contract.
type Result struct {
	ID                     string                        `json:"id"`
	PricingMode            PricingMode                   `json:"pricingMode"`
	TripType               TripType                      `json:"tripType"`
	Price                  float64                       `json:"price"`
	Currency               string                        `json:"currency"`
	InternalCost           float64                       `json:"internalCost"`
	Margin                 float64                       `json:"margin"`
	MarginPercent          float64                       `json:"marginPercent"`
	ProfitabilityIndicator ProfitabilityIndicator        `json:"profitabilityIndicator"`
	ProfitabilityData      ProfitabilityData             `json:"profitabilityData"`
	MatchedGrid            *MatchedGrid                  `json:"matchedGrid,omitempty"`
	GridSearchDetails      *GridSearch                   `json:"gridSearchDetails,omitempty"`
	FallbackReason         FallbackReason                `json:"fallbackReason,omitempty"`
	AppliedRules           AuditTrail                    `json:"appliedRules"`
	TripAnalysis           TripAnalysis                  `json:"tripAnalysis"`
	ZoneTransparency       *zone.MultiplierResult        `json:"zoneTransparency,omitempty"`
	CostSources            CostSources                   `json:"costSources"`
	Compliance             *compliance.Result            `json:"complianceResult,omitempty"`
	StaffingAlternatives   *compliance.GenerationResult  `json:"staffingAlternatives,omitempty"`
	StaffingSelection      *compliance.StaffingSelection `json:"staffingSelection,omitempty"`
	StaffingCost           float64                       `json:"staffingCost"`
	Validation             *ValidationResult             `json:"validation,omitempty"`
	BidirectionalPricing   *BidirectionalPricing         `json:"bidirectionalPricing,omitempty"`
	OverrideApplied        bool                          `json:"overrideApplied"`
	CalculatedAt           time.Time                     `json:"calculatedAt"`
}
