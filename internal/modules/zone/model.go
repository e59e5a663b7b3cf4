// README: Pricing zone definitions and resolution strategies.
package zone

import "vtc/internal/types"

type Type string

const (
	TypePolygon  Type = "POLYGON"
	TypeRadius   Type = "RADIUS"
	TypeCorridor Type = "CORRIDOR"
	TypePoint    Type = "POINT"
)

// DefaultPointToleranceKm is the matching radius of a POINT zone without an explicit radius.
const DefaultPointToleranceKm = 0.5

type Zone struct {
	ID                    string        `json:"id"`
	Code                  string        `json:"code"`
	Name                  string        `json:"name"`
	Type                  Type          `json:"type"`
	Coordinates           []types.Point `json:"coordinates,omitempty"`
	Center                *types.Point  `json:"center,omitempty"`
	RadiusKm              float64       `json:"radiusKm,omitempty"`
	CorridorWidthKm       float64       `json:"corridorWidthKm,omitempty"`
	PriceMultiplier       float64       `json:"priceMultiplier"`
	Priority              int           `json:"priority"`
	FixedParkingSurcharge float64       `json:"fixedParkingSurcharge,omitempty"`
	FixedAccessFee        float64       `json:"fixedAccessFee,omitempty"`
	IsActive              bool          `json:"isActive"`
}

// Multiplier returns the price multiplier, treating an unset value as neutral.
func (z Zone) Multiplier() float64 {
	if z.PriceMultiplier <= 0 {
		return 1
	}
	return z.PriceMultiplier
}

// Surcharge is the fixed amount added to the operating cost when the zone is used.
func (z Zone) Surcharge() float64 {
	return types.RoundMoney(z.FixedParkingSurcharge + z.FixedAccessFee)
}

type ConflictStrategy string

const (
	ConflictPriority      ConflictStrategy = "PRIORITY"
	ConflictMostExpensive ConflictStrategy = "MOST_EXPENSIVE"
	ConflictClosest       ConflictStrategy = "CLOSEST"
	ConflictCombined      ConflictStrategy = "COMBINED"
)

type AggregationStrategy string

const (
	AggregateMax         AggregationStrategy = "MAX"
	AggregatePickupOnly  AggregationStrategy = "PICKUP_ONLY"
	AggregateDropoffOnly AggregationStrategy = "DROPOFF_ONLY"
	AggregateAverage     AggregationStrategy = "AVERAGE"
)

// Candidate is a zone that contains a point.
type Candidate struct {
	ZoneID     string  `json:"zoneId"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
	Priority   int     `json:"priority"`
	DistanceKm float64 `json:"distanceKm"`
}

// Resolution is the outcome of resolving a single point.
type Resolution struct {
	Point      types.Point      `json:"point"`
	Candidates []Candidate      `json:"candidates"`
	Selected   *Candidate       `json:"selected,omitempty"`
	Strategy   ConflictStrategy `json:"strategy"`
	zone       *Zone
}

// Zone returns the selected zone definition, if any.
func (r Resolution) Zone() *Zone {
	return r.zone
}

// MultiplierResult is the transparency snapshot of the pickup/dropoff multiplier aggregation.
type MultiplierResult struct {
	Pickup            Resolution          `json:"pickup"`
	Dropoff           *Resolution         `json:"dropoff,omitempty"`
	PickupMultiplier  float64             `json:"pickupMultiplier"`
	DropoffMultiplier float64             `json:"dropoffMultiplier"`
	AppliedMultiplier float64             `json:"appliedMultiplier"`
	Aggregation       AggregationStrategy `json:"aggregation"`
	Source            string              `json:"source"`
	Surcharges        float64             `json:"surcharges"`
}
