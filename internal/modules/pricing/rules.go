// README: AppliedRule closed union and the append-only audit trail threaded through the pipeline.
package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"vtc/internal/modules/compliance"
	"vtc/internal/modules/zone"
)

type RuleType string

const (
	RuleGridMatch          RuleType = "GRID_MATCH"
	RuleDynamicBase        RuleType = "DYNAMIC_BASE_CALC"
	RuleTripType           RuleType = "TRIP_TYPE"
	RuleZoneMultiplier     RuleType = "ZONE_MULTIPLIER"
	RuleAdvancedRate       RuleType = "ADVANCED_RATE"
	RuleSeasonalMultiplier RuleType = "SEASONAL_MULTIPLIER"
	RuleVehicleCategory    RuleType = "VEHICLE_CATEGORY_MULTIPLIER"
	RuleDifficulty         RuleType = "DIFFICULTY_MULTIPLIER"
	RuleRoundTrip          RuleType = "ROUND_TRIP"
	RuleManualOverride     RuleType = "MANUAL_OVERRIDE"
	RuleComplianceStaffing RuleType = "COMPLIANCE_STAFFING"
)

// RulePayload is implemented only by the payload types of this package.
type RulePayload interface {
	ruleType() RuleType
}

type GridMatchPayload struct {
	Grid MatchedGrid `json:"grid"`
}

type DynamicBasePayload struct {
	DistanceKm          float64 `json:"distanceKm"`
	DurationMinutes     float64 `json:"durationMinutes"`
	RatePerKm           float64 `json:"ratePerKm"`
	RatePerHour         float64 `json:"ratePerHour"`
	RateSource          string  `json:"rateSource"`
	DistanceBasedPrice  float64 `json:"distanceBasedPrice"`
	DurationBasedPrice  float64 `json:"durationBasedPrice"`
	SelectedMethod      string  `json:"selectedMethod"`
	BasePrice           float64 `json:"basePrice"`
	TargetMarginPercent float64 `json:"targetMarginPercent"`
	PriceWithMargin     float64 `json:"priceWithMargin"`
}

// TripTypePayload covers all three trip types; fields that do not apply are omitted.
type TripTypePayload struct {
	TripType      TripType `json:"tripType"`
	Method        string   `json:"method"`
	PriceBefore   float64  `json:"priceBefore"`
	PriceAfter    float64  `json:"priceAfter"`
	RatePerHour   float64  `json:"ratePerHour,omitempty"`
	Hours         float64  `json:"hours,omitempty"`
	MinimumHours  float64  `json:"minimumHours,omitempty"`
	MinimumForced bool     `json:"minimumEnforced,omitempty"`
	Surcharge     float64  `json:"surchargePercent,omitempty"`

	IncludedKm       float64      `json:"includedKm,omitempty"`
	OverageKm        float64      `json:"overageKm,omitempty"`
	OverageRatePerKm float64      `json:"overageRatePerKm,omitempty"`
	OverageAmount    float64      `json:"overageAmount,omitempty"`
	BucketPolicy     BucketPolicy `json:"bucketPolicy,omitempty"`
	LowerBucket      *DispoBucket `json:"lowerBucket,omitempty"`
	UpperBucket      *DispoBucket `json:"upperBucket,omitempty"`
	ExtraHours       float64      `json:"extraHours,omitempty"`
	ExtraHoursAmount float64      `json:"extraHoursAmount,omitempty"`
}

type ZoneMultiplierPayload struct {
	Multiplier  float64                  `json:"multiplier"`
	Aggregation zone.AggregationStrategy `json:"aggregation"`
	Source      string                   `json:"source"`
	PickupZone  string                   `json:"pickupZone,omitempty"`
	DropoffZone string                   `json:"dropoffZone,omitempty"`
	PriceBefore float64                  `json:"priceBefore"`
	PriceAfter  float64                  `json:"priceAfter"`
}

type AdvancedRatePayload struct {
	RateID          string           `json:"rateId"`
	RateName        string           `json:"rateName"`
	RateType        AdvancedRateType `json:"rateType"`
	AdjustmentType  AdjustmentType   `json:"adjustmentType"`
	Value           float64          `json:"value"`
	Priority        int              `json:"priority"`
	OverlapMinutes  float64          `json:"overlapMinutes,omitempty"`
	TripMinutes     float64          `json:"tripMinutes,omitempty"`
	WeightFraction  float64          `json:"weightFraction"`
	AdjustmentValue float64          `json:"adjustmentAmount"`
	PriceBefore     float64          `json:"priceBefore"`
	PriceAfter      float64          `json:"priceAfter"`
}

type SeasonalMultiplierPayload struct {
	MultiplierID string  `json:"multiplierId"`
	Name         string  `json:"name"`
	Multiplier   float64 `json:"multiplier"`
	StartDate    string  `json:"startDate"`
	EndDate      string  `json:"endDate"`
	Priority     int     `json:"priority"`
	PriceBefore  float64 `json:"priceBefore"`
	PriceAfter   float64 `json:"priceAfter"`
}

type VehicleCategoryPayload struct {
	CategoryID  string  `json:"categoryId"`
	Category    string  `json:"category"`
	Multiplier  float64 `json:"multiplier"`
	PriceBefore float64 `json:"priceBefore"`
	PriceAfter  float64 `json:"priceAfter"`
}

type DifficultyPayload struct {
	Score       int     `json:"score"`
	ScoreSource string  `json:"scoreSource"`
	Multiplier  float64 `json:"multiplier"`
	PriceBefore float64 `json:"priceBefore"`
	PriceAfter  float64 `json:"priceAfter"`
}

type RoundTripPayload struct {
	Mode               string  `json:"mode"`
	WaitingMinutes     float64 `json:"waitingMinutes"`
	SegmentCount       int     `json:"segmentCount"`
	PriceMultiplier    float64 `json:"priceMultiplier"`
	PriceBefore        float64 `json:"priceBefore"`
	PriceAfter         float64 `json:"priceAfter"`
	AdditionalCost     float64 `json:"additionalCost"`
	AdditionalDistance float64 `json:"additionalDistanceKm"`
}

type ManualOverridePayload struct {
	PreviousPrice float64     `json:"previousPrice"`
	NewPrice      float64     `json:"newPrice"`
	PriceChange   float64     `json:"priceChange"`
	Reason        string      `json:"reason,omitempty"`
	PreviousMode  PricingMode `json:"previousMode"`
}

type ComplianceStaffingPayload struct {
	Policy               compliance.SelectionPolicy `json:"policy"`
	Mode                 compliance.StaffingMode    `json:"staffingMode,omitempty"`
	AdditionalCost       float64                    `json:"additionalCost"`
	PassedToPrice        bool                       `json:"passedToPrice"`
	RequiresManualReview bool                       `json:"requiresManualReview"`
	Violations           []compliance.Violation     `json:"violations"`
}

func (GridMatchPayload) ruleType() RuleType          { return RuleGridMatch }
func (DynamicBasePayload) ruleType() RuleType        { return RuleDynamicBase }
func (TripTypePayload) ruleType() RuleType           { return RuleTripType }
func (ZoneMultiplierPayload) ruleType() RuleType     { return RuleZoneMultiplier }
func (AdvancedRatePayload) ruleType() RuleType       { return RuleAdvancedRate }
func (SeasonalMultiplierPayload) ruleType() RuleType { return RuleSeasonalMultiplier }
func (VehicleCategoryPayload) ruleType() RuleType    { return RuleVehicleCategory }
func (DifficultyPayload) ruleType() RuleType         { return RuleDifficulty }
func (RoundTripPayload) ruleType() RuleType          { return RuleRoundTrip }
func (ManualOverridePayload) ruleType() RuleType     { return RuleManualOverride }
func (ComplianceStaffingPayload) ruleType() RuleType { return RuleComplianceStaffing }

// AppliedRule records one pricing step. On the wire the payload fields sit next to
// "type" and "description".
type AppliedRule struct {
	Type        RuleType
	Description string
	Payload     RulePayload
}

func newRule(description string, p RulePayload) AppliedRule {
	return AppliedRule{Type: p.ruleType(), Description: description, Payload: p}
}

func (r AppliedRule) MarshalJSON() ([]byte, error) {
	head, err := json.Marshal(struct {
		Type        RuleType `json:"type"`
		Description string   `json:"description"`
	}{r.Type, r.Description})
	if err != nil {
		return nil, err
	}
	if r.Payload == nil {
		return head, nil
	}
	body, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) <= 2 {
		return head, nil
	}
	// {"type":..,"description":..} + , + payload fields
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

func (r *AppliedRule) UnmarshalJSON(data []byte) error {
	var head struct {
		Type        RuleType `json:"type"`
		Description string   `json:"description"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.Type {
	case RuleGridMatch:
		p, err := decodePayload[GridMatchPayload](data)
		return r.set(head.Type, head.Description, p, err)
	case RuleDynamicBase:
		p, err := decodePayload[DynamicBasePayload](data)
		return r.set(head.Type, head.Description, p, err)
	case RuleTripType:
		p, err := decodePayload[TripTypePayload](data)
		return r.set(head.Type, head.Description, p, err)
	case RuleZoneMultiplier:
		p, err := decodePayload[ZoneMultiplierPayload](data)
		return r.set(head.Type, head.Description, p, err)
	case RuleAdvancedRate:
		p, err := decodePayload[AdvancedRatePayload](data)
		return r.set(head.Type, head.Description, p, err)
	case RuleSeasonalMultiplier:
		p, err := decodePayload[SeasonalMultiplierPayload](data)
		return r.set(head.Type, head.Description, p, err)
	case RuleVehicleCategory:
		p, err := decodePayload[VehicleCategoryPayload](data)
		return r.set(head.Type, head.Description, p, err)
	case RuleDifficulty:
		p, err := decodePayload[DifficultyPayload](data)
		return r.set(head.Type, head.Description, p, err)
	case RuleRoundTrip:
		p, err := decodePayload[RoundTripPayload](data)
		return r.set(head.Type, head.Description, p, err)
	case RuleManualOverride:
		p, err := decodePayload[ManualOverridePayload](data)
		return r.set(head.Type, head.Description, p, err)
	case RuleComplianceStaffing:
		p, err := decodePayload[ComplianceStaffingPayload](data)
		return r.set(head.Type, head.Description, p, err)
	default:
		return fmt.Errorf("unknown applied rule type %q", head.Type)
	}
}

func decodePayload[T RulePayload](data []byte) (T, error) {
	var p T
	err := json.Unmarshal(data, &p)
	return p, err
}

func (r *AppliedRule) set(t RuleType, desc string, p RulePayload, err error) error {
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", t, err)
	}
	*r = AppliedRule{Type: t, Description: desc, Payload: p}
	return nil
}

// AuditTrail is an ordered, append-only list of applied rules. With never touches the
// receiver's backing array, so trails shared between results cannot be altered.
type AuditTrail struct {
	rules []AppliedRule
}

func NewAuditTrail(rules ...AppliedRule) AuditTrail {
	return AuditTrail{}.With(rules...)
}

func (t AuditTrail) With(rules ...AppliedRule) AuditTrail {
	out := make([]AppliedRule, 0, len(t.rules)+len(rules))
	out = append(out, t.rules...)
	out = append(out, rules...)
	return AuditTrail{rules: out}
}

func (t AuditTrail) Len() int { return len(t.rules) }

// Rules returns a copy of the ordered rules.
func (t AuditTrail) Rules() []AppliedRule {
	return append([]AppliedRule(nil), t.rules...)
}

// Find returns the first rule of type rt.
func (t AuditTrail) Find(rt RuleType) (AppliedRule, bool) {
	for _, r := range t.rules {
		if r.Type == rt {
			return r, true
		}
	}
	return AppliedRule{}, false
}

func (t AuditTrail) MarshalJSON() ([]byte, error) {
	if t.rules == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.rules)
}

func (t *AuditTrail) UnmarshalJSON(data []byte) error {
	var rules []AppliedRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return err
	}
	t.rules = rules
	return nil
}
