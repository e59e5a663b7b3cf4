// README: Main pricing pipeline: validation, grid or dynamic pricing, shadow costing, compliance, profitability.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vtc/internal/modules/compliance"
	"vtc/internal/modules/cost"
	"vtc/internal/modules/zone"
	"vtc/internal/types"
)

type Calculator struct {
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewCalculator(log *zap.Logger) *Calculator {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Calculator{log: log, validate: v, now: time.Now}
}

// CalculatePrice runs the estimate-only variant.
func CalculatePrice(req Request, pc Context) (Result, error) {
	return NewCalculator(nil).Calculate(context.Background(), req, pc, EstimateSources())
}

// Calculate prices req against pc. Live collaborators in src are only consulted for routing,
// tolls and fuel; their failures fall back to estimates and never abort the calculation.
func (c *Calculator) Calculate(ctx context.Context, req Request, pc Context, src DataSources) (Result, error) {
	if err := c.ValidateRequest(req, pc); err != nil {
		return Result{}, err
	}
	if src.Costs == nil {
		src.Costs = cost.EstimateResolver{}
	}
	s := pc.Settings.Resolve()

	params := c.costParams(ctx, pc, s, src.Costs)
	shadow := ShadowCalculator{Routes: src.Routes, Costs: src.Costs, Params: params, Settings: s, Log: c.log}
	zm := zone.ResolveTrip(pc.Zones, req.Pickup, req.Dropoff, s.ZoneConflictStrategy, s.ZoneAggregationStrategy)

	serviceEnd := req.Pickup
	if req.Dropoff != nil {
		serviceEnd = *req.Dropoff
	}
	service := shadow.ResolveLeg(ctx, req.Pickup, serviceEnd, nil, requestEstimate(req, s))
	hours := requestedHours(req, service)
	if req.TripType != TripTransfer && hours*60 > service.DurationMinutes {
		// Booked hours beyond the routed time are on duty at the customer's disposal, not driving.
		service.StandbyMinutes = types.Round(hours*60-service.DurationMinutes, 2)
		service.DurationMinutes = types.Round(hours*60, 2)
	}

	in := ShadowInput{
		Base:           baseLocation(req, s),
		Service:        service,
		TripType:       req.TripType,
		ParkingCost:    req.ParkingCost,
		ZoneSurcharges: zm.Surcharges,
		IsRoundTrip:    req.IsRoundTrip,
		WaitingMinutes: waitingMinutes(req, service),
	}
	if vs := req.VehicleSelection; vs != nil {
		in.Approach, in.Return = vs.Approach, vs.Return
	}
	oneWay := shadow.Build(ctx, in)
	trip := shadow.ExtendRoundTrip(ctx, oneWay, in)

	res := Result{
		ID:               uuid.NewString(),
		PricingMode:      ModeClientDirect,
		TripType:         req.TripType,
		Currency:         s.Currency,
		TripAnalysis:     trip,
		ZoneTransparency: &zm,
		CalculatedAt:     c.now().UTC(),
	}

	var search *GridSearch
	if pc.Contact.IsPartner {
		gs := MatchGrid(req, pc.Contact.PartnerContract, pc.Zones)
		search = &gs
		res.GridSearchDetails = search
		res.FallbackReason = gs.FallbackReason
	}

	dynPrice, dynTrail := c.dynamicPrice(req, pc, s, service, hours, zm, oneWay, trip)
	price, trail := dynPrice, dynTrail
	if search != nil && search.Matched != nil {
		res.PricingMode = ModePartnerGrid
		res.MatchedGrid = search.Matched
		price = search.Matched.Price
		trail = NewAuditTrail(newRule(
			fmt.Sprintf("partner grid %s %q at %.2f", search.Matched.Type, search.Matched.Name, price),
			GridMatchPayload{Grid: *search.Matched},
		))
		var rt []AppliedRule
		price, rt = applyRoundTrip(price, req, oneWay, trip)
		trail = trail.With(rt...)
	}

	staffing, trail, price := c.staffing(req, pc, s, trip, res.PricingMode, price, trail)
	if staffing != nil {
		res.Compliance = staffing.result
		res.StaffingAlternatives = staffing.alternatives
		res.StaffingSelection = staffing.selection
		res.StaffingCost = staffing.cost
	}

	res.Price = types.RoundMoney(price)
	res.AppliedRules = trail
	res.InternalCost = types.RoundMoney(trip.TotalCost.Total + res.StaffingCost)
	res.Margin, res.MarginPercent = CalculateMargin(res.Price, res.InternalCost)
	res.ProfitabilityData = profitabilityData(res.MarginPercent, s.GreenMarginThreshold, s.OrangeMarginThreshold)
	res.ProfitabilityIndicator = res.ProfitabilityData.Indicator
	res.CostSources = CostSources{
		RoutingSource:   trip.RoutingSource,
		TollSource:      trip.TotalCost.Tolls.Source,
		FuelPriceSource: params.FuelPriceSource,
	}

	if res.PricingMode == ModePartnerGrid {
		direct := dynPrice
		if staffing != nil {
			direct = types.RoundMoney(direct + staffing.cost)
		}
		res.BidirectionalPricing = bidirectional(res.Price, direct)
	}

	v := ValidateResult(res, s)
	res.Validation = &v

	c.log.Info("price calculated",
		zap.String("result_id", res.ID),
		zap.String("organization_id", pc.OrganizationID),
		zap.String("mode", string(res.PricingMode)),
		zap.String("trip_type", string(res.TripType)),
		zap.Float64("price", res.Price),
		zap.Float64("internal_cost", res.InternalCost),
		zap.Float64("margin_percent", res.MarginPercent),
		zap.String("indicator", string(res.ProfitabilityIndicator)),
		zap.String("routing_source", string(res.CostSources.RoutingSource)),
		zap.String("toll_source", string(res.CostSources.TollSource)),
		zap.String("fuel_price_source", string(res.CostSources.FuelPriceSource)),
		zap.String("validation", string(v.Status)),
	)
	return res, nil
}

// dynamicPrice is the client-direct pipeline. Each stage returns its price and rules; the
// trail is extended in application order.
func (c *Calculator) dynamicPrice(req Request, pc Context, s Settings, service Leg, hours float64, zm zone.MultiplierResult, oneWay, trip TripAnalysis) (float64, AuditTrail) {
	rates := ResolveRates(pc.VehicleCategory, s)
	price, baseRule := CalculateDynamicBase(service.DistanceKm, service.DurationMinutes, rates, s.TargetMarginPercent)
	trail := NewAuditTrail(baseRule)

	var buckets []DispoBucket
	if pc.VehicleCategory != nil {
		buckets = pc.VehicleCategory.DispoBuckets
	}
	price, tripRule := ApplyTripType(TripTypeInput{
		TripType:       req.TripType,
		BasePrice:      price,
		RequestedHours: hours,
		DistanceKm:     service.DistanceKm,
		RatePerHour:    rates.RatePerHour,
		Buckets:        buckets,
	}, s)
	trail = trail.With(tripRule)

	var rules []AppliedRule
	price, rules = applyRoundTrip(price, req, oneWay, trip)
	trail = trail.With(rules...)

	price, rules = ApplyZoneMultiplier(price, zm)
	trail = trail.With(rules...)

	// Rate windows and seasons are wall-clock values of the organization's timezone.
	localPickup := s.LocalTime(req.PickupAt)
	price, rules = ApplyAdvancedRates(price, pc.AdvancedRates, localPickup, service.DurationMinutes)
	trail = trail.With(rules...)

	price, rules = ApplySeasonalMultipliers(price, pc.SeasonalMultipliers, localPickup, req.VehicleCategoryID)
	trail = trail.With(rules...)

	price, rules = ApplyCategoryMultiplier(price, pc.VehicleCategory, rates.CategoryRatesUsed)
	trail = trail.With(rules...)

	if score, source, ok := DifficultyScore(pc); ok {
		price, rules = ApplyDifficultyMultiplier(price, score, source, s.DifficultyMultipliers)
		trail = trail.With(rules...)
	}
	return price, trail
}

// applyRoundTrip doubles transfer prices for round trips and records the round-trip segments.
func applyRoundTrip(price float64, req Request, oneWay, trip TripAnalysis) (float64, []AppliedRule) {
	if !trip.IsRoundTrip {
		return price, nil
	}
	multiplier := 1.0
	if req.TripType == TripTransfer {
		multiplier = 2
	}
	after := types.RoundMoney(price * multiplier)
	p := RoundTripPayload{
		Mode:               string(trip.RoundTripMode),
		WaitingMinutes:     trip.WaitingMinutes,
		SegmentCount:       len(trip.Segments),
		PriceMultiplier:    multiplier,
		PriceBefore:        price,
		PriceAfter:         after,
		AdditionalCost:     types.RoundMoney(trip.TotalCost.Total - oneWay.TotalCost.Total),
		AdditionalDistance: types.Round(trip.TotalDistanceKm-oneWay.TotalDistanceKm, 2),
	}
	desc := fmt.Sprintf("round trip (%s, %d segments)", trip.RoundTripMode, len(trip.Segments))
	return after, []AppliedRule{newRule(desc, p)}
}

type staffingOutcome struct {
	result       *compliance.Result
	alternatives *compliance.GenerationResult
	selection    *compliance.StaffingSelection
	cost         float64
}

// staffing validates heavy vehicles and, on violation, selects a staffing plan. The plan's
// cost is always internal cost; on client-direct prices it is also passed to the customer.
func (c *Calculator) staffing(req Request, pc Context, s Settings, trip TripAnalysis, mode PricingMode, price float64, trail AuditTrail) (*staffingOutcome, AuditTrail, float64) {
	if pc.VehicleCategory == nil || pc.VehicleCategory.RegulatoryCategory != compliance.CategoryHeavy {
		return nil, trail, price
	}
	in := compliance.Input{RegulatoryCategory: compliance.CategoryHeavy}
	for _, sg := range trip.Segments {
		if sg.IsDriving {
			in.Segments = append(in.Segments, compliance.Segment{Name: string(sg.Name), DistanceKm: sg.DistanceKm, DurationMinutes: sg.DrivingMinutes()})
			in.WaitingMinutes += sg.StandbyMinutes
		} else {
			in.WaitingMinutes += sg.DurationMinutes
		}
	}
	cr := compliance.ValidateHeavyVehicleCompliance(in, s.RSERules)
	out := &staffingOutcome{result: &cr}
	if cr.IsCompliant {
		return out, trail, price
	}

	gen := compliance.GenerateAlternatives(cr, s.Staffing)
	sel := compliance.SelectBestStaffingPlan(gen, s.StaffingPolicy)
	out.alternatives, out.selection = &gen, &sel
	out.cost = sel.SelectedCost()

	p := ComplianceStaffingPayload{
		Policy:               sel.Policy,
		AdditionalCost:       out.cost,
		PassedToPrice:        mode == ModeClientDirect && out.cost > 0,
		RequiresManualReview: sel.RequiresManualReview,
		Violations:           cr.Violations,
	}
	desc := "no compliant staffing plan, manual review required"
	if sel.SelectedPlan != nil {
		p.Mode = sel.SelectedPlan.Mode
		desc = fmt.Sprintf("staffing %s selected (%s) +%.2f", p.Mode, sel.Policy, out.cost)
	}
	if p.PassedToPrice {
		price = types.RoundMoney(price + out.cost)
	}
	c.log.Info("heavy vehicle staffing resolved",
		zap.String("category", pc.VehicleCategory.Code),
		zap.Int("violations", len(cr.Violations)),
		zap.String("staffing_mode", string(p.Mode)),
		zap.Bool("manual_review", sel.RequiresManualReview),
	)
	return out, trail.With(newRule(desc, p)), price
}

func bidirectional(partner, direct float64) *BidirectionalPricing {
	b := &BidirectionalPricing{
		PartnerGridPrice:  partner,
		ClientDirectPrice: direct,
		Difference:        types.RoundMoney(partner - direct),
	}
	if direct > 0 {
		b.DifferencePercent = types.Round(b.Difference/direct*100, 2)
	}
	return b
}

func (c *Calculator) costParams(ctx context.Context, pc Context, s Settings, r cost.Resolver) cost.Params {
	p := cost.Params{
		FuelConsumptionL100km: s.FuelConsumptionL100km,
		FuelType:              cost.FuelDiesel,
		TollCostPerKm:         s.TollCostPerKm,
		WearCostPerKm:         s.WearCostPerKm,
		DriverHourlyCost:      s.DriverHourlyCost,
	}
	var vehicleTCO, categoryTCO *cost.TCOOverrides
	if cat := pc.VehicleCategory; cat != nil {
		if cat.FuelType != "" {
			p.FuelType = cat.FuelType
		}
		if cat.FuelConsumptionL100km != nil {
			p.FuelConsumptionL100km = *cat.FuelConsumptionL100km
		}
		categoryTCO = cat.TCO
	}
	if v := pc.Vehicle; v != nil {
		if v.FuelConsumptionL100km != nil {
			p.FuelConsumptionL100km = *v.FuelConsumptionL100km
		}
		vehicleTCO = v.TCO
	}
	p.TCO = cost.ResolveTCO(vehicleTCO, categoryTCO)
	p.FuelPricePerLiter, p.FuelPriceSource = r.FuelPrice(ctx, p.FuelType, s.FuelPricePerLiter)
	return p
}

// requestEstimate turns the request's own distance/duration into a route, filling the missing
// half from the average speed.
func requestEstimate(req Request, s Settings) *Route {
	d, t := req.EstimatedDistanceKm, req.EstimatedDurationMinutes
	switch {
	case d != nil && t != nil:
		return &Route{DistanceKm: *d, DurationMinutes: *t}
	case d != nil:
		return &Route{DistanceKm: *d, DurationMinutes: types.Round(*d/s.AverageSpeedKmh*60, 2)}
	case t != nil:
		return &Route{DistanceKm: types.Round(*t/60*s.AverageSpeedKmh, 2), DurationMinutes: *t}
	}
	return nil
}

func requestedHours(req Request, service Leg) float64 {
	switch {
	case req.DurationHours != nil:
		return *req.DurationHours
	case req.EstimatedDurationMinutes != nil:
		return *req.EstimatedDurationMinutes / 60
	default:
		return service.DurationMinutes / 60
	}
}

func baseLocation(req Request, s Settings) *types.Point {
	if req.VehicleSelection != nil && req.VehicleSelection.Base != nil {
		return req.VehicleSelection.Base
	}
	return s.BaseLocation
}

// waitingMinutes is the idle time between arriving at the destination and the return pickup.
func waitingMinutes(req Request, service Leg) float64 {
	if !req.IsRoundTrip || req.PickupAt == nil || req.ReturnPickupAt == nil {
		return 0
	}
	arrival := req.PickupAt.Add(time.Duration(service.DurationMinutes * float64(time.Minute)))
	w := req.ReturnPickupAt.Sub(arrival).Minutes()
	if w < 0 {
		return 0
	}
	return types.Round(w, 2)
}

// ValidateRequest rejects malformed requests before any calculation.
func (c *Calculator) ValidateRequest(req Request, pc Context) error {
	var fields []FieldError
	if err := c.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		for _, fe := range verrs {
			msg := "failed " + fe.Tag()
			if fe.Param() != "" {
				msg += "=" + fe.Param()
			}
			field := fe.Namespace()
			if i := strings.IndexByte(field, '.'); i >= 0 {
				field = field[i+1:]
			}
			fields = append(fields, FieldError{Field: field, Message: msg})
		}
	}
	if (req.TripType == TripTransfer || req.TripType == TripExcursion) && req.Dropoff == nil {
		fields = append(fields, FieldError{Field: "dropoff", Message: "required for " + string(req.TripType)})
	}
	if (req.TripType == TripExcursion || req.TripType == TripDispo) && req.DurationHours == nil && req.EstimatedDurationMinutes == nil {
		fields = append(fields, FieldError{Field: "durationHours", Message: "a duration or duration estimate is required for " + string(req.TripType)})
	}
	if req.IsRoundTrip && req.PickupAt != nil && req.ReturnPickupAt != nil && !req.ReturnPickupAt.After(*req.PickupAt) {
		fields = append(fields, FieldError{Field: "returnPickupAt", Message: "must be after pickupAt"})
	}
	if pc.VehicleCategory != nil && pc.VehicleCategory.ID != "" && pc.VehicleCategory.ID != req.VehicleCategoryID {
		fields = append(fields, FieldError{Field: "vehicleCategoryId", Message: "does not match the context vehicle category"})
	}
	if len(fields) > 0 {
		return &RequestError{Fields: fields}
	}
	return nil
}
