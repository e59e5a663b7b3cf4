package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"vtc/internal/modules/compliance"
	"vtc/internal/modules/cost"
	"vtc/internal/modules/zone"
	"vtc/internal/types"
)

var northParis = types.Point{Lat: 48.8666, Lng: 2.3522}

func fptr(v float64) *float64 { return &v }

// transferRequest is a 50km / 60min transfer: 50 * 2.00 = 100 beats 1h * 45, so the
// dynamic price is 100 * 1.20 = 120.
func transferRequest() Request {
	d := northParis
	return Request{
		ContactID:                "contact-1",
		VehicleCategoryID:        "sedan",
		TripType:                 TripTransfer,
		Pickup:                   parisCenter,
		Dropoff:                  &d,
		EstimatedDistanceKm:      fptr(50),
		EstimatedDurationMinutes: fptr(60),
	}
}

func directContext() Context {
	return Context{
		OrganizationID:  "org-1",
		Contact:         Contact{ID: "contact-1"},
		VehicleCategory: &VehicleCategory{ID: "sedan", Code: "SEDAN", RegulatoryCategory: compliance.CategoryLight},
	}
}

func ruleTypes(r Result) []RuleType {
	var out []RuleType
	for _, rule := range r.AppliedRules.Rules() {
		out = append(out, rule.Type)
	}
	return out
}

func equalTypes(a, b []RuleType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCalculatePrice_ClientDirectTransfer(t *testing.T) {
	res, err := CalculatePrice(transferRequest(), directContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Price != 120 || res.PricingMode != ModeClientDirect || res.Currency != "EUR" {
		t.Errorf("got %v %s %s", res.Price, res.PricingMode, res.Currency)
	}
	if want := []RuleType{RuleDynamicBase, RuleTripType}; !equalTypes(ruleTypes(res), want) {
		t.Errorf("rules = %v, want %v", ruleTypes(res), want)
	}

	svc, ok := res.TripAnalysis.Segment(SegmentService)
	if !ok {
		t.Fatal("service segment missing")
	}
	// 50km: fuel 7.00 + tolls 6.00 + wear 4.00 + 60min driver 25.00
	if svc.Cost.Total != 42 || svc.RoutingSource != RoutingRequestEstimate {
		t.Errorf("service cost %v from %s", svc.Cost.Total, svc.RoutingSource)
	}
	if res.InternalCost != res.TripAnalysis.TotalCost.Total {
		t.Errorf("internal cost %v != trip cost %v", res.InternalCost, res.TripAnalysis.TotalCost.Total)
	}
	if res.Margin != types.RoundMoney(res.Price-res.InternalCost) {
		t.Errorf("margin %v inconsistent with price %v and cost %v", res.Margin, res.Price, res.InternalCost)
	}
	if res.CostSources.RoutingSource != RoutingRequestEstimate || res.CostSources.FuelPriceSource != cost.PriceDefault || res.CostSources.TollSource != cost.TollEstimate {
		t.Errorf("unexpected sources %+v", res.CostSources)
	}
	if res.Validation == nil {
		t.Fatal("validation missing")
	}
	for _, c := range res.Validation.Checks {
		if c.Name == "COST_SUM" && c.Status != CheckPass {
			t.Errorf("COST_SUM: %s %s", c.Status, c.Message)
		}
	}
	if res.ID == "" || res.CalculatedAt.IsZero() {
		t.Error("result must carry an id and a timestamp")
	}
}

func TestCalculate_PartnerGrid(t *testing.T) {
	pc := directContext()
	pc.Zones = []zone.Zone{radiusZone("PARIS", parisCenter, 5), radiusZone("NORTH", northParis, 0.5)}
	pc.Contact = Contact{ID: "contact-1", IsPartner: true, PartnerContract: &PartnerContract{
		ID: "k1",
		ZoneRoutes: []ZoneRouteAssignment{{Route: ZoneRoute{
			ID: "r1", Name: "paris-north", FromZoneID: "PARIS", ToZoneID: "NORTH",
			Direction: DirectionBidirectional, FixedPrice: 150, IsActive: true,
		}}},
	}}

	res, err := NewCalculator(nil).Calculate(context.Background(), transferRequest(), pc, EstimateSources())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PricingMode != ModePartnerGrid || res.Price != 150 || res.MatchedGrid == nil || res.MatchedGrid.ID != "r1" {
		t.Fatalf("expected grid price 150, got %s %v", res.PricingMode, res.Price)
	}
	if want := []RuleType{RuleGridMatch}; !equalTypes(ruleTypes(res), want) {
		t.Errorf("rules = %v, want %v", ruleTypes(res), want)
	}
	// grid 150 against the client-direct 120 (zone multipliers are 1.0)
	b := res.BidirectionalPricing
	if b == nil || b.ClientDirectPrice != 120 || b.Difference != 30 || b.DifferencePercent != 25 {
		t.Errorf("unexpected bidirectional pricing %+v", b)
	}
}

func TestCalculate_PartnerFallsBackToDynamic(t *testing.T) {
	pc := directContext()
	pc.Contact = Contact{ID: "contact-1", IsPartner: true, PartnerContract: &PartnerContract{ID: "k1"}}

	res, err := CalculatePrice(transferRequest(), pc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PricingMode != ModeClientDirect || res.Price != 120 {
		t.Errorf("expected dynamic fallback at 120, got %s %v", res.PricingMode, res.Price)
	}
	if res.FallbackReason != FallbackZoneNotFound || res.GridSearchDetails == nil {
		t.Errorf("expected ZONE_NOT_FOUND with search details, got %q", res.FallbackReason)
	}
}

func TestCalculate_RoundTripWaitOnSite(t *testing.T) {
	req := transferRequest()
	pickupAt := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	returnAt := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	req.IsRoundTrip, req.PickupAt, req.ReturnPickupAt = true, &pickupAt, &returnAt

	res, err := CalculatePrice(req, directContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// arrival 11:00, return pickup 12:00
	ta := res.TripAnalysis
	if ta.RoundTripMode != RoundTripWaitOnSite || ta.WaitingMinutes != 60 || len(ta.Segments) != 5 {
		t.Errorf("got %s, %v min wait, %d segments", ta.RoundTripMode, ta.WaitingMinutes, len(ta.Segments))
	}
	if res.Price != 240 {
		t.Errorf("round-trip transfer price %v, want 240", res.Price)
	}
	rule, ok := res.AppliedRules.Find(RuleRoundTrip)
	if !ok {
		t.Fatal("round trip rule missing")
	}
	if p := rule.Payload.(RoundTripPayload); p.PriceMultiplier != 2 || p.SegmentCount != 5 || p.AdditionalCost <= 0 {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestCalculate_ExcursionMinimum(t *testing.T) {
	req := transferRequest()
	req.TripType = TripExcursion
	req.DurationHours = fptr(2)

	res, err := CalculatePrice(req, directContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// max(2h, 4h) * 45 * 1.10
	if res.Price != 198 {
		t.Errorf("excursion price %v, want 198", res.Price)
	}
	svc, _ := res.TripAnalysis.Segment(SegmentService)
	if svc.DurationMinutes != 120 {
		t.Errorf("service duration %v, want the requested 120 minutes", svc.DurationMinutes)
	}
}

func TestCalculate_ExcursionHoursCountAsAmplitude(t *testing.T) {
	req := transferRequest()
	req.VehicleCategoryID = "coach"
	req.TripType = TripExcursion
	req.EstimatedDistanceKm, req.EstimatedDurationMinutes = fptr(100), fptr(120)
	req.DurationHours = fptr(11)
	pc := directContext()
	pc.VehicleCategory = &VehicleCategory{ID: "coach", Code: "COACH", RegulatoryCategory: compliance.CategoryHeavy}

	res, err := CalculatePrice(req, pc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, _ := res.TripAnalysis.Segment(SegmentService)
	if svc.DurationMinutes != 660 || svc.StandbyMinutes != 540 || svc.DrivingMinutes() != 120 {
		t.Errorf("service %v min with %v standby, driving %v", svc.DurationMinutes, svc.StandbyMinutes, svc.DrivingMinutes())
	}
	// 11h on duty but about 2h at the wheel: under both the 9h driving and 13h amplitude limits.
	if res.Compliance == nil || !res.Compliance.IsCompliant {
		t.Fatalf("an 11h excursion with 2h of driving must be compliant, got %+v", res.Compliance)
	}
	adj := res.Compliance.AdjustedDurations
	if adj.AdjustedDrivingMinutes > 130 || adj.AdjustedAmplitudeMinutes < 660 {
		t.Errorf("driving %v must exclude and amplitude %v must include the booked hours",
			adj.AdjustedDrivingMinutes, adj.AdjustedAmplitudeMinutes)
	}
	if res.TripAnalysis.DrivingMinutes > 130 {
		t.Errorf("trip driving minutes %v must exclude standby", res.TripAnalysis.DrivingMinutes)
	}
	// 100km over 120 driving minutes, not over the 660 booked minutes.
	for _, c := range res.Validation.Checks {
		if c.Name == "AVERAGE_SPEED" && c.Status != CheckPass {
			t.Errorf("AVERAGE_SPEED: %s %s", c.Status, c.Message)
		}
	}
}

func TestCalculate_HeavyVehicleStaffing(t *testing.T) {
	req := transferRequest()
	req.VehicleCategoryID = "coach"
	req.EstimatedDistanceKm, req.EstimatedDurationMinutes = fptr(700), fptr(570)
	pc := directContext()
	pc.VehicleCategory = &VehicleCategory{ID: "coach", Code: "COACH", RegulatoryCategory: compliance.CategoryHeavy}

	res, err := CalculatePrice(req, pc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Compliance == nil || res.Compliance.IsCompliant {
		t.Fatalf("9.5h of driving must violate the 9h limit, got %+v", res.Compliance)
	}
	sel := res.StaffingSelection
	if sel == nil || sel.SelectedPlan == nil || sel.SelectedPlan.Mode != compliance.StaffingRelayDriver {
		t.Fatalf("expected the relay driver plan to be cheapest, got %+v", sel)
	}
	if res.StaffingCost <= 0 || res.StaffingCost != sel.SelectedCost() {
		t.Errorf("staffing cost %v, selection %v", res.StaffingCost, sel.SelectedCost())
	}
	// 700km * 2 * 1.20 plus the relay driver
	if res.Price != types.RoundMoney(1680+res.StaffingCost) {
		t.Errorf("price %v, want 1680 + %v", res.Price, res.StaffingCost)
	}
	if res.InternalCost != types.RoundMoney(res.TripAnalysis.TotalCost.Total+res.StaffingCost) {
		t.Errorf("internal cost %v must include staffing %v", res.InternalCost, res.StaffingCost)
	}
	rule, ok := res.AppliedRules.Find(RuleComplianceStaffing)
	if !ok {
		t.Fatal("compliance staffing rule missing")
	}
	if p := rule.Payload.(ComplianceStaffingPayload); !p.PassedToPrice || p.Mode != compliance.StaffingRelayDriver {
		t.Errorf("unexpected payload %+v", p)
	}
}

type fixedFuel float64

func (f fixedFuel) CurrentPrice(context.Context, cost.FuelType) (float64, error) { return float64(f), nil }

func TestCalculate_LiveSources(t *testing.T) {
	calc := NewCalculator(nil)

	live := DataSources{
		Routes: &fakeRoutes{route: Route{DistanceKm: 40, DurationMinutes: 50}},
		Costs:  cost.NewLiveResolver(fixedFuel(2.0), nil, nil, nil),
	}
	res, err := calc.Calculate(context.Background(), transferRequest(), directContext(), live)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 40km * 2 * 1.20
	if res.Price != 96 || res.CostSources.RoutingSource != RoutingGoogleAPI || res.CostSources.FuelPriceSource != cost.PriceRealtime {
		t.Errorf("got %v via %+v", res.Price, res.CostSources)
	}
	svc, _ := res.TripAnalysis.Segment(SegmentService)
	// 40km / 100 * 8L * 2.00
	if svc.Cost.Fuel.Amount != 6.4 {
		t.Errorf("fuel %v, want 6.4", svc.Cost.Fuel.Amount)
	}

	broken := DataSources{Routes: &fakeRoutes{err: errors.New("timeout")}}
	res, err = calc.Calculate(context.Background(), transferRequest(), directContext(), broken)
	if err != nil {
		t.Fatalf("routing failure must degrade, got %v", err)
	}
	if res.Price != 120 || res.CostSources.RoutingSource != RoutingRequestEstimate {
		t.Errorf("expected estimate fallback, got %v via %s", res.Price, res.CostSources.RoutingSource)
	}
}

func TestCalculate_RejectsInvalidRequests(t *testing.T) {
	pickupAt := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	before := pickupAt.Add(-time.Hour)
	tests := []struct {
		name  string
		edit  func(*Request)
		field string
	}{
		{"missing contact", func(r *Request) { r.ContactID = "" }, "contactId"},
		{"unknown trip type", func(r *Request) { r.TripType = "shuttle" }, "tripType"},
		{"transfer without dropoff", func(r *Request) { r.Dropoff = nil }, "dropoff"},
		{"negative distance", func(r *Request) { r.EstimatedDistanceKm = fptr(-1) }, "estimatedDistanceKm"},
		{"dispo without duration", func(r *Request) {
			r.TripType = TripDispo
			r.EstimatedDurationMinutes = nil
		}, "durationHours"},
		{"return before pickup", func(r *Request) {
			r.IsRoundTrip, r.PickupAt, r.ReturnPickupAt = true, &pickupAt, &before
		}, "returnPickupAt"},
		{"category mismatch", func(r *Request) { r.VehicleCategoryID = "van" }, "vehicleCategoryId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := transferRequest()
			tt.edit(&req)
			_, err := CalculatePrice(req, directContext())
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			var re *RequestError
			if !errors.As(err, &re) {
				t.Fatalf("expected *RequestError, got %T", err)
			}
			found := false
			for _, f := range re.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a %s field error, got %+v", tt.field, re.Fields)
			}
		})
	}
}

func TestCalculatePrice_FuelPriceByFuelType(t *testing.T) {
	// 50km at 8 L/100km = 4 litres (kWh for electric)
	cases := []struct {
		name      string
		fuel      cost.FuelType
		orgPrice  *float64
		wantPrice float64
		wantFuel  float64
	}{
		{"diesel", cost.FuelDiesel, nil, 1.75, 7.00},
		{"gasoline", cost.FuelGasoline, nil, 1.85, 7.40},
		{"lpg", cost.FuelLPG, nil, 1.00, 4.00},
		{"electric", cost.FuelElectric, nil, 0.25, 1.00},
		{"unset falls back to diesel", "", nil, 1.75, 7.00},
		{"organization price wins", cost.FuelLPG, fptr(1.20), 1.20, 4.80},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pc := directContext()
			pc.VehicleCategory.FuelType = c.fuel
			pc.Settings.FuelPricePerLiter = c.orgPrice
			res, err := CalculatePrice(transferRequest(), pc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			svc, ok := res.TripAnalysis.Segment(SegmentService)
			if !ok {
				t.Fatal("service segment missing")
			}
			if svc.Cost.Fuel.PricePerLiter != c.wantPrice || svc.Cost.Fuel.Amount != c.wantFuel {
				t.Errorf("fuel %s: price %v amount %v, want %v / %v",
					svc.Cost.Fuel.FuelType, svc.Cost.Fuel.PricePerLiter, svc.Cost.Fuel.Amount, c.wantPrice, c.wantFuel)
			}
			if res.CostSources.FuelPriceSource != cost.PriceDefault {
				t.Errorf("expected DEFAULT source, got %s", res.CostSources.FuelPriceSource)
			}
		})
	}
}

func TestCalculatePrice_WindowsUseOrganizationTimezone(t *testing.T) {
	night := AdvancedRate{ID: "n1", Name: "night", Type: RateNight, StartTime: "22:00", EndTime: "06:00",
		AdjustmentType: AdjustPercentage, Value: 20, IsActive: true}
	newYear := SeasonalMultiplier{ID: "s1", Name: "new year", Multiplier: 1.5, StartDate: "2027-01-01", EndDate: "2027-01-01", IsActive: true}
	utc := "UTC"
	tests := []struct {
		name     string
		pickup   time.Time
		timezone *string
		want     float64
	}{
		// 20:30Z is 22:30 in Paris (CEST): the 60 minute trip is fully inside the night window.
		{"night window in Paris", time.Date(2026, 7, 10, 20, 30, 0, 0, time.UTC), nil, 144},
		{"night window in UTC", time.Date(2026, 7, 10, 20, 30, 0, 0, time.UTC), &utc, 120},
		// 23:30Z on Dec 31 is already Jan 1 in Paris (CET).
		{"seasonal date in Paris", time.Date(2026, 12, 31, 23, 30, 0, 0, time.UTC), nil, 216},
		{"seasonal date in UTC", time.Date(2026, 12, 31, 23, 30, 0, 0, time.UTC), &utc, 144},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := directContext()
			pc.Settings.Timezone = tt.timezone
			pc.AdvancedRates = []AdvancedRate{night}
			pc.SeasonalMultipliers = []SeasonalMultiplier{newYear}
			req := transferRequest()
			req.PickupAt = &tt.pickup
			res, err := CalculatePrice(req, pc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Price != tt.want {
				t.Errorf("price = %v, want %v (rules %v)", res.Price, tt.want, ruleTypes(res))
			}
		})
	}
}
