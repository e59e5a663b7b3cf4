// README: Shadow calculation: approach/service/return segments and the round-trip extension.
package pricing

import (
	"context"

	"go.uber.org/zap"

	"vtc/internal/geo"
	"vtc/internal/modules/cost"
	"vtc/internal/types"
)

type SegmentName string

const (
	SegmentApproach      SegmentName = "APPROACH"
	SegmentService       SegmentName = "SERVICE"
	SegmentReturn        SegmentName = "RETURN"
	SegmentReposition    SegmentName = "REPOSITION"
	SegmentReturnService SegmentName = "RETURN_SERVICE"
	SegmentFinalReturn   SegmentName = "FINAL_RETURN"
	SegmentWaitOnSite    SegmentName = "WAIT_ON_SITE"
)

type RoundTripMode string

const (
	RoundTripWaitOnSite       RoundTripMode = "WAIT_ON_SITE"
	RoundTripReturnBetweenLeg RoundTripMode = "RETURN_BETWEEN_LEGS"
)

// Leg is a resolved from→to movement.
type Leg struct {
	From            types.Point   `json:"from"`
	To              types.Point   `json:"to"`
	DistanceKm      float64       `json:"distanceKm"`
	DurationMinutes float64       `json:"durationMinutes"`
	Source          RoutingSource `json:"source"`
	Polyline        string        `json:"polyline,omitempty"`
	Estimated       bool          `json:"estimated"`
	// StandbyMinutes is the on-duty share of DurationMinutes spent not driving.
	StandbyMinutes  float64       `json:"standbyMinutes,omitempty"`
}

type SegmentAnalysis struct {
	Code            string         `json:"code"`
	Name            SegmentName    `json:"name"`
	From            types.Point    `json:"from"`
	To              types.Point    `json:"to"`
	DistanceKm      float64        `json:"distanceKm"`
	DurationMinutes float64        `json:"durationMinutes"`
	StandbyMinutes  float64        `json:"standbyMinutes,omitempty"`
	IsDriving       bool           `json:"isDriving"`
	IsBillable      bool           `json:"isBillable"`
	IsEstimated     bool           `json:"isEstimated"`
	RoutingSource   RoutingSource  `json:"routingSource"`
	Polyline        string         `json:"polyline,omitempty"`
	Cost            cost.Breakdown `json:"cost"`
}

// DrivingMinutes is the segment duration without its standby share.
func (sg SegmentAnalysis) DrivingMinutes() float64 {
	if !sg.IsDriving {
		return 0
	}
	return sg.DurationMinutes - sg.StandbyMinutes
}

type TripAnalysis struct {
	Segments             []SegmentAnalysis `json:"segments"`
	IsRoundTrip          bool              `json:"isRoundTrip"`
	RoundTripMode        RoundTripMode     `json:"roundTripMode,omitempty"`
	WaitingMinutes       float64           `json:"waitingMinutes"`
	TotalDistanceKm      float64           `json:"totalDistanceKm"`
	TotalDurationMinutes float64           `json:"totalDurationMinutes"`
	DrivingMinutes       float64           `json:"drivingMinutes"`
	DeadheadDistanceKm   float64           `json:"deadheadDistanceKm"`
	TotalCost            cost.Breakdown    `json:"totalCost"`
	RoutingSource        RoutingSource     `json:"routingSource"`
}

// Segment returns the first segment named n.
func (t TripAnalysis) Segment(n SegmentName) (SegmentAnalysis, bool) {
	for _, s := range t.Segments {
		if s.Name == n {
			return s, true
		}
	}
	return SegmentAnalysis{}, false
}

// ShadowCalculator resolves and costs operational legs.
type ShadowCalculator struct {
	Routes   RouteSource
	Costs    cost.Resolver
	Params   cost.Params
	Settings Settings
	Log      *zap.Logger
}

type ShadowInput struct {
	Base           *types.Point
	Service        Leg
	Approach       *Route
	Return         *Route
	TripType       TripType
	ParkingCost    float64
	ZoneSurcharges float64
	IsRoundTrip    bool
	WaitingMinutes float64
}

// ResolveLeg picks the most authoritative source available: the dispatcher's vehicle
// selection, live routing, the request's own estimate, then a haversine estimate.
func (s ShadowCalculator) ResolveLeg(ctx context.Context, from, to types.Point, selected, estimate *Route) Leg {
	leg := Leg{From: from, To: to}
	if selected != nil {
		leg.DistanceKm, leg.DurationMinutes, leg.Polyline = selected.DistanceKm, selected.DurationMinutes, selected.Polyline
		leg.Source = RoutingVehicleSelection
		return leg
	}
	if from == to && estimate == nil {
		leg.Source = RoutingHaversineEstimate
		return leg
	}
	if s.Routes != nil && from != to {
		r, err := s.Routes.Route(ctx, from, to)
		if err == nil {
			leg.DistanceKm, leg.DurationMinutes, leg.Polyline = r.DistanceKm, r.DurationMinutes, r.Polyline
			leg.Source = RoutingGoogleAPI
			return leg
		}
		s.logger().Warn("live routing failed, using estimate", zap.Error(err))
	}
	if estimate != nil {
		leg.DistanceKm, leg.DurationMinutes = estimate.DistanceKm, estimate.DurationMinutes
		leg.Source = RoutingRequestEstimate
		leg.Estimated = true
		return leg
	}
	return s.haversineLeg(from, to)
}

func (s ShadowCalculator) haversineLeg(from, to types.Point) Leg {
	km := types.Round(geo.HaversineKm(from, to)*s.Settings.RoadFactor, 2)
	return Leg{
		From:            from,
		To:              to,
		DistanceKm:      km,
		DurationMinutes: types.Round(km/s.Settings.AverageSpeedKmh*60, 2),
		Source:          RoutingHaversineEstimate,
		Estimated:       true,
	}
}

// EstimateExcursionReturn is the dropoff→base leg of an excursion: routed live when possible,
// otherwise assumed symmetric to the approach.
func (s ShadowCalculator) EstimateExcursionReturn(ctx context.Context, dropoff, base types.Point, approach Leg) Leg {
	if s.Routes != nil && dropoff != base {
		r, err := s.Routes.Route(ctx, dropoff, base)
		if err == nil {
			return Leg{From: dropoff, To: base, DistanceKm: r.DistanceKm, DurationMinutes: r.DurationMinutes, Polyline: r.Polyline, Source: RoutingGoogleAPI}
		}
		s.logger().Warn("excursion return routing failed, using symmetric estimate", zap.Error(err))
	}
	return Leg{
		From:            dropoff,
		To:              base,
		DistanceKm:      approach.DistanceKm,
		DurationMinutes: approach.DurationMinutes,
		Source:          approach.Source,
		Estimated:       true,
	}
}

// Build produces the three-segment model. Without a base location the deadhead legs are empty.
func (s ShadowCalculator) Build(ctx context.Context, in ShadowInput) TripAnalysis {
	pickup, dropoff := in.Service.From, in.Service.To
	base := pickup
	if in.Base != nil {
		base = *in.Base
	}
	approach := s.ResolveLeg(ctx, base, pickup, in.Approach, nil)
	var ret Leg
	switch {
	case in.Return != nil:
		ret = s.ResolveLeg(ctx, dropoff, base, in.Return, nil)
	case in.TripType == TripExcursion && in.Base != nil:
		ret = s.EstimateExcursionReturn(ctx, dropoff, base, approach)
	default:
		ret = s.ResolveLeg(ctx, dropoff, base, nil, nil)
	}

	segs := []SegmentAnalysis{
		s.costLeg(ctx, "A", SegmentApproach, approach, false, 0, 0),
		s.costLeg(ctx, "B", SegmentService, in.Service, true, in.ParkingCost, in.ZoneSurcharges),
		s.costLeg(ctx, "C", SegmentReturn, ret, false, 0, 0),
	}
	return summarize(segs, false, "", 0, in.Service.Source)
}

// ExtendRoundTrip turns a one-way analysis into the round-trip model. A one-way input is
// returned unchanged. WAIT_ON_SITE replaces the return and repositioning legs with a
// non-driving wait at the destination; RETURN_BETWEEN_LEGS keeps all six driving legs.
func (s ShadowCalculator) ExtendRoundTrip(ctx context.Context, ta TripAnalysis, in ShadowInput) TripAnalysis {
	if !in.IsRoundTrip || len(ta.Segments) != 3 {
		return ta
	}
	approach, service, ret := ta.Segments[0], ta.Segments[1], ta.Segments[2]
	pickup, dropoff := service.From, service.To
	base := approach.From

	returnService := s.mirrorLeg(ctx, dropoff, pickup, service)
	finalReturn := s.mirrorLeg(ctx, pickup, base, approach)

	waiting := in.WaitingMinutes
	if waiting < 0 {
		waiting = 0
	}
	mode := RoundTripWaitOnSite
	if waiting > s.Settings.MaxWaitOnSiteMinutes && base != dropoff {
		mode = RoundTripReturnBetweenLeg
	}

	segs := []SegmentAnalysis{approach, service}
	if mode == RoundTripWaitOnSite {
		segs = append(segs, s.waitSegment(dropoff, waiting))
	} else {
		reposition := s.mirrorLeg(ctx, base, dropoff, ret)
		segs = append(segs, ret, s.costLeg(ctx, "D", SegmentReposition, reposition, false, 0, 0))
	}
	segs = append(segs,
		s.costLeg(ctx, "E", SegmentReturnService, returnService, true, 0, 0),
		s.costLeg(ctx, "F", SegmentFinalReturn, finalReturn, false, 0, 0),
	)
	return summarize(segs, true, mode, waiting, ta.RoutingSource)
}

// mirrorLeg routes from→to live when possible, otherwise reuses the opposite-direction segment.
func (s ShadowCalculator) mirrorLeg(ctx context.Context, from, to types.Point, twin SegmentAnalysis) Leg {
	leg := s.ResolveLeg(ctx, from, to, nil, &Route{DistanceKm: twin.DistanceKm, DurationMinutes: twin.DurationMinutes})
	if leg.Source == RoutingRequestEstimate {
		leg.Source = RoutingMirroredLeg
		leg.StandbyMinutes = twin.StandbyMinutes
	}
	return leg
}

func (s ShadowCalculator) waitSegment(at types.Point, minutes float64) SegmentAnalysis {
	return SegmentAnalysis{
		Code:            "W",
		Name:            SegmentWaitOnSite,
		From:            at,
		To:              at,
		DurationMinutes: minutes,
		RoutingSource:   RoutingHaversineEstimate,
		// Waiting is paid driver time only.
		Cost: cost.Calculate(cost.Input{DurationMinutes: minutes}, cost.Params{DriverHourlyCost: s.Params.DriverHourlyCost}),
	}
}

func (s ShadowCalculator) costLeg(ctx context.Context, code string, name SegmentName, leg Leg, billable bool, parking, surcharges float64) SegmentAnalysis {
	in := cost.Input{
		DistanceKm:      leg.DistanceKm,
		DurationMinutes: leg.DurationMinutes,
		ParkingCost:     parking,
		ZoneSurcharges:  surcharges,
	}
	if leg.DistanceKm > 0 && s.Costs != nil {
		tolls := s.Costs.TollCost(ctx, leg.From, leg.To, leg.DistanceKm, s.Params.TollCostPerKm)
		in.Tolls = &tolls
	}
	return SegmentAnalysis{
		Code:            code,
		Name:            name,
		From:            leg.From,
		To:              leg.To,
		DistanceKm:      leg.DistanceKm,
		DurationMinutes: leg.DurationMinutes,
		StandbyMinutes:  leg.StandbyMinutes,
		IsDriving:       true,
		IsBillable:      billable,
		IsEstimated:     leg.Estimated,
		RoutingSource:   leg.Source,
		Polyline:        leg.Polyline,
		Cost:            cost.Calculate(in, s.Params),
	}
}

func summarize(segs []SegmentAnalysis, roundTrip bool, mode RoundTripMode, waiting float64, source RoutingSource) TripAnalysis {
	ta := TripAnalysis{
		Segments:       segs,
		IsRoundTrip:    roundTrip,
		RoundTripMode:  mode,
		WaitingMinutes: waiting,
		RoutingSource:  source,
	}
	costs := make([]cost.Breakdown, 0, len(segs))
	for _, sg := range segs {
		ta.TotalDistanceKm += sg.DistanceKm
		ta.TotalDurationMinutes += sg.DurationMinutes
		if sg.IsDriving {
			ta.DrivingMinutes += sg.DrivingMinutes()
		}
		if sg.IsDriving && !sg.IsBillable {
			ta.DeadheadDistanceKm += sg.DistanceKm
		}
		costs = append(costs, sg.Cost)
	}
	ta.TotalDistanceKm = types.Round(ta.TotalDistanceKm, 2)
	ta.TotalDurationMinutes = types.Round(ta.TotalDurationMinutes, 2)
	ta.DrivingMinutes = types.Round(ta.DrivingMinutes, 2)
	ta.DeadheadDistanceKm = types.Round(ta.DeadheadDistanceKm, 2)
	ta.TotalCost = cost.Combine(costs...)
	return ta
}

func (s ShadowCalculator) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
