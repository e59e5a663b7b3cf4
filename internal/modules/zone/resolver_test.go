package zone

import (
	"testing"

	"vtc/internal/types"
)

var (
	paris      = types.Point{Lat: 48.8566, Lng: 2.3522}
	cdg        = types.Point{Lat: 49.0097, Lng: 2.5479}
	versailles = types.Point{Lat: 48.8049, Lng: 2.1204}
)

func pt(lat, lng float64) *types.Point { return &types.Point{Lat: lat, Lng: lng} }

func testZones() []Zone {
	return []Zone{
		{
			ID: "z-paris", Code: "PARIS", Type: TypePolygon, IsActive: true,
			PriceMultiplier: 1.0, Priority: 1,
			Coordinates: []types.Point{
				{Lat: 48.80, Lng: 2.25}, {Lat: 48.80, Lng: 2.42},
				{Lat: 48.91, Lng: 2.42}, {Lat: 48.91, Lng: 2.25},
			},
		},
		{
			ID: "z-centre", Code: "CENTRE", Type: TypeRadius, IsActive: true,
			Center: pt(48.8566, 2.3522), RadiusKm: 3, PriceMultiplier: 1.2, Priority: 5,
		},
		{
			ID: "z-cdg", Code: "CDG", Type: TypePoint, IsActive: true,
			Center: pt(49.0097, 2.5479), PriceMultiplier: 1.5, Priority: 3,
			FixedParkingSurcharge: 8, FixedAccessFee: 2,
		},
		{
			ID: "z-a1", Code: "A1", Type: TypeCorridor, IsActive: true,
			Coordinates:     []types.Point{{Lat: 48.90, Lng: 2.36}, {Lat: 49.0, Lng: 2.50}},
			CorridorWidthKm: 2, PriceMultiplier: 1.1, Priority: 2,
		},
		{
			ID: "z-off", Code: "OFF", Type: TypeRadius, IsActive: false,
			Center: pt(48.8566, 2.3522), RadiusKm: 50, PriceMultiplier: 3, Priority: 99,
		},
	}
}

func TestContains(t *testing.T) {
	zones := testZones()
	tests := []struct {
		zone Zone
		p    types.Point
		want bool
	}{
		{zones[0], paris, true},
		{zones[0], cdg, false},
		{zones[1], paris, true},
		{zones[1], versailles, false},
		{zones[2], types.Point{Lat: 49.0100, Lng: 2.5480}, true},
		{zones[2], paris, false},
		{zones[3], types.Point{Lat: 48.95, Lng: 2.43}, true},
		{zones[3], versailles, false},
		{zones[4], paris, false},
	}
	for _, tt := range tests {
		if got := Contains(tt.zone, tt.p); got != tt.want {
			t.Errorf("Contains(%s, %+v) = %v, want %v", tt.zone.Code, tt.p, got, tt.want)
		}
	}
}

func TestResolve_ConflictStrategies(t *testing.T) {
	zones := testZones()
	// Paris centre is inside PARIS (prio 1, x1.0) and CENTRE (prio 5, x1.2).
	tests := []struct {
		strategy ConflictStrategy
		want     string
	}{
		{ConflictPriority, "CENTRE"},
		{ConflictMostExpensive, "CENTRE"},
		{ConflictCombined, "CENTRE"},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			res := Resolve(zones, paris, tt.strategy)
			if len(res.Candidates) != 2 {
				t.Fatalf("expected 2 candidates, got %d", len(res.Candidates))
			}
			if res.Selected == nil || res.Selected.Code != tt.want {
				t.Fatalf("selected %+v, want %s", res.Selected, tt.want)
			}
			if res.Strategy != tt.strategy {
				t.Errorf("strategy not retained")
			}
		})
	}
}

func TestResolve_PriorityVersusMostExpensive(t *testing.T) {
	zones := []Zone{
		{ID: "a", Code: "A", Type: TypeRadius, IsActive: true, Center: pt(48.8566, 2.3522), RadiusKm: 5, PriceMultiplier: 1.3, Priority: 1},
		{ID: "b", Code: "B", Type: TypeRadius, IsActive: true, Center: pt(48.87, 2.36), RadiusKm: 5, PriceMultiplier: 1.1, Priority: 9},
		{ID: "c", Code: "C", Type: TypeRadius, IsActive: true, Center: pt(48.86, 2.36), RadiusKm: 5, PriceMultiplier: 1.2, Priority: 9},
	}
	if got := Resolve(zones, paris, ConflictPriority).Selected.Code; got != "B" {
		t.Errorf("PRIORITY picked %s, want B (first of equal priority)", got)
	}
	if got := Resolve(zones, paris, ConflictMostExpensive).Selected.Code; got != "A" {
		t.Errorf("MOST_EXPENSIVE picked %s, want A", got)
	}
	if got := Resolve(zones, paris, ConflictClosest).Selected.Code; got != "A" {
		t.Errorf("CLOSEST picked %s, want A", got)
	}
	if got := Resolve(zones, paris, ConflictCombined).Selected.Code; got != "C" {
		t.Errorf("COMBINED picked %s, want C (priority tie broken by multiplier)", got)
	}
}

func TestResolve_NoZone(t *testing.T) {
	res := Resolve(testZones(), types.Point{Lat: 43.3, Lng: 5.4}, ConflictPriority)
	if res.Selected != nil || len(res.Candidates) != 0 {
		t.Errorf("expected no zone, got %+v", res)
	}
}

func TestAggregateMultipliers(t *testing.T) {
	pairs := [][2]float64{{1.0, 1.5}, {1.2, 1.1}, {1.333, 1.0}, {1, 1}}
	for _, p := range pairs {
		a, b := p[0], p[1]
		avgAB, _ := AggregateMultipliers(a, b, AggregateAverage)
		avgBA, _ := AggregateMultipliers(b, a, AggregateAverage)
		if avgAB != avgBA {
			t.Errorf("AVERAGE not commutative for %v,%v: %v vs %v", a, b, avgAB, avgBA)
		}
		maxAB, _ := AggregateMultipliers(a, b, AggregateMax)
		if maxAB < a || maxAB < b {
			t.Errorf("MAX(%v,%v) = %v below an input", a, b, maxAB)
		}
		if got, _ := AggregateMultipliers(a, 99, AggregatePickupOnly); got != a {
			t.Errorf("PICKUP_ONLY must ignore dropoff, got %v", got)
		}
		if got, _ := AggregateMultipliers(99, b, AggregateDropoffOnly); got != b {
			t.Errorf("DROPOFF_ONLY must ignore pickup, got %v", got)
		}
	}
	if got, _ := AggregateMultipliers(1.333, 1.0, AggregateAverage); got != 1.167 {
		t.Errorf("AVERAGE rounding = %v, want 1.167", got)
	}
}

func TestResolveTrip(t *testing.T) {
	res := ResolveTrip(testZones(), paris, &cdg, ConflictPriority, AggregateMax)
	if res.PickupMultiplier != 1.2 || res.DropoffMultiplier != 1.5 {
		t.Fatalf("multipliers = %v/%v", res.PickupMultiplier, res.DropoffMultiplier)
	}
	if res.AppliedMultiplier != 1.5 || res.Source != "dropoff" {
		t.Errorf("applied = %v (%s), want 1.5 from dropoff", res.AppliedMultiplier, res.Source)
	}
	if res.Surcharges != 10 {
		t.Errorf("surcharges = %v, want 10", res.Surcharges)
	}

	none := ResolveTrip(testZones(), types.Point{Lat: 43.3, Lng: 5.4}, nil, ConflictPriority, AggregateAverage)
	if none.AppliedMultiplier != 1 || none.Source != "none" {
		t.Errorf("no zone must be neutral, got %+v", none)
	}
}
