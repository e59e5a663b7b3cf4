// README: Zone resolver classifies points into zones and aggregates pickup/dropoff multipliers.
package zone

import (
	"math"
	"sort"

	"vtc/internal/geo"
	"vtc/internal/types"
)

// Contains reports whether p lies in z. Inactive zones contain nothing.
func Contains(z Zone, p types.Point) bool {
	if !z.IsActive {
		return false
	}
	switch z.Type {
	case TypePolygon:
		return geo.PolygonContains(z.Coordinates, p)
	case TypeRadius:
		return z.Center != nil && geo.HaversineKm(*z.Center, p) <= z.RadiusKm
	case TypePoint:
		if z.Center == nil {
			return false
		}
		tolerance := z.RadiusKm
		if tolerance <= 0 {
			tolerance = DefaultPointToleranceKm
		}
		return geo.HaversineKm(*z.Center, p) <= tolerance
	case TypeCorridor:
		return geo.DistanceToPathKm(z.Coordinates, p) <= z.CorridorWidthKm/2
	default:
		return false
	}
}

// Centroid returns the reference point used by the CLOSEST strategy.
func Centroid(z Zone) types.Point {
	if z.Center != nil {
		return *z.Center
	}
	return geo.Centroid(z.Coordinates)
}

// FindZones returns every zone containing p, in input order.
func FindZones(zones []Zone, p types.Point) []Zone {
	var out []Zone
	for _, z := range zones {
		if Contains(z, p) {
			out = append(out, z)
		}
	}
	return out
}

// Resolve selects one zone for p among all containing zones using strategy.
func Resolve(zones []Zone, p types.Point, strategy ConflictStrategy) Resolution {
	if strategy == "" {
		strategy = ConflictPriority
	}
	matches := FindZones(zones, p)
	res := Resolution{Point: p, Strategy: strategy, Candidates: make([]Candidate, 0, len(matches))}
	if len(matches) == 0 {
		return res
	}

	dist := make([]float64, len(matches))
	for i, z := range matches {
		dist[i] = geo.HaversineKm(Centroid(z), p)
		res.Candidates = append(res.Candidates, Candidate{
			ZoneID:     z.ID,
			Code:       z.Code,
			Name:       z.Name,
			Multiplier: z.Multiplier(),
			Priority:   z.Priority,
			DistanceKm: types.Round(dist[i], 3),
		})
	}

	idx := make([]int, len(matches))
	for i := range idx {
		idx[i] = i
	}
	less := func(a, b int) bool {
		za, zb := matches[a], matches[b]
		switch strategy {
		case ConflictMostExpensive:
			return za.Multiplier() > zb.Multiplier()
		case ConflictClosest:
			return dist[a] < dist[b]
		case ConflictCombined:
			if za.Priority != zb.Priority {
				return za.Priority > zb.Priority
			}
			return za.Multiplier() > zb.Multiplier()
		default:
			return za.Priority > zb.Priority
		}
	}
	sort.SliceStable(idx, func(i, j int) bool { return less(idx[i], idx[j]) })

	best := idx[0]
	selected := res.Candidates[best]
	res.Selected = &selected
	z := matches[best]
	res.zone = &z
	return res
}

// AggregateMultipliers combines pickup and dropoff multipliers. A missing zone counts as 1.0.
func AggregateMultipliers(pickup, dropoff float64, strategy AggregationStrategy) (float64, string) {
	switch strategy {
	case AggregatePickupOnly:
		return pickup, "pickup"
	case AggregateDropoffOnly:
		return dropoff, "dropoff"
	case AggregateAverage:
		return types.Round((pickup+dropoff)/2, 3), "both"
	default:
		if dropoff > pickup {
			return dropoff, "dropoff"
		}
		return pickup, "pickup"
	}
}

// ResolveTrip resolves pickup and dropoff independently and aggregates their multipliers.
// dropoff may be nil (dispo without destination).
func ResolveTrip(zones []Zone, pickup types.Point, dropoff *types.Point, conflict ConflictStrategy, aggregation AggregationStrategy) MultiplierResult {
	if aggregation == "" {
		aggregation = AggregateMax
	}
	out := MultiplierResult{
		Pickup:            Resolve(zones, pickup, conflict),
		PickupMultiplier:  1,
		DropoffMultiplier: 1,
		Aggregation:       aggregation,
	}
	if z := out.Pickup.Zone(); z != nil {
		out.PickupMultiplier = z.Multiplier()
		out.Surcharges += z.Surcharge()
	}
	if dropoff != nil {
		d := Resolve(zones, *dropoff, conflict)
		out.Dropoff = &d
		if z := d.Zone(); z != nil {
			out.DropoffMultiplier = z.Multiplier()
			out.Surcharges += z.Surcharge()
		}
	}
	out.Surcharges = types.RoundMoney(out.Surcharges)

	out.AppliedMultiplier, out.Source = AggregateMultipliers(out.PickupMultiplier, out.DropoffMultiplier, aggregation)
	if out.Pickup.Selected == nil && (out.Dropoff == nil || out.Dropoff.Selected == nil) {
		out.Source = "none"
	}
	if math.IsNaN(out.AppliedMultiplier) || out.AppliedMultiplier <= 0 {
		out.AppliedMultiplier = 1
	}
	return out
}
