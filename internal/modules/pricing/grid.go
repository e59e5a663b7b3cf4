// README: Partner grid matching: zone routes for transfers, packages for excursions and dispos.
package pricing

import (
	"vtc/internal/modules/zone"
	"vtc/internal/types"
)

type GridType string

const (
	GridZoneRoute        GridType = "ZONE_ROUTE"
	GridExcursionPackage GridType = "EXCURSION_PACKAGE"
	GridDispoPackage     GridType = "DISPO_PACKAGE"
)

type RejectionReason string

const (
	RejectInactive          RejectionReason = "INACTIVE"
	RejectCategoryMismatch  RejectionReason = "CATEGORY_MISMATCH"
	RejectZoneMismatch      RejectionReason = "ZONE_MISMATCH"
	RejectDirectionMismatch RejectionReason = "DIRECTION_MISMATCH"
)

type MatchedGrid struct {
	Type          GridType `json:"type"`
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	GridPrice     float64  `json:"gridPrice"`
	OverridePrice *float64 `json:"overridePrice,omitempty"`
	PriceSource   string   `json:"priceSource"`
	Direction     string   `json:"direction,omitempty"`
}

type GridRejection struct {
	Type   GridType        `json:"type"`
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Reason RejectionReason `json:"reason"`
}

// GridSearch is the outcome of a grid lookup; FallbackReason is set when nothing matched.
type GridSearch struct {
	Matched          *MatchedGrid    `json:"matched,omitempty"`
	Rejections       []GridRejection `json:"rejections"`
	PickupZoneIDs    []string        `json:"pickupZoneIds"`
	DropoffZoneIDs   []string        `json:"dropoffZoneIds"`
	CandidatesTested int             `json:"candidatesTested"`
	FallbackReason   FallbackReason  `json:"fallbackReason,omitempty"`
}

// MatchGrid walks the contract's assignments for the trip type in order; the first active,
// matching one wins. Membership uses every zone containing a point, not only the resolved one.
func MatchGrid(req Request, contract *PartnerContract, zones []zone.Zone) GridSearch {
	search := GridSearch{Rejections: []GridRejection{}, PickupZoneIDs: []string{}, DropoffZoneIDs: []string{}}
	if contract == nil {
		search.FallbackReason = FallbackNoContract
		return search
	}
	search.PickupZoneIDs = zoneIDs(zone.FindZones(zones, req.Pickup))
	if req.Dropoff != nil {
		search.DropoffZoneIDs = zoneIDs(zone.FindZones(zones, *req.Dropoff))
	}

	switch req.TripType {
	case TripTransfer:
		if len(search.PickupZoneIDs) == 0 {
			search.FallbackReason = FallbackZoneNotFound
			return search
		}
		for _, a := range contract.ZoneRoutes {
			search.CandidatesTested++
			dir, reason := matchZoneRoute(req, a.Route, search.PickupZoneIDs, search.DropoffZoneIDs)
			if reason != "" {
				search.Rejections = append(search.Rejections, GridRejection{GridZoneRoute, a.Route.ID, a.Route.Name, reason})
				continue
			}
			m := matched(GridZoneRoute, a.Route.ID, a.Route.Name, a.Route.FixedPrice, a.OverridePrice)
			m.Direction = dir
			search.Matched = &m
			return search
		}
	case TripExcursion, TripDispo:
		gt, assignments := GridExcursionPackage, contract.ExcursionPackages
		if req.TripType == TripDispo {
			gt, assignments = GridDispoPackage, contract.DispoPackages
		}
		for _, a := range assignments {
			search.CandidatesTested++
			if reason := matchPackage(req, a.Package, search.PickupZoneIDs, search.DropoffZoneIDs); reason != "" {
				search.Rejections = append(search.Rejections, GridRejection{gt, a.Package.ID, a.Package.Name, reason})
				continue
			}
			m := matched(gt, a.Package.ID, a.Package.Name, a.Package.Price, a.OverridePrice)
			search.Matched = &m
			return search
		}
	}
	search.FallbackReason = FallbackNoMatchingGrid
	return search
}

func matched(gt GridType, id, name string, gridPrice float64, override *float64) MatchedGrid {
	m := MatchedGrid{
		Type:        gt,
		ID:          id,
		Name:        name,
		GridPrice:   gridPrice,
		Price:       types.RoundMoney(gridPrice),
		PriceSource: "GRID",
	}
	if override != nil {
		v := *override
		m.OverridePrice = &v
		m.Price = types.RoundMoney(v)
		m.PriceSource = "ASSIGNMENT_OVERRIDE"
	}
	return m
}

func matchZoneRoute(req Request, r ZoneRoute, pickupIDs, dropoffIDs []string) (string, RejectionReason) {
	if !r.IsActive {
		return "", RejectInactive
	}
	if r.VehicleCategoryID != "" && r.VehicleCategoryID != req.VehicleCategoryID {
		return "", RejectCategoryMismatch
	}
	from := zoneSet(r.FromZoneID, r.FromZoneIDs)
	to := zoneSet(r.ToZoneID, r.ToZoneIDs)
	forward := intersects(from, pickupIDs) && intersects(to, dropoffIDs)
	if forward {
		return "FORWARD", ""
	}
	reverse := intersects(to, pickupIDs) && intersects(from, dropoffIDs)
	if reverse {
		if r.Direction == DirectionAToB {
			return "", RejectDirectionMismatch
		}
		return "REVERSE", ""
	}
	return "", RejectZoneMismatch
}

func matchPackage(req Request, p Package, pickupIDs, dropoffIDs []string) RejectionReason {
	if !p.IsActive {
		return RejectInactive
	}
	if p.VehicleCategoryID != "" && p.VehicleCategoryID != req.VehicleCategoryID {
		return RejectCategoryMismatch
	}
	if p.OriginZoneID != "" && !contains(pickupIDs, p.OriginZoneID) {
		return RejectZoneMismatch
	}
	if p.DestinationZoneID != "" && !contains(dropoffIDs, p.DestinationZoneID) {
		return RejectZoneMismatch
	}
	return ""
}

func zoneIDs(zs []zone.Zone) []string {
	out := make([]string, 0, len(zs))
	for _, z := range zs {
		out = append(out, z.ID)
	}
	return out
}

func zoneSet(single string, group []string) map[string]struct{} {
	set := make(map[string]struct{}, len(group)+1)
	if single != "" {
		set[single] = struct{}{}
	}
	for _, id := range group {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

func intersects(set map[string]struct{}, ids []string) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
