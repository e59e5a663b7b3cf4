// README: Pricing context repository backed by PostgreSQL.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vtc/internal/modules/zone"
)

// Store loads the read-only pricing context of an organization. Structured columns
// (zone geometry, contract assignments, settings, dispo buckets) are stored as jsonb.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadContext builds the Context for a request. A missing contact or vehicle category is
// ErrNotFound; a missing settings row means every default applies.
func (s *Store) LoadContext(ctx context.Context, orgID string, req Request) (Context, error) {
	pc := Context{OrganizationID: orgID}

	contact, err := s.contact(ctx, orgID, req.ContactID)
	if err != nil {
		return Context{}, fmt.Errorf("load contact: %w", err)
	}
	pc.Contact = contact

	if req.EndCustomerID != "" {
		ec, err := s.endCustomer(ctx, orgID, req.EndCustomerID)
		if err != nil {
			return Context{}, fmt.Errorf("load end customer: %w", err)
		}
		pc.EndCustomer = ec
	}

	cat, err := s.vehicleCategory(ctx, orgID, req.VehicleCategoryID)
	if err != nil {
		return Context{}, fmt.Errorf("load vehicle category: %w", err)
	}
	pc.VehicleCategory = &cat

	if vs := req.VehicleSelection; vs != nil && vs.VehicleID != "" {
		v, err := s.vehicle(ctx, orgID, vs.VehicleID)
		if err != nil {
			return Context{}, fmt.Errorf("load vehicle: %w", err)
		}
		pc.Vehicle = &v
	}

	if pc.Settings, err = s.settings(ctx, orgID); err != nil {
		return Context{}, fmt.Errorf("load settings: %w", err)
	}
	if pc.Zones, err = s.zones(ctx, orgID); err != nil {
		return Context{}, fmt.Errorf("load zones: %w", err)
	}
	if pc.AdvancedRates, err = s.advancedRates(ctx, orgID); err != nil {
		return Context{}, fmt.Errorf("load advanced rates: %w", err)
	}
	if pc.SeasonalMultipliers, err = s.seasonalMultipliers(ctx, orgID); err != nil {
		return Context{}, fmt.Errorf("load seasonal multipliers: %w", err)
	}
	return pc, nil
}

func (s *Store) contact(ctx context.Context, orgID, id string) (Contact, error) {
	var c Contact
	var contractID, contract *string
	err := s.db.QueryRow(ctx, `
		SELECT c.id, c.name, c.is_partner, c.difficulty_score, pc.id, pc.assignments::text
		FROM contacts c
		LEFT JOIN partner_contracts pc ON pc.contact_id = c.id AND pc.is_active
		WHERE c.organization_id = $1 AND c.id = $2`, orgID, id,
	).Scan(&c.ID, &c.Name, &c.IsPartner, &c.DifficultyScore, &contractID, &contract)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, err
	}
	if c.IsPartner && contractID != nil {
		pcon := &PartnerContract{}
		if contract != nil {
			if err := json.Unmarshal([]byte(*contract), pcon); err != nil {
				return Contact{}, fmt.Errorf("decode contract %s: %w", *contractID, err)
			}
		}
		pcon.ID = *contractID
		c.PartnerContract = pcon
	}
	return c, nil
}

func (s *Store) endCustomer(ctx context.Context, orgID, id string) (*EndCustomer, error) {
	var ec EndCustomer
	err := s.db.QueryRow(ctx, `
		SELECT id, difficulty_score FROM end_customers
		WHERE organization_id = $1 AND id = $2`, orgID, id,
	).Scan(&ec.ID, &ec.DifficultyScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ec, nil
}

func (s *Store) vehicleCategory(ctx context.Context, orgID, id string) (VehicleCategory, error) {
	var c VehicleCategory
	var tco, buckets *string
	err := s.db.QueryRow(ctx, `
		SELECT id, code, name, regulatory_category, fuel_type, price_multiplier,
		       rate_per_km, rate_per_hour, fuel_consumption_l100km, tco::text, dispo_buckets::text
		FROM vehicle_categories
		WHERE organization_id = $1 AND id = $2`, orgID, id,
	).Scan(&c.ID, &c.Code, &c.Name, &c.RegulatoryCategory, &c.FuelType, &c.PriceMultiplier,
		&c.RatePerKm, &c.RatePerHour, &c.FuelConsumptionL100km, &tco, &buckets)
	if errors.Is(err, pgx.ErrNoRows) {
		return VehicleCategory{}, ErrNotFound
	}
	if err != nil {
		return VehicleCategory{}, err
	}
	if err := decodeOptional(tco, &c.TCO); err != nil {
		return VehicleCategory{}, err
	}
	if err := decodeOptional(buckets, &c.DispoBuckets); err != nil {
		return VehicleCategory{}, err
	}
	return c, nil
}

func (s *Store) vehicle(ctx context.Context, orgID, id string) (Vehicle, error) {
	var v Vehicle
	var tco *string
	err := s.db.QueryRow(ctx, `
		SELECT id, fuel_consumption_l100km, tco::text FROM vehicles
		WHERE organization_id = $1 AND id = $2`, orgID, id,
	).Scan(&v.ID, &v.FuelConsumptionL100km, &tco)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vehicle{}, ErrNotFound
	}
	if err != nil {
		return Vehicle{}, err
	}
	if err := decodeOptional(tco, &v.TCO); err != nil {
		return Vehicle{}, err
	}
	return v, nil
}

func (s *Store) settings(ctx context.Context, orgID string) (OrganizationSettings, error) {
	var raw string
	err := s.db.QueryRow(ctx, `
		SELECT settings::text FROM organization_pricing_settings WHERE organization_id = $1`, orgID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrganizationSettings{}, nil
	}
	if err != nil {
		return OrganizationSettings{}, err
	}
	var o OrganizationSettings
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return OrganizationSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	return o, nil
}

func (s *Store) zones(ctx context.Context, orgID string) ([]zone.Zone, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, code, name, zone_type, geometry::text, price_multiplier, priority,
		       fixed_parking_surcharge, fixed_access_fee, is_active
		FROM pricing_zones
		WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []zone.Zone
	for rows.Next() {
		var z zone.Zone
		var geometry string
		if err := rows.Scan(&z.ID, &z.Code, &z.Name, &z.Type, &geometry, &z.PriceMultiplier, &z.Priority,
			&z.FixedParkingSurcharge, &z.FixedAccessFee, &z.IsActive); err != nil {
			return nil, err
		}
		if err := decodeGeometry(geometry, &z); err != nil {
			return nil, fmt.Errorf("decode zone %s: %w", z.ID, err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// zoneGeometry is the jsonb shape of pricing_zones.geometry.
type zoneGeometry struct {
	Coordinates     json.RawMessage `json:"coordinates"`
	Center          json.RawMessage `json:"center"`
	RadiusKm        float64         `json:"radiusKm"`
	CorridorWidthKm float64         `json:"corridorWidthKm"`
}

func decodeGeometry(raw string, z *zone.Zone) error {
	var g zoneGeometry
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return err
	}
	z.RadiusKm, z.CorridorWidthKm = g.RadiusKm, g.CorridorWidthKm
	if len(g.Coordinates) > 0 {
		if err := json.Unmarshal(g.Coordinates, &z.Coordinates); err != nil {
			return err
		}
	}
	if len(g.Center) > 0 && string(g.Center) != "null" {
		if err := json.Unmarshal(g.Center, &z.Center); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) advancedRates(ctx context.Context, orgID string) ([]AdvancedRate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, rate_type, COALESCE(start_time, ''), COALESCE(end_time, ''), days_of_week,
		       adjustment_type, value, priority, is_active
		FROM advanced_rates
		WHERE organization_id = $1 AND is_active`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdvancedRate
	for rows.Next() {
		var r AdvancedRate
		var days []int32
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.StartTime, &r.EndTime, &days,
			&r.AdjustmentType, &r.Value, &r.Priority, &r.IsActive); err != nil {
			return nil, err
		}
		for _, d := range days {
			r.DaysOfWeek = append(r.DaysOfWeek, int(d))
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) seasonalMultipliers(ctx context.Context, orgID string) ([]SeasonalMultiplier, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
		       multiplier, vehicle_category_ids, priority, is_active
		FROM seasonal_multipliers
		WHERE organization_id = $1 AND is_active`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SeasonalMultiplier
	for rows.Next() {
		var m SeasonalMultiplier
		if err := rows.Scan(&m.ID, &m.Name, &m.StartDate, &m.EndDate,
			&m.Multiplier, &m.VehicleCategoryIDs, &m.Priority, &m.IsActive); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func decodeOptional(raw *string, dst any) error {
	if raw == nil || *raw == "" || *raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(*raw), dst)
}
