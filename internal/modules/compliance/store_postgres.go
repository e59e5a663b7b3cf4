// README: RSE counter store backed by PostgreSQL; increments are single upsert statements.
package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) IncrementCounter(ctx context.Context, key CounterKey, a Activity) (DriverRSECounter, error) {
	c := DriverRSECounter{CounterKey: key}
	err := s.db.QueryRow(ctx, `
        INSERT INTO driver_rse_counters (
            organization_id, driver_id, date, regulatory_category,
            driving_minutes, amplitude_minutes, break_minutes,
            work_start, work_end, updated_at
        ) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, NOW())
        ON CONFLICT (organization_id, driver_id, date, regulatory_category) DO UPDATE SET
            driving_minutes   = driver_rse_counters.driving_minutes + EXCLUDED.driving_minutes,
            amplitude_minutes = driver_rse_counters.amplitude_minutes + EXCLUDED.amplitude_minutes,
            break_minutes     = driver_rse_counters.break_minutes + EXCLUDED.break_minutes,
            work_start        = LEAST(driver_rse_counters.work_start, EXCLUDED.work_start),
            work_end          = GREATEST(driver_rse_counters.work_end, EXCLUDED.work_end),
            updated_at        = NOW()
        RETURNING driving_minutes, amplitude_minutes, break_minutes, work_start, work_end, updated_at`,
		key.OrganizationID, key.DriverID, key.Date, string(key.RegulatoryCategory),
		a.DrivingMinutes, a.AmplitudeMinutes, a.BreakMinutes,
		a.WorkStart, a.WorkEnd,
	).Scan(&c.DrivingMinutes, &c.AmplitudeMinutes, &c.BreakMinutes, &c.WorkStart, &c.WorkEnd, &c.UpdatedAt)
	if err != nil {
		return DriverRSECounter{}, err
	}
	return c, nil
}

func (s *PostgresStore) GetCounter(ctx context.Context, key CounterKey) (DriverRSECounter, error) {
	c := DriverRSECounter{CounterKey: key}
	err := s.db.QueryRow(ctx, `
        SELECT driving_minutes, amplitude_minutes, break_minutes, work_start, work_end, updated_at
        FROM driver_rse_counters
        WHERE organization_id = $1 AND driver_id = $2 AND date = $3::date AND regulatory_category = $4`,
		key.OrganizationID, key.DriverID, key.Date, string(key.RegulatoryCategory),
	).Scan(&c.DrivingMinutes, &c.AmplitudeMinutes, &c.BreakMinutes, &c.WorkStart, &c.WorkEnd, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return DriverRSECounter{CounterKey: key}, nil
	}
	if err != nil {
		return DriverRSECounter{}, err
	}
	return c, nil
}

func (s *PostgresStore) ResetCounter(ctx context.Context, key CounterKey) error {
	_, err := s.db.Exec(ctx, `
        DELETE FROM driver_rse_counters
        WHERE organization_id = $1 AND driver_id = $2 AND date = $3::date AND regulatory_category = $4`,
		key.OrganizationID, key.DriverID, key.Date, string(key.RegulatoryCategory),
	)
	return err
}

func (s *PostgresStore) AppendDecision(ctx context.Context, d Decision) error {
	payload, err := encodeDecisionPayload(d)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO compliance_audit_logs (
            id, organization_id, driver_id, date, regulatory_category, quote_id,
            decision, reason, violations, warnings, counters_snapshot, rules_used, created_at
        ) VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11::jsonb, $12::jsonb, $13)`,
		d.ID, d.OrganizationID, d.DriverID, d.Date, string(d.RegulatoryCategory), nullable(d.QuoteID),
		string(d.Outcome), d.Reason,
		payload.violations, payload.warnings, payload.counters, payload.rules,
		d.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListDecisions(ctx context.Context, orgID, driverID string, limit int) ([]Decision, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, organization_id, driver_id, to_char(date, 'YYYY-MM-DD'), regulatory_category,
               COALESCE(quote_id, ''), decision, reason,
               violations::text, warnings::text, counters_snapshot::text, rules_used::text, created_at
        FROM compliance_audit_logs
        WHERE organization_id = $1 AND driver_id = $2
        ORDER BY created_at DESC
        LIMIT $3`, orgID, driverID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Decision, 0)
	for rows.Next() {
		var d Decision
		var p decisionPayload
		var createdAt time.Time
		if err := rows.Scan(
			&d.ID, &d.OrganizationID, &d.DriverID, &d.Date, &d.RegulatoryCategory,
			&d.QuoteID, &d.Outcome, &d.Reason,
			&p.violations, &p.warnings, &p.counters, &p.rules, &createdAt,
		); err != nil {
			return nil, err
		}
		if err := p.decodeInto(&d); err != nil {
			return nil, err
		}
		d.CreatedAt = createdAt.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// decisionPayload carries the JSON columns of an audit entry.
type decisionPayload struct {
	violations string
	warnings   string
	counters   string
	rules      string
}

func encodeDecisionPayload(d Decision) (decisionPayload, error) {
	var p decisionPayload
	for _, f := range []struct {
		dst *string
		v   any
	}{
		{&p.violations, nonNilViolations(d.Violations)},
		{&p.warnings, nonNilWarnings(d.Warnings)},
		{&p.counters, d.Counters},
		{&p.rules, d.Rules},
	} {
		b, err := json.Marshal(f.v)
		if err != nil {
			return decisionPayload{}, fmt.Errorf("encode decision payload: %w", err)
		}
		*f.dst = string(b)
	}
	return p, nil
}

func (p decisionPayload) decodeInto(d *Decision) error {
	if err := json.Unmarshal([]byte(p.violations), &d.Violations); err != nil {
		return fmt.Errorf("decode violations: %w", err)
	}
	if err := json.Unmarshal([]byte(p.warnings), &d.Warnings); err != nil {
		return fmt.Errorf("decode warnings: %w", err)
	}
	if err := json.Unmarshal([]byte(p.counters), &d.Counters); err != nil {
		return fmt.Errorf("decode counters snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(p.rules), &d.Rules); err != nil {
		return fmt.Errorf("decode rules: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
