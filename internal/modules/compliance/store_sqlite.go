// README: Embedded RSE counter store on SQLite for single-node deployments and the quote CLI.
package compliance

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	sqliteTimeLayout  = "2006-01-02T15:04:05Z"
	sqliteStampLayout = "2006-01-02T15:04:05.000000000Z"
)

// SQLiteSchema creates the tables used by SQLiteStore.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS driver_rse_counters (
    organization_id     TEXT NOT NULL,
    driver_id           TEXT NOT NULL,
    date                TEXT NOT NULL,
    regulatory_category TEXT NOT NULL,
    driving_minutes     REAL NOT NULL DEFAULT 0,
    amplitude_minutes   REAL NOT NULL DEFAULT 0,
    break_minutes       REAL NOT NULL DEFAULT 0,
    work_start          TEXT,
    work_end            TEXT,
    updated_at          TEXT NOT NULL,
    PRIMARY KEY (organization_id, driver_id, date, regulatory_category)
);
CREATE TABLE IF NOT EXISTS compliance_audit_logs (
    id                  TEXT PRIMARY KEY,
    organization_id     TEXT NOT NULL,
    driver_id           TEXT NOT NULL,
    date                TEXT NOT NULL,
    regulatory_category TEXT NOT NULL,
    quote_id            TEXT,
    decision            TEXT NOT NULL,
    reason              TEXT NOT NULL,
    violations          TEXT NOT NULL,
    warnings            TEXT NOT NULL,
    counters_snapshot   TEXT NOT NULL,
    rules_used          TEXT NOT NULL,
    created_at          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_compliance_audit_driver ON compliance_audit_logs (organization_id, driver_id, created_at);
`

// SQLiteStore expects a *sql.DB opened with the modernc "sqlite" driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore applies SQLiteSchema and returns the store.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) IncrementCounter(ctx context.Context, key CounterKey, a Activity) (DriverRSECounter, error) {
	now := time.Now().UTC().Format(sqliteTimeLayout)
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO driver_rse_counters (
            organization_id, driver_id, date, regulatory_category,
            driving_minutes, amplitude_minutes, break_minutes,
            work_start, work_end, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (organization_id, driver_id, date, regulatory_category) DO UPDATE SET
            driving_minutes   = driving_minutes + excluded.driving_minutes,
            amplitude_minutes = amplitude_minutes + excluded.amplitude_minutes,
            break_minutes     = break_minutes + excluded.break_minutes,
            work_start        = CASE
                WHEN work_start IS NULL THEN excluded.work_start
                WHEN excluded.work_start IS NULL THEN work_start
                ELSE min(work_start, excluded.work_start) END,
            work_end          = CASE
                WHEN work_end IS NULL THEN excluded.work_end
                WHEN excluded.work_end IS NULL THEN work_end
                ELSE max(work_end, excluded.work_end) END,
            updated_at        = excluded.updated_at
        RETURNING driving_minutes, amplitude_minutes, break_minutes, work_start, work_end, updated_at`,
		key.OrganizationID, key.DriverID, key.Date, string(key.RegulatoryCategory),
		a.DrivingMinutes, a.AmplitudeMinutes, a.BreakMinutes,
		formatNullTime(a.WorkStart), formatNullTime(a.WorkEnd), now,
	)
	return scanSQLiteCounter(row, key)
}

func (s *SQLiteStore) GetCounter(ctx context.Context, key CounterKey) (DriverRSECounter, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT driving_minutes, amplitude_minutes, break_minutes, work_start, work_end, updated_at
        FROM driver_rse_counters
        WHERE organization_id = ? AND driver_id = ? AND date = ? AND regulatory_category = ?`,
		key.OrganizationID, key.DriverID, key.Date, string(key.RegulatoryCategory),
	)
	c, err := scanSQLiteCounter(row, key)
	if errors.Is(err, sql.ErrNoRows) {
		return DriverRSECounter{CounterKey: key}, nil
	}
	return c, err
}

func (s *SQLiteStore) ResetCounter(ctx context.Context, key CounterKey) error {
	_, err := s.db.ExecContext(ctx, `
        DELETE FROM driver_rse_counters
        WHERE organization_id = ? AND driver_id = ? AND date = ? AND regulatory_category = ?`,
		key.OrganizationID, key.DriverID, key.Date, string(key.RegulatoryCategory),
	)
	return err
}

func (s *SQLiteStore) AppendDecision(ctx context.Context, d Decision) error {
	p, err := encodeDecisionPayload(d)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO compliance_audit_logs (
            id, organization_id, driver_id, date, regulatory_category, quote_id,
            decision, reason, violations, warnings, counters_snapshot, rules_used, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OrganizationID, d.DriverID, d.Date, string(d.RegulatoryCategory), nullable(d.QuoteID),
		string(d.Outcome), d.Reason, p.violations, p.warnings, p.counters, p.rules,
		d.CreatedAt.UTC().Format(sqliteStampLayout),
	)
	return err
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, orgID, driverID string, limit int) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, organization_id, driver_id, date, regulatory_category, COALESCE(quote_id, ''),
               decision, reason, violations, warnings, counters_snapshot, rules_used, created_at
        FROM compliance_audit_logs
        WHERE organization_id = ? AND driver_id = ?
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?`, orgID, driverID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Decision, 0)
	for rows.Next() {
		var d Decision
		var p decisionPayload
		var createdAt string
		if err := rows.Scan(
			&d.ID, &d.OrganizationID, &d.DriverID, &d.Date, &d.RegulatoryCategory, &d.QuoteID,
			&d.Outcome, &d.Reason, &p.violations, &p.warnings, &p.counters, &p.rules, &createdAt,
		); err != nil {
			return nil, err
		}
		if err := p.decodeInto(&d); err != nil {
			return nil, err
		}
		if t, err := time.Parse(sqliteStampLayout, createdAt); err == nil {
			d.CreatedAt = t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanSQLiteCounter(row *sql.Row, key CounterKey) (DriverRSECounter, error) {
	c := DriverRSECounter{CounterKey: key}
	var start, end sql.NullString
	var updated string
	if err := row.Scan(&c.DrivingMinutes, &c.AmplitudeMinutes, &c.BreakMinutes, &start, &end, &updated); err != nil {
		return DriverRSECounter{}, err
	}
	c.WorkStart = parseNullTime(start)
	c.WorkEnd = parseNullTime(end)
	if t, err := time.Parse(sqliteTimeLayout, updated); err == nil {
		c.UpdatedAt = t
	}
	return c, nil
}

// Times are stored as fixed-width UTC text so min/max compare chronologically.
func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(sqliteTimeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}
