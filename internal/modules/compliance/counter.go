// README: Per-driver daily RSE counters, cumulative compliance checks and the decision audit trail.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vtc/internal/types"
)

var (
	ErrInvalidActivity = errors.New("invalid driving activity")
	ErrInvalidKey      = errors.New("invalid counter key")
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// CounterKey identifies one driver's counters for one day and regulatory category.
type CounterKey struct {
	OrganizationID     string             `json:"organizationId" validate:"required" binding:"required"`
	DriverID           string             `json:"driverId" validate:"required" binding:"required"`
	Date               string             `json:"date" validate:"required,datetime=2006-01-02" binding:"required,datetime=2006-01-02"`
	RegulatoryCategory RegulatoryCategory `json:"regulatoryCategory" validate:"required,oneof=LIGHT HEAVY" binding:"required,oneof=LIGHT HEAVY"`
}

// validate rejects incomplete keys and any category other than LIGHT or HEAVY; an unknown
// category would otherwise skip every limit.
func (k CounterKey) validate() error {
	if err := validate.Struct(k); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return nil
}

// KeyFor builds the key of the day t falls on, in UTC.
func KeyFor(orgID, driverID string, t time.Time, cat RegulatoryCategory) CounterKey {
	return CounterKey{OrganizationID: orgID, DriverID: driverID, Date: t.UTC().Format(dateLayout), RegulatoryCategory: cat}
}

// Activity is an increment applied to a counter.
type Activity struct {
	DrivingMinutes   float64    `json:"drivingMinutes" validate:"gte=0" binding:"gte=0"`
	AmplitudeMinutes float64    `json:"amplitudeMinutes" validate:"gte=0" binding:"gte=0"`
	BreakMinutes     float64    `json:"breakMinutes" validate:"gte=0" binding:"gte=0"`
	WorkStart        *time.Time `json:"workStart,omitempty"`
	WorkEnd          *time.Time `json:"workEnd,omitempty"`
}

func (a Activity) validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidActivity, err)
	}
	if a.WorkStart != nil && a.WorkEnd != nil && a.WorkEnd.Before(*a.WorkStart) {
		return fmt.Errorf("%w: work end before work start", ErrInvalidActivity)
	}
	return nil
}

type DriverRSECounter struct {
	CounterKey
	DrivingMinutes   float64    `json:"drivingMinutes"`
	AmplitudeMinutes float64    `json:"amplitudeMinutes"`
	BreakMinutes     float64    `json:"breakMinutes"`
	WorkStart        *time.Time `json:"workStart,omitempty"`
	WorkEnd          *time.Time `json:"workEnd,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type DecisionOutcome string

const (
	DecisionApproved DecisionOutcome = "APPROVED"
	DecisionBlocked  DecisionOutcome = "BLOCKED"
	DecisionWarning  DecisionOutcome = "WARNING"
)

// Decision is one immutable audit entry.
type Decision struct {
	ID                 string             `json:"id"`
	OrganizationID     string             `json:"organizationId"`
	DriverID           string             `json:"driverId"`
	Date               string             `json:"date"`
	RegulatoryCategory RegulatoryCategory `json:"regulatoryCategory"`
	QuoteID            string             `json:"quoteId,omitempty"`
	Outcome            DecisionOutcome    `json:"decision"`
	Reason             string             `json:"reason"`
	Violations         []Violation        `json:"violations"`
	Warnings           []Warning          `json:"warnings"`
	Counters           DriverRSECounter   `json:"countersSnapshot"`
	Rules              Rules              `json:"rulesUsed"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// CounterStore persists counters. IncrementCounter must be atomic per key.
type CounterStore interface {
	IncrementCounter(ctx context.Context, key CounterKey, a Activity) (DriverRSECounter, error)
	// GetCounter returns a zero counter for an unknown key.
	GetCounter(ctx context.Context, key CounterKey) (DriverRSECounter, error)
	ResetCounter(ctx context.Context, key CounterKey) error
	AppendDecision(ctx context.Context, d Decision) error
	ListDecisions(ctx context.Context, orgID, driverID string, limit int) ([]Decision, error)
}

type CounterService struct {
	store CounterStore
	log   *zap.Logger
	now   func() time.Time
}

func NewCounterService(store CounterStore, log *zap.Logger) *CounterService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CounterService{store: store, log: log, now: time.Now}
}

// RecordDrivingActivity adds a to the day's counter.
func (s *CounterService) RecordDrivingActivity(ctx context.Context, key CounterKey, a Activity) (DriverRSECounter, error) {
	if err := key.validate(); err != nil {
		return DriverRSECounter{}, err
	}
	if err := a.validate(); err != nil {
		return DriverRSECounter{}, err
	}
	c, err := s.store.IncrementCounter(ctx, key, a)
	if err != nil {
		return DriverRSECounter{}, fmt.Errorf("increment rse counter: %w", err)
	}
	s.log.Debug("rse activity recorded",
		zap.String("driver_id", key.DriverID),
		zap.String("date", key.Date),
		zap.Float64("driving_minutes", c.DrivingMinutes),
		zap.Float64("amplitude_minutes", c.AmplitudeMinutes),
	)
	return c, nil
}

type CumulativeCheck struct {
	Key                       CounterKey       `json:"key"`
	Current                   DriverRSECounter `json:"current"`
	Proposed                  Activity         `json:"proposed"`
	ProjectedDrivingMinutes   float64          `json:"projectedDrivingMinutes"`
	ProjectedAmplitudeMinutes float64          `json:"projectedAmplitudeMinutes"`
	IsCompliant               bool             `json:"isCompliant"`
	Outcome                   DecisionOutcome  `json:"decision"`
	Violations                []Violation      `json:"violations"`
	Warnings                  []Warning        `json:"warnings"`
	RulesUsed                 Rules            `json:"rulesUsed"`
}

// CheckCumulativeCompliance projects the proposed activity on the current counter without
// committing it. LIGHT counters are always approved.
func (s *CounterService) CheckCumulativeCompliance(ctx context.Context, key CounterKey, proposed Activity, rules Rules) (CumulativeCheck, error) {
	if err := key.validate(); err != nil {
		return CumulativeCheck{}, err
	}
	if err := proposed.validate(); err != nil {
		return CumulativeCheck{}, err
	}
	cur, err := s.store.GetCounter(ctx, key)
	if err != nil {
		return CumulativeCheck{}, fmt.Errorf("get rse counter: %w", err)
	}
	chk := CumulativeCheck{
		Key:                       key,
		Current:                   cur,
		Proposed:                  proposed,
		ProjectedDrivingMinutes:   types.Round(cur.DrivingMinutes+proposed.DrivingMinutes, 2),
		ProjectedAmplitudeMinutes: types.Round(cur.AmplitudeMinutes+proposed.AmplitudeMinutes, 2),
		Violations:                []Violation{},
		Warnings:                  []Warning{},
		RulesUsed:                 rules,
	}
	if key.RegulatoryCategory == CategoryHeavy {
		// Reuse the limit classification of the mission validator.
		var r Result
		r.Violations, r.Warnings = chk.Violations, chk.Warnings
		r.checkLimit("MAX_DAILY_DRIVING", ViolationDrivingTime, WarningDrivingTime, "cumulative driving time",
			types.Round(chk.ProjectedDrivingMinutes/60, 2), rules.MaxDailyDrivingHours)
		r.checkLimit("MAX_DAILY_AMPLITUDE", ViolationAmplitude, WarningAmplitude, "cumulative amplitude",
			types.Round(chk.ProjectedAmplitudeMinutes/60, 2), rules.MaxDailyAmplitudeHours)
		chk.Violations, chk.Warnings = r.Violations, r.Warnings
	}
	chk.IsCompliant = len(chk.Violations) == 0
	chk.Outcome = outcomeOf(chk.Violations, chk.Warnings)
	return chk, nil
}

func outcomeOf(v []Violation, w []Warning) DecisionOutcome {
	switch {
	case len(v) > 0:
		return DecisionBlocked
	case len(w) > 0:
		return DecisionWarning
	default:
		return DecisionApproved
	}
}

type DecisionInput struct {
	Key        CounterKey      `json:"key"`
	QuoteID    string          `json:"quoteId,omitempty"`
	Outcome    DecisionOutcome `json:"decision,omitempty"`
	Reason     string          `json:"reason"`
	Violations []Violation     `json:"violations,omitempty"`
	Warnings   []Warning       `json:"warnings,omitempty"`
	Rules      Rules           `json:"rulesUsed"`
}

// LogComplianceDecision appends an audit entry carrying a snapshot of the driver's counter.
// An empty outcome is derived from the violations and warnings.
func (s *CounterService) LogComplianceDecision(ctx context.Context, in DecisionInput) (Decision, error) {
	if err := in.Key.validate(); err != nil {
		return Decision{}, err
	}
	outcome := in.Outcome
	switch outcome {
	case DecisionApproved, DecisionBlocked, DecisionWarning:
	case "":
		outcome = outcomeOf(in.Violations, in.Warnings)
	default:
		return Decision{}, fmt.Errorf("%w: unknown decision %q", ErrInvalidActivity, outcome)
	}
	snap, err := s.store.GetCounter(ctx, in.Key)
	if err != nil {
		return Decision{}, fmt.Errorf("snapshot rse counter: %w", err)
	}
	d := Decision{
		ID:                 uuid.NewString(),
		OrganizationID:     in.Key.OrganizationID,
		DriverID:           in.Key.DriverID,
		Date:               in.Key.Date,
		RegulatoryCategory: in.Key.RegulatoryCategory,
		QuoteID:            in.QuoteID,
		Outcome:            outcome,
		Reason:             in.Reason,
		Violations:         nonNilViolations(in.Violations),
		Warnings:           nonNilWarnings(in.Warnings),
		Counters:           snap,
		Rules:              in.Rules,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.store.AppendDecision(ctx, d); err != nil {
		return Decision{}, fmt.Errorf("append compliance decision: %w", err)
	}
	s.log.Info("compliance decision logged",
		zap.String("decision_id", d.ID),
		zap.String("driver_id", d.DriverID),
		zap.String("decision", string(d.Outcome)),
	)
	return d, nil
}

func (s *CounterService) GetCounter(ctx context.Context, key CounterKey) (DriverRSECounter, error) {
	if err := key.validate(); err != nil {
		return DriverRSECounter{}, err
	}
	return s.store.GetCounter(ctx, key)
}

func (s *CounterService) ResetCounter(ctx context.Context, key CounterKey) error {
	if err := key.validate(); err != nil {
		return err
	}
	if err := s.store.ResetCounter(ctx, key); err != nil {
		return fmt.Errorf("reset rse counter: %w", err)
	}
	s.log.Info("rse counter reset", zap.String("driver_id", key.DriverID), zap.String("date", key.Date))
	return nil
}

// ListDecisions returns the most recent decisions first.
func (s *CounterService) ListDecisions(ctx context.Context, orgID, driverID string, limit int) ([]Decision, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListDecisions(ctx, orgID, driverID, limit)
}

func nonNilViolations(v []Violation) []Violation {
	if v == nil {
		return []Violation{}
	}
	return v
}

func nonNilWarnings(w []Warning) []Warning {
	if w == nil {
		return []Warning{}
	}
	return w
}

func minTime(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}

func maxTime(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
