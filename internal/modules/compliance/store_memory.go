// README: In-memory counter store used by tests and single-instance deployments.
package compliance

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu        sync.Mutex
	counters  map[CounterKey]DriverRSECounter
	decisions []Decision
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[CounterKey]DriverRSECounter)}
}

func (m *MemoryStore) IncrementCounter(_ context.Context, key CounterKey, a Activity) (DriverRSECounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[key]
	if !ok {
		c = DriverRSECounter{CounterKey: key}
	}
	c.DrivingMinutes += a.DrivingMinutes
	c.AmplitudeMinutes += a.AmplitudeMinutes
	c.BreakMinutes += a.BreakMinutes
	c.WorkStart = minTime(c.WorkStart, a.WorkStart)
	c.WorkEnd = maxTime(c.WorkEnd, a.WorkEnd)
	c.UpdatedAt = time.Now().UTC()
	m.counters[key] = c
	return c, nil
}

func (m *MemoryStore) GetCounter(_ context.Context, key CounterKey) (DriverRSECounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[key]; ok {
		return c, nil
	}
	return DriverRSECounter{CounterKey: key}, nil
}

func (m *MemoryStore) ResetCounter(_ context.Context, key CounterKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counters, key)
	return nil
}

func (m *MemoryStore) AppendDecision(_ context.Context, d Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *MemoryStore) ListDecisions(_ context.Context, orgID, driverID string, limit int) ([]Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Decision, 0)
	for _, d := range m.decisions {
		if d.OrganizationID == orgID && d.DriverID == driverID {
			out = append(out, d)
		}
	}
	// Appends are chronological; return newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
