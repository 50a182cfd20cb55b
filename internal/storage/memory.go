package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a process-local Store.
type Memory struct {
	mu         sync.Mutex
	closed     bool
	recipients map[string]map[int64]Recipient
	admins     map[string]map[int64]struct{}
	audit      []AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		recipients: map[string]map[int64]Recipient{},
		admins:     map[string]map[int64]struct{}{},
	}
}

func (m *Memory) Recipients(_ context.Context, tenantID string) ([]Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	rows := m.recipients[tenantID]
	out := make([]Recipient, 0, len(rows))
	for _, r := range rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Recipient(_ context.Context, tenantID string, id int64) (Recipient, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Recipient{}, false, ErrClosed
	}
	r, ok := m.recipients[tenantID][id]
	return r, ok, nil
}

func (m *Memory) UpsertRecipient(_ context.Context, r Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	rows := m.recipients[r.TenantID]
	if rows == nil {
		rows = map[int64]Recipient{}
		m.recipients[r.TenantID] = rows
	}
	rows[r.ID] = r
	return nil
}

// SetReachable is a no-op for unknown rows, like an UPDATE matching nothing.
func (m *Memory) SetReachable(_ context.Context, tenantID string, id int64, reachable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if r, ok := m.recipients[tenantID][id]; ok {
		r.Reachable = reachable
		m.recipients[tenantID][id] = r
	}
	return nil
}

func (m *Memory) DeleteRecipient(_ context.Context, tenantID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.recipients[tenantID], id)
	return nil
}

func (m *Memory) IsTenantAdmin(_ context.Context, tenantID string, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.admins[tenantID][userID]
	return ok, nil
}

func (m *Memory) AddTenantAdmin(_ context.Context, tenantID string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	set := m.admins[tenantID]
	if set == nil {
		set = map[int64]struct{}{}
		m.admins[tenantID] = set
	}
	set[userID] = struct{}{}
	return nil
}

func (m *Memory) AppendAudit(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	m.audit = append(m.audit, e)
	return nil
}

// Audit returns a copy of the audit log.
func (m *Memory) Audit() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEntry(nil), m.audit...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
