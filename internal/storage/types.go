package storage

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

type Config struct {
	Driver       string
	Path         string // sqlite
	DSN          string // postgres
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// Recipient is one addressable user of a tenant.
type Recipient struct {
	ID        int64  `db:"recipient_id"`
	TenantID  string `db:"tenant_id"`
	Locale    string `db:"locale"`
	Reachable bool   `db:"reachable"`
}

// AuditEntry records an operator-visible action (denied broadcast,
// removed recipient, finished run).
type AuditEntry struct {
	At       time.Time
	ActorID  int64
	TenantID string
	Action   string
	Target   string
	OK       int
	Fail     int
	Error    string
	TookMS   int64
	Meta     string
}

type Store interface {
	Recipients(ctx context.Context, tenantID string) ([]Recipient, error)
	Recipient(ctx context.Context, tenantID string, id int64) (Recipient, bool, error)
	UpsertRecipient(ctx context.Context, r Recipient) error
	SetReachable(ctx context.Context, tenantID string, id int64, reachable bool) error
	DeleteRecipient(ctx context.Context, tenantID string, id int64) error

	IsTenantAdmin(ctx context.Context, tenantID string, userID int64) (bool, error)
	AddTenantAdmin(ctx context.Context, tenantID string, userID int64) error

	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}
