package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"

	"castbot/pkg/logx"
)

const (
	qRecipients      = `SELECT recipient_id, tenant_id, locale, reachable FROM recipients WHERE tenant_id = ? ORDER BY recipient_id`
	qRecipient       = `SELECT recipient_id, tenant_id, locale, reachable FROM recipients WHERE tenant_id = ? AND recipient_id = ?`
	qUpsertRecipient = `INSERT INTO recipients(recipient_id, tenant_id, locale, reachable) VALUES(?, ?, ?, ?) ON CONFLICT(tenant_id, recipient_id) DO UPDATE SET locale = excluded.locale, reachable = excluded.reachable`
	qSetReachable    = `UPDATE recipients SET reachable = ? WHERE tenant_id = ? AND recipient_id = ?`
	qDeleteRecipient = `DELETE FROM recipients WHERE tenant_id = ? AND recipient_id = ?`
	qIsAdmin         = `SELECT COUNT(1) FROM tenant_admins WHERE tenant_id = ? AND user_id = ?`
	qAddAdmin        = `INSERT INTO tenant_admins(tenant_id, user_id) VALUES(?, ?) ON CONFLICT(tenant_id, user_id) DO NOTHING`
	qAppendAudit     = `INSERT INTO audit(at, actor_id, tenant_id, action, target, ok, fail, err, took_ms, meta) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// sqlStore serves both SQL drivers.
type sqlStore struct {
	db  *sqlx.DB
	log logx.Logger
}

func newSQLStore(db *sqlx.DB, log logx.Logger) *sqlStore {
	return &sqlStore{db: db, log: log}
}

func (s *sqlStore) q(query string) string { return s.db.Rebind(query) }

func (s *sqlStore) migrate(ctx context.Context, script string) error {
	if _, err := s.db.ExecContext(ctx, script); err != nil {
		return errors.Wrap(err, "migrate")
	}
	return nil
}

func (s *sqlStore) Recipients(ctx context.Context, tenantID string) ([]Recipient, error) {
	var out []Recipient
	if err := s.db.SelectContext(ctx, &out, s.q(qRecipients), tenantID); err != nil {
		return nil, errors.Wrapf(err, "select recipients of %q", tenantID)
	}
	return out, nil
}

func (s *sqlStore) Recipient(ctx context.Context, tenantID string, id int64) (Recipient, bool, error) {
	var r Recipient
	err := s.db.GetContext(ctx, &r, s.q(qRecipient), tenantID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Recipient{}, false, nil
	}
	if err != nil {
		return Recipient{}, false, errors.Wrapf(err, "get recipient %d", id)
	}
	return r, true, nil
}

func (s *sqlStore) UpsertRecipient(ctx context.Context, r Recipient) error {
	if strings.TrimSpace(r.TenantID) == "" {
		return errors.New("recipient without tenant")
	}
	_, err := s.db.ExecContext(ctx, s.q(qUpsertRecipient), r.ID, r.TenantID, r.Locale, r.Reachable)
	if err != nil {
		return errors.Wrapf(err, "upsert recipient %d", r.ID)
	}
	return nil
}

func (s *sqlStore) SetReachable(ctx context.Context, tenantID string, id int64, reachable bool) error {
	if _, err := s.db.ExecContext(ctx, s.q(qSetReachable), reachable, tenantID, id); err != nil {
		return errors.Wrapf(err, "set reachable=%v for %d", reachable, id)
	}
	return nil
}

func (s *sqlStore) DeleteRecipient(ctx context.Context, tenantID string, id int64) error {
	if _, err := s.db.ExecContext(ctx, s.q(qDeleteRecipient), tenantID, id); err != nil {
		return errors.Wrapf(err, "delete recipient %d", id)
	}
	return nil
}

func (s *sqlStore) IsTenantAdmin(ctx context.Context, tenantID string, userID int64) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.q(qIsAdmin), tenantID, userID); err != nil {
		return false, errors.Wrapf(err, "check admin %d of %q", userID, tenantID)
	}
	return n > 0, nil
}

func (s *sqlStore) AddTenantAdmin(ctx context.Context, tenantID string, userID int64) error {
	if _, err := s.db.ExecContext(ctx, s.q(qAddAdmin), tenantID, userID); err != nil {
		return errors.Wrapf(err, "add admin %d to %q", userID, tenantID)
	}
	return nil
}

func (s *sqlStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.q(qAppendAudit),
		e.At.UTC().Format(time.RFC3339Nano), e.ActorID, e.TenantID, e.Action, e.Target,
		e.OK, e.Fail, nullStr(e.Error), e.TookMS, nullStr(e.Meta),
	)
	if err != nil {
		return errors.Wrap(err, "append audit")
	}
	return nil
}

func (s *sqlStore) Close() error { return s.db.Close() }

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
