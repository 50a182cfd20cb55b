package broadcast

import (
	"context"
	"slices"

	"castbot/internal/storage"
	"castbot/pkg/logx"
)

// gate decides whether an initiator may broadcast to a tenant: global
// owners always may, everyone else must be listed as a tenant admin.
type gate struct {
	dir    Directory
	audit  AuditLog
	owners []int64
	log    logx.Logger
}

// Authorize returns false for a denied initiator after recording the
// attempt in the audit log. A failing ownership lookup is a
// *DirectoryQueryError.
func (g gate) Authorize(ctx context.Context, tenantID string, initiatorID int64) (bool, error) {
	if slices.Contains(g.owners, initiatorID) {
		return true, nil
	}
	ok, err := g.dir.IsTenantAdmin(ctx, tenantID, initiatorID)
	if err != nil {
		return false, &DirectoryQueryError{TenantID: tenantID, Op: "ownership check", Err: err}
	}
	if ok {
		return true, nil
	}

	g.log.Warn("broadcast denied", logx.String("tenant", tenantID), logx.Int64("initiator", initiatorID))
	if g.audit != nil {
		e := storage.AuditEntry{ActorID: initiatorID, TenantID: tenantID, Action: "broadcast.denied", Target: tenantID, Fail: 1}
		if err := g.audit.AppendAudit(ctx, e); err != nil {
			g.log.Error("audit append failed", logx.String("action", e.Action), logx.Err(err))
		}
	}
	return false, nil
}
