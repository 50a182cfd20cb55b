package broadcast

import (
	"context"
	"strconv"
	"strings"

	"castbot/internal/storage"
	"castbot/pkg/logx"
)

type effect int

const (
	effectNone effect = iota
	effectReachable
	effectUnreachable
	effectRemoved
)

// tracker writes reachability back to the directory. A read-only tracker
// (test runs) never writes.
type tracker struct {
	dir      Directory
	audit    AuditLog
	phrases  []string
	readOnly bool
	metrics  *Metrics
	log      logx.Logger
}

// MarkReachable flips the flag to true after any successful send.
func (t tracker) MarkReachable(ctx context.Context, tenantID string, id int64) error {
	if t.readOnly {
		return nil
	}
	err := t.dir.SetReachable(ctx, tenantID, id, true)
	t.metrics.directoryWrite("set_reachable", err)
	return err
}

// MarkUnreachable flips the flag to false only when reason contains one of
// the configured phrases. It reports whether the phrase matched.
func (t tracker) MarkUnreachable(ctx context.Context, tenantID string, id int64, reason string) (bool, error) {
	if !matchesPhrase(reason, t.phrases) {
		return false, nil
	}
	if t.readOnly {
		return true, nil
	}
	err := t.dir.SetReachable(ctx, tenantID, id, false)
	t.metrics.directoryWrite("set_unreachable", err)
	return true, err
}

// Remove deletes the recipient row after a hard failure.
func (t tracker) Remove(ctx context.Context, tenantID string, id int64, out Outcome) error {
	if t.readOnly {
		return nil
	}
	err := t.dir.DeleteRecipient(ctx, tenantID, id)
	t.metrics.directoryWrite("delete", err)
	if err == nil && t.audit != nil {
		e := storage.AuditEntry{
			TenantID: tenantID,
			Action:   "recipient.removed",
			Target:   strconv.FormatInt(id, 10),
			Error:    out.Reason,
			Meta:     "code=" + strconv.Itoa(out.Code),
		}
		if aerr := t.audit.AppendAudit(ctx, e); aerr != nil {
			t.log.Warn("audit append failed", logx.String("action", e.Action), logx.Err(aerr))
		}
	}
	return err
}

// apply routes one outcome to the matching write. Write errors are logged
// and reported as effectNone; they never stop the run.
func (t tracker) apply(ctx context.Context, tenantID string, id int64, out Outcome) effect {
	var (
		eff effect
		err error
	)
	switch out.Kind {
	case Sent:
		if err = t.MarkReachable(ctx, tenantID, id); err == nil && !t.readOnly {
			eff = effectReachable
		}
	case HardFailed:
		if err = t.Remove(ctx, tenantID, id, out); err == nil && !t.readOnly {
			eff = effectRemoved
		}
	case SoftFailed:
		var matched bool
		matched, err = t.MarkUnreachable(ctx, tenantID, id, out.Reason)
		if matched && err == nil && !t.readOnly {
			eff = effectUnreachable
		}
	}
	if err != nil {
		t.log.Error("directory update failed",
			logx.String("tenant", tenantID), logx.Int64("recipient", id),
			logx.String("outcome", out.Kind.String()), logx.Err(err))
		return effectNone
	}
	return eff
}

func matchesPhrase(reason string, phrases []string) bool {
	reason = strings.ToLower(reason)
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" && strings.Contains(reason, p) {
			return true
		}
	}
	return false
}
