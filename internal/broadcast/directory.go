package broadcast

import (
	"context"

	"castbot/internal/storage"
	"castbot/pkg/logx"
)

type audience struct {
	testMode  bool
	explicit  int64
	initiator int64
}

// fetchRecipients lists who a run sends to. Regular runs get every row of
// the tenant, reachable or not, so a success can bring a recipient back.
// Test runs get a single recipient, read but never required to exist.
func fetchRecipients(ctx context.Context, dir Directory, tenantID string, a audience) ([]storage.Recipient, error) {
	if !a.testMode {
		rows, err := dir.Recipients(ctx, tenantID)
		if err != nil {
			return nil, &DirectoryQueryError{TenantID: tenantID, Op: "list recipients", Err: err}
		}
		return rows, nil
	}

	id := a.explicit
	if id == 0 {
		id = a.initiator
	}
	r, found, err := dir.Recipient(ctx, tenantID, id)
	if err != nil {
		return nil, &DirectoryQueryError{TenantID: tenantID, Op: "get recipient", Err: err}
	}
	if !found {
		r = storage.Recipient{ID: id, TenantID: tenantID}
	}
	return []storage.Recipient{r}, nil
}

// initiatorLocale picks the caption locale for the initiator's own copy.
// The audience row wins; otherwise the directory is read, which never writes
// and so stays safe in test mode. A failed read falls back to the default
// caption.
func initiatorLocale(ctx context.Context, dir Directory, tenantID string, rs []storage.Recipient, id int64, log logx.Logger) string {
	for _, r := range rs {
		if r.ID == id {
			return r.Locale
		}
	}
	r, found, err := dir.Recipient(ctx, tenantID, id)
	if err != nil {
		log.Debug("initiator locale lookup failed", logx.Err(err))
		return ""
	}
	if !found {
		return ""
	}
	return r.Locale
}
