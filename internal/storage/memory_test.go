package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.UpsertRecipient(ctx, Recipient{ID: 5, TenantID: "promo_bot", Reachable: true}))
	require.NoError(t, m.UpsertRecipient(ctx, Recipient{ID: 3, TenantID: "promo_bot"}))

	got, err := m.Recipients(ctx, "promo_bot")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)

	require.NoError(t, m.SetReachable(ctx, "promo_bot", 3, true))
	require.NoError(t, m.SetReachable(ctx, "promo_bot", 99, true))
	r, ok, err := m.Recipient(ctx, "promo_bot", 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, r.Reachable)
	_, ok, _ = m.Recipient(ctx, "promo_bot", 99)
	assert.False(t, ok, "SetReachable must not create rows")

	require.NoError(t, m.DeleteRecipient(ctx, "promo_bot", 5))
	got, _ = m.Recipients(ctx, "promo_bot")
	assert.Len(t, got, 1)

	require.NoError(t, m.AppendAudit(ctx, AuditEntry{Action: "x"}))
	assert.Len(t, m.Audit(), 1)
	assert.False(t, m.Audit()[0].At.IsZero())

	require.NoError(t, m.Close())
	_, err = m.Recipients(ctx, "promo_bot")
	assert.ErrorIs(t, err, ErrClosed)
}
