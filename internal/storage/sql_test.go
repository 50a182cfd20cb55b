package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castbot/pkg/logx"
)

func newMockStore(t *testing.T) (*sqlStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newSQLStore(sqlx.NewDb(db, "postgres"), logx.Nop()), mock
}

func pg(q string) string { return regexp.QuoteMeta(sqlx.Rebind(sqlx.DOLLAR, q)) }

func TestSQLRecipients(t *testing.T) {
	st, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"recipient_id", "tenant_id", "locale", "reachable"}).
		AddRow(int64(1), "promo_bot", "ru", true).
		AddRow(int64(2), "promo_bot", "en", false)
	mock.ExpectQuery(pg(qRecipients)).WithArgs("promo_bot").WillReturnRows(rows)

	got, err := st.Recipients(context.Background(), "promo_bot")
	require.NoError(t, err)
	assert.Equal(t, []Recipient{
		{ID: 1, TenantID: "promo_bot", Locale: "ru", Reachable: true},
		{ID: 2, TenantID: "promo_bot", Locale: "en", Reachable: false},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRecipientsQueryError(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(pg(qRecipients)).WithArgs("promo_bot").WillReturnError(errors.New("connection refused"))

	_, err := st.Recipients(context.Background(), "promo_bot")
	assert.ErrorContains(t, err, "connection refused")
	assert.ErrorContains(t, err, "promo_bot")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRecipientNotFound(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(pg(qRecipient)).WithArgs("promo_bot", int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"recipient_id", "tenant_id", "locale", "reachable"}))

	_, found, err := st.Recipient(context.Background(), "promo_bot", 9)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLWrites(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(pg(qSetReachable)).WithArgs(false, "promo_bot", int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(pg(qDeleteRecipient)).WithArgs("promo_bot", int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(pg(qAppendAudit)).
		WithArgs(sqlmock.AnyArg(), int64(42), "promo_bot", "broadcast.denied", "promo_bot", int64(0), int64(0), nil, int64(0), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, st.SetReachable(ctx, "promo_bot", 7, false))
	require.NoError(t, st.DeleteRecipient(ctx, "promo_bot", 8))
	require.NoError(t, st.AppendAudit(ctx, AuditEntry{ActorID: 42, TenantID: "promo_bot", Action: "broadcast.denied", Target: "promo_bot"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLIsTenantAdmin(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(pg(qIsAdmin)).WithArgs("promo_bot", int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(pg(qIsAdmin)).WithArgs("promo_bot", int64(43)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	ok, err := st.IsTenantAdmin(context.Background(), "promo_bot", 42)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.IsTenantAdmin(context.Background(), "promo_bot", 43)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpsertRequiresTenant(t *testing.T) {
	st, mock := newMockStore(t)
	assert.Error(t, st.UpsertRecipient(context.Background(), Recipient{ID: 1}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
