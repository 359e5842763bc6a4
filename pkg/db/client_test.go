package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/dbtest"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

func countTenants(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.Tenant{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	conn := dbtest.Open(t)
	client := Wrap(conn)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		dbtest.SeedTenant(t, tx, enums.PlanFree)
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countTenants(t, conn))
}

func TestWithTxRollsBackOnErrorAndPanic(t *testing.T) {
	conn := dbtest.Open(t)
	client := Wrap(conn)
	boom := errors.New("boom")

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		dbtest.SeedTenant(t, tx, enums.PlanFree)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, countTenants(t, conn))

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			dbtest.SeedTenant(t, tx, enums.PlanFree)
			panic("mid-transaction")
		})
	})
	assert.Zero(t, countTenants(t, conn))
}

func TestPing(t *testing.T) {
	client := Wrap(dbtest.Open(t))
	require.NoError(t, client.Ping(context.Background()))
	assert.Same(t, client.conn, client.DB())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil, ""))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_webhook_events_provider_event"}
	assert.True(t, IsUniqueViolation(pgErr, "ux_webhook_events_provider_event"))
	assert.False(t, IsUniqueViolation(pgErr, "ux_other"))

	sqliteErr := errors.New("UNIQUE constraint failed: webhook_events.provider, webhook_events.event_id")
	assert.True(t, IsUniqueViolation(sqliteErr, ""))
	assert.False(t, IsUniqueViolation(errors.New("connection reset"), ""))
}
