package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/model"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *Storage) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewFromDB(db)
}

var tenantCols = []string{
	"id", "name", "code", "subdomain", "server_url", "server_ip", "database_name", "plan_type",
	"admin_name", "admin_email", "admin_phone", "monthly_price", "status", "created_at", "updated_at",
}

func tenantRow(id uuid.UUID, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(tenantCols).AddRow(
		id.String(), "Greenfield High", "GFH", "greenfield", "https://t1.example", "10.0.0.4", "gfh_prod", "premium",
		"Ana", "ana@greenfield.example", "", 499.0, status, now, now,
	)
}

func TestGetTenant(t *testing.T) {
	mock, s := setupMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM tenants WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(tenantRow(id, "active"))

	tenant, err := s.GetTenant(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, tenant.ID)
	assert.Equal(t, "https://t1.example", tenant.ServerURL)
	assert.Equal(t, model.TenantActive, tenant.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTenant_NotFound(t *testing.T) {
	mock, s := setupMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM tenants WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(tenantCols))

	tenant, err := s.GetTenant(context.Background(), id)
	assert.Nil(t, tenant)
	assert.True(t, errors.Is(err, apperr.ErrTenantNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTenant_StatusOnly(t *testing.T) {
	mock, s := setupMockDB(t)
	id := uuid.New()
	status := model.TenantSuspended

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE tenants SET status = $1, updated_at = $2 WHERE id = $3 RETURNING`)).
		WithArgs("suspended", sqlmock.AnyArg(), id).
		WillReturnRows(tenantRow(id, "suspended"))

	tenant, err := s.UpdateTenant(context.Background(), id, model.TenantUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.TenantSuspended, tenant.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTenant_NotFound(t *testing.T) {
	mock, s := setupMockDB(t)
	id := uuid.New()
	name := "Renamed"

	mock.ExpectQuery(`UPDATE tenants SET`).
		WillReturnRows(sqlmock.NewRows(tenantCols))

	_, err := s.UpdateTenant(context.Background(), id, model.TenantUpdate{Name: &name})
	assert.True(t, errors.Is(err, apperr.ErrTenantNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUsage_NormalizesPeriod(t *testing.T) {
	mock, s := setupMockDB(t)
	id := uuid.New()

	mock.ExpectExec(`INSERT INTO tenant_usage .* ON CONFLICT \(tenant_id, period_date\) DO UPDATE`).
		WithArgs(id, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), 12, 340, 52.5, int64(9000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertUsage(context.Background(), &model.TenantUsage{
		TenantID:      id,
		PeriodDate:    time.Date(2026, time.October, 15, 13, 4, 0, 0, time.UTC),
		ActiveUsers:   12,
		TotalStudents: 340,
		StorageUsedMB: 52.5,
		APICallsCount: 9000,
		FeaturesUsed:  []string{"payroll", "attendance"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func moduleFixtures() []model.TenantModule {
	price := 25.0
	return []model.TenantModule{
		{ModuleName: "Payroll", ModuleSlug: "payroll", IsEnabled: true, PriceOverride: &price},
		{ModuleName: "Attendance", ModuleSlug: "attendance", IsEnabled: true},
		{ModuleName: "Leave", ModuleSlug: "leave", IsEnabled: false},
	}
}

func TestReplaceModules_Commit(t *testing.T) {
	mock, s := setupMockDB(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tenants WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))
	mock.ExpectExec(`DELETE FROM tenant_modules WHERE tenant_id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 2))
	for range moduleFixtures() {
		mock.ExpectExec(`INSERT INTO tenant_modules`).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	out, err := s.ReplaceModules(context.Background(), id, moduleFixtures())
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, m := range out {
		assert.Equal(t, id, m.TenantID)
		assert.NotEqual(t, uuid.Nil, m.ID)
		assert.JSONEq(t, `{}`, string(m.Config))
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceModules_RollbackOnInsertFailure(t *testing.T) {
	mock, s := setupMockDB(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tenants WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))
	mock.ExpectExec(`DELETE FROM tenant_modules`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO tenant_modules`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO tenant_modules`).WillReturnError(errors.New("duplicate key value"))
	mock.ExpectRollback()

	out, err := s.ReplaceModules(context.Background(), id, moduleFixtures())
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, apperr.ErrEntitlementWriteFailure))
	assert.Contains(t, err.Error(), "attendance")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceModules_UnknownTenant(t *testing.T) {
	mock, s := setupMockDB(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tenants`).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.ReplaceModules(context.Background(), id, moduleFixtures())
	assert.True(t, errors.Is(err, apperr.ErrTenantNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOperatorByEmail_NotFound(t *testing.T) {
	mock, s := setupMockDB(t)

	mock.ExpectQuery(`SELECT .* FROM operators WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetOperatorByEmail(context.Background(), " ghost@example.com ")
	assert.True(t, errors.Is(err, apperr.ErrOperatorNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
