// internal/storage/tenants.go
package storage

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/model"
)

const tenantColumns = `id, name, code, subdomain, server_url, server_ip, database_name, plan_type,
	admin_name, admin_email, admin_phone, monthly_price, status, created_at, updated_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (s *Storage) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	tenants := []model.Tenant{}
	if err := s.DB.SelectContext(ctx, &tenants,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "failed to list tenants")
	}
	return tenants, nil
}

func (s *Storage) GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var t model.Tenant
	err := s.DB.GetContext(ctx, &t, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(apperr.ErrTenantNotFound, "tenant %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tenant")
	}
	return &t, nil
}

func (s *Storage) CreateTenant(ctx context.Context, t *model.Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO tenants (id, name, code, subdomain, server_url, server_ip, database_name, plan_type,
			admin_name, admin_email, admin_phone, monthly_price, status, created_at, updated_at)
		VALUES (:id, :name, :code, :subdomain, :server_url, :server_ip, :database_name, :plan_type,
			:admin_name, :admin_email, :admin_phone, :monthly_price, :status, :created_at, :updated_at)`, t)
	if isUniqueViolation(err) {
		return errors.Wrap(apperr.ErrValidation, "tenant code or subdomain already exists")
	}
	return errors.Wrap(err, "failed to insert tenant")
}

// UpdateTenant writes only the fields carried by upd and returns the stored row.
func (s *Storage) UpdateTenant(ctx context.Context, id uuid.UUID, upd model.TenantUpdate) (*model.Tenant, error) {
	cols := upd.Columns()
	if len(cols) == 0 {
		return s.GetTenant(ctx, id)
	}
	cols["updated_at"] = time.Now().UTC()

	query, args, err := psql.Update("tenants").
		SetMap(cols).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + tenantColumns).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build tenant update")
	}

	var t model.Tenant
	err = s.DB.GetContext(ctx, &t, query, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, errors.Wrapf(apperr.ErrTenantNotFound, "tenant %s", id)
	case isUniqueViolation(err):
		return nil, errors.Wrap(apperr.ErrValidation, "tenant code or subdomain already exists")
	case err != nil:
		return nil, errors.Wrap(err, "failed to update tenant")
	}
	return &t, nil
}

// UpsertUsage stores one month of usage; a second write for the same
// (tenant, period) overwrites the first.
func (s *Storage) UpsertUsage(ctx context.Context, u *model.TenantUsage) error {
	if u.FeaturesUsed == nil {
		u.FeaturesUsed = []string{}
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tenant_usage (tenant_id, period_date, active_users, total_students,
			storage_used_mb, api_calls_count, features_used, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (tenant_id, period_date) DO UPDATE SET
			active_users    = EXCLUDED.active_users,
			total_students  = EXCLUDED.total_students,
			storage_used_mb = EXCLUDED.storage_used_mb,
			api_calls_count = EXCLUDED.api_calls_count,
			features_used   = EXCLUDED.features_used,
			updated_at      = NOW()`,
		u.TenantID, model.PeriodStart(u.PeriodDate), u.ActiveUsers, u.TotalStudents,
		u.StorageUsedMB, u.APICallsCount, u.FeaturesUsed)
	return errors.Wrap(err, "failed to upsert usage")
}

// ListUsage returns usage rows for a tenant, newest period first.
func (s *Storage) ListUsage(ctx context.Context, tenantID uuid.UUID) ([]model.TenantUsage, error) {
	usage := []model.TenantUsage{}
	err := s.DB.SelectContext(ctx, &usage, `
		SELECT tenant_id, period_date, active_users, total_students, storage_used_mb,
			api_calls_count, features_used, updated_at
		FROM tenant_usage
		WHERE tenant_id = $1
		ORDER BY period_date DESC`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list usage")
	}
	return usage, nil
}
