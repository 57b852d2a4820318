// internal/storage/modules.go
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/model"
)

const moduleColumns = `id, tenant_id, module_name, module_slug, is_enabled, price_override, config, created_at`

func (s *Storage) ListModules(ctx context.Context, tenantID uuid.UUID) ([]model.TenantModule, error) {
	modules := []model.TenantModule{}
	err := s.DB.SelectContext(ctx, &modules,
		`SELECT `+moduleColumns+` FROM tenant_modules WHERE tenant_id = $1 ORDER BY module_name`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list modules")
	}
	return modules, nil
}

// ReplaceModules swaps the tenant's whole module set inside one transaction.
// The tenant row is locked first so concurrent replaces for the same tenant
// serialize and the last commit wins. Any failure rolls everything back.
func (s *Storage) ReplaceModules(ctx context.Context, tenantID uuid.UUID, modules []model.TenantModule) (out []model.TenantModule, err error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrapf(apperr.ErrEntitlementWriteFailure, "begin: %v", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked uuid.UUID
	err = tx.GetContext(ctx, &locked, `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(apperr.ErrTenantNotFound, "tenant %s", tenantID)
	}
	if err != nil {
		return nil, errors.Wrapf(apperr.ErrEntitlementWriteFailure, "lock tenant: %v", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM tenant_modules WHERE tenant_id = $1`, tenantID); err != nil {
		return nil, errors.Wrapf(apperr.ErrEntitlementWriteFailure, "delete modules: %v", err)
	}

	now := time.Now().UTC()
	out = make([]model.TenantModule, 0, len(modules))
	for _, m := range modules {
		m.ID = uuid.New()
		m.TenantID = tenantID
		m.CreatedAt = now
		if len(m.Config) == 0 {
			m.Config = []byte("{}")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tenant_modules (id, tenant_id, module_name, module_slug, is_enabled, price_override, config, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.ID, m.TenantID, m.ModuleName, m.ModuleSlug, m.IsEnabled, m.PriceOverride, string(m.Config), m.CreatedAt)
		if err != nil {
			return nil, errors.Wrapf(apperr.ErrEntitlementWriteFailure, "insert module %s: %v", m.ModuleSlug, err)
		}
		out = append(out, m)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrapf(apperr.ErrEntitlementWriteFailure, "commit: %v", err)
	}
	return out, nil
}
