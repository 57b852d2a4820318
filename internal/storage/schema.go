// internal/storage/schema.go
package storage

import (
	"context"

	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS operators (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'super_admin',
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tenants (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	code          TEXT NOT NULL UNIQUE,
	subdomain     TEXT NOT NULL UNIQUE,
	server_url    TEXT NOT NULL,
	server_ip     TEXT NOT NULL DEFAULT '',
	database_name TEXT NOT NULL DEFAULT '',
	plan_type     TEXT NOT NULL DEFAULT 'basic',
	admin_name    TEXT NOT NULL DEFAULT '',
	admin_email   TEXT NOT NULL DEFAULT '',
	admin_phone   TEXT NOT NULL DEFAULT '',
	monthly_price NUMERIC(12,2) NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'suspended')),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tenant_usage (
	tenant_id       UUID NOT NULL REFERENCES tenants(id),
	period_date     DATE NOT NULL,
	active_users    INTEGER NOT NULL DEFAULT 0,
	total_students  INTEGER NOT NULL DEFAULT 0,
	storage_used_mb DOUBLE PRECISION NOT NULL DEFAULT 0,
	api_calls_count BIGINT NOT NULL DEFAULT 0,
	features_used   TEXT[] NOT NULL DEFAULT '{}',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (tenant_id, period_date)
);

CREATE TABLE IF NOT EXISTS tenant_modules (
	id             UUID PRIMARY KEY,
	tenant_id      UUID NOT NULL REFERENCES tenants(id),
	module_name    TEXT NOT NULL,
	module_slug    TEXT NOT NULL,
	is_enabled     BOOLEAN NOT NULL DEFAULT TRUE,
	price_override NUMERIC(12,2),
	config         JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (tenant_id, module_slug)
);
`

// Migrate creates the control-plane tables if they do not exist.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
