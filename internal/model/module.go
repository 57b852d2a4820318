// internal/model/module.go
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TenantModule is one licensed feature module of a tenant.
type TenantModule struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	TenantID      uuid.UUID       `db:"tenant_id" json:"tenant_id"`
	ModuleName    string          `db:"module_name" json:"module_name"`
	ModuleSlug    string          `db:"module_slug" json:"module_slug"`
	IsEnabled     bool            `db:"is_enabled" json:"is_enabled"`
	PriceOverride *float64        `db:"price_override" json:"price_override"`
	Config        json.RawMessage `db:"config" json:"config"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
