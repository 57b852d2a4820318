// Package entitlement manages which feature modules a tenant is licensed for.
package entitlement

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/metrics"
	"school-controlplane/internal/model"
)

type ModuleStore interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	ListModules(ctx context.Context, tenantID uuid.UUID) ([]model.TenantModule, error)
	ReplaceModules(ctx context.Context, tenantID uuid.UUID, modules []model.TenantModule) ([]model.TenantModule, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, ev model.Event) error
}

// ModuleInput is one entry of a replace request.
type ModuleInput struct {
	ModuleName    string          `json:"module_name"`
	ModuleSlug    string          `json:"module_slug"`
	IsEnabled     *bool           `json:"is_enabled"`
	PriceOverride *float64        `json:"price_override"`
	Config        json.RawMessage `json:"config"`
}

type Manager struct {
	store  ModuleStore
	events EventPublisher
	logger *zap.Logger
}

func NewManager(store ModuleStore, events EventPublisher, logger *zap.Logger) *Manager {
	return &Manager{store: store, events: events, logger: logger}
}

func (m *Manager) GetModules(ctx context.Context, tenantID uuid.UUID) ([]model.TenantModule, error) {
	if _, err := m.store.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return m.store.ListModules(ctx, tenantID)
}

// ReplaceModules replaces the tenant's full module set. Either every module
// is written or the previous set stays untouched; a failed write is returned
// to the caller, never swallowed.
func (m *Manager) ReplaceModules(ctx context.Context, tenantID uuid.UUID, inputs []ModuleInput) ([]model.TenantModule, error) {
	modules, err := normalize(inputs)
	if err != nil {
		return nil, err
	}

	out, err := m.store.ReplaceModules(ctx, tenantID, modules)
	if err != nil {
		if !errors.Is(err, apperr.ErrTenantNotFound) {
			metrics.ModuleReplaces.WithLabelValues("failed").Inc()
			m.logger.Error("module replace rolled back", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		}
		return nil, err
	}

	metrics.ModuleReplaces.WithLabelValues("ok").Inc()
	m.logger.Info("tenant modules replaced", zap.String("tenant_id", tenantID.String()), zap.Int("count", len(out)))
	if err := m.events.PublishEvent(ctx, model.NewEvent(model.EventModulesReplaced, tenantID)); err != nil {
		m.logger.Warn("failed to publish modules event", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}
	return out, nil
}

func normalize(inputs []ModuleInput) ([]model.TenantModule, error) {
	seen := make(map[string]struct{}, len(inputs))
	modules := make([]model.TenantModule, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.ModuleName)
		slug := strings.ToLower(strings.TrimSpace(in.ModuleSlug))
		if name == "" || slug == "" {
			return nil, errors.Wrapf(apperr.ErrValidation, "module %d: module_name and module_slug are required", i)
		}
		if _, dup := seen[slug]; dup {
			return nil, errors.Wrapf(apperr.ErrValidation, "module %d: duplicate slug %q", i, slug)
		}
		seen[slug] = struct{}{}

		if in.PriceOverride != nil && *in.PriceOverride < 0 {
			return nil, errors.Wrapf(apperr.ErrValidation, "module %s: price_override must not be negative", slug)
		}
		if len(in.Config) > 0 && !json.Valid(in.Config) {
			return nil, errors.Wrapf(apperr.ErrValidation, "module %s: config is not valid JSON", slug)
		}

		enabled := true
		if in.IsEnabled != nil {
			enabled = *in.IsEnabled
		}
		modules = append(modules, model.TenantModule{
			ModuleName:    name,
			ModuleSlug:    slug,
			IsEnabled:     enabled,
			PriceOverride: in.PriceOverride,
			Config:        in.Config,
		})
	}
	return modules, nil
}
