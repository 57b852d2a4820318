package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"school-controlplane/internal/auth"
	"school-controlplane/internal/entitlement"
	"school-controlplane/internal/model"
	"school-controlplane/internal/syncer"
)

type TenantRegistry interface {
	List(ctx context.Context) ([]model.Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	Create(ctx context.Context, t *model.Tenant) (*model.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, upd model.TenantUpdate) (*model.Tenant, error)
	Suspend(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	Activate(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
}

type UsageReader interface {
	ListUsage(ctx context.Context, tenantID uuid.UUID) ([]model.TenantUsage, error)
}

type SyncService interface {
	CheckTenantHealth(ctx context.Context, id uuid.UUID) (syncer.HealthResult, error)
	SyncTenantData(ctx context.Context, id uuid.UUID) syncer.SyncOutcome
}

type EntitlementManager interface {
	GetModules(ctx context.Context, tenantID uuid.UUID) ([]model.TenantModule, error)
	ReplaceModules(ctx context.Context, tenantID uuid.UUID, modules []entitlement.ModuleInput) ([]model.TenantModule, error)
}

// FleetSyncer queues a usage sync for every active tenant. Nil when no broker is configured.
type FleetSyncer interface {
	EnqueueAll(ctx context.Context) (int, error)
}

type API struct {
	Routers      *chi.Mux
	Auth         *auth.Authenticator
	Registry     TenantRegistry
	Usage        UsageReader
	Sync         SyncService
	Entitlements EntitlementManager
	Fleet        FleetSyncer
	Logger       *zap.Logger
}

func NewAPI(
	authn *auth.Authenticator,
	registry TenantRegistry,
	usage UsageReader,
	sync SyncService,
	entitlements EntitlementManager,
	fleet FleetSyncer,
	logger *zap.Logger,
) *API {
	return &API{
		Routers:      chi.NewRouter(),
		Auth:         authn,
		Registry:     registry,
		Usage:        usage,
		Sync:         sync,
		Entitlements: entitlements,
		Fleet:        fleet,
		Logger:       logger,
	}
}
