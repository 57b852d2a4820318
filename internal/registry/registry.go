// Package registry manages tenant records and their active/suspended lifecycle.
package registry

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/model"
)

const defaultPlan = "basic"

type TenantStore interface {
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	CreateTenant(ctx context.Context, t *model.Tenant) error
	UpdateTenant(ctx context.Context, id uuid.UUID, upd model.TenantUpdate) (*model.Tenant, error)
}

// EventPublisher announces tenant lifecycle changes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev model.Event) error
}

// ClientInvalidator drops cached tenant clients.
type ClientInvalidator interface {
	Forget(tenantID uuid.UUID)
}

type Registry struct {
	store   TenantStore
	events  EventPublisher
	clients ClientInvalidator
	logger  *zap.Logger
}

func New(store TenantStore, events EventPublisher, clients ClientInvalidator, logger *zap.Logger) *Registry {
	return &Registry{store: store, events: events, clients: clients, logger: logger}
}

func (r *Registry) List(ctx context.Context) ([]model.Tenant, error) {
	return r.store.ListTenants(ctx)
}

func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	return r.store.GetTenant(ctx, id)
}

func (r *Registry) Create(ctx context.Context, t *model.Tenant) (*model.Tenant, error) {
	if t.Status == "" {
		t.Status = model.TenantActive
	}
	if t.PlanType == "" {
		t.PlanType = defaultPlan
	}
	upd := model.TenantUpdate{
		Name:         &t.Name,
		Code:         &t.Code,
		Subdomain:    &t.Subdomain,
		ServerURL:    &t.ServerURL,
		MonthlyPrice: &t.MonthlyPrice,
		Status:       &t.Status,
	}
	if err := normalize(&upd); err != nil {
		return nil, err
	}

	t.ID = uuid.New()
	if err := r.store.CreateTenant(ctx, t); err != nil {
		return nil, err
	}
	r.logger.Info("tenant created", zap.String("tenant_id", t.ID.String()), zap.String("code", t.Code))
	r.publish(ctx, model.EventTenantCreated, t.ID)
	return t, nil
}

// Update applies a partial update. A changed server_url evicts the cached client.
func (r *Registry) Update(ctx context.Context, id uuid.UUID, upd model.TenantUpdate) (*model.Tenant, error) {
	upd.Name, upd.Code = detach(upd.Name), detach(upd.Code)
	upd.Subdomain, upd.ServerURL = detach(upd.Subdomain), detach(upd.ServerURL)
	if err := normalize(&upd); err != nil {
		return nil, err
	}

	t, err := r.store.UpdateTenant(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if upd.ServerURL != nil {
		r.clients.Forget(id)
	}
	r.publish(ctx, model.EventTenantUpdated, id)
	return t, nil
}

// Suspend marks the tenant suspended. Suspension is a control-plane flag only;
// it does not block traffic to the instance.
func (r *Registry) Suspend(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	return r.transition(ctx, id, model.TenantSuspended, model.EventTenantSuspended)
}

func (r *Registry) Activate(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	return r.transition(ctx, id, model.TenantActive, model.EventTenantActivated)
}

// transition is a status-only partial update. Moving to the current status
// succeeds without writing.
func (r *Registry) transition(ctx context.Context, id uuid.UUID, to model.TenantStatus, ev model.EventType) (*model.Tenant, error) {
	current, err := r.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == to {
		return current, nil
	}

	t, err := r.store.UpdateTenant(ctx, id, model.TenantUpdate{Status: &to})
	if err != nil {
		return nil, err
	}
	r.logger.Info("tenant status changed",
		zap.String("tenant_id", id.String()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
	)
	r.publish(ctx, ev, id)
	return t, nil
}

func (r *Registry) publish(ctx context.Context, t model.EventType, id uuid.UUID) {
	if err := r.events.PublishEvent(ctx, model.NewEvent(t, id)); err != nil {
		r.logger.Warn("failed to publish tenant event",
			zap.String("event", string(t)),
			zap.String("tenant_id", id.String()),
			zap.Error(err),
		)
	}
}

// normalize cleans and checks every field the update carries, in place.
// Create runs the full record through it, so both paths enforce the same rules.
func normalize(upd *model.TenantUpdate) error {
	required := func(field string, v *string, clean func(string) string) error {
		if v == nil {
			return nil
		}
		*v = clean(*v)
		if *v == "" {
			return errors.Wrapf(apperr.ErrValidation, "%s is required", field)
		}
		return nil
	}
	if err := required("name", upd.Name, strings.TrimSpace); err != nil {
		return err
	}
	if err := required("code", upd.Code, strings.TrimSpace); err != nil {
		return err
	}
	if err := required("subdomain", upd.Subdomain, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	}); err != nil {
		return err
	}
	if upd.ServerURL != nil {
		*upd.ServerURL = strings.TrimRight(strings.TrimSpace(*upd.ServerURL), "/")
		if err := validateServerURL(*upd.ServerURL); err != nil {
			return err
		}
	}
	if upd.MonthlyPrice != nil && *upd.MonthlyPrice < 0 {
		return errors.Wrap(apperr.ErrValidation, "monthly_price must not be negative")
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return errors.Wrapf(apperr.ErrValidation, "unknown status %q", *upd.Status)
	}
	return nil
}

// detach copies v so normalizing never rewrites the caller's value.
func detach(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func validateServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(apperr.ErrValidation, "server_url %q must be an absolute http(s) URL", raw)
	}
	return nil
}
