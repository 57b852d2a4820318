package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/model"
	"school-controlplane/internal/storage/memstore"
)

type recorder struct {
	mu        sync.Mutex
	events    []model.EventType
	forgotten []uuid.UUID
	fail      bool
}

func (r *recorder) PublishEvent(_ context.Context, ev model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.events = append(r.events, ev.Type)
	return nil
}

func (r *recorder) Forget(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgotten = append(r.forgotten, id)
}

func newRegistry() (*Registry, *recorder) {
	rec := &recorder{}
	return New(memstore.New(), rec, rec, zap.NewNop()), rec
}

func sampleTenant() *model.Tenant {
	return &model.Tenant{
		Name:      "Greenfield High",
		Code:      "GFH",
		Subdomain: "Greenfield",
		ServerURL: "https://t1.example/",
	}
}

func TestCreate(t *testing.T) {
	r, rec := newRegistry()

	tenant, err := r.Create(context.Background(), sampleTenant())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tenant.ID)
	assert.Equal(t, model.TenantActive, tenant.Status)
	assert.Equal(t, "basic", tenant.PlanType)
	assert.Equal(t, "greenfield", tenant.Subdomain)
	assert.Equal(t, "https://t1.example", tenant.ServerURL)
	assert.Equal(t, []model.EventType{model.EventTenantCreated}, rec.events)

	_, err = r.Create(context.Background(), sampleTenant())
	assert.True(t, errors.Is(err, apperr.ErrValidation), "duplicate code must be rejected")
}

func TestCreateValidation(t *testing.T) {
	r, _ := newRegistry()

	for name, mutate := range map[string]func(*model.Tenant){
		"no name":       func(t *model.Tenant) { t.Name = " " },
		"no code":       func(t *model.Tenant) { t.Code = "" },
		"no subdomain":  func(t *model.Tenant) { t.Subdomain = "" },
		"relative url":  func(t *model.Tenant) { t.ServerURL = "t1.example" },
		"ftp url":       func(t *model.Tenant) { t.ServerURL = "ftp://t1.example" },
		"bad status":    func(t *model.Tenant) { t.Status = "archived" },
		"negative cost": func(t *model.Tenant) { t.MonthlyPrice = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			tenant := sampleTenant()
			mutate(tenant)
			_, err := r.Create(context.Background(), tenant)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
		})
	}
}

func TestSuspendActivate(t *testing.T) {
	r, rec := newRegistry()
	tenant, err := r.Create(context.Background(), sampleTenant())
	require.NoError(t, err)

	got, err := r.Suspend(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TenantSuspended, got.Status)

	fetched, err := r.Get(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TenantSuspended, fetched.Status)

	// already suspended: no-op success, no event
	got, err = r.Suspend(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TenantSuspended, got.Status)

	got, err = r.Activate(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TenantActive, got.Status)

	assert.Equal(t, []model.EventType{
		model.EventTenantCreated,
		model.EventTenantSuspended,
		model.EventTenantActivated,
	}, rec.events)
}

func TestTransitionUnknownTenant(t *testing.T) {
	r, _ := newRegistry()

	_, err := r.Suspend(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, apperr.ErrTenantNotFound))
	_, err = r.Activate(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, apperr.ErrTenantNotFound))
}

func TestUpdateEvictsClientOnAddressChange(t *testing.T) {
	r, rec := newRegistry()
	tenant, err := r.Create(context.Background(), sampleTenant())
	require.NoError(t, err)

	name := "Greenfield Academy"
	got, err := r.Update(context.Background(), tenant.ID, model.TenantUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Empty(t, rec.forgotten)

	moved := "https://t1-new.example/"
	got, err = r.Update(context.Background(), tenant.ID, model.TenantUpdate{ServerURL: &moved})
	require.NoError(t, err)
	assert.Equal(t, "https://t1-new.example", got.ServerURL)
	assert.Equal(t, []uuid.UUID{tenant.ID}, rec.forgotten)

	bad := "nowhere"
	_, err = r.Update(context.Background(), tenant.ID, model.TenantUpdate{ServerURL: &bad})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestUpdateAppliesCreateRules(t *testing.T) {
	r, _ := newRegistry()
	tenant, err := r.Create(context.Background(), sampleTenant())
	require.NoError(t, err)

	blank := "   "
	for name, upd := range map[string]model.TenantUpdate{
		"empty name":      {Name: &blank},
		"empty code":      {Code: &blank},
		"empty subdomain": {Subdomain: &blank},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Update(context.Background(), tenant.ID, upd)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
		})
	}

	unchanged, err := r.Get(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Greenfield High", unchanged.Name)
	assert.Equal(t, "GFH", unchanged.Code)

	name, code, sub := "  Greenfield Academy ", " GFA ", "  MiXeD  "
	got, err := r.Update(context.Background(), tenant.ID, model.TenantUpdate{Name: &name, Code: &code, Subdomain: &sub})
	require.NoError(t, err)
	assert.Equal(t, "Greenfield Academy", got.Name)
	assert.Equal(t, "GFA", got.Code)
	assert.Equal(t, "mixed", got.Subdomain)
	assert.Equal(t, "  MiXeD  ", sub, "caller's value is left alone")
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	r, rec := newRegistry()
	rec.fail = true

	tenant, err := r.Create(context.Background(), sampleTenant())
	require.NoError(t, err)
	_, err = r.Suspend(context.Background(), tenant.ID)
	require.NoError(t, err)
}
