// Package memstore is an in-memory stand-in for the Postgres storage, used
// by package tests that exercise services and handlers.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/model"
)

type Store struct {
	mu        sync.RWMutex
	operators map[uuid.UUID]model.Operator
	tenants   map[uuid.UUID]model.Tenant
	usage     map[string]model.TenantUsage
	modules   map[uuid.UUID][]model.TenantModule

	// FailModuleInsertAt makes ReplaceModules fail on the n-th insert (1-based).
	FailModuleInsertAt int
}

func New() *Store {
	return &Store{
		operators: make(map[uuid.UUID]model.Operator),
		tenants:   make(map[uuid.UUID]model.Tenant),
		usage:     make(map[string]model.TenantUsage),
		modules:   make(map[uuid.UUID][]model.TenantModule),
	}
}

func (s *Store) CreateOperator(_ context.Context, op *model.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	s.operators[op.ID] = *op
	return nil
}

func (s *Store) GetOperatorByEmail(_ context.Context, email string) (*model.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, op := range s.operators {
		if strings.EqualFold(op.Email, strings.TrimSpace(email)) {
			return &op, nil
		}
	}
	return nil, apperr.ErrOperatorNotFound
}

func (s *Store) GetOperatorByID(_ context.Context, id uuid.UUID) (*model.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operators[id]
	if !ok {
		return nil, apperr.ErrOperatorNotFound
	}
	return &op, nil
}

func (s *Store) ListTenants(_ context.Context) ([]model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetTenant(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, errors.Wrapf(apperr.ErrTenantNotFound, "tenant %s", id)
	}
	return &t, nil
}

func (s *Store) CreateTenant(_ context.Context, t *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tenants {
		if existing.Code == t.Code || existing.Subdomain == t.Subdomain {
			return errors.Wrap(apperr.ErrValidation, "tenant code or subdomain already exists")
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	s.tenants[t.ID] = *t
	return nil
}

func (s *Store) UpdateTenant(_ context.Context, id uuid.UUID, upd model.TenantUpdate) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, errors.Wrapf(apperr.ErrTenantNotFound, "tenant %s", id)
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&t.Name, upd.Name)
	apply(&t.Code, upd.Code)
	apply(&t.Subdomain, upd.Subdomain)
	apply(&t.ServerURL, upd.ServerURL)
	apply(&t.ServerIP, upd.ServerIP)
	apply(&t.DatabaseName, upd.DatabaseName)
	apply(&t.PlanType, upd.PlanType)
	apply(&t.AdminName, upd.AdminName)
	apply(&t.AdminEmail, upd.AdminEmail)
	apply(&t.AdminPhone, upd.AdminPhone)
	if upd.MonthlyPrice != nil {
		t.MonthlyPrice = *upd.MonthlyPrice
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	t.UpdatedAt = time.Now().UTC()
	s.tenants[id] = t
	return &t, nil
}

func (s *Store) UpsertUsage(_ context.Context, u *model.TenantUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := *u
	row.PeriodDate = model.PeriodStart(u.PeriodDate)
	row.UpdatedAt = time.Now().UTC()
	s.usage[usageKey(row.TenantID, row.PeriodDate)] = row
	return nil
}

func (s *Store) ListUsage(_ context.Context, tenantID uuid.UUID) ([]model.TenantUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.TenantUsage{}
	for _, u := range s.usage {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodDate.After(out[j].PeriodDate) })
	return out, nil
}

func (s *Store) ListModules(_ context.Context, tenantID uuid.UUID) ([]model.TenantModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.TenantModule{}, s.modules[tenantID]...), nil
}

// ReplaceModules builds the new set aside and swaps it in only when every
// insert succeeded, mirroring the transactional store.
func (s *Store) ReplaceModules(_ context.Context, tenantID uuid.UUID, modules []model.TenantModule) ([]model.TenantModule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenantID]; !ok {
		return nil, errors.Wrapf(apperr.ErrTenantNotFound, "tenant %s", tenantID)
	}

	next := make([]model.TenantModule, 0, len(modules))
	for i, m := range modules {
		if s.FailModuleInsertAt == i+1 {
			return nil, errors.Wrapf(apperr.ErrEntitlementWriteFailure, "insert module %s: injected failure", m.ModuleSlug)
		}
		m.ID = uuid.New()
		m.TenantID = tenantID
		m.CreatedAt = time.Now().UTC()
		if len(m.Config) == 0 {
			m.Config = []byte("{}")
		}
		next = append(next, m)
	}
	s.modules[tenantID] = next
	return append([]model.TenantModule{}, next...), nil
}

func usageKey(id uuid.UUID, period time.Time) string {
	return fmt.Sprintf("%s/%s", id, period.Format("2006-01-02"))
}
