package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/auth"
	"school-controlplane/internal/entitlement"
	"school-controlplane/internal/metrics"
	"school-controlplane/internal/model"
)

func (a *API) Router() http.Handler {
	a.Routers.Use(middleware.RequestID, middleware.RealIP, a.requestLogger, middleware.Recoverer)

	// Public
	a.Routers.Get("/healthz", a.Liveness)
	a.Routers.Handle("/metrics", metrics.Handler())
	a.Routers.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	a.Routers.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", a.Login)

		// Secured
		r.Group(func(r chi.Router) {
			r.Use(a.Auth.Middleware)

			r.Get("/auth/me", a.Me)
			r.Get("/tenants", a.ListTenants)
			r.Post("/tenants", a.CreateTenant)
			r.Post("/tenants/sync", a.SyncFleet)
			r.Get("/tenants/{id}", a.GetTenant)
			r.Put("/tenants/{id}", a.UpdateTenant)
			r.Post("/tenants/{id}/suspend", a.SuspendTenant)
			r.Post("/tenants/{id}/activate", a.ActivateTenant)
			r.Get("/tenants/{id}/usage", a.TenantUsage)
			r.Get("/tenants/{id}/health", a.TenantHealth)
			r.Post("/tenants/{id}/sync", a.SyncTenant)
			r.Get("/tenants/{id}/modules", a.GetModules)
			r.Post("/tenants/{id}/modules", a.ReplaceModules)
		})
	})

	return a.Routers
}

// @Summary Liveness probe
// @Tags System
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (a *API) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// @Summary Operator login
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} auth.LoginResult
// @Failure 401 {object} errorResponse
// @Router /api/auth/login [post]
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decode(w, r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.Auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Current operator
// @Tags Auth
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} model.Operator
// @Router /api/auth/me [get]
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.OperatorFromContext(r.Context()))
}

// @Summary List tenants
// @Tags Tenants
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {array} model.Tenant
// @Router /api/tenants [get]
func (a *API) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := a.Registry.List(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

// @Summary Register a tenant
// @Tags Tenants
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body model.Tenant true "Tenant"
// @Success 201 {object} model.Tenant
// @Failure 400 {object} errorResponse
// @Router /api/tenants [post]
func (a *API) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var body model.Tenant
	if err := decode(w, r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}

	tenant, err := a.Registry.Create(r.Context(), &body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

// @Summary Get a tenant
// @Tags Tenants
// @Security ApiKeyAuth
// @Produce json
// @Param id path string true "Tenant UUID"
// @Success 200 {object} model.Tenant
// @Failure 404 {object} errorResponse
// @Router /api/tenants/{id} [get]
func (a *API) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	tenant, err := a.Registry.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// @Summary Update a tenant
// @Description Partial update: only the fields present in the body are written.
// @Tags Tenants
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path string true "Tenant UUID"
// @Param body body model.TenantUpdate true "Fields to change"
// @Success 200 {object} model.Tenant
// @Router /api/tenants/{id} [put]
func (a *API) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var body model.TenantUpdate
	if err := decode(w, r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}

	tenant, err := a.Registry.Update(r.Context(), id, body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// @Summary Suspend a tenant
// @Tags Tenants
// @Security ApiKeyAuth
// @Param id path string true "Tenant UUID"
// @Success 200 {object} model.Tenant
// @Router /api/tenants/{id}/suspend [post]
func (a *API) SuspendTenant(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.Registry.Suspend)
}

// @Summary Activate a tenant
// @Tags Tenants
// @Security ApiKeyAuth
// @Param id path string true "Tenant UUID"
// @Success 200 {object} model.Tenant
// @Router /api/tenants/{id}/activate [post]
func (a *API) ActivateTenant(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.Registry.Activate)
}

func (a *API) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (*model.Tenant, error)) {
	id, err := tenantID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	tenant, err := fn(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// @Summary Monthly usage history
// @Tags Sync
// @Security ApiKeyAuth
// @Param id path string true "Tenant UUID"
// @Success 200 {array} model.TenantUsage
// @Router /api/tenants/{id}/usage [get]
func (a *API) TenantUsage(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if _, err := a.Registry.Get(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}

	usage, err := a.Usage.ListUsage(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

// @Summary Probe a tenant instance
// @Description Always 200 for a known tenant; an unreachable instance is reported as status "unhealthy".
// @Tags Sync
// @Security ApiKeyAuth
// @Param id path string true "Tenant UUID"
// @Success 200 {object} syncer.HealthResult
// @Router /api/tenants/{id}/health [get]
func (a *API) TenantHealth(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.Sync.CheckTenantHealth(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Pull usage statistics from a tenant instance
// @Tags Sync
// @Security ApiKeyAuth
// @Param id path string true "Tenant UUID"
// @Success 200 {object} map[string]interface{}
// @Router /api/tenants/{id}/sync [post]
func (a *API) SyncTenant(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	out := a.Sync.SyncTenantData(r.Context(), id)
	if errors.Is(out.Err, apperr.ErrTenantNotFound) {
		a.writeError(w, r, out.Err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// @Summary Queue a usage sync for every active tenant
// @Tags Sync
// @Security ApiKeyAuth
// @Success 202 {object} map[string]int
// @Failure 503 {object} errorResponse
// @Router /api/tenants/sync [post]
func (a *API) SyncFleet(w http.ResponseWriter, r *http.Request) {
	if a.Fleet == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "sync queue not configured"})
		return
	}

	n, err := a.Fleet.EnqueueAll(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": n})
}

// @Summary List licensed modules
// @Tags Modules
// @Security ApiKeyAuth
// @Param id path string true "Tenant UUID"
// @Success 200 {array} model.TenantModule
// @Router /api/tenants/{id}/modules [get]
func (a *API) GetModules(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	modules, err := a.Entitlements.GetModules(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

type replaceModulesRequest struct {
	Modules []entitlement.ModuleInput `json:"modules"`
}

// @Summary Replace the licensed module set
// @Description Atomic: the previous set is kept unless every module is written.
// @Tags Modules
// @Security ApiKeyAuth
// @Accept json
// @Param id path string true "Tenant UUID"
// @Param body body replaceModulesRequest true "Full module set"
// @Success 200 {array} model.TenantModule
// @Failure 500 {object} errorResponse
// @Router /api/tenants/{id}/modules [post]
func (a *API) ReplaceModules(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var body replaceModulesRequest
	if err := decode(w, r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}

	modules, err := a.Entitlements.ReplaceModules(r.Context(), id, body.Modules)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}
