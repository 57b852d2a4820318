// Package syncer probes tenant instances and pulls their usage statistics.
package syncer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/metrics"
	"school-controlplane/internal/model"
	"school-controlplane/internal/tenantclient"
)

const (
	healthPath     = "/api/health"
	usageStatsPath = "/api/admin/usage-stats"
)

type TenantGetter interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
}

type UsageWriter interface {
	UpsertUsage(ctx context.Context, u *model.TenantUsage) error
}

type ClientProvider interface {
	Get(tenant *model.Tenant) *tenantclient.Client
}

type Service struct {
	tenants TenantGetter
	usage   UsageWriter
	clients ClientProvider
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(tenants TenantGetter, usage UsageWriter, clients ClientProvider, logger *zap.Logger) *Service {
	return &Service{
		tenants: tenants,
		usage:   usage,
		clients: clients,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckTenantHealth probes the tenant's health endpoint. The only error it
// returns is a failed tenant lookup; every failure talking to the instance
// is reported as an unhealthy result.
func (s *Service) CheckTenantHealth(ctx context.Context, id uuid.UUID) (HealthResult, error) {
	tenant, err := s.tenants.GetTenant(ctx, id)
	if err != nil {
		return HealthResult{}, err
	}
	return s.probe(ctx, tenant), nil
}

type healthBody struct {
	Version string `json:"version"`
}

func (s *Service) probe(ctx context.Context, tenant *model.Tenant) HealthResult {
	start := time.Now()
	resp, err := s.clients.Get(tenant).R().SetContext(ctx).Get(healthPath)
	elapsed := time.Since(start)
	metrics.HealthCheckDuration.Observe(elapsed.Seconds())

	if err == nil && !resp.IsSuccess() {
		err = errors.Errorf("unexpected status %s", resp.Status())
	}
	if err != nil {
		err = errors.Wrap(apperr.ErrTenantUnreachable, err.Error())
		s.logger.Warn("tenant health check failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
		metrics.HealthChecks.WithLabelValues(string(StatusUnhealthy)).Inc()
		return HealthResult{Status: StatusUnhealthy, Error: err.Error(), Timestamp: s.now().UTC()}
	}

	// a healthy instance with an unparseable body is still healthy
	var body healthBody
	_ = json.Unmarshal(resp.Body(), &body)

	metrics.HealthChecks.WithLabelValues(string(StatusHealthy)).Inc()
	ms := elapsed.Milliseconds()
	return HealthResult{
		Status:       StatusHealthy,
		ResponseTime: &ms,
		Version:      body.Version,
		Timestamp:    s.now().UTC(),
	}
}

type usageStats struct {
	ActiveUsers   int      `json:"active_users"`
	TotalStudents int      `json:"total_students"`
	StorageUsedMB float64  `json:"storage_used_mb"`
	APICallsCount int64    `json:"api_calls_count"`
	FeaturesUsed  []string `json:"features_used"`
}

func (u *usageStats) validate() error {
	if u.ActiveUsers < 0 || u.TotalStudents < 0 || u.StorageUsedMB < 0 || u.APICallsCount < 0 {
		return errors.New("negative usage counter")
	}
	return nil
}

// SyncTenantData pulls usage statistics and upserts them for the current
// month. It never returns an error: one tenant's failure must not stop a
// caller that syncs the whole fleet.
func (s *Service) SyncTenantData(ctx context.Context, id uuid.UUID) SyncOutcome {
	out := SyncOutcome{TenantID: id, At: s.now().UTC()}
	out.Err = s.syncUsage(ctx, id, out.At)
	out.OK = out.Err == nil

	if out.OK {
		metrics.SyncRuns.WithLabelValues("ok").Inc()
		s.logger.Info("tenant usage synced", zap.String("tenant_id", id.String()))
	} else {
		metrics.SyncRuns.WithLabelValues("failed").Inc()
		s.logger.Warn("tenant usage sync failed", zap.String("tenant_id", id.String()), zap.Error(out.Err))
	}
	return out
}

func (s *Service) syncUsage(ctx context.Context, id uuid.UUID, at time.Time) error {
	tenant, err := s.tenants.GetTenant(ctx, id)
	if err != nil {
		return err
	}

	resp, err := s.clients.Get(tenant).R().SetContext(ctx).Get(usageStatsPath)
	if err == nil && !resp.IsSuccess() {
		err = errors.Errorf("unexpected status %s", resp.Status())
	}
	if err != nil {
		return errors.Wrap(apperr.ErrTenantUnreachable, err.Error())
	}

	var stats *usageStats
	if err := json.Unmarshal(resp.Body(), &stats); err != nil {
		return errors.Wrap(err, "malformed usage stats")
	}
	if stats == nil {
		return errors.New("malformed usage stats: empty body")
	}
	if err := stats.validate(); err != nil {
		return errors.Wrap(err, "malformed usage stats")
	}

	features := stats.FeaturesUsed
	if features == nil {
		features = []string{}
	}
	return s.usage.UpsertUsage(ctx, &model.TenantUsage{
		TenantID:      tenant.ID,
		PeriodDate:    model.PeriodStart(at),
		ActiveUsers:   stats.ActiveUsers,
		TotalStudents: stats.TotalStudents,
		StorageUsedMB: stats.StorageUsedMB,
		APICallsCount: stats.APICallsCount,
		FeaturesUsed:  features,
	})
}
