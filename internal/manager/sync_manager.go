// internal/manager/sync_manager.go
package manager

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"school-controlplane/internal/consumer"
	"school-controlplane/internal/messaging"
	"school-controlplane/internal/model"
	"school-controlplane/internal/syncer"
	"school-controlplane/internal/worker"
)

type JobPublisher interface {
	PublishSyncJob(ctx context.Context, job model.SyncJob) error
}

type TenantLister interface {
	ListTenants(ctx context.Context) ([]model.Tenant, error)
}

type TenantSyncer interface {
	SyncTenantData(ctx context.Context, id uuid.UUID) syncer.SyncOutcome
}

// SyncManager fans fleet-wide usage syncs out over the job queue and runs
// the consumer that feeds them to the worker pool.
type SyncManager struct {
	rabbitConn *amqp.Connection
	jobs       JobPublisher
	tenants    TenantLister
	syncer     TenantSyncer
	workers    int
	logger     *zap.Logger

	mu       sync.Mutex
	consumer *consumer.Consumer
	pool     *worker.Pool
}

func NewSyncManager(
	rabbitConn *amqp.Connection,
	jobs JobPublisher,
	tenants TenantLister,
	syncer TenantSyncer,
	workers int,
	logger *zap.Logger,
) *SyncManager {
	return &SyncManager{
		rabbitConn: rabbitConn,
		jobs:       jobs,
		tenants:    tenants,
		syncer:     syncer,
		workers:    workers,
		logger:     logger,
	}
}

// Start launches the worker pool and the queue consumer.
func (m *SyncManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.consumer != nil {
		return nil // already running
	}

	pool := worker.NewPool(m.workers, m.handleJob, m.logger)
	pool.Start(ctx)

	c, err := consumer.StartConsumer(m.rabbitConn, messaging.SyncQueue, m.workers, pool.Submit, m.logger)
	if err != nil {
		pool.Stop()
		return err
	}
	m.pool, m.consumer = pool, c
	return nil
}

// EnqueueAll queues one sync job per active tenant and returns how many were queued.
// Suspended tenants are skipped.
func (m *SyncManager) EnqueueAll(ctx context.Context) (int, error) {
	tenants, err := m.tenants.ListTenants(ctx)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, t := range tenants {
		if t.Status != model.TenantActive {
			continue
		}
		if err := m.jobs.PublishSyncJob(ctx, model.SyncJob{TenantID: t.ID}); err != nil {
			return queued, errors.Wrapf(err, "queued %d of %d sync jobs", queued, len(tenants))
		}
		queued++
	}
	m.logger.Info("fleet sync queued", zap.Int("jobs", queued))
	return queued, nil
}

func (m *SyncManager) handleJob(ctx context.Context, job model.SyncJob) {
	m.syncer.SyncTenantData(ctx, job.TenantID)
}

// Shutdown stops consuming and waits for in-flight jobs.
func (m *SyncManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.consumer != nil {
		m.consumer.Stop()
		m.consumer = nil
	}
	if m.pool != nil {
		m.pool.Stop()
		m.pool = nil
	}
}
