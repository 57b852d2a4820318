package worker

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"school-controlplane/internal/metrics"
	"school-controlplane/internal/model"
)

// JobHandler runs one sync job. It reports failures through its own result,
// so a job is acknowledged once the handler returns.
type JobHandler func(ctx context.Context, job model.SyncJob)

// Pool runs a fixed number of workers over queued sync job deliveries.
type Pool struct {
	workers int
	handle  JobHandler
	logger  *zap.Logger

	jobs     chan amqp.Delivery
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewPool(workers int, handle JobHandler, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		handle:  handle,
		logger:  logger,
		jobs:    make(chan amqp.Delivery),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("starting sync worker pool", zap.Int("workers", p.workers))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

// Submit blocks until a worker takes the delivery. It must not be called after Stop.
func (p *Pool) Submit(d amqp.Delivery) {
	p.jobs <- d
}

// Stop lets in-flight jobs finish and waits for every worker to exit.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobs)
		p.wg.Wait()
		p.logger.Info("sync worker pool stopped")
	})
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	metrics.WorkerActive.Inc()
	defer metrics.WorkerActive.Dec()

	for d := range p.jobs {
		p.process(ctx, d)
	}
}

func (p *Pool) process(ctx context.Context, d amqp.Delivery) {
	var job model.SyncJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.TenantID == uuid.Nil {
		p.logger.Warn("rejecting malformed sync job", zap.ByteString("body", d.Body), zap.Error(err))
		_ = d.Reject(false) // send to DLQ
		return
	}

	p.handle(ctx, job)
	if err := d.Ack(false); err != nil {
		p.logger.Warn("failed to ack sync job", zap.String("tenant_id", job.TenantID.String()), zap.Error(err))
		return
	}
	metrics.SyncJobsProcessed.Inc()
}
