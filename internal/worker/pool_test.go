package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"school-controlplane/internal/model"
)

type fakeAcknowledger struct {
	mu       sync.Mutex
	acked    []uint64
	rejected []uint64
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, _ bool) error {
	return f.Reject(tag, false)
}

func (f *fakeAcknowledger) Reject(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, tag)
	return nil
}

func TestPoolProcessesJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []uuid.UUID
	)
	pool := NewPool(3, func(_ context.Context, job model.SyncJob) {
		mu.Lock()
		seen = append(seen, job.TenantID)
		mu.Unlock()
	}, zap.NewNop())
	pool.Start(context.Background())

	ack := &fakeAcknowledger{}
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	for i, id := range ids {
		pool.Submit(amqp.Delivery{
			Acknowledger: ack,
			DeliveryTag:  uint64(i + 1),
			Body:         []byte(`{"tenant_id":"` + id.String() + `"}`),
		})
	}
	pool.Submit(amqp.Delivery{Acknowledger: ack, DeliveryTag: 99, Body: []byte(`not json`)})
	pool.Submit(amqp.Delivery{Acknowledger: ack, DeliveryTag: 100, Body: []byte(`{}`)})
	pool.Stop()

	assert.ElementsMatch(t, ids, seen)
	assert.ElementsMatch(t, []uint64{1, 2, 3, 4}, ack.acked)
	assert.ElementsMatch(t, []uint64{99, 100}, ack.rejected)
}

func TestPoolStopIsIdempotent(t *testing.T) {
	pool := NewPool(0, func(context.Context, model.SyncJob) {}, zap.NewNop())
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()
}
