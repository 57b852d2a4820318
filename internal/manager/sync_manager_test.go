package manager

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"school-controlplane/internal/model"
	"school-controlplane/internal/storage/memstore"
	"school-controlplane/internal/syncer"
)

type fakeJobs struct {
	queued []uuid.UUID
	failAt int
}

func (f *fakeJobs) PublishSyncJob(_ context.Context, job model.SyncJob) error {
	if f.failAt > 0 && len(f.queued)+1 == f.failAt {
		return errors.New("channel closed")
	}
	f.queued = append(f.queued, job.TenantID)
	return nil
}

type fakeSyncer struct{ calls []uuid.UUID }

func (f *fakeSyncer) SyncTenantData(_ context.Context, id uuid.UUID) syncer.SyncOutcome {
	f.calls = append(f.calls, id)
	return syncer.SyncOutcome{TenantID: id, OK: true}
}

func seed(t *testing.T, store *memstore.Store, code string, status model.TenantStatus) uuid.UUID {
	t.Helper()
	tenant := &model.Tenant{Name: code, Code: code, Subdomain: code, ServerURL: "https://" + code + ".example", Status: status}
	require.NoError(t, store.CreateTenant(context.Background(), tenant))
	return tenant.ID
}

func TestEnqueueAllSkipsSuspended(t *testing.T) {
	store := memstore.New()
	a := seed(t, store, "a", model.TenantActive)
	b := seed(t, store, "b", model.TenantActive)
	seed(t, store, "c", model.TenantSuspended)

	jobs := &fakeJobs{}
	m := NewSyncManager(nil, jobs, store, &fakeSyncer{}, 2, zap.NewNop())

	n, err := m.EnqueueAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, jobs.queued)
}

func TestEnqueueAllPublishFailure(t *testing.T) {
	store := memstore.New()
	seed(t, store, "a", model.TenantActive)
	seed(t, store, "b", model.TenantActive)

	m := NewSyncManager(nil, &fakeJobs{failAt: 2}, store, &fakeSyncer{}, 2, zap.NewNop())

	n, err := m.EnqueueAll(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestHandleJobRunsSync(t *testing.T) {
	s := &fakeSyncer{}
	m := NewSyncManager(nil, &fakeJobs{}, memstore.New(), s, 1, zap.NewNop())
	id := uuid.New()

	m.handleJob(context.Background(), model.SyncJob{TenantID: id})
	assert.Equal(t, []uuid.UUID{id}, s.calls)
}

func TestShutdownWithoutStart(t *testing.T) {
	m := NewSyncManager(nil, &fakeJobs{}, memstore.New(), &fakeSyncer{}, 1, zap.NewNop())
	m.Shutdown()
}
