package syncer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult is the outcome of one health probe. An unreachable tenant is
// reported here, never as an error.
type HealthResult struct {
	Status HealthStatus `json:"status"`
	// ResponseTime is the round trip in milliseconds, set only when healthy.
	ResponseTime *int64    `json:"responseTime,omitempty"`
	Version      string    `json:"version,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (h HealthResult) Healthy() bool {
	return h.Status == StatusHealthy
}

// SyncOutcome reports whether a usage pull was stored.
type SyncOutcome struct {
	TenantID uuid.UUID
	OK       bool
	Err      error
	At       time.Time
}

func (o SyncOutcome) MarshalJSON() ([]byte, error) {
	out := struct {
		TenantID uuid.UUID `json:"tenant_id"`
		Success  bool      `json:"success"`
		Error    string    `json:"error,omitempty"`
		At       time.Time `json:"timestamp"`
	}{TenantID: o.TenantID, Success: o.OK, At: o.At}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}
