// internal/model/usage.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TenantUsage holds one month of usage for one tenant.
// PeriodDate is always the first day of a calendar month (UTC).
type TenantUsage struct {
	TenantID      uuid.UUID      `db:"tenant_id" json:"tenant_id"`
	PeriodDate    time.Time      `db:"period_date" json:"period_date"`
	ActiveUsers   int            `db:"active_users" json:"active_users"`
	TotalStudents int            `db:"total_students" json:"total_students"`
	StorageUsedMB float64        `db:"storage_used_mb" json:"storage_used_mb"`
	APICallsCount int64          `db:"api_calls_count" json:"api_calls_count"`
	FeaturesUsed  pq.StringArray `db:"features_used" json:"features_used"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// PeriodStart normalizes t to 00:00 UTC on the first day of its month.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
