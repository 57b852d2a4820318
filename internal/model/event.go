// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTenantCreated   EventType = "tenant.created"
	EventTenantUpdated   EventType = "tenant.updated"
	EventTenantSuspended EventType = "tenant.suspended"
	EventTenantActivated EventType = "tenant.activated"
	EventModulesReplaced EventType = "tenant.modules_replaced"
)

// Event is a tenant lifecycle notification published to the event exchange.
type Event struct {
	Type       EventType `json:"type"`
	TenantID   uuid.UUID `json:"tenant_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(t EventType, tenantID uuid.UUID) Event {
	return Event{Type: t, TenantID: tenantID, OccurredAt: time.Now().UTC()}
}

// SyncJob asks a worker to pull usage for one tenant.
type SyncJob struct {
	TenantID uuid.UUID `json:"tenant_id"`
}
