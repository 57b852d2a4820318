// internal/model/tenant.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

func (s TenantStatus) Valid() bool {
	return s == TenantActive || s == TenantSuspended
}

// Tenant is one customer's deployed instance. ServerURL is the only address
// the control plane ever contacts for it.
type Tenant struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Code         string       `db:"code" json:"code"`
	Subdomain    string       `db:"subdomain" json:"subdomain"`
	ServerURL    string       `db:"server_url" json:"server_url"`
	ServerIP     string       `db:"server_ip" json:"server_ip"`
	DatabaseName string       `db:"database_name" json:"database_name"`
	PlanType     string       `db:"plan_type" json:"plan_type"`
	AdminName    string       `db:"admin_name" json:"admin_name"`
	AdminEmail   string       `db:"admin_email" json:"admin_email"`
	AdminPhone   string       `db:"admin_phone" json:"admin_phone"`
	MonthlyPrice float64      `db:"monthly_price" json:"monthly_price"`
	Status       TenantStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// TenantUpdate is a partial update; nil fields are left untouched.
type TenantUpdate struct {
	Name         *string       `json:"name,omitempty"`
	Code         *string       `json:"code,omitempty"`
	Subdomain    *string       `json:"subdomain,omitempty"`
	ServerURL    *string       `json:"server_url,omitempty"`
	ServerIP     *string       `json:"server_ip,omitempty"`
	DatabaseName *string       `json:"database_name,omitempty"`
	PlanType     *string       `json:"plan_type,omitempty"`
	AdminName    *string       `json:"admin_name,omitempty"`
	AdminEmail   *string       `json:"admin_email,omitempty"`
	AdminPhone   *string       `json:"admin_phone,omitempty"`
	MonthlyPrice *float64      `json:"monthly_price,omitempty"`
	Status       *TenantStatus `json:"status,omitempty"`
}

// Columns returns the column/value pairs carried by the update.
func (u TenantUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	set := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	set("name", u.Name)
	set("code", u.Code)
	set("subdomain", u.Subdomain)
	set("server_url", u.ServerURL)
	set("server_ip", u.ServerIP)
	set("database_name", u.DatabaseName)
	set("plan_type", u.PlanType)
	set("admin_name", u.AdminName)
	set("admin_email", u.AdminEmail)
	set("admin_phone", u.AdminPhone)
	if u.MonthlyPrice != nil {
		cols["monthly_price"] = *u.MonthlyPrice
	}
	if u.Status != nil {
		cols["status"] = string(*u.Status)
	}
	return cols
}
