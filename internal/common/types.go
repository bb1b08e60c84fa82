package common

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleTenant      Role = "tenant"
	RoleLandlord    Role = "landlord"
	RoleFacilitator Role = "facilitator"
	RoleAdmin       Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleTenant, RoleLandlord, RoleFacilitator, RoleAdmin:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", BadRequest("unknown role %q", s)
	}
	return r, nil
}

type NotificationType string

const (
	MaintenanceRequestType NotificationType = "maintenance_request"
	MaintenanceUpdateType  NotificationType = "maintenance_update"
	MaintenanceCommentType NotificationType = "maintenance_comment"
	MessageType            NotificationType = "message"
	SystemType             NotificationType = "system"
)

type NotificationData map[string]interface{}

// UserSummary is the display projection of a user attached to responses.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  Role   `json:"role"`
}

type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NormalizePage applies defaults and caps the limit.
func NormalizePage(page, limit, defaultLimit, maxLimit int) Page {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func Preview(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return fmt.Sprintf("%s...", string(r[:n]))
}
