package dbsql

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tenantlink/internal/common"
)

type User struct {
	ID        string      `gorm:"primaryKey;size:36" json:"id"`
	Name      string      `gorm:"size:255;not null" json:"name"`
	Email     string      `gorm:"size:255;index" json:"email"`
	Phone     string      `gorm:"size:32" json:"phone,omitempty"`
	Role      common.Role `gorm:"size:20;not null;index" json:"role"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) Summary() *common.UserSummary {
	if u == nil {
		return nil
	}
	return &common.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role}
}

// Property carries only the assignment data routing needs; the rest of the
// property record is owned by the listings service.
type Property struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Name          string    `gorm:"size:255" json:"name"`
	Address       string    `gorm:"size:512" json:"address"`
	LandlordID    string    `gorm:"size:36;not null;index" json:"landlord_id"`
	FacilitatorID *string   `gorm:"size:36;index" json:"facilitator_id,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Property) TableName() string { return "properties" }

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// HasFacilitator reports whether a facilitator is currently assigned.
func (p *Property) HasFacilitator() bool {
	return p != nil && p.FacilitatorID != nil && *p.FacilitatorID != ""
}

type TenancyStatus string

const (
	TenancyPending   TenancyStatus = "pending"
	TenancyAccepted  TenancyStatus = "accepted"
	TenancyExpired   TenancyStatus = "expired"
	TenancyCancelled TenancyStatus = "cancelled"
)

// TenantInvitation is the tenancy link between a tenant and a property.
type TenantInvitation struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	TenantID   string        `gorm:"size:36;not null;index" json:"tenant_id"`
	PropertyID string        `gorm:"size:36;not null;index" json:"property_id"`
	Unit       string        `gorm:"size:64" json:"unit,omitempty"`
	Status     TenancyStatus `gorm:"size:20;not null;index" json:"status"`
	AcceptedAt *time.Time    `json:"accepted_at,omitempty"`
	CreatedAt  time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TenantInvitation) TableName() string { return "tenant_invitations" }

func (ti *TenantInvitation) BeforeCreate(tx *gorm.DB) error {
	if ti.ID == "" {
		ti.ID = uuid.NewString()
	}
	return nil
}

// Message rows are immutable except for the read flags.
type Message struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	SenderID   string     `gorm:"size:36;not null;index" json:"sender_id"`
	ReceiverID string     `gorm:"size:36;not null;index" json:"receiver_id"`
	Subject    *string    `gorm:"size:255" json:"subject,omitempty"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	IsRead     bool       `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type MaintenanceRequest struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"id"`
	TenantID    string                      `gorm:"size:36;not null;index" json:"tenant_id"`
	LandlordID  string                      `gorm:"size:36;not null;index" json:"landlord_id"`
	PropertyID  string                      `gorm:"size:36;not null;index" json:"property_id"`
	AssignedTo  string                      `gorm:"size:36;not null;index" json:"assigned_to"`
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	Priority    string                      `gorm:"size:20;not null;default:'medium'" json:"priority"`
	Status      string                      `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Images      datatypes.JSONSlice[string] `json:"images"`
	CreatedAt   time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
}

func (MaintenanceRequest) TableName() string { return "maintenance_requests" }

func (r *MaintenanceRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type PushToken struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:36;not null;index" json:"user_id"`
	Token      string    `gorm:"size:512;not null;uniqueIndex" json:"-"`
	DeviceInfo string    `gorm:"size:255" json:"device_info,omitempty"`
	IsActive   bool      `gorm:"not null;index" json:"is_active"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PushToken) TableName() string { return "push_tokens" }

func (pt *PushToken) BeforeCreate(tx *gorm.DB) error {
	if pt.ID == "" {
		pt.ID = uuid.NewString()
	}
	return nil
}

// Notification is persisted before any delivery attempt.
type Notification struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	UserID    string            `gorm:"size:36;not null;index" json:"user_id"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Body      string            `gorm:"type:text;not null" json:"body"`
	Data      datatypes.JSONMap `json:"data,omitempty"`
	Type      string            `gorm:"size:50;not null;index" json:"type"`
	IsRead    bool              `gorm:"not null;default:false" json:"is_read"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	PushSent  bool              `gorm:"not null;default:false" json:"push_sent"`
	SentAt    *time.Time        `json:"sent_at,omitempty"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Models lists every table owned by this service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Property{},
		&TenantInvitation{},
		&Message{},
		&MaintenanceRequest{},
		&PushToken{},
		&Notification{},
	}
}
