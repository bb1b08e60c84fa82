package maintenance

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
)

type Repository interface {
	Create(ctx context.Context, req *dbsql.MaintenanceRequest) error
	ByID(ctx context.Context, id string) (*dbsql.MaintenanceRequest, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	List(ctx context.Context, f Filter) ([]*dbsql.MaintenanceRequest, error)
}

// Filter narrows List; empty fields are ignored.
type Filter struct {
	TenantID   string
	LandlordID string
	AssignedTo string
	Status     Status
}

type requestRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *dbsql.MaintenanceRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create maintenance request: %w", err)
	}
	return nil
}

func (r *requestRepository) ByID(ctx context.Context, id string) (*dbsql.MaintenanceRequest, error) {
	var req dbsql.MaintenanceRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("maintenance request not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get maintenance request: %w", err)
	}
	return &req, nil
}

// Update writes fields unconditionally; concurrent writers are last-write-wins.
func (r *requestRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&dbsql.MaintenanceRequest{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update maintenance request: %w", res.Error)
	}
	return nil
}

func (r *requestRepository) List(ctx context.Context, f Filter) ([]*dbsql.MaintenanceRequest, error) {
	q := r.db.WithContext(ctx).Model(&dbsql.MaintenanceRequest{})
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if f.LandlordID != "" {
		q = q.Where("landlord_id = ?", f.LandlordID)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}

	var out []*dbsql.MaintenanceRequest
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list maintenance requests: %w", err)
	}
	return out, nil
}
