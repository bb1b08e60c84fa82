package dbsql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tenantlink/internal/common"
)

// PropertyRepository reads property assignments and tenancy links. Writes to
// both tables belong to the listings service.
type PropertyRepository interface {
	PropertyByID(ctx context.Context, id string) (*Property, error)
	PropertiesByFacilitator(ctx context.Context, facilitatorID string) ([]*Property, error)
	CurrentTenancy(ctx context.Context, tenantID string) (*TenantInvitation, error)
	AcceptedTenancies(ctx context.Context, propertyIDs []string) ([]*TenantInvitation, error)
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) PropertyByID(ctx context.Context, id string) (*Property, error) {
	var property Property
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&property).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("property not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &property, nil
}

func (r *propertyRepository) PropertiesByFacilitator(ctx context.Context, facilitatorID string) ([]*Property, error) {
	var properties []*Property
	err := r.db.WithContext(ctx).
		Where("facilitator_id = ?", facilitatorID).
		Order("created_at ASC").
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get facilitator properties: %w", err)
	}
	return properties, nil
}

// CurrentTenancy picks the most recently accepted link when a tenant has
// several; links without accepted_at fall back to created_at.
func (r *propertyRepository) CurrentTenancy(ctx context.Context, tenantID string) (*TenantInvitation, error) {
	var link TenantInvitation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, TenancyAccepted).
		Order("COALESCE(accepted_at, created_at) DESC").
		Order("created_at DESC").
		Order("id DESC").
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("no accepted tenancy for tenant %s", tenantID)
		}
		return nil, fmt.Errorf("failed to get current tenancy: %w", err)
	}
	return &link, nil
}

func (r *propertyRepository) AcceptedTenancies(ctx context.Context, propertyIDs []string) ([]*TenantInvitation, error) {
	if len(propertyIDs) == 0 {
		return nil, nil
	}
	var links []*TenantInvitation
	err := r.db.WithContext(ctx).
		Where("property_id IN ? AND status = ?", propertyIDs, TenancyAccepted).
		Order("created_at ASC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get accepted tenancies: %w", err)
	}
	return links, nil
}
