package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
)

// PushTokenRepository stores device push tokens. Rows are keyed by token value;
// a token registered by a second user changes owner.
type PushTokenRepository interface {
	Upsert(ctx context.Context, userID, token, deviceInfo string) (*dbsql.PushToken, error)
	ByToken(ctx context.Context, token string) (*dbsql.PushToken, error)
	ActiveByUserID(ctx context.Context, userID string) ([]*dbsql.PushToken, error)
	UpdateTokenStatus(ctx context.Context, token string, isActive bool) (bool, error)
}

type PushTokenRepo struct {
	db *gorm.DB
}

func NewPushTokenRepository(db *gorm.DB) PushTokenRepository {
	return &PushTokenRepo{db: db}
}

func (r *PushTokenRepo) Upsert(ctx context.Context, userID, token, deviceInfo string) (*dbsql.PushToken, error) {
	now := time.Now()
	row := &dbsql.PushToken{
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		IsActive:   true,
		LastUsedAt: now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"user_id":      userID,
			"device_info":  deviceInfo,
			"is_active":    true,
			"last_used_at": now,
			"updated_at":   now,
		}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert push token: %w", err)
	}

	// on conflict the generated id was not stored, so read back the winning row
	return r.ByToken(ctx, token)
}

func (r *PushTokenRepo) ByToken(ctx context.Context, token string) (*dbsql.PushToken, error) {
	var pt dbsql.PushToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&pt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("push token not found")
		}
		return nil, fmt.Errorf("failed to get push token: %w", err)
	}
	return &pt, nil
}

func (r *PushTokenRepo) ActiveByUserID(ctx context.Context, userID string) ([]*dbsql.PushToken, error) {
	var tokens []*dbsql.PushToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_used_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active tokens: %w", err)
	}
	return tokens, nil
}

// UpdateTokenStatus reports whether a row changed. Unknown tokens are not an error.
func (r *PushTokenRepo) UpdateTokenStatus(ctx context.Context, token string, isActive bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&dbsql.PushToken{}).
		Where("token = ? AND is_active = ?", token, !isActive).
		Updates(map[string]interface{}{
			"is_active":  isActive,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update token status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
