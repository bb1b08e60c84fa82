package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
)

type ChatRepository interface {
	Save(ctx context.Context, msg *dbsql.Message) error
	ByID(ctx context.Context, id string) (*dbsql.Message, error)
	ForUser(ctx context.Context, userID string) ([]*dbsql.Message, error)
	Between(ctx context.Context, userA, userB string, limit, offset int) ([]*dbsql.Message, error)
	CountBetween(ctx context.Context, userA, userB string) (int64, error)
	MarkThreadRead(ctx context.Context, receiverID, senderID string) (int64, error)
	MarkAsRead(ctx context.Context, messageID, receiverID string) error
	UnreadCount(ctx context.Context, receiverID, senderID string) (int64, error)
}

type chatRepo struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepo{db: db}
}

func (r *chatRepo) Save(ctx context.Context, msg *dbsql.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (r *chatRepo) ByID(ctx context.Context, id string) (*dbsql.Message, error) {
	var msg dbsql.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("message not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

// ForUser returns every message the user sent or received, newest first.
func (r *chatRepo) ForUser(ctx context.Context, userID string) ([]*dbsql.Message, error) {
	var messages []*dbsql.Message
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user messages: %w", err)
	}
	return messages, nil
}

func betweenScope(userA, userB string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA)
	}
}

// Between returns the pair's messages oldest first. limit <= 0 returns all.
func (r *chatRepo) Between(ctx context.Context, userA, userB string, limit, offset int) ([]*dbsql.Message, error) {
	var messages []*dbsql.Message
	query := r.db.WithContext(ctx).
		Scopes(betweenScope(userA, userB)).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}
	return messages, nil
}

func (r *chatRepo) CountBetween(ctx context.Context, userA, userB string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbsql.Message{}).
		Scopes(betweenScope(userA, userB)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count conversation: %w", err)
	}
	return count, nil
}

// MarkThreadRead flips only unread rows, so concurrent callers never rewrite readAt.
func (r *chatRepo) MarkThreadRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&dbsql.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *chatRepo) MarkAsRead(ctx context.Context, messageID, receiverID string) error {
	msg, err := r.ByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ReceiverID != receiverID {
		return common.Forbidden("only the receiver can mark a message as read")
	}
	if msg.IsRead {
		return nil
	}

	now := time.Now()
	err = r.db.WithContext(ctx).
		Model(&dbsql.Message{}).
		Where("id = ? AND is_read = ?", messageID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return nil
}

// UnreadCount counts unread messages addressed to receiverID; an empty
// senderID counts across all senders.
func (r *chatRepo) UnreadCount(ctx context.Context, receiverID, senderID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&dbsql.Message{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false)
	if senderID != "" {
		query = query.Where("sender_id = ?", senderID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
