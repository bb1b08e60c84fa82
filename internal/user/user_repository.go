package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
)

// UserRepository is read-mostly; accounts are provisioned by the identity service.
type UserRepository interface {
	CreateUser(ctx context.Context, user *dbsql.User) error
	GetUserByID(ctx context.Context, userID string) (*dbsql.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []string) (map[string]*dbsql.User, error)
	GetUserByEmail(ctx context.Context, email string) (*dbsql.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *dbsql.User) error {
	if _, err := common.ParseRole(string(user.Role)); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, userID string) (*dbsql.User, error) {
	var user dbsql.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("user not found: %s", userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUsersByIDs returns the users found, keyed by id; missing ids are simply absent.
func (r *userRepository) GetUsersByIDs(ctx context.Context, userIDs []string) (map[string]*dbsql.User, error) {
	out := make(map[string]*dbsql.User, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var users []*dbsql.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*dbsql.User, error) {
	var user dbsql.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("user not found: %s", email)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
