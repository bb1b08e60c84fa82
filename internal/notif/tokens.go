package notif

import (
	"context"
	"strings"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
	"tenantlink/internal/logger"
	"tenantlink/internal/metrics"
	"tenantlink/internal/user"
)

// TokenRegistry owns the push token lifecycle. Tokens are soft-deactivated only.
type TokenRegistry struct {
	repo    user.PushTokenRepository
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewTokenRegistry(repo user.PushTokenRepository, m *metrics.Metrics, log *logger.Logger) *TokenRegistry {
	return &TokenRegistry{repo: repo, metrics: m, log: log.With("component", "push_tokens")}
}

// Register upserts by token value: a token seen before moves to userID and is reactivated.
func (r *TokenRegistry) Register(ctx context.Context, userID, token, deviceInfo string) (*dbsql.PushToken, error) {
	token = strings.TrimSpace(token)
	if strings.TrimSpace(userID) == "" {
		return nil, common.BadRequest("user id is required")
	}
	if err := common.ValidatePushToken(token); err != nil {
		return nil, err
	}

	pt, err := r.repo.Upsert(ctx, userID, token, strings.TrimSpace(deviceInfo))
	if err != nil {
		return nil, err
	}
	r.log.Info("push token registered", "user_id", userID, "token", token)
	return pt, nil
}

// Deactivate is a no-op for unknown or already inactive tokens.
func (r *TokenRegistry) Deactivate(ctx context.Context, token string) error {
	changed, err := r.repo.UpdateTokenStatus(ctx, strings.TrimSpace(token), false)
	if err != nil {
		return err
	}
	if changed {
		r.metrics.TokenDeactivated()
		r.log.Info("push token deactivated", "token", token)
	}
	return nil
}

func (r *TokenRegistry) ActiveTokensFor(ctx context.Context, userID string) ([]*dbsql.PushToken, error) {
	return r.repo.ActiveByUserID(ctx, userID)
}
