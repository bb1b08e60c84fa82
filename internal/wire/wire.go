//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"tenantlink/internal/config"
)

func InitializeApplication(ctx context.Context, cfg *config.Config) (*Application, func(), error) {
	wire.Build(appSet)
	return nil, nil, nil
}
