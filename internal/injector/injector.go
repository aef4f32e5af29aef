//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/behavior/internal/config"
	"github.com/zeusync/behavior/internal/sim"
)

func InitializeSimulator(ctx context.Context, cfg config.Config) (*sim.Simulator, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
