package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/behavior/internal/config"
	"github.com/zeusync/behavior/internal/core/behavior"
	"github.com/zeusync/behavior/internal/core/behavior/loader"
	bus "github.com/zeusync/behavior/internal/core/events/bus"
	"github.com/zeusync/behavior/internal/core/observability/log"
	"github.com/zeusync/behavior/internal/core/pathfind"
	"github.com/zeusync/behavior/internal/sim"
)

// ProviderSet builds a simulator from a loaded configuration.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideEventBus,
	ProvidePathService,
	ProvideCatalogue,
	ProvideSimulator,
)

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	return log.Build(cfg.Log)
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

func ProvidePathService(cfg config.Config, logger log.Log) *pathfind.Service {
	return pathfind.NewService(cfg.Pathfind.PathOptions(), logger)
}

// ProvideCatalogue registers the built-in trees and then the trees of
// cfg.TreesFile, if any. The catalogue is sealed before it is returned.
func ProvideCatalogue(cfg config.Config, logger log.Log) (*behavior.Catalogue, error) {
	cat := behavior.NewCatalogue(logger)
	for _, t := range sim.BuiltinTrees(cfg.Pathfind.Async) {
		if _, err := cat.Register(t); err != nil {
			return nil, err
		}
	}
	if cfg.TreesFile != "" {
		file, err := loader.LoadFile(cfg.TreesFile)
		if err != nil {
			return nil, err
		}
		trees, err := file.Register(cat, loader.NewRegistry())
		if err != nil {
			return nil, err
		}
		logger.Info("trees loaded", log.String("file", cfg.TreesFile), log.Int("trees", len(trees)))
	}
	cat.Seal()
	return cat, nil
}

func ProvideSimulator(ctx context.Context, cfg config.Config, cat *behavior.Catalogue, paths *pathfind.Service, events bus.EventBus, logger log.Log) (*sim.Simulator, func(), error) {
	s, err := sim.New(ctx, cfg, cat, paths, events, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
