package fx

import (
	"context"
	"osu-tracker/internal/api"
	"osu-tracker/internal/config"
	"osu-tracker/internal/events"
	"osu-tracker/internal/logger"
	"osu-tracker/internal/ratelimit"
	"osu-tracker/internal/render"
	"osu-tracker/internal/repository"
	"osu-tracker/internal/server"
	"osu-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (repository.Store, error) {
	store, err := repository.Open(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("closing store")
			return store.Close()
		},
	})
	return store, nil
}

func ProvidePublisher(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (events.Publisher, error) {
	pub, err := events.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}

func ProvideStatsFetcher(client *api.StatsClient) service.StatsFetcher {
	return client
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	// storage and events
	fx.Provide(ProvideStore),
	fx.Provide(ProvidePublisher),
	// api client
	fx.Provide(api.NewStatsClient),
	fx.Provide(ProvideStatsFetcher),
	fx.Provide(render.New),
	// svc
	fx.Provide(service.NewStatService),
	fx.Provide(service.NewProfileService),
	// server
	fx.Provide(ratelimit.New),
	fx.Provide(server.NewTrackerServer),
)
