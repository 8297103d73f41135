package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/auth"
	"github.com/perimetrix/fieldclinic/authz"
	"github.com/perimetrix/fieldclinic/config"
	"github.com/perimetrix/fieldclinic/gateway"
	"github.com/perimetrix/fieldclinic/logger"
	"github.com/perimetrix/fieldclinic/outbox"
	"github.com/perimetrix/fieldclinic/preferences"
	"github.com/perimetrix/fieldclinic/store"
	"github.com/perimetrix/fieldclinic/workspace"
)

func Start(e *echo.Echo, cfg *config.Config, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) {
	address := fmt.Sprintf(":%d", cfg.HttpPort)
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorw("http server stopped", "error", err)
				}
			}()
			logger.Infow("http server started", "address", address)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

func SetReady(healthCheck *HealthCheck, db *mongo.Database, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.Client().Ping(ctx, nil); err != nil {
				return err
			}

			// Set after mongo is initialized, which is ensured by taking a dependency
			// on mongo in the constructor, because lifecycle hooks run in topological order
			healthCheck.SetReady(true)
			return nil
		},
	})
}

// Dependencies provides everything except the HTTP server. The CLI runs on the same graph.
func Dependencies() []fx.Option {
	return []fx.Option{
		fx.Provide(
			config.NewConfig,
			logger.NewProductionLogger,
			logger.Suggar,
			store.NewConfig,
			store.GetConnectionString,
			store.NewClient,
			store.NewDatabase,
			auth.NewRepository,
			auth.NewTokenIssuerFromConfig,
			auth.NewService,
			auth.NewAuthenticator,
			authz.NewRequestAuthorizer,
			outbox.NewRepository,
			gateway.New,
			preferences.NewStore,
			workspace.NewRegistry,
		),
	}
}

func MainLoop() {
	options := append(Dependencies(),
		fx.Provide(
			NewHealthCheck,
			NewHandler,
			NewServer,
		),
		fx.Invoke(SetReady),
		fx.Invoke(Start),
	)
	fx.New(options...).Run()
}
