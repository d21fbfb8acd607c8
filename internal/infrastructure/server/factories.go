package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/domain/bootstrap"
	"github.com/GriffinCanCode/capgate/internal/domain/service"
	"github.com/GriffinCanCode/capgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/capgate/internal/providers/cloud"
	"github.com/GriffinCanCode/capgate/internal/providers/database"
	"github.com/GriffinCanCode/capgate/internal/providers/github"
	"github.com/GriffinCanCode/capgate/internal/providers/memory"
	"github.com/GriffinCanCode/capgate/internal/providers/objectstore"
	"github.com/GriffinCanCode/capgate/internal/providers/workflow"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

const integrationVersion = "1.0.0"

// serverDescriptor builds the static descriptor of a server integration.
// Capabilities come from a handler that was never connected; none of the
// handlers touch their backend to list them.
func serverDescriptor(name, description string, h service.Handler) types.ServiceDescriptor {
	return types.ServiceDescriptor{
		Name:         name,
		Version:      integrationVersion,
		Description:  description,
		Location:     types.LocationServer,
		Capabilities: h.Capabilities(),
		Status:       types.StatusActive,
	}
}

// integrations returns the factory of every server-side integration
func integrations(cfg *config.Config, logger *zap.Logger) []bootstrap.Factory {
	return []bootstrap.Factory{
		{
			Descriptor: serverDescriptor(database.ServiceName, "Relational database access",
				database.New(nil, database.DriverPgx, 0, nil)),
			New: func(ctx context.Context) (service.Handler, error) {
				return database.Open(ctx, database.Config{
					Driver:       cfg.Postgres.Driver,
					DSN:          cfg.Postgres.DSN,
					MaxOpenConns: cfg.Postgres.MaxOpenConns,
					MaxRows:      cfg.Postgres.MaxRows,
				}, logger)
			},
		},
		{
			Descriptor: serverDescriptor(memory.ServiceName, "Tagged memory store",
				memory.New(nil, nil)),
			New: func(ctx context.Context) (service.Handler, error) {
				store := memory.NewRedisStore(memory.RedisConfig{
					Addr:     cfg.Memory.Addr,
					Password: cfg.Memory.Password,
					DB:       cfg.Memory.DB,
					Prefix:   cfg.Memory.Prefix,
				})
				if err := store.Ping(ctx); err != nil {
					_ = store.Close()
					return nil, fmt.Errorf("redis %s: %w", cfg.Memory.Addr, err)
				}
				return memory.New(store, logger), nil
			},
		},
		{
			Descriptor: serverDescriptor(cloud.ServiceName, "Cloud infrastructure management",
				cloud.NewWithClient(nil, nil)),
			New: func(ctx context.Context) (service.Handler, error) {
				return cloud.New(cloud.Config{BaseURL: cfg.Cloud.BaseURL, Token: cfg.Cloud.Token}, logger)
			},
		},
		{
			Descriptor: serverDescriptor(github.ServiceName, "GitHub repositories and issues",
				github.NewWithClient(nil, nil)),
			New: func(ctx context.Context) (service.Handler, error) {
				return github.New(github.Config{BaseURL: cfg.GitHub.BaseURL, Token: cfg.GitHub.Token}, logger)
			},
		},
		{
			Descriptor: serverDescriptor(workflow.ServiceName, "n8n workflow automation",
				workflow.NewWithClient(nil, nil)),
			New: func(ctx context.Context) (service.Handler, error) {
				return workflow.New(workflow.Config{BaseURL: cfg.N8N.BaseURL, APIKey: cfg.N8N.APIKey}, logger)
			},
		},
		{
			Descriptor: serverDescriptor(objectstore.ServiceName, "S3-compatible object storage",
				objectstore.New(nil, objectstore.Config{}, nil)),
			New: func(ctx context.Context) (service.Handler, error) {
				storeCfg := objectstore.Config{
					Endpoint:      cfg.ObjectStore.Endpoint,
					Port:          cfg.ObjectStore.Port,
					UseSSL:        cfg.ObjectStore.UseSSL,
					AccessKey:     cfg.ObjectStore.AccessKey,
					SecretKey:     cfg.ObjectStore.SecretKey,
					Region:        cfg.ObjectStore.Region,
					DefaultBucket: cfg.ObjectStore.DefaultBucket,
					MaxFileSize:   cfg.ObjectStore.MaxFileSize,
					AllowedTypes:  cfg.ObjectStore.AllowedTypes,
					URLExpiry:     cfg.ObjectStore.URLExpiry,
				}
				backend, err := objectstore.NewMinioBackend(storeCfg)
				if err != nil {
					return nil, err
				}
				h := objectstore.New(backend, storeCfg, logger)
				if err := h.Health(ctx); err != nil {
					return nil, fmt.Errorf("storage %s: %w", cfg.ObjectStore.Endpoint, err)
				}
				return h, nil
			},
		},
	}
}
