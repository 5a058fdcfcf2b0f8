// Package memoryappstashfx provides an fx module for an in-memory
// appstash client. Useful for testing.
package memoryappstashfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/appstash/appstash"
	"github.com/appstash/appstash/internal/stats"
	"github.com/appstash/appstash/internal/stats/logger"
	"github.com/appstash/appstash/internal/store/memstore"
)

// Module provides an in-memory appstash client for testing.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("memoryappstash",
	fx.Provide(
		newStatsCollector,
		newMemStore,
		newClient,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("appstash.stats"))
}

func newMemStore() *memstore.Store {
	return memstore.New()
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Logger    *zap.Logger
	Collector stats.Collector
	Store     *memstore.Store
	Lifecycle fx.Lifecycle
}

// Result holds the provided client and store.
type Result struct {
	fx.Out

	Client *appstash.Client
	Store  *memstore.Store // Exposed for test setup
}

func newClient(p Params) (Result, error) {
	client, err := appstash.New(
		appstash.WithStore(p.Store),
		appstash.WithStats(p.Collector),
		appstash.WithLogger(p.Logger.Named("appstash")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return Result{
		Client: client,
		Store:  p.Store,
	}, nil
}
