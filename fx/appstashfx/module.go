// Package appstashfx provides an fx module for a bbolt-backed appstash
// client.
package appstashfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/appstash/appstash"
	"github.com/appstash/appstash/internal/codec/zstdcodec"
	"github.com/appstash/appstash/internal/stats"
	promstats "github.com/appstash/appstash/internal/stats/prometheus"
	"github.com/appstash/appstash/internal/store/boltstore"
	"github.com/appstash/appstash/internal/store/cachedstore"
)

// Config holds configuration for the bbolt-backed appstash client.
type Config struct {
	// Path is the location of the database file.
	Path string

	// CacheSize is the number of records held in the in-process read
	// cache. Default is 256.
	CacheSize int
}

// Module provides a persistent appstash client.
// Requires a *zap.Logger and a Config to be provided.
var Module = fx.Module("appstash",
	fx.Provide(
		newStatsCollector,
		newClient,
	),
)

func newStatsCollector() stats.Collector {
	return promstats.New(nil)
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided client.
type Result struct {
	fx.Out

	Client *appstash.Client
}

func newClient(p Params) (Result, error) {
	cacheSize := p.Config.CacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}

	baseStore := boltstore.New(p.Logger.Named("appstash.store"), p.Config.Path, zstdcodec.New())
	st, err := cachedstore.New(baseStore, cacheSize)
	if err != nil {
		return Result{}, err
	}

	client, err := appstash.New(
		appstash.WithStore(st),
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

	return Result{Client: client}, nil
}
