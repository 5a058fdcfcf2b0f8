package appstash

import (
	"time"

	"go.uber.org/zap"

	"github.com/appstash/appstash/internal/codec/zstdcodec"
	"github.com/appstash/appstash/internal/stats"
	"github.com/appstash/appstash/internal/store"
	"github.com/appstash/appstash/internal/store/boltstore"
)

// Option configures a Client.
type Option interface {
	apply(*options)
}

// options holds the client configuration.
type options struct {
	store  store.Store
	stats  stats.Collector
	logger *zap.Logger
	clock  func() time.Time

	dbPath string
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		stats:  stats.NewNoop(),
		logger: zap.NewNop(),
		clock:  time.Now,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// finish resolves options that depend on each other. WithDatabase is
// deferred until here so it picks up the configured logger regardless
// of option order.
func (o *options) finish() {
	if o.store == nil && o.dbPath != "" {
		o.store = boltstore.New(o.logger, o.dbPath, zstdcodec.New())
	}
}

// WithStore sets the storage backend to use.
func WithStore(s store.Store) Option {
	return optionFunc(func(o *options) {
		o.store = s
	})
}

// WithDatabase configures a bbolt-backed store at the given path with
// zstd value compression. The database file is created lazily on first
// use. This is the recommended way to create a client.
// WithStore takes precedence if both are given.
func WithDatabase(path string) Option {
	return optionFunc(func(o *options) {
		o.dbPath = path
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithClock sets the time source used to stamp records and judge cache
// validity. Intended for tests; defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.clock = now
	})
}
