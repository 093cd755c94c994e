package di

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-tablecache/cache"
	"github.com/goliatone/go-tablecache/community"
	"github.com/goliatone/go-tablecache/config"
	"github.com/goliatone/go-tablecache/datalayer"
	"github.com/goliatone/go-tablecache/files"
	"github.com/goliatone/go-tablecache/internal/sqlstore"
)

// Container wires the store, the cache and the services built on the data
// layer. Every component is a singleton owned by the container; Close
// releases the database handle.
type Container struct {
	config        config.Config
	logger        logrus.FieldLogger
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	store         *sqlstore.Store
	layer         *datalayer.Layer
	files         *files.Service
	community     *community.Service
}

type options struct {
	logger logrus.FieldLogger
	blobs  files.BlobDeleter
	now    func() time.Time
}

// Option customizes NewContainer.
type Option func(*options)

// WithLogger replaces the logger built from the log settings.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBlobDeleter replaces the deleter built from the blob settings.
func WithBlobDeleter(blobs files.BlobDeleter) Option {
	return func(o *options) { o.blobs = blobs }
}

// WithClock drives cache expiry, file expiry and creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewContainer opens the store and builds every component from cfg.
//
// The schema is bootstrapped eagerly. A bootstrap failure is logged and
// left for EnsureSchema to retry; it does not fail construction since the
// database may come up after the process.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		l, err := cfg.Log.NewLogger()
		if err != nil {
			return nil, err
		}
		logger = l
	}

	cacheCfg := cfg.Cache.ServiceConfig()
	cacheCfg.Now = o.now
	cacheService, err := cache.NewCacheService(cacheCfg)
	if err != nil {
		return nil, err
	}

	blobs := o.blobs
	if blobs == nil {
		blobs = files.NopDeleter{}
		if s3cfg, ok := cfg.Blob.S3(); ok {
			deleter, err := files.NewS3Deleter(s3cfg)
			if err != nil {
				return nil, err
			}
			blobs = deleter
		}
	}

	store, err := sqlstore.Open(cfg.Database.StoreConfig(), logger)
	if err != nil {
		return nil, err
	}

	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Warn("continuing without schema; it will be retried")
	}

	keySerializer := cache.NewDefaultKeySerializer()
	layerOpts := append([]datalayer.Option{datalayer.WithLogger(logger)}, cfg.Search.LayerOptions()...)
	layer := datalayer.New(store.DB(), store.Dialect(), cacheService, keySerializer, layerOpts...)

	return &Container{
		config:        cfg,
		logger:        logger,
		cacheService:  cacheService,
		keySerializer: keySerializer,
		store:         store,
		layer:         layer,
		files:         files.NewService(layer, blobs, files.WithLogger(logger), files.WithClock(o.now)),
		community:     community.NewService(layer, community.WithLogger(logger), community.WithClock(o.now)),
	}, nil
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

// Logger returns the logger shared by every component.
func (c *Container) Logger() logrus.FieldLogger {
	return c.logger
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Store returns the database store.
func (c *Container) Store() *sqlstore.Store {
	return c.store
}

// Layer returns the cached data access layer.
func (c *Container) Layer() *datalayer.Layer {
	return c.layer
}

// Files returns the file record service.
func (c *Container) Files() *files.Service {
	return c.files
}

// Community returns the posts, comments and users service.
func (c *Container) Community() *community.Service {
	return c.community
}

// EnsureSchema retries the schema bootstrap if it has not succeeded yet.
func (c *Container) EnsureSchema(ctx context.Context) error {
	return c.store.EnsureSchema(ctx)
}

// Close releases the database handle.
func (c *Container) Close() error {
	if err := c.store.Close(); err != nil {
		return errors.Wrap(err, "di: close store")
	}
	return nil
}
