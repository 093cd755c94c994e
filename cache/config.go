package cache

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-tablecache/internal/cacheinfra"
)

const (
	// BackendFIFO is the bounded insertion-ordered store. Default.
	BackendFIFO = cacheinfra.BackendFIFO
	// BackendSturdyc is the sharded sturdyc store.
	BackendSturdyc = cacheinfra.BackendSturdyc
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend            string
	Capacity           int
	TTL                time.Duration
	NumShards          int
	EvictionPercentage int
	EvictionInterval   time.Duration
	Now                func() time.Time
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the cache service selected by cfg.Backend.
func NewCacheService(cfg Config) (CacheService, error) {
	internal := cfg.toInternal()
	if err := internal.Validate(); err != nil {
		return nil, errors.Wrap(err, "cache: invalid config")
	}

	switch internal.Backend {
	case cacheinfra.BackendSturdyc:
		store, err := cacheinfra.NewSturdycStore(internal)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := cacheinfra.NewFIFOStore(internal)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Backend:            c.Backend,
		Capacity:           c.Capacity,
		TTL:                c.TTL,
		NumShards:          c.NumShards,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		Now:                c.Now,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Backend:            cfg.Backend,
		Capacity:           cfg.Capacity,
		TTL:                cfg.TTL,
		NumShards:          cfg.NumShards,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		Now:                cfg.Now,
	}
}
