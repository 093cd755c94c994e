package cacheinfra

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// BackendFIFO selects the bounded insertion-ordered TTL store.
	BackendFIFO = "fifo"
	// BackendSturdyc selects the sharded sturdyc store.
	BackendSturdyc = "sturdyc"
)

// Config holds the configuration shared by the cache store backends.
type Config struct {
	// Backend picks the store implementation. Default: fifo
	Backend string

	// Capacity defines the maximum number of entries that the cache can store.
	// The fifo backend evicts the oldest inserted entry once this is exceeded.
	// Must be greater than 0. Default: 1000
	Capacity int

	// TTL is the time-to-live for cached entries. An entry is served only
	// while now - insertedAt < TTL.
	// Must be greater than 0. Default: 60s
	TTL time.Duration

	// NumShards determines the number of sturdyc shards.
	// Only used by the sturdyc backend. Default: 16
	NumShards int

	// EvictionPercentage specifies what percentage of a sturdyc shard is
	// evicted when it reaches capacity. Must be between 1-100.
	// Only used by the sturdyc backend. Default: 10
	EvictionPercentage int

	// EvictionInterval sets how often sturdyc scans for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration

	// Now returns the current time. Used by the fifo backend for TTL checks.
	// Nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns a Config matching the data layer defaults: one minute
// TTL and at most one thousand entries.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendFIFO,
		Capacity:           1000,
		TTL:                time.Minute,
		NumShards:          16,
		EvictionPercentage: 10,
	}
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	sturdy := c.Backend == BackendSturdyc
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendFIFO, BackendSturdyc)),
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.NumShards, validation.When(sturdy, validation.Required, validation.Min(1))),
		validation.Field(&c.EvictionPercentage, validation.When(sturdy, validation.Required, validation.Min(1), validation.Max(100))),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
}

func (c Config) clock() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}
