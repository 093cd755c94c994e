package cacheinfra

import (
	"context"

	"github.com/viccon/sturdyc"
)

// SturdycStore wraps a sturdyc client. Capacity is enforced per shard by
// evicting EvictionPercentage of the shard, so the bound is approximate and
// eviction order is not insertion order.
type SturdycStore struct {
	client *sturdyc.Client[any]
}

// NewSturdycStore creates a sturdyc backed store.
//
// The constructor translates Config parameters to sturdyc initialization:
// - Capacity, NumShards, TTL, EvictionPercentage are passed to sturdyc.New()
// - EvictionInterval is applied as an option when set
//
// Config.Now is ignored; sturdyc keeps its own clock.
func NewSturdycStore(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var options []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		options...,
	)

	return &SturdycStore{client: client}, nil
}

// Get returns the value stored under key while it is fresh.
func (s *SturdycStore) Get(_ context.Context, key string) (any, bool) {
	return s.client.Get(key)
}

// Set stores value under key.
func (s *SturdycStore) Set(_ context.Context, key string, value any) {
	s.client.Set(key, value)
}

// Delete removes key if present.
func (s *SturdycStore) Delete(_ context.Context, key string) {
	s.client.Delete(key)
}

// Len returns the number of entries across all shards.
func (s *SturdycStore) Len() int {
	return s.client.Size()
}
