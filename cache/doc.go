// Package cache provides the in-process store and key builders used by the
// data layer.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: a bounded TTL key/value store (Get, Set, Delete, Len)
//   - KeySerializer: builds stable cache keys from a namespace and arguments
//
// NewCacheService picks a backend from Config.Backend. The default "fifo"
// backend holds at most Capacity entries, evicting the oldest inserted entry
// first, and serves an entry only while now - insertedAt < TTL. The "sturdyc"
// backend is sharded and evicts a percentage of a shard when it fills up.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	keys := cache.NewDefaultKeySerializer()
//
//	post, found, err := cache.Fetch(ctx, svc, cache.RecordKey(keys, "posts", id),
//		func(ctx context.Context) (Record, bool, error) {
//			return loadPost(ctx, id)
//		})
//
// # Key Layout
//
// Single records use table::id::<id>. List results use table::list::<digest>
// where the digest is an xxhash of the serialized statement, so every list
// entry of a table can be found through ListPrefix.
//
// The default key serializer writes maps with sorted keys, recurses into
// slices and arrays, dereferences pointers and falls back to JSON for
// anything else.
package cache
