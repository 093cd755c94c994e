package cache

import "context"

// KeySerializer builds a cache key from a namespace + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// CacheService is the in-process store fronting the relational store.
// Implementations never return errors; a failed or expired lookup is a miss.
type CacheService interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any)
	Delete(ctx context.Context, key string)
	Len() int
}

// Loader fetches a value from the source of truth. found=false means the
// value does not exist and nothing is cached.
type Loader[T any] func(ctx context.Context) (value T, found bool, err error)

// Fetch is a type-safe read-through helper. Cached values of a different type
// are dropped and reloaded. Only found values are stored.
func Fetch[T any](ctx context.Context, service CacheService, key string, load Loader[T]) (T, bool, error) {
	if cached, ok := service.Get(ctx, key); ok {
		if value, ok := cached.(T); ok {
			return value, true, nil
		}
		service.Delete(ctx, key)
	}

	value, found, err := load(ctx)
	if err != nil || !found {
		var zero T
		return zero, false, err
	}

	service.Set(ctx, key, value)
	return value, true, nil
}
