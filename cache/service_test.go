package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingCache struct {
	data    map[string]any
	deletes []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{data: map[string]any{}}
}

func (m *recordingCache) Get(_ context.Context, key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *recordingCache) Set(_ context.Context, key string, value any) {
	m.data[key] = value
}

func (m *recordingCache) Delete(_ context.Context, key string) {
	m.deletes = append(m.deletes, key)
	delete(m.data, key)
}

func (m *recordingCache) Len() int { return len(m.data) }

func TestFetch_CachesFoundValues(t *testing.T) {
	ctx := context.Background()
	svc := newRecordingCache()
	calls := 0
	load := func(context.Context) (string, bool, error) {
		calls++
		return "value", true, nil
	}

	for i := 0; i < 3; i++ {
		got, found, err := Fetch(ctx, svc, "k", load)
		if err != nil || !found || got != "value" {
			t.Fatalf("Fetch() = %v, %v, %v", got, found, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestFetch_DoesNotCacheAbsentValues(t *testing.T) {
	ctx := context.Background()
	svc := newRecordingCache()
	calls := 0
	load := func(context.Context) (map[string]any, bool, error) {
		calls++
		return nil, false, nil
	}

	Fetch(ctx, svc, "k", load)
	_, found, err := Fetch(ctx, svc, "k", load)

	if found || err != nil {
		t.Errorf("Fetch() found=%v err=%v, want false, nil", found, err)
	}
	if calls != 2 {
		t.Errorf("loader called %d times, want 2", calls)
	}
	if svc.Len() != 0 {
		t.Errorf("cache holds %d entries, want 0", svc.Len())
	}
}

func TestFetch_PropagatesLoaderError(t *testing.T) {
	ctx := context.Background()
	svc := newRecordingCache()
	boom := errors.New("boom")

	_, found, err := Fetch(ctx, svc, "k", func(context.Context) (int, bool, error) {
		return 1, true, boom
	})

	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if found {
		t.Error("found should be false on error")
	}
	if svc.Len() != 0 {
		t.Error("failed loads must not be cached")
	}
}

func TestFetch_ReplacesForeignType(t *testing.T) {
	ctx := context.Background()
	svc := newRecordingCache()
	svc.data["k"] = 42

	got, found, err := Fetch(ctx, svc, "k", func(context.Context) (string, bool, error) {
		return "fresh", true, nil
	})

	if err != nil || !found || got != "fresh" {
		t.Fatalf("Fetch() = %v, %v, %v", got, found, err)
	}
	if len(svc.deletes) != 1 || svc.deletes[0] != "k" {
		t.Errorf("deletes = %v, want [k]", svc.deletes)
	}
}

func TestNewCacheService(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{BackendFIFO, BackendSturdyc} {
		t.Run(backend, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Backend = backend

			svc, err := NewCacheService(cfg)
			if err != nil {
				t.Fatalf("NewCacheService() error = %v", err)
			}
			svc.Set(ctx, "k", "v")
			if got, ok := svc.Get(ctx, "k"); !ok || got != "v" {
				t.Errorf("Get() = %v, %v", got, ok)
			}
		})
	}
}

func TestNewCacheService_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "memcached"

	svc, err := NewCacheService(cfg)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if svc != nil {
		t.Error("service should be nil on error")
	}
}

func TestNewCacheService_InjectedClock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return now }
	svc, err := NewCacheService(cfg)
	if err != nil {
		t.Fatalf("NewCacheService() error = %v", err)
	}

	svc.Set(ctx, "k", 1)
	now = now.Add(cfg.TTL)
	if _, ok := svc.Get(ctx, "k"); ok {
		t.Error("expected miss once TTL elapsed")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Backend != BackendFIFO || cfg.Capacity != 1000 || cfg.TTL != time.Minute {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
