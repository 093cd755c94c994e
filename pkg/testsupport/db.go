package testsupport

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/goliatone/go-tablecache/cache"
	"github.com/goliatone/go-tablecache/datalayer"
	"github.com/goliatone/go-tablecache/internal/sqlstore"
)

// CountingDB records every statement sent to the wrapped handle.
type CountingDB struct {
	db *sql.DB

	mu         sync.Mutex
	statements []string
	fail       error
}

// NewCountingDB wraps db.
func NewCountingDB(db *sql.DB) *CountingDB {
	return &CountingDB{db: db}
}

func (c *CountingDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := c.record(query); err != nil {
		return nil, err
	}
	return c.db.QueryContext(ctx, query, args...)
}

func (c *CountingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := c.record(query); err != nil {
		return nil, err
	}
	return c.db.ExecContext(ctx, query, args...)
}

// Calls returns the number of statements issued so far.
func (c *CountingDB) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.statements)
}

// Statements returns a copy of the issued statements.
func (c *CountingDB) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

// Reset clears the statement log.
func (c *CountingDB) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = nil
}

// FailWith makes every following statement fail with err. Nil restores
// normal operation.
func (c *CountingDB) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}

func (c *CountingDB) record(query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = append(c.statements, query)
	return c.fail
}

var storeSeq atomic.Int64

// NewSQLiteStore opens a private in-memory SQLite store with the schema in
// place. It is closed when the test ends.
func NewSQLiteStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	logger, _ := test.NewNullLogger()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	store, err := sqlstore.Open(sqlstore.Config{
		Driver: sqlstore.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, storeSeq.Add(1)),
	}, logger)
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to bootstrap schema: %v", err)
	}
	return store
}

// Harness bundles a Layer with the collaborators tests inspect.
type Harness struct {
	Layer *datalayer.Layer
	Store *sqlstore.Store
	DB    *CountingDB
	Cache cache.CacheService
	Clock *FakeClock
	Logs  *test.Hook
}

// NewHarness builds a Layer over a fresh in-memory store, a default cache
// driven by a fake clock and a log hook.
func NewHarness(t *testing.T, opts ...datalayer.Option) *Harness {
	t.Helper()

	store := NewSQLiteStore(t)
	clock := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	cfg := cache.DefaultConfig()
	cfg.Now = clock.Now
	svc, err := cache.NewCacheService(cfg)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	db := NewCountingDB(store.DB())
	opts = append([]datalayer.Option{datalayer.WithLogger(logger)}, opts...)
	layer := datalayer.New(db, store.Dialect(), svc, cache.NewDefaultKeySerializer(), opts...)

	return &Harness{
		Layer: layer,
		Store: store,
		DB:    db,
		Cache: svc,
		Clock: clock,
		Logs:  hook,
	}
}

// Seed inserts every row of data through the layer and resets the
// statement log.
func (h *Harness) Seed(t *testing.T, data SeedData) {
	t.Helper()

	ctx := context.Background()
	for _, table := range []string{"users", "posts", "comments", "files"} {
		for _, row := range data[table] {
			if _, err := h.Layer.Create(ctx, table, row); err != nil {
				t.Fatalf("failed to seed %s: %v", table, err)
			}
		}
	}
	h.DB.Reset()
}
