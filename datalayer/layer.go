package datalayer

import (
	"context"
	"database/sql"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-tablecache/cache"
	"github.com/goliatone/go-tablecache/query"
	"github.com/goliatone/go-tablecache/rowcodec"
)

// DefaultSearchLimit caps the rows returned per table by Search.
const DefaultSearchLimit = 50

// Record is a decoded row keyed by camelCase field name.
type Record = rowcodec.Record

// Filters maps field names to fuzzy match values.
type Filters = query.Filters

// Sort orders a list query.
type Sort = query.Sort

// DB is the subset of *sql.DB the layer issues statements through.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Layer is a table-agnostic CRUD and search engine fronted by a TTL cache.
// Reads are served from the cache while fresh; every successful write drops
// the affected record entries and all list entries of the table.
type Layer struct {
	db          DB
	builder     *query.Builder
	codec       *rowcodec.Codec
	cache       cache.CacheService
	keys        cache.KeySerializer
	listKeys    *xsync.MapOf[string, struct{}]
	logger      logrus.FieldLogger
	searchLimit int
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger sets the logger. Default: logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) Option {
	return func(l *Layer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithSchema replaces the default table allow-list.
func WithSchema(schema *query.Schema) Option {
	return func(l *Layer) {
		if schema != nil {
			l.builder = query.NewBuilder(l.builder.Dialect(), schema)
		}
	}
}

// WithSearchLimit sets the per-table Search cap.
func WithSearchLimit(limit int) Option {
	return func(l *Layer) {
		if limit > 0 {
			l.searchLimit = limit
		}
	}
}

// New creates a Layer issuing statements in the given dialect.
func New(db DB, dialect query.Dialect, cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *Layer {
	l := &Layer{
		db:          db,
		builder:     query.NewBuilder(dialect, query.DefaultSchema()),
		cache:       cacheService,
		keys:        keySerializer,
		listKeys:    xsync.NewMapOf[string, struct{}](),
		logger:      logrus.StandardLogger(),
		searchLimit: DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.codec = rowcodec.New(l.builder.Schema())
	return l
}

// Schema returns the table allow-list.
func (l *Layer) Schema() *query.Schema {
	return l.builder.Schema()
}

func (l *Layer) recordKey(table, id string) string {
	return cache.RecordKey(l.keys, table, id)
}

// trackListKey registers a list key so that writes can find it again.
func (l *Layer) trackListKey(key string) {
	l.listKeys.Store(key, struct{}{})
}

// invalidateLists drops every cached list of table.
func (l *Layer) invalidateLists(ctx context.Context, table string) {
	prefix := cache.ListPrefix(table)
	var stale []string
	l.listKeys.Range(func(key string, _ struct{}) bool {
		if strings.HasPrefix(key, prefix) {
			stale = append(stale, key)
		}
		return true
	})

	for _, key := range stale {
		l.cache.Delete(ctx, key)
		l.listKeys.Delete(key)
	}
}

func (l *Layer) log(op, table, id string) logrus.FieldLogger {
	fields := logrus.Fields{"op": op, "table": table}
	if id != "" {
		fields["id"] = id
	}
	return l.logger.WithFields(fields)
}
