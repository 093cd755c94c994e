package sqlstore

import (
	"context"
	"database/sql"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	// Register SQL drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-tablecache/query"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite3"
)

// Config selects the driver and connection string.
type Config struct {
	Driver string
	DSN    string
}

// Store owns the database handle and the one-time schema bootstrap.
type Store struct {
	db      *bun.DB
	dialect query.Dialect
	logger  logrus.FieldLogger

	mu     sync.Mutex
	schema bool
}

// Open connects to the configured store. The connection is lazy; the first
// statement or Ping reaches the server.
func Open(cfg Config, logger logrus.FieldLogger) (*Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	dialect, err := query.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlstore: open %s", cfg.Driver)
	}

	var bunDialect schema.Dialect
	switch cfg.Driver {
	case DriverSQLite:
		// One connection keeps in-memory databases alive and serializes writers.
		sqldb.SetMaxOpenConns(1)
		if _, err := sqldb.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = sqldb.Close()
			return nil, errors.Wrap(err, "sqlstore: enable WAL")
		}
		bunDialect = sqlitedialect.New()
	default:
		bunDialect = pgdialect.New()
	}

	return &Store{
		db:      bun.NewDB(sqldb, bunDialect),
		dialect: dialect,
		logger:  logger.WithField("driver", cfg.Driver),
	}, nil
}

// DB returns the raw handle used for parameterized statements.
func (s *Store) DB() *sql.DB { return s.db.DB }

// Bun returns the bun handle used for schema work.
func (s *Store) Bun() *bun.DB { return s.db }

// Dialect returns the query dialect matching the driver.
func (s *Store) Dialect() query.Dialect { return s.dialect }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema bootstraps the schema once per Store. A failed attempt is
// not remembered, so the next call tries again.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schema {
		return nil
	}
	if err := Bootstrap(ctx, s.db); err != nil {
		s.logger.WithError(err).Warn("schema bootstrap failed")
		return err
	}

	s.schema = true
	s.logger.Debug("schema ready")
	return nil
}

// SchemaReady reports whether EnsureSchema has succeeded.
func (s *Store) SchemaReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}
