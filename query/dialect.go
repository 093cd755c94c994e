package query

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// Dialect captures the SQL differences between supported stores.
type Dialect interface {
	Name() string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// ILike is the case-insensitive LIKE operator.
	ILike() string
}

type postgresDialect struct{}

func (postgresDialect) Name() string             { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (postgresDialect) ILike() string            { return "ILIKE" }

type sqliteDialect struct{}

func (sqliteDialect) Name() string             { return "sqlite" }
func (sqliteDialect) Placeholder(n int) string { return "?" + strconv.Itoa(n) }

// LIKE is case-insensitive for ASCII in SQLite.
func (sqliteDialect) ILike() string { return "LIKE" }

var (
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return nil, errors.Newf("query: no dialect for driver %q", driver)
	}
}
