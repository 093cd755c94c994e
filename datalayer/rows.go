package datalayer

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-tablecache/query"
)

// queryRows runs stmt and returns every row as column -> value.
func (l *Layer) queryRows(ctx context.Context, stmt query.Statement) ([]map[string]any, error) {
	rows, err := l.db.QueryContext(ctx, stmt.Query, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read columns")
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		fields := make([]any, len(columns))
		for i := range values {
			fields[i] = &values[i]
		}
		if err := rows.Scan(fields...); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		out = append(out, row)
	}

	// constraint failures of INSERT ... RETURNING may only surface here
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
