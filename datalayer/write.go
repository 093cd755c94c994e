package datalayer

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-tablecache/rowcodec"
)

// Create inserts a complete record. The caller supplies the id. The stored
// row is cached and every list of the table is dropped.
func (l *Layer) Create(ctx context.Context, table string, data map[string]any) (Record, error) {
	const op = "create"

	if _, err := l.Schema().Lookup(table); err != nil {
		return nil, invalid(op, table, "", err)
	}

	id := Record(data).ID()
	if id == "" {
		return nil, invalid(op, table, "", ErrMissingID)
	}

	columns, err := l.codec.Encode(table, data)
	if err != nil {
		return nil, invalid(op, table, id, err)
	}

	stmt, err := l.builder.Insert(table, columns)
	if err != nil {
		return nil, invalid(op, table, id, err)
	}

	rows, err := l.queryRows(ctx, stmt)
	if err != nil {
		return nil, storeFailure(op, table, id, err)
	}
	if len(rows) == 0 {
		return nil, storeFailure(op, table, id, errors.New("insert returned no row"))
	}

	record := l.codec.Decode(table, rows[0])
	l.cache.Set(ctx, l.recordKey(table, id), record)
	l.invalidateLists(ctx, table)

	return record.Clone(), nil
}

// Update applies a partial update. An "id" field in data is ignored and
// empty data behaves like FindByID. A missing row yields (nil, false, nil)
// and drops any cached copy.
func (l *Layer) Update(ctx context.Context, table, id string, data map[string]any) (Record, bool, error) {
	const op = "update"

	changes := make(map[string]any, len(data))
	for field, value := range data {
		if rowcodec.ToSnake(field) == "id" {
			continue
		}
		changes[field] = value
	}

	if len(changes) == 0 {
		record, found := l.FindByID(ctx, table, id)
		return record, found, nil
	}

	if _, err := l.Schema().Lookup(table); err != nil {
		return nil, false, invalid(op, table, id, err)
	}

	columns, err := l.codec.Encode(table, changes)
	if err != nil {
		return nil, false, invalid(op, table, id, err)
	}

	stmt, err := l.builder.UpdateByID(table, id, columns)
	if err != nil {
		return nil, false, invalid(op, table, id, err)
	}

	rows, err := l.queryRows(ctx, stmt)
	if err != nil {
		return nil, false, storeFailure(op, table, id, err)
	}
	if len(rows) == 0 {
		l.cache.Delete(ctx, l.recordKey(table, id))
		return nil, false, nil
	}

	record := l.codec.Decode(table, rows[0])
	l.cache.Set(ctx, l.recordKey(table, id), record)
	l.invalidateLists(ctx, table)

	return record.Clone(), true, nil
}

// Delete removes the record with the given id. The cached record and every
// list of the table are always dropped. The result reports whether the store
// call completed, not whether a row existed.
func (l *Layer) Delete(ctx context.Context, table, id string) bool {
	stmt, err := l.builder.DeleteByID(table, id)
	if err != nil {
		l.log("delete", table, id).WithError(err).Warn("rejected delete")
		return false
	}

	_, err = l.db.ExecContext(ctx, stmt.Query, stmt.Args...)

	l.cache.Delete(ctx, l.recordKey(table, id))
	l.invalidateLists(ctx, table)

	if err != nil {
		l.log("delete", table, id).WithError(err).Warn("delete failed")
		return false
	}
	return true
}

// DeleteWhere removes every row whose columns equal the given conditions in
// one statement. Cached copies of the removed rows and every list of the
// table are dropped. Empty conditions are rejected.
func (l *Layer) DeleteWhere(ctx context.Context, table string, conditions map[string]any) bool {
	stmt, err := l.builder.DeleteWhere(table, conditions)
	if err != nil {
		l.log("delete_where", table, "").WithError(err).Warn("rejected delete")
		return false
	}

	rows, err := l.queryRows(ctx, stmt)
	for _, row := range rows {
		if id := Record(row).ID(); id != "" {
			l.cache.Delete(ctx, l.recordKey(table, id))
		}
	}
	l.invalidateLists(ctx, table)

	if err != nil {
		l.log("delete_where", table, "").WithError(err).Warn("delete failed")
		return false
	}
	return true
}
