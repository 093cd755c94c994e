package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Order is a sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder returns OrderDesc for "desc" in any case and OrderAsc otherwise.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(OrderDesc)) {
		return OrderDesc
	}
	return OrderAsc
}

// Sort orders a list query. A zero Sort selects the table default.
type Sort struct {
	Field string
	Order Order
}

// IsZero reports whether no sort field was given.
func (s Sort) IsZero() bool {
	return s.Field == ""
}

// Filters maps field names to fuzzy match values. Nil values are ignored.
type Filters map[string]any

// Statement is a parameterized SQL statement.
type Statement struct {
	Query string
	Args  []any
}

var (
	// ErrNoColumns is returned when a write names no columns.
	ErrNoColumns = errors.New("query: no columns to write")
	// ErrNoConditions is returned by DeleteWhere without conditions.
	ErrNoConditions = errors.New("query: delete requires at least one condition")
	// ErrNotSearchable is returned by Search for tables without search fields.
	ErrNotSearchable = errors.New("query: table has no search fields")
)

// Builder produces statements for allow-listed tables and columns.
type Builder struct {
	dialect Dialect
	schema  *Schema
}

// NewBuilder returns a Builder for the given dialect and schema.
func NewBuilder(dialect Dialect, schema *Schema) *Builder {
	return &Builder{dialect: dialect, schema: schema}
}

// Schema returns the allow-list used by the builder.
func (b *Builder) Schema() *Schema { return b.schema }

// Dialect returns the SQL dialect used by the builder.
func (b *Builder) Dialect() Dialect { return b.dialect }

// Select builds a fuzzy list query. Each non-nil filter becomes a
// case-insensitive substring match; clauses are ANDed in field order.
func (b *Builder) Select(table string, filters Filters, by Sort) (Statement, error) {
	t, err := b.schema.Lookup(table)
	if err != nil {
		return Statement{}, err
	}

	var (
		clauses []string
		args    []any
	)
	for _, field := range sortedKeys(filters) {
		value := filters[field]
		if value == nil {
			continue
		}
		column, err := b.schema.Column(table, field)
		if err != nil {
			return Statement{}, err
		}
		args = append(args, fmt.Sprintf("%%%v%%", value))
		clauses = append(clauses, fmt.Sprintf("CAST(%s AS TEXT) %s %s",
			quote(column), b.dialect.ILike(), b.dialect.Placeholder(len(args))))
	}

	orderBy, err := b.orderBy(t, by)
	if err != nil {
		return Statement{}, err
	}

	var q strings.Builder
	q.WriteString("SELECT * FROM ")
	q.WriteString(quote(t.Name))
	if len(clauses) > 0 {
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(clauses, " AND "))
	}
	q.WriteString(orderBy)

	return Statement{Query: q.String(), Args: args}, nil
}

// SelectByID builds a primary key lookup.
func (b *Builder) SelectByID(table, id string) (Statement, error) {
	t, err := b.schema.Lookup(table)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		Query: fmt.Sprintf(`SELECT * FROM %s WHERE "id" = %s`, quote(t.Name), b.dialect.Placeholder(1)),
		Args:  []any{id},
	}, nil
}

// Insert builds an INSERT ... RETURNING * for already encoded columns.
func (b *Builder) Insert(table string, columns map[string]any) (Statement, error) {
	t, err := b.schema.Lookup(table)
	if err != nil {
		return Statement{}, err
	}
	if len(columns) == 0 {
		return Statement{}, ErrNoColumns
	}

	names := sortedKeys(columns)
	quoted := make([]string, len(names))
	marks := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		if !t.HasColumn(name) {
			return Statement{}, errors.Wrapf(ErrUnknownField, "%s.%q", table, name)
		}
		quoted[i] = quote(name)
		marks[i] = b.dialect.Placeholder(i + 1)
		args[i] = columns[name]
	}

	return Statement{
		Query: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			quote(t.Name), strings.Join(quoted, ", "), strings.Join(marks, ", ")),
		Args: args,
	}, nil
}

// UpdateByID builds a partial UPDATE ... RETURNING *. The id column is never
// written.
func (b *Builder) UpdateByID(table, id string, columns map[string]any) (Statement, error) {
	t, err := b.schema.Lookup(table)
	if err != nil {
		return Statement{}, err
	}

	args := []any{id}
	var sets []string
	for _, name := range sortedKeys(columns) {
		if name == "id" {
			continue
		}
		if !t.HasColumn(name) {
			return Statement{}, errors.Wrapf(ErrUnknownField, "%s.%q", table, name)
		}
		args = append(args, columns[name])
		sets = append(sets, fmt.Sprintf("%s = %s", quote(name), b.dialect.Placeholder(len(args))))
	}
	if len(sets) == 0 {
		return Statement{}, ErrNoColumns
	}

	return Statement{
		Query: fmt.Sprintf(`UPDATE %s SET %s WHERE "id" = %s RETURNING *`,
			quote(t.Name), strings.Join(sets, ", "), b.dialect.Placeholder(1)),
		Args: args,
	}, nil
}

// DeleteByID builds a primary key delete.
func (b *Builder) DeleteByID(table, id string) (Statement, error) {
	t, err := b.schema.Lookup(table)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		Query: fmt.Sprintf(`DELETE FROM %s WHERE "id" = %s`, quote(t.Name), b.dialect.Placeholder(1)),
		Args:  []any{id},
	}, nil
}

// DeleteWhere builds an exact-match delete returning the removed ids. Nil
// values match NULL.
func (b *Builder) DeleteWhere(table string, conditions map[string]any) (Statement, error) {
	t, err := b.schema.Lookup(table)
	if err != nil {
		return Statement{}, err
	}
	if len(conditions) == 0 {
		return Statement{}, ErrNoConditions
	}

	var (
		clauses []string
		args    []any
	)
	for _, field := range sortedKeys(conditions) {
		column, err := b.schema.Column(table, field)
		if err != nil {
			return Statement{}, err
		}
		value := conditions[field]
		if value == nil {
			clauses = append(clauses, quote(column)+" IS NULL")
			continue
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = %s", quote(column), b.dialect.Placeholder(len(args))))
	}

	return Statement{
		Query: fmt.Sprintf(`DELETE FROM %s WHERE %s RETURNING "id"`,
			quote(t.Name), strings.Join(clauses, " AND ")),
		Args: args,
	}, nil
}

// Search builds a text search over the table's search fields. The term is
// matched as a lowercased substring; case-sensitive fields match the term as
// given.
func (b *Builder) Search(table, term string, limit int) (Statement, error) {
	t, err := b.schema.Lookup(table)
	if err != nil {
		return Statement{}, err
	}
	if len(t.SearchFields) == 0 {
		return Statement{}, errors.Wrapf(ErrNotSearchable, "%q", table)
	}

	args := []any{"%" + strings.ToLower(term) + "%"}
	exact := ""
	var clauses []string
	for _, f := range t.SearchFields {
		if f.CaseSensitive {
			if exact == "" {
				args = append(args, "%"+term+"%")
				exact = b.dialect.Placeholder(len(args))
			}
			clauses = append(clauses, fmt.Sprintf("CAST(%s AS TEXT) LIKE %s", quote(f.Column), exact))
			continue
		}
		clauses = append(clauses, fmt.Sprintf("LOWER(CAST(%s AS TEXT)) LIKE %s", quote(f.Column), b.dialect.Placeholder(1)))
	}

	orderBy, err := b.orderBy(t, Sort{})
	if err != nil {
		return Statement{}, err
	}

	q := fmt.Sprintf("SELECT * FROM %s WHERE %s%s", quote(t.Name), strings.Join(clauses, " OR "), orderBy)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	return Statement{Query: q, Args: args}, nil
}

func (b *Builder) orderBy(t *Table, s Sort) (string, error) {
	if s.IsZero() {
		s = t.DefaultSort
	}
	if s.IsZero() {
		return "", nil
	}

	column, err := b.schema.Column(t.Name, s.Field)
	if err != nil {
		return "", err
	}

	direction := "ASC"
	if ParseOrder(string(s.Order)) == OrderDesc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", quote(column), direction), nil
}

func quote(identifier string) string {
	return `"` + identifier + `"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
