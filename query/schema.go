package query

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-tablecache/rowcodec"
)

const (
	TablePosts    = "posts"
	TableUsers    = "users"
	TableComments = "comments"
	TableFiles    = "files"
)

var (
	// ErrUnknownTable is returned for tables outside the allow-list.
	ErrUnknownTable = errors.New("query: unknown table")
	// ErrUnknownField is returned for columns outside a table's allow-list.
	ErrUnknownField = errors.New("query: unknown field")
)

// SearchField is a text column scanned by Search.
type SearchField struct {
	Column string
	// CaseSensitive columns are matched against the original term instead
	// of the lowercased one.
	CaseSensitive bool
}

// Table describes one allow-listed table.
type Table struct {
	Name         string
	Columns      []string
	Structured   []string
	SearchFields []SearchField
	DefaultSort  Sort

	columns    map[string]struct{}
	structured map[string]struct{}
}

// HasColumn reports whether column is allow-listed.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.columns[column]
	return ok
}

// Schema is the identifier allow-list for every table the layer serves.
type Schema struct {
	tables map[string]*Table
}

// NewSchema indexes the given tables.
func NewSchema(tables ...Table) *Schema {
	s := &Schema{tables: make(map[string]*Table, len(tables))}
	for i := range tables {
		t := tables[i]
		t.columns = make(map[string]struct{}, len(t.Columns))
		for _, c := range t.Columns {
			t.columns[c] = struct{}{}
		}
		t.structured = make(map[string]struct{}, len(t.Structured))
		for _, c := range t.Structured {
			t.structured[c] = struct{}{}
		}
		s.tables[t.Name] = &t
	}
	return s
}

// DefaultSchema returns the posts, users, comments and files tables.
func DefaultSchema() *Schema {
	return NewSchema(
		Table{
			Name: TablePosts,
			Columns: []string{
				"id", "title", "icon", "thumbnail", "star", "whatnews", "description",
				"author", "created_at", "links", "stats",
			},
			Structured: []string{"whatnews", "links", "stats"},
			SearchFields: []SearchField{
				{Column: "title"},
				{Column: "description"},
				{Column: "author"},
			},
			DefaultSort: Sort{Field: "created_at", Order: OrderDesc},
		},
		Table{
			Name: TableUsers,
			Columns: []string{
				"id", "username", "email", "display_name", "avatar", "bio",
				"created_at", "favorites", "following", "followers",
			},
			Structured: []string{"favorites", "following", "followers"},
			SearchFields: []SearchField{
				{Column: "username"},
				{Column: "display_name"},
				{Column: "id", CaseSensitive: true},
			},
			DefaultSort: Sort{Field: "created_at", Order: OrderDesc},
		},
		Table{
			Name: TableComments,
			Columns: []string{
				"id", "post_id", "user_id", "text", "timestamp", "likes",
				"dislikes", "replies",
			},
			Structured:  []string{"replies"},
			DefaultSort: Sort{Field: "timestamp", Order: OrderDesc},
		},
		Table{
			Name: TableFiles,
			Columns: []string{
				"id", "filename", "original_name", "blob_url", "mimetype",
				"size", "uploaded_at", "expired_at", "updated_at",
			},
			DefaultSort: Sort{Field: "uploaded_at", Order: OrderDesc},
		},
	)
}

// Lookup returns the table definition or ErrUnknownTable.
func (s *Schema) Lookup(table string) (*Table, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTable, "%q", table)
	}
	return t, nil
}

// Column resolves a caller field name (camelCase or snake_case) to an
// allow-listed column.
func (s *Schema) Column(table, field string) (string, error) {
	t, err := s.Lookup(table)
	if err != nil {
		return "", err
	}
	column := rowcodec.ToSnake(field)
	if !t.HasColumn(column) {
		return "", errors.Wrapf(ErrUnknownField, "%s.%q", table, field)
	}
	return column, nil
}

// IsStructured reports whether column holds JSON text at rest.
func (s *Schema) IsStructured(table, column string) bool {
	t, ok := s.tables[table]
	if !ok {
		return false
	}
	_, ok = t.structured[column]
	return ok
}

// Tables returns the table names in sorted order.
func (s *Schema) Tables() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
