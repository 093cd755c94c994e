package datalayer

import (
	"context"

	"github.com/goliatone/go-tablecache/cache"
	"github.com/goliatone/go-tablecache/query"
)

// FindAll returns the rows of table matching every non-nil filter as a
// case-insensitive substring, ordered by sort or the table default. It never
// fails: unknown identifiers and store errors yield an empty slice.
func (l *Layer) FindAll(ctx context.Context, table string, filters Filters, sort Sort) []Record {
	stmt, err := l.builder.Select(table, filters, sort)
	if err != nil {
		l.log("find_all", table, "").WithError(err).Warn("rejected list query")
		return []Record{}
	}

	key := cache.ListKey(l.keys, table, stmt.Query, stmt.Args)
	// registered before the entry is stored so a write landing in between
	// still drops it.
	l.trackListKey(key)
	records, _, err := cache.Fetch(ctx, l.cache, key, func(ctx context.Context) ([]Record, bool, error) {
		l.log("find_all", table, "").Debug("cache miss")
		rows, err := l.queryRows(ctx, stmt)
		if err != nil {
			return nil, false, err
		}
		return l.codec.DecodeAll(table, rows), true, nil
	})
	if err != nil {
		l.log("find_all", table, "").WithError(err).Warn("list query failed")
		return []Record{}
	}

	// a write may have pruned the key while the loader ran.
	l.trackListKey(key)
	return cloneAll(records)
}

// FindByID returns the record with the given id. Absent records are not
// cached; store errors are logged and reported as absent.
func (l *Layer) FindByID(ctx context.Context, table, id string) (Record, bool) {
	stmt, err := l.builder.SelectByID(table, id)
	if err != nil {
		l.log("find_by_id", table, id).WithError(err).Warn("rejected lookup")
		return nil, false
	}

	record, found, err := cache.Fetch(ctx, l.cache, l.recordKey(table, id), func(ctx context.Context) (Record, bool, error) {
		l.log("find_by_id", table, id).Debug("cache miss")
		rows, err := l.queryRows(ctx, stmt)
		if err != nil || len(rows) == 0 {
			return nil, false, err
		}
		return l.codec.Decode(table, rows[0]), true, nil
	})
	if err != nil {
		l.log("find_by_id", table, id).WithError(err).Warn("lookup failed")
		return nil, false
	}
	if !found {
		return nil, false
	}

	return record.Clone(), true
}

// SearchType selects the tables scanned by Search.
type SearchType string

const (
	SearchAll   SearchType = "all"
	SearchPosts SearchType = "posts"
	SearchUsers SearchType = "users"
)

// SearchResult holds the per-table matches of a search.
type SearchResult struct {
	Posts []Record `json:"posts"`
	Users []Record `json:"users"`
}

// Merged returns posts followed by users.
func (r SearchResult) Merged() []Record {
	out := make([]Record, 0, len(r.Posts)+len(r.Users))
	out = append(out, r.Posts...)
	return append(out, r.Users...)
}

// Total is the number of matches across tables.
func (r SearchResult) Total() int {
	return len(r.Posts) + len(r.Users)
}

// Search matches term as a case-insensitive substring against the text
// fields of posts and users. Each table returns at most the search limit.
// Results are never cached. Unknown types match nothing.
func (l *Layer) Search(ctx context.Context, term string, typ SearchType) SearchResult {
	result := SearchResult{Posts: []Record{}, Users: []Record{}}

	if typ == SearchAll || typ == SearchPosts {
		result.Posts = l.search(ctx, query.TablePosts, term)
	}
	if typ == SearchAll || typ == SearchUsers {
		result.Users = l.search(ctx, query.TableUsers, term)
	}

	return result
}

func (l *Layer) search(ctx context.Context, table, term string) []Record {
	stmt, err := l.builder.Search(table, term, l.searchLimit)
	if err != nil {
		l.log("search", table, "").WithError(err).Warn("rejected search")
		return []Record{}
	}

	rows, err := l.queryRows(ctx, stmt)
	if err != nil {
		l.log("search", table, "").WithError(err).Warn("search failed")
		return []Record{}
	}
	return l.codec.DecodeAll(table, rows)
}

func cloneAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
