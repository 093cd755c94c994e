// Package datalayer is the cached data-access layer over the posts, users,
// comments and files tables.
//
// A Layer is table-agnostic: callers pass a table name and plain maps, and
// get back Records keyed by camelCase field names. Table and field names are
// checked against a query.Schema allow-list before any SQL is built; values
// are always bound parameters.
//
// Reads go through a cache.CacheService:
//
//	records := layer.FindAll(ctx, "posts", datalayer.Filters{"title": "alpha"}, datalayer.Sort{})
//	post, ok := layer.FindByID(ctx, "posts", id)
//
// Writes invalidate the record entries they touch and every list entry of
// the table, so a read issued after a write on the same Layer never sees the
// pre-write state. Other processes may serve stale data until their entries
// expire.
//
// Reads never return errors. Failures are logged and degrade to an empty or
// absent result. Create and Update return *WriteError.
package datalayer
