package cache

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const listSegment = "list"

// RecordKey is the key of a single-record entry: table::id::<id>.
func RecordKey(s KeySerializer, table, id string) string {
	return s.SerializeKey(table, "id", id)
}

// ListPrefix is shared by every list entry of a table.
func ListPrefix(table string) string {
	return table + KeySeparator + listSegment + KeySeparator
}

// ListKey is the key of a list entry. The args are serialized and hashed so
// that keys stay short regardless of the size of the filter set.
func ListKey(s KeySerializer, table string, args ...any) string {
	digest := xxhash.Sum64String(s.SerializeKey(table, args...))
	return ListPrefix(table) + strconv.FormatUint(digest, 16)
}
