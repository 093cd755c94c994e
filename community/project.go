package community

import "github.com/goliatone/go-tablecache/datalayer"

// Project returns {field: value} for a field present on record.
func Project(record datalayer.Record, field string) (datalayer.Record, error) {
	v, ok := record[field]
	if !ok {
		return nil, ErrFieldNotFound
	}
	return datalayer.Record{field: v}, nil
}

// projectAll keeps {id, field} for every record whose field holds a
// non-empty value.
func projectAll(records []datalayer.Record, field string) []datalayer.Record {
	out := make([]datalayer.Record, 0, len(records))
	for _, r := range records {
		if v, ok := r[field]; ok && present(v) {
			out = append(out, datalayer.Record{"id": r["id"], field: v})
		}
	}
	return out
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
