package rowcodec

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Record is a decoded row keyed by camelCase field name.
type Record map[string]any

// ID returns the record id as a string, or "" when it is missing.
func (r Record) ID() string {
	if r == nil {
		return ""
	}
	switch v := r["id"].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Schema reports which columns of a table hold JSON-encoded values.
type Schema interface {
	IsStructured(table, column string) bool
}

// Codec translates between store rows and Records.
type Codec struct {
	schema Schema
}

// New returns a Codec for the given schema.
func New(schema Schema) *Codec {
	return &Codec{schema: schema}
}

// Decode converts a raw row (snake_case column -> driver value) into a Record.
// Structured columns are JSON-decoded; malformed JSON is kept as a string.
// Byte slices in other columns become strings. A nil row decodes to nil.
func (c *Codec) Decode(table string, raw map[string]any) Record {
	if raw == nil {
		return nil
	}

	out := make(Record, len(raw))
	for column, value := range raw {
		if c.schema != nil && c.schema.IsStructured(table, column) {
			value = decodeStructured(value)
		} else if b, ok := value.([]byte); ok {
			value = string(b)
		}
		out[ToCamel(column)] = value
	}

	return out
}

// DecodeAll decodes every row, preserving order. The result is never nil.
func (c *Codec) DecodeAll(table string, rows []map[string]any) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, c.Decode(table, row))
	}
	return out
}

// Encode converts caller data (camelCase or snake_case keys) into column
// values ready to bind. Structured values are JSON-encoded, strings included;
// json.RawMessage and []byte are taken as already encoded JSON. nil stays nil
// and binds as NULL.
func (c *Codec) Encode(table string, data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for field, value := range data {
		column := ToSnake(field)
		if column == "" {
			return nil, errors.Newf("rowcodec: invalid field name %q", field)
		}
		if _, dup := out[column]; dup {
			return nil, errors.Newf("rowcodec: field %q maps to column %q more than once", field, column)
		}

		if c.schema != nil && c.schema.IsStructured(table, column) {
			encoded, err := encodeStructured(value)
			if err != nil {
				return nil, errors.Wrapf(err, "rowcodec: encode %s.%s", table, column)
			}
			value = encoded
		}
		out[column] = value
	}
	return out, nil
}

// FromStruct converts a typed value into a Record through its JSON tags.
func FromStruct(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "rowcodec: marshal struct")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out Record
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrap(err, "rowcodec: unmarshal struct")
	}

	// top-level numbers bind as int64 or float64; nested values are
	// re-encoded as JSON and keep their textual form.
	for k, v := range out {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				out[k] = i
			} else if f, err := n.Float64(); err == nil {
				out[k] = f
			}
		}
	}
	return out, nil
}

func decodeStructured(value any) any {
	var text []byte
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		text = []byte(v)
	case []byte:
		text = v
	default:
		return value
	}

	var decoded any
	if err := json.Unmarshal(text, &decoded); err != nil {
		return string(text)
	}
	return decoded
}

func encodeStructured(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return string(v), nil
	case json.RawMessage:
		return string(v), nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
