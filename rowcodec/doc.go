// Package rowcodec converts between relational rows and the camelCase records
// handed to callers.
//
// Column names are snake_case in the store and camelCase in records. Columns
// the schema marks as structured hold JSON text at rest and native values
// (maps, slices) in records.
package rowcodec
