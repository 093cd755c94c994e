package datalayer

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-tablecache/internal/sqlstore"
)

// ErrorKind classifies a failed write.
type ErrorKind string

const (
	// KindConstraint is a uniqueness, not-null or check violation.
	KindConstraint ErrorKind = "constraint"
	// KindInvalid is a request the layer refused before reaching the store.
	KindInvalid ErrorKind = "invalid"
	// KindStore is any other store failure.
	KindStore ErrorKind = "store"
)

// ErrMissingID is returned by Create when the data carries no id.
var ErrMissingID = errors.New("datalayer: record id is required")

// WriteError is returned by Create and Update.
type WriteError struct {
	Op    string
	Table string
	ID    string
	Kind  ErrorKind
	Err   error
}

func (e *WriteError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("datalayer: %s %s/%s (%s): %v", e.Op, e.Table, e.ID, e.Kind, e.Err)
	}
	return fmt.Sprintf("datalayer: %s %s (%s): %v", e.Op, e.Table, e.Kind, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *WriteError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var we *WriteError
	return errors.As(err, &we) && we.Kind == kind
}

func invalid(op, table, id string, err error) *WriteError {
	return &WriteError{Op: op, Table: table, ID: id, Kind: KindInvalid, Err: err}
}

func storeFailure(op, table, id string, err error) *WriteError {
	kind := KindStore
	if sqlstore.IsConstraintViolation(err) {
		kind = KindConstraint
	}
	return &WriteError{Op: op, Table: table, ID: id, Kind: kind, Err: err}
}
