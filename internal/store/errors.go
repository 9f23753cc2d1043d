package store

import (
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// StoreError wraps a transport, constraint, or transaction failure
// from a backend. Transactional operations roll back before this is
// returned; the caller skips the enclosing file and recycles the
// connection (spec §7).
type StoreError struct {
	Op  string
	err error
}

func NewStoreError(op string, cause error) *StoreError {
	return &StoreError{Op: op, err: xerrors.New(cause)}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.err)
}

func (e *StoreError) Unwrap() error {
	return e.err
}
