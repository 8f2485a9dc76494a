package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyLedger is returned when an operation needs a genesis block and there is none
	ErrEmptyLedger = errors.New("ledger: no genesis block")
	// ErrNotFound is returned by lookups that match nothing
	ErrNotFound = errors.New("ledger: not found")
	// ErrIntegrity is returned when a loaded chain fails validation
	ErrIntegrity = errors.New("ledger: integrity check failed")
	// ErrUnknownLedger is returned by the registry for unregistered names
	ErrUnknownLedger = errors.New("ledger: unknown ledger")
)

// SerializationError reports a payload that cannot be canonically encoded
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("ledger: payload cannot be canonically encoded: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
