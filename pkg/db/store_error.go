package db

import "fmt"

// StoreError marks a write that violated a store invariant, e.g. inserting
// a subsumsjon with no matching behov. Always fatal to the triggering
// operation and never retried automatically.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
