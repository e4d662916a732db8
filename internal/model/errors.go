package model

import "errors"

// Result variants returned by LedgerStore and CutCoordinator. Callers match
// with errors.Is and handle every case explicitly; only unexpected conditions
// (I/O corruption, serialization bugs) travel as plain wrapped errors.
var (
	// ErrConflict: another non-deleted cut is already open, or a duplicate
	// trigger was detected for the same window or idempotency key.
	ErrConflict = errors.New("conflict: an open cash cut already exists")

	// ErrNotFound: unknown cut id, or no open cut when one was required.
	ErrNotFound = errors.New("cash cut not found")

	// ErrNotOpen: mutation attempted on a closed cut.
	ErrNotOpen = errors.New("cash cut is not open")

	// ErrAlreadyCutting: another trigger for the same coordinator is in
	// flight and the caller timed out waiting for it.
	ErrAlreadyCutting = errors.New("another cut trigger is in flight")

	// ErrStorageUnavailable: the backing store is unreachable. No partial
	// cut is ever created under this error.
	ErrStorageUnavailable = errors.New("ledger storage unavailable")

	// ErrValidation: negative amount, malformed window, missing actor.
	ErrValidation = errors.New("validation error")
)
