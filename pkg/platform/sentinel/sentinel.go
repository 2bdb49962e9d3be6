package sentinel

import "errors"

// Sentinel errors for storage facts. Ledger stores return these (optionally
// wrapped) and services translate them into domain errors:
// - ErrNotFound: no row or entry exists for the key
// - ErrConflict: a unique key (name hash, sub-record key, TLD) is already taken
// - ErrUnavailable: the backing store cannot serve the request right now
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
