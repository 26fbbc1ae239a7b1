package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and blob backends return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: listing or object does not exist
//   - ErrConflict: a record with the same identity already exists
//   - ErrInvalidState: a conditional update found the record in an unexpected state
//   - ErrUnavailable: backing service unreachable
//
// Validation failures are not sentinels; services return pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
