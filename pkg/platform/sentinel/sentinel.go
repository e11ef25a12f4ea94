package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: no record exists for the key
//   - ErrConflict: a conditional put found an existing record
//   - ErrUnavailable: backing store temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
