package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, locks and the vault return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: optimistic version check failed or the key already exists
//   - ErrLocked: another transition holds the submission lock
//   - ErrUnavailable: backing service temporarily unavailable
//
// For workflow outcomes (missing fields, guards, terminal state) use
// pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrLocked      = errors.New("locked")
	ErrUnavailable = errors.New("unavailable")
)
