// Package sentinel defines the errors stores report about resource state.
// Services translate them into coded domain errors; handlers never see them.
package sentinel

import "errors"

// The sentinels describe facts about a stored resource, not bad input:
//
//   - ErrNotFound: no such row, blob, or key
//   - ErrConflict: a unique constraint or competing write lost the race
//   - ErrExpired: the state, session, or slot outlived its TTL
//   - ErrAlreadyUsed: a single-use resource (login state) was already consumed
//   - ErrInvalidState: the resource exists but cannot serve this operation
//   - ErrUnavailable: the backing service did not answer
//
// Validation failures go straight to pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
