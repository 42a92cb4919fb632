package shared

import "errors"

// Sentinel errors shared across domain modules. Services wrap these with
// %w and a human-readable reason; httpx.RespondError maps them to statuses.
var (
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates the entity exists but its current state
	// does not permit the requested transition.
	ErrInvalidState = errors.New("invalid state")
	// ErrQuantityMismatch indicates reported QC quantities do not add up
	// to the recorded completed quantity.
	ErrQuantityMismatch = errors.New("quantity mismatch")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrForbidden indicates the actor's role does not permit the action.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
