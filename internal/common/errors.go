// Package common defines shared constants and sentinel errors used across
// the auth service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Lookup errors.
	ErrNotFound = errors.New("not found")

	// Registration and login.
	ErrAlreadyRegistered  = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Refresh token lifecycle. Expiry and revocation are reported as one kind.
	ErrExpiredOrRevoked = errors.New("refresh token expired or revoked")

	// Optimistic version mismatch or unique key collision on insert.
	ErrConflict = errors.New("conflict")

	// Access token kinds produced by the signer.
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")
	ErrInvalidToken      = errors.New("invalid token")

	// Validation of incoming requests.
	ErrValidation = errors.New("validation error")

	// Opaque collaborator fault.
	ErrInternal = errors.New("internal error")
)
