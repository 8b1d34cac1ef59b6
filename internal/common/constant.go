package common

import "time"

const (
	// AuthorizationHeaderName carries "Bearer <access token>".
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// CorrelationIDHeaderName is read from and echoed to every HTTP exchange.
	CorrelationIDHeaderName = "X-Correlation-Id"

	// RefreshTokenValidity is the fixed lifetime of a refresh token.
	RefreshTokenValidity = 7 * 24 * time.Hour

	// RefreshTokenBytes is the amount of randomness behind a refresh token (256 bits).
	RefreshTokenBytes = 32
)
