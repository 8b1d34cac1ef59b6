package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/logging"
)

// Stable error codes carried in ErrorResponse.Error.
const (
	CodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	CodeResourceNotFound       = "RESOURCE_NOT_FOUND"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeRefreshExpiredRevoked  = "REFRESH_TOKEN_EXPIRED_OR_REVOKED"
	CodeConflict               = "CONFLICT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeTokenExpired           = "TOKEN_EXPIRED"
	CodeTokenMalformed         = "TOKEN_MALFORMED"
	CodeTokenBadSignature      = "TOKEN_INVALID_SIGNATURE"
	CodeTokenInvalid           = "TOKEN_INVALID"
	CodeAccessDenied           = "ACCESS_DENIED"
	CodeInternal               = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Status        int       `json:"status"`
	Error         string    `json:"error"`
	Message       string    `json:"message"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// errAccessDenied is raised by RequireRole.
var errAccessDenied = errors.New("access denied")

type apiError struct {
	status  int
	code    string
	message string
}

var errorTable = []struct {
	kind error
	apiError
}{
	{common.ErrAlreadyRegistered, apiError{http.StatusConflict, CodeEmailAlreadyRegistered, "Email is already registered"}},
	{common.ErrNotFound, apiError{http.StatusNotFound, CodeResourceNotFound, "Resource not found"}},
	{common.ErrInvalidCredentials, apiError{http.StatusUnauthorized, CodeInvalidCredentials, "Invalid credentials"}},
	{common.ErrExpiredOrRevoked, apiError{http.StatusUnauthorized, CodeRefreshExpiredRevoked, "Refresh token is expired or revoked"}},
	{common.ErrConflict, apiError{http.StatusConflict, CodeConflict, "Concurrent modification"}},
	{common.ErrValidation, apiError{http.StatusBadRequest, CodeValidation, "Validation failed"}},
	{common.ErrTokenExpired, apiError{http.StatusUnauthorized, CodeTokenExpired, "Authentication failed"}},
	{common.ErrTokenMalformed, apiError{http.StatusUnauthorized, CodeTokenMalformed, "Authentication failed"}},
	{common.ErrTokenBadSignature, apiError{http.StatusUnauthorized, CodeTokenBadSignature, "Authentication failed"}},
	{common.ErrInvalidToken, apiError{http.StatusUnauthorized, CodeTokenInvalid, "Authentication failed"}},
	{errAccessDenied, apiError{http.StatusForbidden, CodeAccessDenied, "Access denied"}},
}

func classify(err error) apiError {
	for _, e := range errorTable {
		if errors.Is(err, e.kind) {
			return e.apiError
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusBadRequest, http.StatusUnsupportedMediaType:
			return apiError{http.StatusBadRequest, CodeValidation, "Malformed request body"}
		case http.StatusNotFound:
			return apiError{http.StatusNotFound, CodeResourceNotFound, "Resource not found"}
		case http.StatusUnauthorized:
			return apiError{http.StatusUnauthorized, CodeTokenInvalid, "Authentication failed"}
		case http.StatusMethodNotAllowed:
			return apiError{http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed"}
		}
	}

	return apiError{http.StatusInternalServerError, CodeInternal, "Unexpected server error"}
}

// errorHandler renders err as an ErrorResponse. Only 5xx causes are logged
// with their detail; the client never sees it.
func errorHandler(log logging.Logger, now func() time.Time) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		ctx := c.Request().Context()
		ae := classify(err)
		if ae.status >= http.StatusInternalServerError {
			log.Error(ctx, "request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		} else {
			log.Debug(ctx, "request rejected", "path", c.Path(), "code", ae.code, "error", err)
		}

		body := ErrorResponse{
			Status:        ae.status,
			Error:         ae.code,
			Message:       ae.message,
			CorrelationID: logging.CorrelationID(ctx),
			Timestamp:     now().UTC(),
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(ae.status)
		} else {
			err = c.JSON(ae.status, body)
		}
		if err != nil {
			log.Warn(ctx, "error response not written", "error", err)
		}
	}
}
