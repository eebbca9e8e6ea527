package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/logging"
	"github.com/Skotchmaster/iam/internal/transport"
)

// ApiError is the body of every error response produced by a handler.
type ApiError struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Path      string            `json:"path"`
	Details   map[string]string `json:"details,omitempty"`
}

type errorClass struct {
	target  error
	status  int
	message string
}

// Order matters: the first matching class wins.
var errorClasses = []errorClass{
	{domain.ErrValidation, http.StatusBadRequest, "Validation failed"},
	{domain.ErrRevokedToken, http.StatusUnauthorized, "token revoked"},
	{domain.ErrAuthentication, http.StatusUnauthorized, "Invalid or expired credentials"},
	{domain.ErrAuthorization, http.StatusForbidden, "Access is denied"},
	{domain.ErrNotFound, http.StatusNotFound, "Resource not found"},
	{domain.ErrConflict, http.StatusConflict, "Resource already exists"},
	{domain.ErrInternal, http.StatusInternalServerError, "Internal server error"},
}

func classify(err error) (int, string) {
	for _, ec := range errorClasses {
		if errors.Is(err, ec.target) {
			return ec.status, ec.message
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}
	return http.StatusInternalServerError, "Internal server error"
}

// ErrorHandler renders handler errors as ApiError. Internal causes are logged
// and never written to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "err", err)
	}

	body := ApiError{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      c.Request().URL.Path,
		Details:   transport.ValidationDetails(err),
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response_failed", "err", werr)
	}
}
