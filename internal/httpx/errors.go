// Package httpx defines the operational error type and the central error
// translator installed on the Echo instance. Handlers return errors instead
// of writing ad hoc responses; expected failures carry a status code and a
// safe message, everything else is logged and rendered as a generic 500.
package httpx

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error is an operational error: expected, client-facing, safe to show.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError builds an operational error with the given status and message.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Shorthand constructors for the statuses the pipeline short-circuits with.
func BadRequest(msg string) *Error      { return NewError(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *Error    { return NewError(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *Error       { return NewError(http.StatusForbidden, msg) }
func NotFound(msg string) *Error        { return NewError(http.StatusNotFound, msg) }
func Conflict(msg string) *Error        { return NewError(http.StatusConflict, msg) }
func TooManyRequests(msg string) *Error { return NewError(http.StatusTooManyRequests, msg) }

// ErrorHandler translates any error escaping a handler or middleware into a
// JSON response. Operational errors keep their status and message;
// unexpected errors are logged with full detail and the client only sees a
// generic failure.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var opErr *Error
	if errors.As(err, &opErr) {
		_ = c.JSON(opErr.Code, echo.Map{"error": opErr.Message})
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		_ = c.JSON(httpErr.Code, echo.Map{"error": msg})
		return
	}

	c.Logger().Errorf("unhandled error: %v", err)
	_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "something went wrong"})
}
