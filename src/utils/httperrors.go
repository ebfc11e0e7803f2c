package utils

import (
	"net/http"
)

// HTTPError is an error that knows the status it should be rendered with.
type HTTPError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

func NewHTTPError(code int, message string) error {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

func BadRequest(message string) error {
	return NewHTTPError(http.StatusBadRequest, message)
}

func NotFound(message string) error {
	return NewHTTPError(http.StatusNotFound, message)
}

// Conflict is returned when a portfolio is already being computed and the
// configured policy rejects concurrent requests.
func Conflict(message string) error {
	return NewHTTPError(http.StatusConflict, message)
}

func InternalServerError(message string) error {
	return NewHTTPError(http.StatusInternalServerError, message)
}
