// Package envelope - Response envelope shared by every API route
package envelope

import (
	"net/http"

	apperrors "agrimarket/internal/errors"
)

// Response is the JSON body returned by every route
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the machine-readable part of a failure
type ErrorBody struct {
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
	ID    string `json:"id,omitempty"`
}

// OK wraps data in a successful envelope
func OK(message string, data interface{}) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// Fail builds the envelope and HTTP status for err.
// Errors that are not typed are reported as internal without leaking their text.
func Fail(err error) (Response, int) {
	e, ok := apperrors.As(err)
	if !ok {
		return Response{
			Success: false,
			Message: "internal server error",
			Error:   &ErrorBody{Code: string(apperrors.TypeInternal)},
		}, http.StatusInternalServerError
	}

	body := &ErrorBody{
		Code:  string(e.Type),
		Field: e.Field,
	}
	if id, ok := e.Context["id"].(string); ok {
		body.ID = id
	}

	message := e.Message
	status := StatusFor(e.Type)
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}

	return Response{
		Success: false,
		Message: message,
		Error:   body,
	}, status
}

// StatusFor maps an error type to an HTTP status
func StatusFor(t apperrors.Type) int {
	switch t {
	case apperrors.TypeValidation:
		return http.StatusBadRequest
	case apperrors.TypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
