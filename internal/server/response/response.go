// Package response provides standardized HTTP response structures and helpers
// for the atlas API server. All API responses follow a consistent format
// with a data field for successful responses and an error field for failures.
package response

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/errors"
)

// Response represents the standardized API response structure.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error represents an API error with code, message, and optional details.
type Error struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Details     string   `json:"details,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Error codes for domain failures.
const (
	CodeUnknownGene      = "UNKNOWN_GENE"
	CodeEmptyGroup       = "EMPTY_GROUP"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL_ERROR"
)

// Success creates a successful response with data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail creates an error response.
func Fail(code, message, details string) Response {
	return Response{
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors are ignored as headers are already sent (best effort)
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes a successful response with 200 status.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail(CodeBadRequest, message, details))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusNotFound, Fail(CodeNotFound, message, details))
}

// MethodNotAllowed writes a 405 error response.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, Fail(
		"METHOD_NOT_ALLOWED",
		"Method not allowed",
		"Method "+method+" is not supported for this endpoint",
	))
}

// InternalError writes a 500 error response without exposing the cause.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		CodeInternal,
		"Internal server error",
		"An unexpected error occurred",
	))
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	JSON(w, http.StatusServiceUnavailable, Fail(
		"SERVICE_UNAVAILABLE",
		"Service unavailable",
		message,
	))
}

// ErrorBody maps a typed error to its HTTP status and API error. It is
// shared by the REST handlers and the explorer WebSocket.
func ErrorBody(err error) (int, *Error) {
	var unknown *errors.UnknownGeneError
	var empty *errors.EmptyGroupError
	var insufficient *errors.InsufficientDataError
	var notFound *errors.NotFoundError
	var invalid *errors.ValidationError

	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound, &Error{
			Code:        CodeUnknownGene,
			Message:     unknown.Error(),
			Details:     constants.MissingGeneNote,
			Suggestions: unknown.Suggestions,
		}
	case errors.As(err, &empty):
		return http.StatusUnprocessableEntity, &Error{Code: CodeEmptyGroup, Message: empty.Error()}
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity, &Error{Code: CodeInsufficientData, Message: insufficient.Error()}
	case errors.As(err, &notFound):
		return http.StatusNotFound, &Error{Code: CodeNotFound, Message: notFound.Error()}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, &Error{Code: CodeBadRequest, Message: invalid.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, &Error{Code: CodeTimeout, Message: "Request timed out"}
	default:
		return http.StatusInternalServerError, &Error{
			Code:    CodeInternal,
			Message: "Internal server error",
			Details: "An unexpected error occurred",
		}
	}
}

// ErrorFromType maps typed errors to appropriate HTTP responses.
func ErrorFromType(w http.ResponseWriter, err error) {
	status, body := ErrorBody(err)
	JSON(w, status, Response{Error: body})
}
