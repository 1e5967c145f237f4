// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps service errors to status codes in one place.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"invoicer/internal/core"
	"invoicer/internal/log"
	"invoicer/internal/notify"
	"invoicer/internal/storage"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the body. An encoding failure turns the response into a
// 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		b.statusCode = http.StatusInternalServerError
		data = []byte(`{"error":"internal server error"}`)
	}
	b.headers["Content-Type"] = "application/json; charset=utf-8"
	b.body = data
	return b
}

// Attachment sets a downloadable body.
func (b *ResponseBuilder) Attachment(filename, contentType string, data []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.headers["Content-Disposition"] = fmt.Sprintf("attachment; filename=%q", filename)
	b.headers["Content-Length"] = strconv.Itoa(len(data))
	b.body = data
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

// ValidationErrorResponse creates a 422 listing the failing fields.
func ValidationErrorResponse(v *core.ValidationError) *ResponseBuilder {
	return NewResponse().Status(http.StatusUnprocessableEntity).
		JSON(errorBody{Error: "validation failed", Fields: v.Fields})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(what string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, what+" not found")
}

// PreconditionRequiredError is sent for deletes without confirmation.
func PreconditionRequiredError() *ResponseBuilder {
	return ErrorResponse(http.StatusPreconditionRequired,
		"delete must be confirmed with ?confirm=true or the X-Confirm: true header")
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// errorFor maps a service error to a response. what names the entity for
// not found and conflict messages, op the operation in the log line.
// Unexpected errors are logged and hidden.
func errorFor(ctx context.Context, err error, what, op string) *ResponseBuilder {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return ValidationErrorResponse(verr)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, notify.ErrNotFound):
		return NotFoundError(what)
	case errors.Is(err, storage.ErrConflict):
		return ErrorResponse(http.StatusConflict, what+" is still referenced by other records")
	case errors.Is(err, context.DeadlineExceeded):
		log.FromContext(ctx).WarnContext(ctx, "Request timed out", log.FieldEntity, what, log.FieldError, err)
		return ErrorResponse(http.StatusGatewayTimeout, "request timed out")
	default:
		log.NewStructuredLogger(log.FromContext(ctx)).
			LogError(ctx, "Request failed", err, log.ComponentHTTP, op, log.LogFields{log.FieldEntity: what})
		return InternalServerError()
	}
}

// writeJSON is the common success path.
func writeJSON(w http.ResponseWriter, status int, v any) {
	NewResponse().Status(status).JSON(v).Write(w)
}

func writeError(w http.ResponseWriter, r *http.Request, err error, what string) {
	errorFor(r.Context(), err, what, operation(r.Method)).Write(w)
}

// logWrite records a committed create against the request-scoped logger so
// the line carries the request id.
func logWrite(r *http.Request, component, id string, amountCents int64) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogWrite(r.Context(), component, operation(r.Method), id, amountCents)
}

func operation(method string) string {
	switch method {
	case http.MethodPost:
		return log.OpCreate
	case http.MethodPut, http.MethodPatch:
		return log.OpUpdate
	case http.MethodDelete:
		return log.OpDelete
	default:
		return log.OpRead
	}
}
