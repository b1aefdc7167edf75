package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"splitkasse/internal/core"
	"splitkasse/internal/storage"
)

// JSONResponseBuilder assembles a JSON response.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse starts a 200 response with no body.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value to encode. A nil body writes no content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write encodes the body before anything is sent, so a value that cannot be
// encoded turns into a 500 instead of an empty success.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	var buf bytes.Buffer
	if b.body != nil {
		if err := json.NewEncoder(&buf).Encode(b.body); err != nil {
			slog.Error("Failed to encode JSON response", "error", err, "status_code", b.statusCode)
			InternalServerError().Write(w)
			return
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(buf.Bytes())
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorResponse builds {"error": message, "code": code}.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message, Code: code})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, "validation_failed", message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, "conflict", message)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later")
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", "internal server error")
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrInvalidIncome,
	core.ErrInvalidSplitMode,
	core.ErrInvalidRole,
	core.ErrEmptyLabel,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
}

// errorResponseFor maps service errors to API responses. The second result
// is false for unexpected errors, which callers log.
func errorResponseFor(err error) (*JSONResponseBuilder, bool) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return BadRequestError(reqErr.msg), true
	case errors.Is(err, storage.ErrNotFound):
		return NotFoundError(err.Error()), true
	case errors.Is(err, storage.ErrMonthClosed):
		return ErrorResponse(http.StatusConflict, "month_closed", err.Error()), true
	case errors.Is(err, storage.ErrMonthNotClosed):
		return ErrorResponse(http.StatusConflict, "month_not_closed", err.Error()), true
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return UnprocessableEntityError(err.Error()), true
		}
	}
	return InternalServerError(), false
}
