package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind groups error codes into the classes callers branch on.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindState         Kind = "state"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindInternal      Kind = "internal"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeMissingField    = "MISSING_FIELD"
	CodeInvalidDate     = "INVALID_DATE"
	CodeInvalidStatus   = "INVALID_STATUS"
	CodeInvalidState    = "INVALID_STATE"
	CodeAlreadyReleased = "ALREADY_RELEASED"
	CodeEventClosed     = "EVENT_CLOSED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// Sentinels for errors.Is. An *AppError matches a sentinel when the codes are equal.
var (
	ErrNotFound        = &AppError{Kind: KindNotFound, Code: CodeNotFound}
	ErrMissingField    = &AppError{Kind: KindValidation, Code: CodeMissingField}
	ErrInvalidDate     = &AppError{Kind: KindValidation, Code: CodeInvalidDate}
	ErrInvalidStatus   = &AppError{Kind: KindValidation, Code: CodeInvalidStatus}
	ErrInvalidState    = &AppError{Kind: KindState, Code: CodeInvalidState}
	ErrAlreadyReleased = &AppError{Kind: KindState, Code: CodeAlreadyReleased}
	ErrEventClosed     = &AppError{Kind: KindState, Code: CodeEventClosed}
	ErrForbidden       = &AppError{Kind: KindAuthorization, Code: CodeForbidden}
	ErrConflict        = &AppError{Kind: KindConflict, Code: CodeConflict}
)

type AppError struct {
	Kind       Kind           `json:"kind"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *AppError) StatusCode() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(kind Kind, code, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, kind Kind, code, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return New(KindNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NotFoundWithID(resource, id string) *AppError {
	return NotFound(resource).WithDetails(map[string]any{
		"resource": resource,
		"id":       id,
	})
}

func Validation(message string, details map[string]any) *AppError {
	return New(KindValidation, CodeValidation, message, http.StatusUnprocessableEntity).WithDetails(details)
}

func InvalidInput(message string) *AppError {
	return New(KindValidation, CodeInvalidInput, message, http.StatusBadRequest)
}

func MissingField(fields ...string) *AppError {
	return New(KindValidation, CodeMissingField, "Missing required fields", http.StatusBadRequest).
		WithDetails(map[string]any{"fields": fields})
}

func InvalidDate(message string) *AppError {
	return New(KindValidation, CodeInvalidDate, message, http.StatusBadRequest)
}

func InvalidStatus(status string) *AppError {
	return New(KindValidation, CodeInvalidStatus, fmt.Sprintf("Invalid status: %q", status), http.StatusBadRequest)
}

func InvalidState(message string) *AppError {
	return New(KindState, CodeInvalidState, message, http.StatusConflict)
}

func AlreadyReleased(bookingID string) *AppError {
	return New(KindState, CodeAlreadyReleased, "Escrow already released", http.StatusConflict).
		WithDetails(map[string]any{"booking_id": bookingID})
}

func EventClosed(eventID string) *AppError {
	return New(KindState, CodeEventClosed, "Event is not open for bidding", http.StatusConflict).
		WithDetails(map[string]any{"event_id": eventID})
}

func Unauthorized(message string) *AppError {
	return New(KindAuthorization, CodeUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	return New(KindAuthorization, CodeForbidden, message, http.StatusForbidden)
}

func Conflict(message string) *AppError {
	return New(KindConflict, CodeConflict, message, http.StatusConflict)
}

func Internal(message string, err error) *AppError {
	return Wrap(err, KindInternal, CodeInternal, message, http.StatusInternalServerError)
}

func Timeout(message string) *AppError {
	return New(KindInternal, CodeTimeout, message, http.StatusGatewayTimeout)
}

func Unavailable(service string) *AppError {
	return New(KindInternal, CodeUnavailable, fmt.Sprintf("%s is temporarily unavailable", service), http.StatusServiceUnavailable)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
