package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is returned to callers at the service boundary. The cause is logged and traced but
// only its message is exposed.
type Error struct {
	Name       string `json:"error"`
	Code       int    `json:"code"`
	Message    string `json:"msg"`
	Cause      string `json:"cause,omitempty"`
	HTTPStatus int    `json:"status"`

	cause error
}

var (
	ErrInvalidRequest     = Error{Code: 1000, Name: "InvalidRequest", Message: "Invalid request", HTTPStatus: http.StatusBadRequest}
	ErrUnsupportedTrigger = Error{Code: 1001, Name: "UnsupportedTrigger", Message: "Unsupported trigger source", HTTPStatus: http.StatusBadRequest}
	ErrDeliveryFailed     = Error{Code: 2000, Name: "DeliveryFailed", Message: "Failed to deliver the verification code", HTTPStatus: http.StatusServiceUnavailable}
	ErrInternalError      = Error{Code: 9000, Name: "InternalError", Message: "Internal error", HTTPStatus: http.StatusInternalServerError}
)

func (e Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s %d: %s: %v", e.Name, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s %d: %s", e.Name, e.Code, e.Message)
}

func (e Error) Is(target error) bool {
	var rpcErr Error
	if errors.As(target, &rpcErr) {
		return rpcErr.Code == e.Code
	}
	return false
}

func (e Error) Unwrap() error {
	return e.cause
}

func (e Error) WithCause(cause error) Error {
	if cause == nil {
		return e
	}
	err := e
	err.cause = cause
	err.Cause = cause.Error()
	return err
}

func (e Error) WithCausef(format string, args ...any) Error {
	cause := fmt.Errorf(format, args...)
	err := e
	err.cause = cause
	err.Cause = cause.Error()
	return err
}

// RespondWithError writes err as a JSON error body. Errors that are not an Error are
// reported as ErrInternalError without exposing their message.
func RespondWithError(w http.ResponseWriter, err error) {
	var rpcErr Error
	if !errors.As(err, &rpcErr) {
		rpcErr = ErrInternalError
	}
	// causes may carry recipient details, keep them server side
	rpcErr.Cause = ""

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rpcErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(rpcErr)
}
